package bluesky

import (
	"errors"
	"fmt"
)

// ErrNoSession is returned by authenticated calls made before Login.
var ErrNoSession = errors.New("bluesky: not logged in")

// APIError captures non-2xx XRPC responses.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("xrpc status %d", e.StatusCode)
	}
	return fmt.Sprintf("xrpc status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsExpiredToken reports whether err says the access token has expired.
func IsExpiredToken(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "ExpiredToken"
}
