package bot

import (
	"context"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

const truncationMarker = "..."

// Truncate cuts text to at most max runes, marker included.
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	markerLen := utf8.RuneCountInString(truncationMarker)
	if max <= markerLen {
		return string(runes[:max])
	}
	return string(runes[:max-markerLen]) + truncationMarker
}

// sleep waits for d or until ctx is done. It reports false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// newPacer spaces consecutive actions at least gap apart. The first Wait
// returns immediately.
func newPacer(gap time.Duration) *rate.Limiter {
	if gap <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(gap), 1)
}
