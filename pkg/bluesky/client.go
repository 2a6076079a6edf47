package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/sirupsen/logrus"
)

const DefaultService = "https://bsky.social"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

type authMode int

const (
	authNone authMode = iota
	authAccess
	authRefresh
)

type Options struct {
	HTTPClient *http.Client
	Retry      RetryConfig
	// Now stamps createdAt on new records. Defaults to time.Now.
	Now func() time.Time
}

// Client is an XRPC client for a single Bluesky account. It is safe for
// concurrent use.
type Client struct {
	service    string
	httpClient *http.Client
	queries    failsafe.Executor[*rawResponse]
	now        func() time.Time
	logger     *logrus.Logger

	mu      sync.RWMutex
	session *Session
}

func NewClient(service string, opts Options, logger *logrus.Logger) *Client {
	if service == "" {
		service = DefaultService
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	retry := opts.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		service:    strings.TrimRight(service, "/"),
		httpClient: httpClient,
		queries:    newQueryExecutor(retry),
		now:        now,
		logger:     logger,
	}
}

// Session returns a copy of the current session, or nil before Login.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// DID returns the logged-in account's DID.
func (c *Client) DID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.DID
}

func (c *Client) Login(ctx context.Context, identifier, password string) error {
	body := map[string]string{
		"identifier": identifier,
		"password":   password,
	}
	var session Session
	err := c.do(ctx, http.MethodPost, "com.atproto.server.createSession", nil, body, &session, authNone)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()

	c.logger.WithField("handle", session.Handle).Info("Logged in to Bluesky")
	return nil
}

// RefreshSession exchanges the refresh token for a new token pair.
func (c *Client) RefreshSession(ctx context.Context) error {
	var session Session
	err := c.do(ctx, http.MethodPost, "com.atproto.server.refreshSession", nil, nil, &session, authRefresh)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}

	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()

	c.logger.Debug("Refreshed Bluesky session")
	return nil
}

func (c *Client) ListNotifications(ctx context.Context, limit int) ([]Notification, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := c.call(ctx, http.MethodGet, "app.bsky.notification.listNotifications", query, nil, &out); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out.Notifications, nil
}

// UpdateSeen marks every notification up to seenAt as read.
func (c *Client) UpdateSeen(ctx context.Context, seenAt time.Time) error {
	body := map[string]string{"seenAt": formatTime(seenAt)}
	if err := c.call(ctx, http.MethodPost, "app.bsky.notification.updateSeen", nil, body, nil); err != nil {
		return fmt.Errorf("update seen: %w", err)
	}
	return nil
}

// GetPostThread returns the post at uri with its direct replies.
func (c *Client) GetPostThread(ctx context.Context, uri string) (*ThreadView, error) {
	query := url.Values{}
	query.Set("uri", uri)
	query.Set("depth", "1")
	query.Set("parentHeight", "1")
	var out struct {
		Thread *ThreadView `json:"thread"`
	}
	if err := c.call(ctx, http.MethodGet, "app.bsky.feed.getPostThread", query, nil, &out); err != nil {
		return nil, fmt.Errorf("get post thread: %w", err)
	}
	return out.Thread, nil
}

func (c *Client) GetPosts(ctx context.Context, uris []string) ([]PostView, error) {
	query := url.Values{}
	for _, uri := range uris {
		query.Add("uris", uri)
	}
	var out struct {
		Posts []PostView `json:"posts"`
	}
	if err := c.call(ctx, http.MethodGet, "app.bsky.feed.getPosts", query, nil, &out); err != nil {
		return nil, fmt.Errorf("get posts: %w", err)
	}
	return out.Posts, nil
}

// CreatePost publishes a post, as a reply when reply is non-nil.
func (c *Client) CreatePost(ctx context.Context, text string, reply *ReplyRef) (StrongRef, error) {
	record := PostRecord{
		Type:      CollectionPost,
		Text:      text,
		CreatedAt: formatTime(c.now()),
		Reply:     reply,
		Langs:     []string{"en"},
	}
	ref, err := c.createRecord(ctx, CollectionPost, record)
	if err != nil {
		return StrongRef{}, fmt.Errorf("create post: %w", err)
	}
	return ref, nil
}

// Follow creates a follow record for did.
func (c *Client) Follow(ctx context.Context, did string) (StrongRef, error) {
	record := map[string]string{
		"$type":     CollectionFollow,
		"subject":   did,
		"createdAt": formatTime(c.now()),
	}
	ref, err := c.createRecord(ctx, CollectionFollow, record)
	if err != nil {
		return StrongRef{}, fmt.Errorf("follow %s: %w", did, err)
	}
	return ref, nil
}

func (c *Client) GetFollowers(ctx context.Context, actor string, limit int, cursor string) (ProfilePage, error) {
	var out struct {
		Followers []ProfileView `json:"followers"`
		Cursor    string        `json:"cursor"`
	}
	if err := c.call(ctx, http.MethodGet, "app.bsky.graph.getFollowers", pageQuery(actor, limit, cursor), nil, &out); err != nil {
		return ProfilePage{}, fmt.Errorf("get followers: %w", err)
	}
	return ProfilePage{Profiles: out.Followers, Cursor: out.Cursor}, nil
}

func (c *Client) GetFollows(ctx context.Context, actor string, limit int, cursor string) (ProfilePage, error) {
	var out struct {
		Follows []ProfileView `json:"follows"`
		Cursor  string        `json:"cursor"`
	}
	if err := c.call(ctx, http.MethodGet, "app.bsky.graph.getFollows", pageQuery(actor, limit, cursor), nil, &out); err != nil {
		return ProfilePage{}, fmt.Errorf("get follows: %w", err)
	}
	return ProfilePage{Profiles: out.Follows, Cursor: out.Cursor}, nil
}

func (c *Client) createRecord(ctx context.Context, collection string, record any) (StrongRef, error) {
	did := c.DID()
	if did == "" {
		return StrongRef{}, ErrNoSession
	}
	body := map[string]any{
		"repo":       did,
		"collection": collection,
		"record":     record,
	}
	var ref StrongRef
	if err := c.call(ctx, http.MethodPost, "com.atproto.repo.createRecord", nil, body, &ref); err != nil {
		return StrongRef{}, err
	}
	return ref, nil
}

// call performs an authenticated request, refreshing the session once when
// the access token has expired.
func (c *Client) call(ctx context.Context, method, nsid string, query url.Values, body, out any) error {
	err := c.do(ctx, method, nsid, query, body, out, authAccess)
	if !IsExpiredToken(err) {
		return err
	}
	if rerr := c.RefreshSession(ctx); rerr != nil {
		return rerr
	}
	return c.do(ctx, method, nsid, query, body, out, authAccess)
}

func (c *Client) do(ctx context.Context, method, nsid string, query url.Values, body, out any, auth authMode) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	token, err := c.token(auth)
	if err != nil {
		return err
	}

	endpoint := c.service + "/xrpc/" + nsid
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	attempt := func() (*rawResponse, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return &rawResponse{status: resp.StatusCode, body: data}, nil
	}

	var resp *rawResponse
	if method == http.MethodGet {
		resp, err = c.queries.WithContext(ctx).Get(attempt)
	} else {
		resp, err = attempt()
	}
	if err != nil {
		return err
	}

	if resp.status < 200 || resp.status > 299 {
		apiErr := &APIError{StatusCode: resp.status}
		_ = json.Unmarshal(resp.body, apiErr)
		c.logger.WithFields(logrus.Fields{
			"nsid":   nsid,
			"status": resp.status,
			"error":  apiErr.Code,
		}).Debug("XRPC request failed")
		return apiErr
	}

	if out == nil || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", nsid, err)
	}
	return nil
}

func (c *Client) token(auth authMode) (string, error) {
	if auth == authNone {
		return "", nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return "", ErrNoSession
	}
	if auth == authRefresh {
		return c.session.RefreshJwt, nil
	}
	return c.session.AccessJwt, nil
}

func pageQuery(actor string, limit int, cursor string) url.Values {
	query := url.Values{}
	query.Set("actor", actor)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	return query
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
