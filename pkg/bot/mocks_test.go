package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"therapypunch/pkg/bluesky"
	"therapypunch/pkg/config"
	"therapypunch/pkg/groq"
	"therapypunch/pkg/linkpreview"
	"therapypunch/pkg/logging"
	"therapypunch/pkg/persona"
	"therapypunch/pkg/store"
	"therapypunch/pkg/topics"

	"github.com/stretchr/testify/require"
)

type createdPost struct {
	Text  string
	Reply *bluesky.ReplyRef
}

// MockClient implements SocialClient for testing
type MockClient struct {
	mu sync.Mutex

	Notifications []bluesky.Notification
	ListErr       error
	Threads       map[string]*bluesky.ThreadView
	ThreadErr     error
	Posts         map[string]bluesky.PostView
	GetPostsErr   error
	CreateErr     error
	// OnCreate runs before CreatePost returns.
	OnCreate      func()
	Followers     []bluesky.ProfilePage
	Follows       []bluesky.ProfilePage
	FollowersErr  error
	FollowErrs    map[string]error

	Created       []createdPost
	Followed      []string
	SeenCalls     int
	ListCalls     int
	ThreadCalls   int
	FollowerCalls int
}

func (m *MockClient) DID() string { return "did:plc:bot" }

func (m *MockClient) ListNotifications(ctx context.Context, limit int) ([]bluesky.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Notifications, nil
}

func (m *MockClient) UpdateSeen(ctx context.Context, seenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SeenCalls++
	return nil
}

func (m *MockClient) GetPostThread(ctx context.Context, uri string) (*bluesky.ThreadView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ThreadCalls++
	if m.ThreadErr != nil {
		return nil, m.ThreadErr
	}
	if thread, ok := m.Threads[uri]; ok {
		return thread, nil
	}
	return &bluesky.ThreadView{
		Post: &bluesky.PostView{URI: uri, CID: "cid", Record: bluesky.PostRecord{Text: "hello"}},
	}, nil
}

func (m *MockClient) GetPosts(ctx context.Context, uris []string) ([]bluesky.PostView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetPostsErr != nil {
		return nil, m.GetPostsErr
	}
	var posts []bluesky.PostView
	for _, uri := range uris {
		if p, ok := m.Posts[uri]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (m *MockClient) CreatePost(ctx context.Context, text string, reply *bluesky.ReplyRef) (bluesky.StrongRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OnCreate != nil {
		m.OnCreate()
		if err := ctx.Err(); err != nil {
			return bluesky.StrongRef{}, err
		}
	}
	if m.CreateErr != nil {
		return bluesky.StrongRef{}, m.CreateErr
	}
	m.Created = append(m.Created, createdPost{Text: text, Reply: reply})
	return bluesky.StrongRef{URI: fmt.Sprintf("at://did:plc:bot/app.bsky.feed.post/%d", len(m.Created)), CID: "newcid"}, nil
}

func (m *MockClient) page(pages []bluesky.ProfilePage, cursor string) bluesky.ProfilePage {
	idx := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "page-%d", &idx)
	}
	if idx >= len(pages) {
		return bluesky.ProfilePage{}
	}
	return pages[idx]
}

func (m *MockClient) GetFollowers(ctx context.Context, actor string, limit int, cursor string) (bluesky.ProfilePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FollowerCalls++
	if m.FollowersErr != nil {
		return bluesky.ProfilePage{}, m.FollowersErr
	}
	return m.page(m.Followers, cursor), nil
}

func (m *MockClient) GetFollows(ctx context.Context, actor string, limit int, cursor string) (bluesky.ProfilePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.page(m.Follows, cursor), nil
}

func (m *MockClient) Follow(ctx context.Context, did string) (bluesky.StrongRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Followed = append(m.Followed, did)
	if err := m.FollowErrs[did]; err != nil {
		return bluesky.StrongRef{}, err
	}
	return bluesky.StrongRef{URI: "at://follow/" + did, CID: "fcid"}, nil
}

func (m *MockClient) createdPosts() []createdPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]createdPost(nil), m.Created...)
}

// MockModel implements LanguageModel for testing
type MockModel struct {
	mu sync.Mutex

	GenerateFunc func(p groq.Prompt) (string, error)
	DescribeFunc func(alt string) (string, error)

	Prompts       []groq.Prompt
	DescribeCalls []string
}

func (m *MockModel) Generate(ctx context.Context, p groq.Prompt) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, p)
	fn := m.GenerateFunc
	m.mu.Unlock()
	if fn == nil {
		return "stay hydrated bestie", nil
	}
	return fn(p)
}

func (m *MockModel) Describe(ctx context.Context, alt string) (string, error) {
	m.mu.Lock()
	m.DescribeCalls = append(m.DescribeCalls, alt)
	fn := m.DescribeFunc
	m.mu.Unlock()
	if fn == nil {
		return "analysis of " + alt, nil
	}
	return fn(alt)
}

func (m *MockModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts) + len(m.DescribeCalls)
}

// MockLinks implements LinkPreviewer for testing
type MockLinks struct {
	Previews map[string]*linkpreview.Preview
	Calls    []string
}

func (m *MockLinks) Preview(ctx context.Context, rawURL string) (*linkpreview.Preview, error) {
	m.Calls = append(m.Calls, rawURL)
	if p, ok := m.Previews[rawURL]; ok {
		return p, nil
	}
	return nil, errors.New("fetch failed")
}

// fakeClock is a settable time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	bot       *Bot
	client    *MockClient
	model     *MockModel
	processed *store.ProcessedSet
	backend   *store.FileBackend
	clock     *fakeClock
	metrics   *Metrics
}

func defaultSettings(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	cfg.Reply.DelayBetween = 0.001
	cfg.Follow.DelayBetween = 0.001
	return cfg
}

func newTestEnv(t *testing.T, client *MockClient, model *MockModel, mutate ...func(*Options)) *testEnv {
	t.Helper()
	logger := logging.NewDiscard()
	backend := store.NewFileBackend(filepath.Join(t.TempDir(), "processed_uris.json"))
	processed, err := store.Load(t.Context(), backend, logger)
	require.NoError(t, err)

	cfg := defaultSettings(t)
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	metrics := NewMetrics(nil)

	opts := Options{
		Client:    client,
		Model:     model,
		Processed: processed,
		Scheduler: topics.NewScheduler(topics.DefaultCatalog(), rand.New(rand.NewPCG(1, 2))),
		Persona:   persona.Therapy,
		BotHandle: "therapypunch.bsky.social",
		Reply:     cfg.Reply,
		Posting:   cfg.Posting,
		Follow:    cfg.Follow,
		Metrics:   metrics,
		Logger:    logger,
		Rand:      rand.New(rand.NewPCG(3, 4)),
		Now:       clock.Now,
	}
	for _, fn := range mutate {
		fn(&opts)
	}

	return &testEnv{
		bot:       New(opts),
		client:    client,
		model:     model,
		processed: processed,
		backend:   backend,
		clock:     clock,
		metrics:   metrics,
	}
}

func mention(uri string) bluesky.Notification {
	return bluesky.Notification{
		URI:    uri,
		CID:    "cid-" + strings.TrimPrefix(uri, "at://"),
		Reason: "mention",
		Author: bluesky.ProfileView{DID: "did:plc:alice", Handle: "alice.test"},
		Record: bluesky.PostRecord{Text: "@therapypunch.bsky.social I can't sleep before exams"},
	}
}
