package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"therapypunch/pkg/cache"
	"therapypunch/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingBackend loads fine but refuses every Save.
type failingBackend struct {
	ids   []string
	saves int
}

func (b *failingBackend) Load(ctx context.Context) ([]string, error) { return b.ids, nil }
func (b *failingBackend) Save(ctx context.Context, ids []string) error {
	b.saves++
	return errors.New("disk full")
}

// cancelAwareBackend refuses to save once ctx is done.
type cancelAwareBackend struct {
	ids []string
}

func (b *cancelAwareBackend) Load(ctx context.Context) ([]string, error) { return b.ids, nil }
func (b *cancelAwareBackend) Save(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.ids = ids
	return nil
}

type brokenBackend struct{}

func (brokenBackend) Load(ctx context.Context) ([]string, error) {
	return nil, errors.New("permission denied")
}
func (brokenBackend) Save(ctx context.Context, ids []string) error { return nil }

func TestLoad_MissingFileCreatesEmptySet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_uris.json")
	ctx := context.Background()

	set, err := Load(ctx, NewFileBackend(path), logging.NewDiscard())
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err, "empty set should be written on first load")
	assert.JSONEq(t, `[]`, string(data))
}

func TestLoad_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_uris.json")
	require.NoError(t, os.WriteFile(path, []byte(`["at://a","at://b"]`), 0o644))
	ctx := context.Background()
	backend := NewFileBackend(path)

	first, err := Load(ctx, backend, logging.NewDiscard())
	require.NoError(t, err)
	second, err := Load(ctx, backend, logging.NewDiscard())
	require.NoError(t, err)

	assert.Equal(t, first.IDs(), second.IDs())
	assert.Equal(t, []string{"at://a", "at://b"}, first.IDs())
}

func TestPersist_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_uris.json")
	ctx := context.Background()
	backend := NewFileBackend(path)

	set, err := Load(ctx, backend, logging.NewDiscard())
	require.NoError(t, err)

	set.Add(ctx, "at://did:plc:x/app.bsky.feed.post/3")
	set.Add(ctx, "at://did:plc:x/app.bsky.feed.post/1")
	set.Add(ctx, "at://did:plc:x/app.bsky.feed.post/2")
	set.Remove(ctx, "at://did:plc:x/app.bsky.feed.post/2")

	reloaded, err := Load(ctx, backend, logging.NewDiscard())
	require.NoError(t, err)
	assert.Equal(t, set.IDs(), reloaded.IDs())
	assert.True(t, reloaded.Contains("at://did:plc:x/app.bsky.feed.post/1"))
	assert.True(t, reloaded.Contains("at://did:plc:x/app.bsky.feed.post/3"))
	assert.False(t, reloaded.Contains("at://did:plc:x/app.bsky.feed.post/2"))
}

func TestAdd_PersistFailureKeepsMemoryState(t *testing.T) {
	backend := &failingBackend{}
	ctx := context.Background()

	set, err := Load(ctx, backend, logging.NewDiscard())
	require.NoError(t, err)

	set.Add(ctx, "at://a")
	assert.True(t, set.Contains("at://a"))
	assert.Equal(t, 1, backend.saves)

	set.Remove(ctx, "at://a")
	assert.False(t, set.Contains("at://a"))
	assert.Equal(t, 2, backend.saves)
}

func TestLoad_IOErrorIsFatal(t *testing.T) {
	_, err := Load(context.Background(), brokenBackend{}, logging.NewDiscard())
	assert.Error(t, err)
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_uris.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	_, err := Load(context.Background(), NewFileBackend(path), logging.NewDiscard())
	assert.Error(t, err)
}

func TestFileBackend_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	backend := NewFileBackend(filepath.Join(dir, "processed_uris.json"))

	require.NoError(t, backend.Save(context.Background(), []string{"at://a"}))
	require.NoError(t, backend.Save(context.Background(), nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "processed_uris.json", entries[0].Name())

	ids, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisBackend_RoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping redis backend test: REDIS_URL not set")
	}

	c, err := cache.NewRedisCache(url, "therapypunch_test_"+t.Name())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	backend := NewRedisBackend(c)
	require.NoError(t, backend.Save(ctx, []string{"at://a", "at://b"}))

	set, err := Load(ctx, backend, logging.NewDiscard())
	require.NoError(t, err)
	assert.Equal(t, []string{"at://a", "at://b"}, set.IDs())
}

func TestAddRemove_PersistAfterCancel(t *testing.T) {
	backend := &cancelAwareBackend{ids: []string{"at://a"}}
	set, err := Load(t.Context(), backend, logging.NewDiscard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	set.Remove(ctx, "at://a")
	assert.Empty(t, backend.ids)

	set.Add(ctx, "at://b")
	assert.Equal(t, []string{"at://b"}, backend.ids)
}
