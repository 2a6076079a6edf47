package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"therapypunch/pkg/cache"
)

// ErrNotFound is returned by a Backend that has never been written.
var ErrNotFound = errors.New("store: no processed set stored")

// Backend is the durable home of the processed set. Save overwrites wholesale.
type Backend interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, ids []string) error
}

// FileBackend keeps the set as a JSON array in a single file.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Load(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode %s: %w", b.path, err)
	}
	return ids, nil
}

// Save writes a temp file next to the target and renames it into place.
func (b *FileBackend) Save(ctx context.Context, ids []string) error {
	data, err := json.Marshal(nonNil(ids))
	if err != nil {
		return fmt.Errorf("encode processed set: %w", err)
	}

	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", b.path, err)
	}
	return nil
}

// RedisBackend keeps the same JSON array under a single Redis key.
type RedisBackend struct {
	cache *cache.Cache
	key   string
}

func NewRedisBackend(c *cache.Cache) *RedisBackend {
	return &RedisBackend{
		cache: c,
		key:   c.Key("processed_uris"),
	}
}

func (b *RedisBackend) Load(ctx context.Context) ([]string, error) {
	data, err := b.cache.Get(ctx, b.key)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", b.key, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode %s: %w", b.key, err)
	}
	return ids, nil
}

func (b *RedisBackend) Save(ctx context.Context, ids []string) error {
	data, err := json.Marshal(nonNil(ids))
	if err != nil {
		return fmt.Errorf("encode processed set: %w", err)
	}
	if err := b.cache.Set(ctx, b.key, data, 0); err != nil {
		return fmt.Errorf("redis set %s: %w", b.key, err)
	}
	return nil
}

// nonNil makes an empty set encode as [] instead of null.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
