package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"therapypunch/pkg/logging"
)

const persistTimeout = 5 * time.Second

// ProcessedSet is the set of notification URIs the bot has replied to, or is
// replying to right now. Every mutation is persisted immediately; a failed
// persist is logged and the in-memory set stays authoritative.
type ProcessedSet struct {
	mu      sync.Mutex
	ids     map[string]struct{}
	saveMu  sync.Mutex
	backend Backend
	logger  logging.Logger
}

// Load reads the set from the backend. A backend with nothing stored yields
// an empty set, which is written back once so the file exists from then on.
func Load(ctx context.Context, backend Backend, logger logging.Logger) (*ProcessedSet, error) {
	s := &ProcessedSet{
		ids:     make(map[string]struct{}),
		backend: backend,
		logger:  logger,
	}

	ids, err := backend.Load(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		if err := s.Persist(ctx); err != nil {
			logger.WithError(err).Error("Error saving URIs")
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("load processed set: %w", err)
	}

	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s, nil
}

func (s *ProcessedSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Add marks id and persists. The write is detached from ctx cancellation so
// a shutdown mid-request cannot leave the backend out of step with memory.
func (s *ProcessedSet) Add(ctx context.Context, id string) {
	s.mu.Lock()
	s.ids[id] = struct{}{}
	s.mu.Unlock()

	s.persistOrLog(ctx)
}

// Remove unmarks id and persists, detached from ctx cancellation like Add.
func (s *ProcessedSet) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	delete(s.ids, id)
	s.mu.Unlock()

	s.persistOrLog(ctx)
}

func (s *ProcessedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the identifiers in sorted order.
func (s *ProcessedSet) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// Persist overwrites the backend with the full set.
func (s *ProcessedSet) Persist(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	ids := s.sortedLocked()
	s.mu.Unlock()

	return s.backend.Save(ctx, ids)
}

func (s *ProcessedSet) persistOrLog(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.Persist(ctx); err != nil {
		s.logger.WithError(err).Error("Error saving URIs")
	}
}

func (s *ProcessedSet) sortedLocked() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
