package topics

import (
	"math/rand/v2"
	"sync"
)

// Scheduler hands out topics least-used first. Usage counts live in memory
// only and start over on restart.
type Scheduler struct {
	mu      sync.Mutex
	catalog *Catalog
	usage   []int
	rng     *rand.Rand
}

func NewScheduler(catalog *Catalog, rng *rand.Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Scheduler{
		catalog: catalog,
		usage:   make([]int, catalog.Len()),
		rng:     rng,
	}
}

// Next picks the topic with the lowest usage count (first in catalog order on
// a tie) and a uniformly random subtopic of it, then counts the use.
// It returns empty strings for an empty catalog.
func (s *Scheduler) Next() (topic, subtopic string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.usage) == 0 {
		return "", ""
	}

	best := 0
	for i := 1; i < len(s.usage); i++ {
		if s.usage[i] < s.usage[best] {
			best = i
		}
	}

	t := s.catalog.topics[best]
	s.usage[best]++

	return t.Name, t.Subtopics[s.rng.IntN(len(t.Subtopics))]
}

// Usage returns a snapshot of the per-topic counters.
func (s *Scheduler) Usage() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.usage))
	for i, n := range s.usage {
		out[s.catalog.topics[i].Name] = n
	}
	return out
}

func (s *Scheduler) Catalog() *Catalog {
	return s.catalog
}
