package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps turns in process memory. It backs the dev and test
// profiles where no database is configured.
type MemoryStore struct {
	mu    sync.Mutex
	turns []Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	s.turns = append(s.turns, turn)
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, sessionID string, n int) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]Turn, 0)
	for _, turn := range s.turns {
		if turn.SessionID == sessionID {
			matched = append(matched, turn)
		}
	}
	if n > 0 && len(matched) > n {
		matched = matched[len(matched)-n:]
	}
	return matched, nil
}

func (s *MemoryStore) ListByPrincipal(_ context.Context, principalID string, limit int) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]Turn, 0)
	for _, turn := range s.turns {
		if turn.PrincipalID == principalID {
			matched = append(matched, turn)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryStore) Purge(_ context.Context, principalID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.turns[:0]
	removed := 0
	for _, turn := range s.turns {
		if turn.PrincipalID == principalID {
			removed++
			continue
		}
		kept = append(kept, turn)
	}
	s.turns = kept
	return removed, nil
}

func (s *MemoryStore) PruneExpired(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.turns[:0]
	removed := 0
	for _, turn := range s.turns {
		if turn.CreatedAt.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, turn)
	}
	s.turns = kept
	return removed, nil
}

func (s *MemoryStore) HealthCheck(context.Context) error {
	return nil
}
