package repository

import (
	"time"

	"github.com/okian/reputation/internal/domain/model"
)

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMembers seeds the store. Members without an id, or whose id is
// already taken, get the next free one. A name that is already present is
// skipped, as the unique name constraint would reject it.
func WithMembers(members ...model.Member) MemoryOption {
	return func(s *MemoryStore) {
		for _, m := range members {
			if _, taken := s.byName[m.Name]; taken {
				continue
			}
			if _, taken := s.members[m.ID]; taken {
				m.ID = 0
			}
			s.insertLocked(m)
		}
	}
}

// WithClock replaces time.Now for created_at/updated_at stamps.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// InstrumentOption configures the metrics decorator.
type InstrumentOption func(*instrumentedStore)

// WithCallTimeout bounds every store call. Zero leaves the caller's deadline alone.
func WithCallTimeout(d time.Duration) InstrumentOption {
	return func(s *instrumentedStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}
