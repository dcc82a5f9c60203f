package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/reputation/internal/domain/model"
)

// MemoryStore is an in-process Store used for local runs and tests.
// AwardPoints emulates the SQL add_reputation routine under the store lock:
// unknown names are created, the delta is applied and one history row is
// appended, all or nothing.
type MemoryStore struct {
	mu sync.RWMutex

	members map[int64]*model.Member
	byName  map[string]int64
	history []model.HistoryEntry

	nextMemberID  int64
	nextHistoryID int64

	clock func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store and applies opts in order.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		members: make(map[int64]*model.Member),
		byName:  make(map[string]int64),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// insertLocked adds m, assigning an id and timestamps when missing. The
// caller ensures m.ID and m.Name are free; nextMemberID never falls below
// the largest stored id, so the next one is always unused.
func (s *MemoryStore) insertLocked(m model.Member) model.Member {
	if m.ID <= 0 {
		s.nextMemberID++
		m.ID = s.nextMemberID
	} else if m.ID > s.nextMemberID {
		s.nextMemberID = m.ID
	}
	now := s.clock()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	stored := m
	s.members[m.ID] = &stored
	s.byName[m.Name] = m.ID
	return m
}

// orderedLocked returns a copy of all members in leaderboard order.
func (s *MemoryStore) orderedLocked(keep func(model.Member) bool) []model.Member {
	out := make([]model.Member, 0, len(s.members))
	for _, m := range s.members {
		if keep == nil || keep(*m) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return ahead(out[i], out[j])
	})
	return out
}

// ahead reports whether a is ordered before b on the leaderboard.
func ahead(a, b model.Member) bool {
	if a.Reputation != b.Reputation {
		return a.Reputation > b.Reputation
	}
	return a.ID < b.ID
}

func window(members []model.Member, offset, limit int) []model.Member {
	if offset >= len(members) {
		return []model.Member{}
	}
	end := min(offset+limit, len(members))
	return members[offset:end]
}

// CountMembers implements Store.
func (s *MemoryStore) CountMembers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members), nil
}

// ListMembers implements Store.
func (s *MemoryStore) ListMembers(_ context.Context, offset, limit int) ([]model.Member, error) {
	if err := checkRange(offset, limit); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return window(s.orderedLocked(nil), offset, limit), nil
}

// SearchMembers implements Store.
func (s *MemoryStore) SearchMembers(_ context.Context, query string, offset, limit int) ([]model.Member, int, error) {
	if err := checkRange(offset, limit); err != nil {
		return nil, 0, err
	}
	needle := strings.ToLower(query)
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := s.orderedLocked(func(m model.Member) bool {
		return strings.Contains(strings.ToLower(m.Name), needle)
	})
	return window(matches, offset, limit), len(matches), nil
}

// CountAhead implements Store.
func (s *MemoryStore) CountAhead(_ context.Context, m model.Member) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, o := range s.members {
		if ahead(*o, m) {
			n++
		}
	}
	return n, nil
}

// MemberHistory implements Store.
func (s *MemoryStore) MemberHistory(_ context.Context, memberID int64) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.HistoryEntry{}
	for _, h := range s.history {
		if h.MemberID == memberID {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// MemberByName implements Store.
func (s *MemoryStore) MemberByName(_ context.Context, name string) (model.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[name]
	if !ok {
		return model.Member{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return *s.members[id], nil
}

// CreateMember implements Store.
func (s *MemoryStore) CreateMember(_ context.Context, in model.NewMember) (model.Member, error) {
	if strings.TrimSpace(in.Name) == "" {
		return model.Member{}, fmt.Errorf("empty name: %w", ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byName[in.Name]; taken {
		return model.Member{}, fmt.Errorf("%q: %w", in.Name, ErrDuplicateName)
	}
	return s.insertLocked(model.Member{
		Name:           in.Name,
		GitHubUsername: in.GitHubUsername,
		AvatarURL:      in.AvatarURL,
	}), nil
}

// UpdateMember implements Store.
func (s *MemoryStore) UpdateMember(_ context.Context, id int64, upd model.MemberUpdate) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return model.Member{}, fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	if upd.GitHubUsername != nil {
		v := *upd.GitHubUsername
		m.GitHubUsername = &v
	}
	if upd.AvatarURL != nil {
		v := *upd.AvatarURL
		m.AvatarURL = &v
	}
	m.UpdatedAt = s.clock()
	return *m, nil
}

// AwardPoints implements Awarder.
func (s *MemoryStore) AwardPoints(_ context.Context, name string, points int, reason, category string) (model.AwardResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byName[name]
	if !ok {
		id = s.insertLocked(model.Member{Name: name}).ID
	}
	m := s.members[id]
	now := s.clock()
	m.Reputation += points
	m.UpdatedAt = now

	s.nextHistoryID++
	s.history = append(s.history, model.HistoryEntry{
		ID:        s.nextHistoryID,
		MemberID:  id,
		Points:    points,
		Reason:    reason,
		Category:  category,
		CreatedAt: now,
	})

	return model.AwardResult{
		Success:       true,
		Message:       fmt.Sprintf("Updated reputation for %s by %+d", name, points),
		NewReputation: m.Reputation,
	}, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
