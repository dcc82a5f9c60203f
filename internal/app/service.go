// Package service implements the leaderboard, search and award operations
// behind the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/okian/reputation/internal/adapters/repository"
	"github.com/okian/reputation/internal/domain/cache"
	"github.com/okian/reputation/internal/domain/model"
	"github.com/okian/reputation/internal/domain/ranking"
	"github.com/okian/reputation/pkg/logger"
	"github.com/okian/reputation/pkg/metrics"
)

// DefaultPageSize is the page size used when callers pass none.
const DefaultPageSize = 10

// Service implements the API dependencies for the reputation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  repository.Store
	cache  *cache.LeaderboardCache
	ranker ranking.Ranker

	// Configuration
	pageSize int

	// State
	started     bool
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	staleServes atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the member store. Defaults to an empty MemoryStore.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCache injects the leaderboard cache slot.
func WithCache(c *cache.LeaderboardCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithRanker sets how search results get their global rank.
// Defaults to a CountRanker over the store.
func WithRanker(r ranking.Ranker) Option {
	return func(s *Service) {
		if r != nil {
			s.ranker = r
		}
	}
}

// WithPageSize sets the default page size; only that size is cached.
func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Components not given as options get defaults.
func New(opts ...Option) *Service {
	s := &Service{
		pageSize: DefaultPageSize,
		logger:   logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.cache == nil {
		s.cache = cache.New()
	}
	if s.ranker == nil {
		s.ranker = ranking.NewCountRanker(s.store)
	}
	return s
}

// Start checks the store is reachable.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}

	s.started = true
	s.logger.Info(ctx, "reputation service started",
		logger.Int("pageSize", s.pageSize),
		logger.Duration("cacheTTL", s.cache.TTL()),
	)
	return nil
}

// Stop releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "reputation service stopped")
}

// PageSize returns the default page size.
func (s *Service) PageSize() int { return s.pageSize }

func (s *Service) size(pageSize int) int {
	if pageSize < 1 {
		return s.pageSize
	}
	return pageSize
}

// Leaderboard returns one page of the leaderboard.
//
// Page 1 at the default size is served from the cache while fresh, and a
// successful fetch of it always replaces the cached page. If that fetch
// fails, any cached page is returned regardless of age.
func (s *Service) Leaderboard(ctx context.Context, page, pageSize int) (model.LeaderboardPage, error) {
	if page < 1 {
		return model.LeaderboardPage{}, ErrInvalidPage
	}
	size := s.size(pageSize)
	cacheable := page == 1 && size == s.pageSize

	if cacheable {
		if p, ok := s.cache.Fresh(); ok {
			s.cacheHits.Add(1)
			metrics.RecordCacheHit()
			s.logger.Debug(ctx, "leaderboard cache hit")
			return p, nil
		}
		s.cacheMisses.Add(1)
		metrics.RecordCacheMiss()
	}

	fresh, err := s.fetchLeaderboard(ctx, page, size)
	if err != nil {
		s.logger.Error(ctx, "leaderboard fetch failed",
			logger.String("op", "leaderboard"),
			logger.Int("page", page),
			logger.Error(err),
		)
		if cacheable {
			if p, age, ok := s.cache.Stale(); ok {
				s.staleServes.Add(1)
				metrics.RecordCacheStale()
				metrics.UpdateCacheAge(age)
				s.logger.Warn(ctx, "serving stale leaderboard", logger.Duration("age", age))
				return p, nil
			}
		}
		return model.LeaderboardPage{}, err
	}

	if cacheable {
		s.cache.Set(fresh)
		metrics.UpdateCacheAge(0)
	}
	metrics.UpdateTotalMembers(fresh.Total)
	return fresh, nil
}

func (s *Service) fetchLeaderboard(ctx context.Context, page, size int) (model.LeaderboardPage, error) {
	total, err := s.store.CountMembers(ctx)
	if err != nil {
		return model.LeaderboardPage{}, fmt.Errorf("count members: %w", err)
	}
	members, err := s.store.ListMembers(ctx, model.Offset(page, size), size)
	if err != nil {
		return model.LeaderboardPage{}, fmt.Errorf("list members: %w", err)
	}
	return model.LeaderboardPage{
		Members:   members,
		Total:     total,
		Pages:     model.PageCount(total, size),
		Timestamp: s.cache.Now(),
	}, nil
}

// Search returns one page of members whose name contains query, each with
// its rank in the full leaderboard. No matches yield ErrNoMatches together
// with a zeroed page.
func (s *Service) Search(ctx context.Context, query string, page, pageSize int) (model.SearchPage, error) {
	if strings.TrimSpace(query) == "" {
		return model.SearchPage{}, ErrEmptyQuery
	}
	if page < 1 {
		return model.SearchPage{}, ErrInvalidPage
	}
	size := s.size(pageSize)
	now := s.cache.Now()

	members, total, err := s.store.SearchMembers(ctx, query, model.Offset(page, size), size)
	if err != nil {
		s.logger.Error(ctx, "search failed",
			logger.String("op", "search"),
			logger.String("query", query),
			logger.Error(err),
		)
		return model.SearchPage{}, fmt.Errorf("search members: %w", err)
	}
	if total == 0 {
		metrics.RecordSearchMiss()
		return model.SearchPage{Members: []model.RankedMember{}, Timestamp: now}, ErrNoMatches
	}

	ranked, err := s.ranker.Rank(ctx, members)
	if err != nil {
		s.logger.Error(ctx, "rank assembly failed",
			logger.String("op", "rank"),
			logger.Int("results", len(members)),
			logger.Error(err),
		)
		return model.SearchPage{}, fmt.Errorf("rank search results: %w", err)
	}

	return model.SearchPage{
		Members:   ranked,
		Total:     total,
		Pages:     model.PageCount(total, size),
		Timestamp: now,
	}, nil
}

// History returns a member's reputation history, newest first.
func (s *Service) History(ctx context.Context, memberID int64) ([]model.HistoryEntry, error) {
	entries, err := s.store.MemberHistory(ctx, memberID)
	if err != nil {
		s.logger.Error(ctx, "history fetch failed",
			logger.String("op", "history"),
			logger.Int64("memberID", memberID),
			logger.Error(err),
		)
		return nil, err
	}
	return entries, nil
}

// MemberByName looks up a member by exact name.
func (s *Service) MemberByName(ctx context.Context, name string) (model.Member, error) {
	if strings.TrimSpace(name) == "" {
		return model.Member{}, fmt.Errorf("%w: name", ErrMissingField)
	}
	m, err := s.store.MemberByName(ctx, name)
	if err != nil && !isExpected(err) {
		s.logger.Error(ctx, "member lookup failed", logger.String("op", "member_by_name"), logger.Error(err))
	}
	return m, err
}

// AwardRequest asks the store to add (or, when negative, deduct) points.
// Points is a pointer so that an explicit zero is told apart from absence.
type AwardRequest struct {
	Name     string
	Points   *int
	Reason   string
	Category string
}

func (r AwardRequest) validate() error {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if r.Points == nil {
		missing = append(missing, "points")
	}
	if strings.TrimSpace(r.Reason) == "" {
		missing = append(missing, "reason")
	}
	if strings.TrimSpace(r.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	if !model.ValidCategory(r.Category) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, r.Category)
	}
	return nil
}

// Award validates req and forwards it to the store's atomic award routine.
// It is not retried and carries no idempotency key.
func (s *Service) Award(ctx context.Context, req AwardRequest) (model.AwardResult, error) {
	if err := req.validate(); err != nil {
		return model.AwardResult{}, err
	}
	points := *req.Points

	res, err := s.store.AwardPoints(ctx, req.Name, points, req.Reason, req.Category)
	if err != nil {
		s.logger.Error(ctx, "award failed",
			logger.String("op", "award"),
			logger.String("member", req.Name),
			logger.Int("points", points),
			logger.Error(err),
		)
		return model.AwardResult{}, err
	}

	metrics.RecordAward(req.Category, points, res.Success)
	s.logger.Info(ctx, "reputation awarded",
		logger.String("member", req.Name),
		logger.Int("points", points),
		logger.String("category", req.Category),
		logger.Bool("success", res.Success),
		logger.Int("newReputation", res.NewReputation),
	)
	return res, nil
}

// CreateMember adds a member with zero reputation. Blank optional fields are
// stored as null.
func (s *Service) CreateMember(ctx context.Context, in model.NewMember) (model.Member, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return model.Member{}, fmt.Errorf("%w: name", ErrMissingField)
	}
	in.GitHubUsername = nonBlank(in.GitHubUsername)
	in.AvatarURL = nonBlank(in.AvatarURL)

	m, err := s.store.CreateMember(ctx, in)
	if err != nil {
		if !isExpected(err) {
			s.logger.Error(ctx, "create member failed", logger.String("op", "create_member"), logger.Error(err))
		}
		return model.Member{}, err
	}
	metrics.RecordMemberCreated()
	s.logger.Info(ctx, "member created", logger.String("member", m.Name), logger.Int64("id", m.ID))
	return m, nil
}

// UpdateMember edits profile metadata. Reputation is never changed here.
func (s *Service) UpdateMember(ctx context.Context, id int64, upd model.MemberUpdate) (model.Member, error) {
	if upd.Empty() {
		return model.Member{}, fmt.Errorf("%w: githubUsername or avatarUrl", ErrMissingField)
	}
	m, err := s.store.UpdateMember(ctx, id, upd)
	if err != nil && !isExpected(err) {
		s.logger.Error(ctx, "update member failed", logger.String("op", "update_member"), logger.Error(err))
	}
	return m, err
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"pageSize":    s.pageSize,
		"cacheTTL":    s.cache.TTL().String(),
		"cacheHits":   s.cacheHits.Load(),
		"cacheMisses": s.cacheMisses.Load(),
		"staleServes": s.staleServes.Load(),
		"cacheFilled": false,
	}
	if age, ok := s.cache.Age(); ok {
		stats["cacheFilled"] = true
		stats["cacheAge"] = age.String()
		metrics.UpdateCacheAge(age)
	}
	return stats
}

func isExpected(err error) bool {
	return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateName)
}

func nonBlank(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
