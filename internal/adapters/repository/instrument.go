package repository

import (
	"context"
	"time"

	"github.com/okian/reputation/internal/domain/model"
	"github.com/okian/reputation/pkg/metrics"
)

// Recorder receives per-call store observations.
type Recorder interface {
	RecordStoreLatency(op string, latencyMs float64)
	RecordStoreError(op string)
}

type globalRecorder struct{}

func (globalRecorder) RecordStoreLatency(op string, latencyMs float64) {
	metrics.RecordStoreLatency(op, latencyMs)
}

func (globalRecorder) RecordStoreError(op string) { metrics.RecordStoreError(op) }

// WithRecorder sends observations to r instead of the global metrics manager.
func WithRecorder(r Recorder) InstrumentOption {
	return func(s *instrumentedStore) {
		if r != nil {
			s.recorder = r
		}
	}
}

type instrumentedStore struct {
	next     Store
	recorder Recorder
	timeout  time.Duration
}

// Instrument wraps next so every call records latency and, for failures that
// are not data errors such as ErrNotFound, an error count labelled by op.
func Instrument(next Store, opts ...InstrumentOption) Store {
	s := &instrumentedStore{next: next, recorder: globalRecorder{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *instrumentedStore) begin(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	s.recorder.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !expected(err) {
		s.recorder.RecordStoreError(op)
	}
}

func (s *instrumentedStore) CountMembers(ctx context.Context) (int, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	start := time.Now()
	n, err := s.next.CountMembers(ctx)
	s.observe("count_members", start, err)
	return n, err
}

func (s *instrumentedStore) ListMembers(ctx context.Context, offset, limit int) ([]model.Member, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	start := time.Now()
	out, err := s.next.ListMembers(ctx, offset, limit)
	s.observe("list_members", start, err)
	return out, err
}

func (s *instrumentedStore) SearchMembers(ctx context.Context, query string, offset, limit int) ([]model.Member, int, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	start := time.Now()
	out, total, err := s.next.SearchMembers(ctx, query, offset, limit)
	s.observe("search_members", start, err)
	return out, total, err
}

func (s *instrumentedStore) CountAhead(ctx context.Context, m model.Member) (int, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	start := time.Now()
	n, err := s.next.CountAhead(ctx, m)
	s.observe("count_ahead", start, err)
	return n, err
}

func (s *instrumentedStore) MemberHistory(ctx context.Context, memberID int64) ([]model.HistoryEntry, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	start := time.Now()
	out, err := s.next.MemberHistory(ctx, memberID)
	s.observe("member_history", start, err)
	return out, err
}

func (s *instrumentedStore) MemberByName(ctx context.Context, name string) (model.Member, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	start := time.Now()
	m, err := s.next.MemberByName(ctx, name)
	s.observe("member_by_name", start, err)
	return m, err
}

func (s *instrumentedStore) CreateMember(ctx context.Context, in model.NewMember) (model.Member, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	start := time.Now()
	m, err := s.next.CreateMember(ctx, in)
	s.observe("create_member", start, err)
	return m, err
}

func (s *instrumentedStore) UpdateMember(ctx context.Context, id int64, upd model.MemberUpdate) (model.Member, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	start := time.Now()
	m, err := s.next.UpdateMember(ctx, id, upd)
	s.observe("update_member", start, err)
	return m, err
}

func (s *instrumentedStore) AwardPoints(ctx context.Context, name string, points int, reason, category string) (model.AwardResult, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	start := time.Now()
	res, err := s.next.AwardPoints(ctx, name, points, reason, category)
	s.observe("award_points", start, err)
	return res, err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	start := time.Now()
	err := s.next.Ping(ctx)
	s.observe("ping", start, err)
	return err
}

func (s *instrumentedStore) Close() error { return s.next.Close() }
