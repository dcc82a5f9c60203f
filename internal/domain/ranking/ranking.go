// Package ranking assigns global leaderboard positions to subsets of members.
//
// The leaderboard order is reputation descending with member id ascending as
// the tie-breaker. Both rankers below agree with that order, so a member's
// rank never depends on which subset it was found in.
package ranking

import (
	"context"
	"fmt"

	"github.com/okian/reputation/internal/domain/model"
)

// DefaultScanPageSize is the chunk size ScanRanker reads per store call.
const DefaultScanPageSize = 1000

// Ranker annotates members with their 1-based global rank.
type Ranker interface {
	Rank(ctx context.Context, members []model.Member) ([]model.RankedMember, error)
}

// Lister reads a slice of the ordered leaderboard.
type Lister interface {
	ListMembers(ctx context.Context, offset, limit int) ([]model.Member, error)
}

// AheadCounter counts members ordered strictly before m.
type AheadCounter interface {
	CountAhead(ctx context.Context, m model.Member) (int, error)
}

// Assemble ranks results by their position in ordered, a slice of the full
// leaderboard that starts at offset. Results absent from ordered get rank 0.
func Assemble(results, ordered []model.Member, offset int) []model.RankedMember {
	pos := make(map[int64]int, len(ordered))
	for i, m := range ordered {
		pos[m.ID] = offset + i + 1
	}
	out := make([]model.RankedMember, len(results))
	for i, m := range results {
		out[i] = model.RankedMember{Member: m, Rank: pos[m.ID]}
	}
	return out
}

// CountRanker computes rank as CountAhead+1, one store call per member.
type CountRanker struct {
	store AheadCounter
}

// NewCountRanker creates a CountRanker.
func NewCountRanker(store AheadCounter) *CountRanker {
	return &CountRanker{store: store}
}

// Rank implements Ranker.
func (r *CountRanker) Rank(ctx context.Context, members []model.Member) ([]model.RankedMember, error) {
	out := make([]model.RankedMember, len(members))
	for i, m := range members {
		ahead, err := r.store.CountAhead(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("count ahead of member %d: %w", m.ID, err)
		}
		out[i] = model.RankedMember{Member: m, Rank: ahead + 1}
	}
	return out, nil
}

// ScanRanker walks the leaderboard in chunks until every member is located.
// It is not capped: large leaderboards simply take more chunks.
type ScanRanker struct {
	store    Lister
	pageSize int
}

// NewScanRanker creates a ScanRanker. Non-positive page sizes use DefaultScanPageSize.
func NewScanRanker(store Lister, pageSize int) *ScanRanker {
	if pageSize < 1 {
		pageSize = DefaultScanPageSize
	}
	return &ScanRanker{store: store, pageSize: pageSize}
}

// Rank implements Ranker.
func (r *ScanRanker) Rank(ctx context.Context, members []model.Member) ([]model.RankedMember, error) {
	out := make([]model.RankedMember, len(members))
	for i, m := range members {
		out[i] = model.RankedMember{Member: m}
	}
	missing := len(members)

	for offset := 0; missing > 0; offset += r.pageSize {
		chunk, err := r.store.ListMembers(ctx, offset, r.pageSize)
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard at offset %d: %w", offset, err)
		}
		for i, ranked := range Assemble(members, chunk, offset) {
			if out[i].Rank == 0 && ranked.Rank > 0 {
				out[i].Rank = ranked.Rank
				missing--
			}
		}
		if len(chunk) < r.pageSize {
			break
		}
	}
	return out, nil
}
