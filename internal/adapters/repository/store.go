// Package repository defines the member store contract and its implementations.
package repository

import (
	"context"

	"github.com/okian/reputation/internal/domain/model"
)

// Store reads and writes members and their reputation history.
//
// Every listing is ordered by reputation descending, then id ascending, so
// page boundaries and ranks are reproducible for equal scores.
type Store interface {
	Awarder

	// CountMembers returns the total number of members.
	CountMembers(ctx context.Context) (int, error)

	// ListMembers returns the slice [offset, offset+limit) of the leaderboard.
	ListMembers(ctx context.Context, offset, limit int) ([]model.Member, error)

	// SearchMembers matches query as a case-insensitive substring of the
	// member name. It returns one page of matches and the total match count.
	SearchMembers(ctx context.Context, query string, offset, limit int) ([]model.Member, int, error)

	// CountAhead returns how many members are ordered strictly before m.
	CountAhead(ctx context.Context, m model.Member) (int, error)

	// MemberHistory returns a member's history entries, newest first.
	MemberHistory(ctx context.Context, memberID int64) ([]model.HistoryEntry, error)

	// MemberByName returns ErrNotFound if no member has that name.
	MemberByName(ctx context.Context, name string) (model.Member, error)

	// CreateMember returns ErrDuplicateName if the name is taken.
	CreateMember(ctx context.Context, in model.NewMember) (model.Member, error)

	// UpdateMember changes profile metadata only. Returns ErrNotFound for unknown ids.
	UpdateMember(ctx context.Context, id int64, upd model.MemberUpdate) (model.Member, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases pooled resources.
	Close() error
}

// Awarder applies a signed point delta and appends one history row as a
// single atomic operation owned by the store (the add_reputation routine in
// SQL-backed stores). Calls are not idempotent: repeating one counts twice.
type Awarder interface {
	AwardPoints(ctx context.Context, name string, points int, reason, category string) (model.AwardResult, error)
}
