package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/reputation/internal/domain/model"
)

const (
	connectTimeout = 5 * time.Second

	// pgUniqueViolation is the SQLSTATE for unique_violation.
	pgUniqueViolation = "23505"

	memberColumns  = `id, name, reputation, avatar_url, github_username, created_at, updated_at`
	historyColumns = `id, member_id, points, reason, category, created_at`
	leaderboardBy  = `ORDER BY reputation DESC, id ASC`
)

// PostgresStore talks to the members and reputation_history tables directly.
// The add_reputation(p_name, p_points, p_reason, p_category) function must
// exist in the database; it returns one (success, message, new_reputation) row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens a pool for dsn and pings it.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (model.Member, error) {
	var m model.Member
	err := row.Scan(&m.ID, &m.Name, &m.Reputation, &m.AvatarURL, &m.GitHubUsername, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func collectMembers(rows pgx.Rows) ([]model.Member, error) {
	defer rows.Close()
	out := []model.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return out, nil
}

// likePattern wraps q for ILIKE, matching %, _ and \ literally.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// CountMembers implements Store.
func (s *PostgresStore) CountMembers(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM members`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}

// ListMembers implements Store.
func (s *PostgresStore) ListMembers(ctx context.Context, offset, limit int) ([]model.Member, error) {
	if err := checkRange(offset, limit); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM members `+leaderboardBy+` LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return collectMembers(rows)
}

// SearchMembers implements Store.
func (s *PostgresStore) SearchMembers(ctx context.Context, query string, offset, limit int) ([]model.Member, int, error) {
	if err := checkRange(offset, limit); err != nil {
		return nil, 0, err
	}
	pattern := likePattern(query)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM members WHERE name ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search matches: %w", err)
	}
	if total == 0 || offset >= total {
		return []model.Member{}, total, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM members WHERE name ILIKE $1 `+leaderboardBy+` LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search members: %w", err)
	}
	members, err := collectMembers(rows)
	if err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

// CountAhead implements Store.
func (s *PostgresStore) CountAhead(ctx context.Context, m model.Member) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM members WHERE reputation > $1 OR (reputation = $1 AND id < $2)`,
		m.Reputation, m.ID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count ahead: %w", err)
	}
	return n, nil
}

// MemberHistory implements Store.
func (s *PostgresStore) MemberHistory(ctx context.Context, memberID int64) ([]model.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+historyColumns+` FROM reputation_history WHERE member_id = $1 ORDER BY created_at DESC, id DESC`,
		memberID)
	if err != nil {
		return nil, fmt.Errorf("member history: %w", err)
	}
	defer rows.Close()

	out := []model.HistoryEntry{}
	for rows.Next() {
		var h model.HistoryEntry
		if err := rows.Scan(&h.ID, &h.MemberID, &h.Points, &h.Reason, &h.Category, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

// MemberByName implements Store.
func (s *PostgresStore) MemberByName(ctx context.Context, name string) (model.Member, error) {
	m, err := scanMember(s.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Member{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return model.Member{}, fmt.Errorf("member by name: %w", err)
	}
	return m, nil
}

// CreateMember implements Store. Name uniqueness is enforced by the table.
func (s *PostgresStore) CreateMember(ctx context.Context, in model.NewMember) (model.Member, error) {
	m, err := scanMember(s.pool.QueryRow(ctx,
		`INSERT INTO members (name, github_username, avatar_url) VALUES ($1, $2, $3) RETURNING `+memberColumns,
		in.Name, in.GitHubUsername, in.AvatarURL))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return model.Member{}, fmt.Errorf("%q: %w", in.Name, ErrDuplicateName)
		}
		return model.Member{}, fmt.Errorf("create member: %w", err)
	}
	return m, nil
}

// UpdateMember implements Store.
func (s *PostgresStore) UpdateMember(ctx context.Context, id int64, upd model.MemberUpdate) (model.Member, error) {
	m, err := scanMember(s.pool.QueryRow(ctx,
		`UPDATE members
		    SET github_username = COALESCE($2, github_username),
		        avatar_url = COALESCE($3, avatar_url),
		        updated_at = now()
		  WHERE id = $1
		RETURNING `+memberColumns,
		id, upd.GitHubUsername, upd.AvatarURL))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Member{}, fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Member{}, fmt.Errorf("update member: %w", err)
	}
	return m, nil
}

// AwardPoints implements Awarder via the add_reputation function.
func (s *PostgresStore) AwardPoints(ctx context.Context, name string, points int, reason, category string) (model.AwardResult, error) {
	var res model.AwardResult
	err := s.pool.QueryRow(ctx,
		`SELECT success, message, new_reputation FROM add_reputation($1, $2, $3, $4)`,
		name, points, reason, category).Scan(&res.Success, &res.Message, &res.NewReputation)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.AwardResult{}, fmt.Errorf("add_reputation returned no row: %w", ErrUnexpectedResponse)
	}
	if err != nil {
		return model.AwardResult{}, fmt.Errorf("add reputation: %w", err)
	}
	return res, nil
}

// Ping implements Store.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
