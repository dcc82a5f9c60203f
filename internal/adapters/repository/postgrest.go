package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/supabase-community/postgrest-go"

	"github.com/okian/reputation/internal/domain/model"
)

const (
	restPath      = "/rest/v1"
	defaultSchema = "public"

	membersTable = "members"
	historyTable = "reputation_history"
	awardRPC     = "add_reputation"

	// pgrstRangeNotSatisfiable is returned for an offset past the last row.
	pgrstRangeNotSatisfiable = "PGRST103"
)

// PostgrestStore reaches the same schema through a Supabase/PostgREST
// endpoint. The client has no context support, so cancellation is checked
// before each request only.
type PostgrestStore struct {
	url     string
	headers map[string]string
	client  *postgrest.Client
}

var _ Store = (*PostgrestStore)(nil)

// NewPostgrestStore builds a store for a Supabase project URL and a service key.
func NewPostgrestStore(baseURL, serviceKey string) *PostgrestStore {
	url := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(url, restPath) {
		url += restPath
	}
	headers := map[string]string{
		"apikey":        serviceKey,
		"Authorization": "Bearer " + serviceKey,
	}
	return &PostgrestStore{
		url:     url,
		headers: headers,
		client:  postgrest.NewClient(url, defaultSchema, headers),
	}
}

func (s *PostgrestStore) members() *postgrest.QueryBuilder {
	return s.client.From(membersTable)
}

func leaderboardOrder(f *postgrest.FilterBuilder) *postgrest.FilterBuilder {
	return f.
		Order("reputation", &postgrest.OrderOpts{Ascending: false}).
		Order("id", &postgrest.OrderOpts{Ascending: true})
}

// isUniqueViolation matches the "(code) message" error text of the client.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, pgUniqueViolation) || strings.Contains(msg, "duplicate key")
}

// isRangeNotSatisfiable reports PostgREST's answer to an offset past the end.
func isRangeNotSatisfiable(err error) bool {
	return strings.Contains(err.Error(), pgrstRangeNotSatisfiable)
}

// postgrestPattern is likePattern for PostgREST, which turns every '*' in
// a like value into '%' and has no escape for it. A literal '*' is sent as
// '_' so it still matches a single character rather than any run.
func postgrestPattern(q string) string {
	return strings.ReplaceAll(likePattern(q), "*", "_")
}

// CountMembers implements Store.
func (s *PostgrestStore) CountMembers(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	_, count, err := s.members().Select("id", "exact", false).Limit(1, "").Execute()
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return int(count), nil
}

// ListMembers implements Store.
func (s *PostgrestStore) ListMembers(ctx context.Context, offset, limit int) ([]model.Member, error) {
	if err := checkRange(offset, limit); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []model.Member{}
	q := leaderboardOrder(s.members().Select("*", "", false)).Range(offset, offset+limit-1, "")
	if _, err := q.ExecuteTo(&out); err != nil {
		if isRangeNotSatisfiable(err) {
			return []model.Member{}, nil
		}
		return nil, fmt.Errorf("list members: %w", err)
	}
	return out, nil
}

// SearchMembers implements Store. The total is counted first so pages past
// the end come back empty instead of as a 416 from PostgREST.
func (s *PostgrestStore) SearchMembers(ctx context.Context, query string, offset, limit int) ([]model.Member, int, error) {
	if err := checkRange(offset, limit); err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	pattern := postgrestPattern(query)
	_, count, err := s.members().Select("id", "exact", false).Ilike("name", pattern).Limit(1, "").Execute()
	if err != nil {
		return nil, 0, fmt.Errorf("search members: %w", err)
	}
	total := int(count)
	out := []model.Member{}
	if offset >= total {
		return out, total, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	q := leaderboardOrder(s.members().Select("*", "", false).Ilike("name", pattern))
	if _, err := q.Range(offset, offset+limit-1, "").ExecuteTo(&out); err != nil {
		if isRangeNotSatisfiable(err) {
			// Rows were removed between the count and the page.
			return []model.Member{}, total, nil
		}
		return nil, 0, fmt.Errorf("search members: %w", err)
	}
	return out, total, nil
}

// CountAhead implements Store.
func (s *PostgrestStore) CountAhead(ctx context.Context, m model.Member) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	filter := fmt.Sprintf("reputation.gt.%d,and(reputation.eq.%d,id.lt.%d)", m.Reputation, m.Reputation, m.ID)
	_, count, err := s.members().Select("id", "exact", false).Or(filter, "").Limit(1, "").Execute()
	if err != nil {
		return 0, fmt.Errorf("count ahead: %w", err)
	}
	return int(count), nil
}

// MemberHistory implements Store.
func (s *PostgrestStore) MemberHistory(ctx context.Context, memberID int64) ([]model.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []model.HistoryEntry{}
	_, err := s.client.From(historyTable).
		Select("*", "", false).
		Eq("member_id", strconv.FormatInt(memberID, 10)).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Order("id", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&out)
	if err != nil {
		return nil, fmt.Errorf("member history: %w", err)
	}
	return out, nil
}

// MemberByName implements Store.
func (s *PostgrestStore) MemberByName(ctx context.Context, name string) (model.Member, error) {
	if err := ctx.Err(); err != nil {
		return model.Member{}, err
	}
	var rows []model.Member
	if _, err := s.members().Select("*", "", false).Eq("name", name).Limit(1, "").ExecuteTo(&rows); err != nil {
		return model.Member{}, fmt.Errorf("member by name: %w", err)
	}
	if len(rows) == 0 {
		return model.Member{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return rows[0], nil
}

type memberInsert struct {
	Name           string  `json:"name"`
	GitHubUsername *string `json:"github_username,omitempty"`
	AvatarURL      *string `json:"avatar_url,omitempty"`
}

// CreateMember implements Store.
func (s *PostgrestStore) CreateMember(ctx context.Context, in model.NewMember) (model.Member, error) {
	if err := ctx.Err(); err != nil {
		return model.Member{}, err
	}
	var rows []model.Member
	body := memberInsert{Name: in.Name, GitHubUsername: in.GitHubUsername, AvatarURL: in.AvatarURL}
	if _, err := s.members().Insert(body, false, "", "representation", "").ExecuteTo(&rows); err != nil {
		if isUniqueViolation(err) {
			return model.Member{}, fmt.Errorf("%q: %w", in.Name, ErrDuplicateName)
		}
		return model.Member{}, fmt.Errorf("create member: %w", err)
	}
	if len(rows) == 0 {
		return model.Member{}, fmt.Errorf("insert returned no row: %w", ErrUnexpectedResponse)
	}
	return rows[0], nil
}

// UpdateMember implements Store.
func (s *PostgrestStore) UpdateMember(ctx context.Context, id int64, upd model.MemberUpdate) (model.Member, error) {
	if err := ctx.Err(); err != nil {
		return model.Member{}, err
	}
	patch := map[string]any{"updated_at": "now"}
	if upd.GitHubUsername != nil {
		patch["github_username"] = *upd.GitHubUsername
	}
	if upd.AvatarURL != nil {
		patch["avatar_url"] = *upd.AvatarURL
	}
	var rows []model.Member
	_, err := s.members().
		Update(patch, "representation", "").
		Eq("id", strconv.FormatInt(id, 10)).
		ExecuteTo(&rows)
	if err != nil {
		return model.Member{}, fmt.Errorf("update member: %w", err)
	}
	if len(rows) == 0 {
		return model.Member{}, fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	return rows[0], nil
}

type awardParams struct {
	Name     string `json:"p_name"`
	Points   int    `json:"p_points"`
	Reason   string `json:"p_reason"`
	Category string `json:"p_category"`
}

type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AwardPoints implements Awarder through the add_reputation RPC.
func (s *PostgrestStore) AwardPoints(ctx context.Context, name string, points int, reason, category string) (model.AwardResult, error) {
	if err := ctx.Err(); err != nil {
		return model.AwardResult{}, err
	}

	// Rpc records failures in ClientError, which every later query on the
	// same client returns. Each call gets its own client.
	rpc := postgrest.NewClient(s.url, defaultSchema, s.headers)
	body := rpc.Rpc(awardRPC, "", awardParams{Name: name, Points: points, Reason: reason, Category: category})
	if rpc.ClientError != nil {
		return model.AwardResult{}, fmt.Errorf("add reputation: %w", rpc.ClientError)
	}
	return parseAwardResult([]byte(body))
}

// parseAwardResult accepts the set-returning form ([{...}]), a single row
// ({...}) and PostgREST error payloads.
func parseAwardResult(body []byte) (model.AwardResult, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return model.AwardResult{}, fmt.Errorf("empty rpc body: %w", ErrUnexpectedResponse)
	}

	if strings.HasPrefix(trimmed, "[") {
		var rows []model.AwardResult
		if err := json.Unmarshal([]byte(trimmed), &rows); err != nil {
			return model.AwardResult{}, fmt.Errorf("decode rpc rows: %w", ErrUnexpectedResponse)
		}
		if len(rows) == 0 {
			return model.AwardResult{}, fmt.Errorf("add_reputation returned no row: %w", ErrUnexpectedResponse)
		}
		return rows[0], nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return model.AwardResult{}, fmt.Errorf("decode rpc body: %w", ErrUnexpectedResponse)
	}
	if _, ok := fields["success"]; !ok {
		var e rpcError
		_ = json.Unmarshal([]byte(trimmed), &e)
		return model.AwardResult{}, fmt.Errorf("add reputation: (%s) %s", e.Code, e.Message)
	}
	var res model.AwardResult
	if err := json.Unmarshal([]byte(trimmed), &res); err != nil {
		return model.AwardResult{}, fmt.Errorf("decode rpc row: %w", ErrUnexpectedResponse)
	}
	return res, nil
}

// Ping implements Store.
func (s *PostgrestStore) Ping(ctx context.Context) error {
	_, err := s.CountMembers(ctx)
	return err
}

// Close implements Store.
func (s *PostgrestStore) Close() error { return nil }
