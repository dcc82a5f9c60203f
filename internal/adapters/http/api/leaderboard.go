package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/reputation/internal/domain/model"
)

var errInvalidPage = errors.New("page must be a positive integer")

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, page, pageSize int) (model.LeaderboardPage, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard?page=N requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	page, err := pageParam(r)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err), "")
		return
	}
	lb, err := h.deps.Leaderboard(r.Context(), page, 0)
	if err != nil {
		writeError(w, classify(op, err), "Failed to fetch leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{
		Users:     membersOrEmpty(lb.Members),
		Pages:     lb.Pages,
		Timestamp: lb.Timestamp.UnixMilli(),
		OptedIn:   lb.Total,
	})
}

// pageParam reads the optional 1-based page query parameter.
func pageParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, errInvalidPage
	}
	return page, nil
}
