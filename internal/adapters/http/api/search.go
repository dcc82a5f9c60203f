package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/reputation/internal/app"
	"github.com/okian/reputation/internal/domain/model"
)

var errMissingSearch = errors.New("Search query is required") //nolint:staticcheck // shown to clients as is

// SearchDependencies defines the interface for member search.
type SearchDependencies interface {
	Search(ctx context.Context, query string, page, pageSize int) (model.SearchPage, error)
}

// SearchHandler handles search requests.
type SearchHandler struct {
	deps SearchDependencies
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(deps SearchDependencies) *SearchHandler {
	return &SearchHandler{deps: deps}
}

// HandleSearch handles GET /search?search=Q&page=N requests. Every returned
// user carries its rank in the full leaderboard.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.search"
	query := r.URL.Query().Get("search")
	if strings.TrimSpace(query) == "" {
		writeError(w, WrapKind(op, ErrBadRequest, errMissingSearch), "")
		return
	}
	page, err := pageParam(r)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err), "")
		return
	}

	res, err := h.deps.Search(r.Context(), query, page, 0)
	switch {
	case errors.Is(err, service.ErrNoMatches):
		writeJSON(w, http.StatusNotFound, usersResponse{
			Error:     "No users found",
			Users:     []model.RankedMember{},
			Timestamp: res.Timestamp.UnixMilli(),
		})
		return
	case err != nil:
		writeError(w, classify(op, err), "Failed to search members")
		return
	}

	users := res.Members
	if users == nil {
		users = []model.RankedMember{}
	}
	writeJSON(w, http.StatusOK, usersResponse{
		Users:     users,
		Pages:     res.Pages,
		Timestamp: res.Timestamp.UnixMilli(),
		OptedIn:   res.Total,
	})
}
