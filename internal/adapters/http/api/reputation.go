package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/reputation/internal/app"
	"github.com/okian/reputation/internal/domain/model"
)

var errMalformedBody = errors.New("request body must be a JSON object")

// ReputationDependencies defines the interface for awards and member creation.
type ReputationDependencies interface {
	Award(ctx context.Context, req service.AwardRequest) (model.AwardResult, error)
	CreateMember(ctx context.Context, in model.NewMember) (model.Member, error)
}

// ReputationHandler handles POST and PUT /reputation.
type ReputationHandler struct {
	deps ReputationDependencies
	auth authorizer
}

// NewReputationHandler creates a new reputation handler.
func NewReputationHandler(deps ReputationDependencies, auth authorizer) *ReputationHandler {
	return &ReputationHandler{deps: deps, auth: auth}
}

// awardRequest mirrors the OpenAPI schema for POST /reputation.
type awardRequest struct {
	Name     string `json:"name"`
	Points   *int   `json:"points"`
	Reason   string `json:"reason"`
	Category string `json:"category"`
	APIKey   string `json:"apiKey"`
}

// createMemberRequest mirrors the OpenAPI schema for PUT /reputation.
type createMemberRequest struct {
	Name           string  `json:"name"`
	GitHubUsername *string `json:"githubUsername"`
	AvatarURL      *string `json:"avatarUrl"`
	APIKey         string  `json:"apiKey"`
}

// HandleAward handles POST /reputation requests. The key is checked before
// the payload, so a bad key never reaches the store.
func (h *ReputationHandler) HandleAward(w http.ResponseWriter, r *http.Request) {
	const op = "api.award"
	var req awardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, errMalformedBody), "")
		return
	}
	if !h.auth.allow(req.APIKey) {
		writeError(w, NewKind(op, ErrUnauthorized), "")
		return
	}
	res, err := h.deps.Award(r.Context(), service.AwardRequest{
		Name:     req.Name,
		Points:   req.Points,
		Reason:   req.Reason,
		Category: req.Category,
	})
	if err != nil {
		writeError(w, classify(op, err), "Failed to add reputation")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleCreateMember handles PUT /reputation requests.
func (h *ReputationHandler) HandleCreateMember(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_member"
	var req createMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, errMalformedBody), "")
		return
	}
	if !h.auth.allow(req.APIKey) {
		writeError(w, NewKind(op, ErrUnauthorized), "")
		return
	}
	m, err := h.deps.CreateMember(r.Context(), model.NewMember{
		Name:           req.Name,
		GitHubUsername: req.GitHubUsername,
		AvatarURL:      req.AvatarURL,
	})
	if err != nil {
		writeError(w, classify(op, err), "Failed to create member")
		return
	}
	writeJSON(w, http.StatusOK, m)
}
