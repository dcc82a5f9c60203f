package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/okian/reputation/internal/domain/model"
)

var (
	errInvalidMemberID = errors.New("Invalid member ID")            //nolint:staticcheck // shown to clients as is
	errMissingName     = errors.New("Missing required field: name") //nolint:staticcheck // shown to clients as is
)

// MemberDependencies defines the interface for member reads and profile edits.
type MemberDependencies interface {
	History(ctx context.Context, memberID int64) ([]model.HistoryEntry, error)
	MemberByName(ctx context.Context, name string) (model.Member, error)
	UpdateMember(ctx context.Context, id int64, upd model.MemberUpdate) (model.Member, error)
}

// MemberHandler handles member requests.
type MemberHandler struct {
	deps MemberDependencies
	auth authorizer
}

// NewMemberHandler creates a new member handler.
func NewMemberHandler(deps MemberDependencies, auth authorizer) *MemberHandler {
	return &MemberHandler{deps: deps, auth: auth}
}

func memberID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, errInvalidMemberID
	}
	return id, nil
}

// HandleHistory handles GET /member/{id}/history requests.
func (h *MemberHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.member_history"
	id, err := memberID(r)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err), "")
		return
	}
	entries, err := h.deps.History(r.Context(), id)
	if err != nil {
		writeError(w, Wrap(op, err), "Failed to fetch member history")
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGetByName handles GET /member?name=X requests.
func (h *MemberHandler) HandleGetByName(w http.ResponseWriter, r *http.Request) {
	const op = "api.member_by_name"
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, WrapKind(op, ErrBadRequest, errMissingName), "")
		return
	}
	m, err := h.deps.MemberByName(r.Context(), name)
	if err != nil {
		writeError(w, classify(op, err), failureMessage(err, "Member not found", "Failed to fetch member"))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// updateMemberRequest mirrors the OpenAPI schema for PATCH /member/{id}.
type updateMemberRequest struct {
	GitHubUsername *string `json:"githubUsername"`
	AvatarURL      *string `json:"avatarUrl"`
	APIKey         string  `json:"apiKey"`
}

// HandleUpdate handles PATCH /member/{id} requests. Only profile metadata
// can change; reputation moves through POST /reputation alone.
func (h *MemberHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_member"
	id, err := memberID(r)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err), "")
		return
	}
	var req updateMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, errMalformedBody), "")
		return
	}
	if !h.auth.allow(req.APIKey) {
		writeError(w, NewKind(op, ErrUnauthorized), "")
		return
	}
	m, err := h.deps.UpdateMember(r.Context(), id, model.MemberUpdate{
		GitHubUsername: req.GitHubUsername,
		AvatarURL:      req.AvatarURL,
	})
	if err != nil {
		writeError(w, classify(op, err), failureMessage(err, "Member not found", "Failed to update member"))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// failureMessage picks the client message for a not-found or other failure.
func failureMessage(err error, notFound, otherwise string) string {
	if code, _ := status(classify("", err)); code == http.StatusNotFound {
		return notFound
	}
	return otherwise
}
