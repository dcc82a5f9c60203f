// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	service "github.com/okian/reputation/internal/app"
	"github.com/okian/reputation/internal/domain/model"
	"github.com/okian/reputation/pkg/logger"
	"github.com/okian/reputation/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	LeaderboardDependencies
	SearchDependencies
	MemberDependencies
	ReputationDependencies
	HealthDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	searchHandler      *SearchHandler
	memberHandler      *MemberHandler
	reputationHandler  *ReputationHandler

	log logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the access logger. Defaults to a no-op logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers. adminAPIKey is the
// shared secret required by mutating endpoints.
func NewServer(deps Dependencies, statsProvider StatsProvider, adminAPIKey string, opts ...Option) *Server {
	auth := newAuthorizer(adminAPIKey)
	s := &Server{
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(statsProvider),
		leaderboardHandler: NewLeaderboardHandler(deps),
		searchHandler:      NewSearchHandler(deps),
		memberHandler:      NewMemberHandler(deps, auth),
		reputationHandler:  NewReputationHandler(deps, auth),
		log:                logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes and middleware to router.
func (s *Server) Register(_ context.Context, router *mux.Router) {
	if router == nil {
		panic("router is nil")
	}
	router.Use(RequestIDMiddleware, AccessLogMiddleware(s.log))

	router.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	router.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard")).
		Methods(http.MethodGet)
	router.HandleFunc("/search", MetricsMiddleware(s.searchHandler.HandleSearch, "search")).Methods(http.MethodGet)

	router.HandleFunc("/member", MetricsMiddleware(s.memberHandler.HandleGetByName, "member")).Methods(http.MethodGet)
	router.HandleFunc("/member/{id}", MetricsMiddleware(s.memberHandler.HandleUpdate, "member_update")).
		Methods(http.MethodPatch)
	router.HandleFunc("/member/{id}/history", MetricsMiddleware(s.memberHandler.HandleHistory, "member_history")).
		Methods(http.MethodGet)

	router.HandleFunc("/reputation", MetricsMiddleware(s.reputationHandler.HandleAward, "reputation_award")).
		Methods(http.MethodPost)
	router.HandleFunc("/reputation", MetricsMiddleware(s.reputationHandler.HandleCreateMember, "reputation_create")).
		Methods(http.MethodPut)
}

// NewRouter returns a router with the API registered on it.
func (s *Server) NewRouter(ctx context.Context) *mux.Router {
	router := mux.NewRouter()
	s.Register(ctx, router)
	return router
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// usersResponse is the leaderboard and search envelope. Timestamp is in
// Unix milliseconds.
type usersResponse struct {
	Error     string `json:"error,omitempty"`
	Users     any    `json:"users"`
	Pages     int    `json:"pages"`
	Timestamp int64  `json:"timestamp"`
	OptedIn   int    `json:"optedIn"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err with the status of its kind. generic replaces any
// message that could leak internals.
func writeError(w http.ResponseWriter, err error, generic string) {
	code, name := status(err)
	writeJSON(w, code, errorResponse{Error: clientMessage(err, generic), Code: name})
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

// authorizer checks the shared secret carried in request bodies.
type authorizer struct {
	key []byte
}

func newAuthorizer(key string) authorizer {
	return authorizer{key: []byte(key)}
}

// allow compares by exact match; an empty key is never accepted.
func (a authorizer) allow(key string) bool {
	if key == "" || len(a.key) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), a.key) == 1
}

// compile-time check that the service satisfies the handler contract.
var _ Dependencies = (*service.Service)(nil)

func membersOrEmpty(ms []model.Member) []model.Member {
	if ms == nil {
		return []model.Member{}
	}
	return ms
}
