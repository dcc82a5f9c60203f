package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/reputation/internal/adapters/http/api"
	"github.com/okian/reputation/internal/adapters/repository"
	service "github.com/okian/reputation/internal/app"
	"github.com/okian/reputation/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const testKey = "s3cret"

// downStore fails every read with an internal error.
type downStore struct {
	*repository.MemoryStore
}

var errDown = errors.New("dial tcp 10.0.0.5:5432: connection refused")

func (downStore) CountMembers(context.Context) (int, error) { return 0, errDown }
func (downStore) SearchMembers(context.Context, string, int, int) ([]model.Member, int, error) {
	return nil, 0, errDown
}
func (downStore) MemberHistory(context.Context, int64) ([]model.HistoryEntry, error) {
	return nil, errDown
}
func (downStore) AwardPoints(context.Context, string, int, string, string) (model.AwardResult, error) {
	return model.AwardResult{}, errDown
}
func (downStore) Ping(context.Context) error { return errDown }

func seed(n int) []model.Member {
	out := make([]model.Member, n)
	for i := range out {
		out[i] = model.Member{Name: fmt.Sprintf("member%02d", i+1), Reputation: 100 - i}
	}
	return out
}

func newRouter(store repository.Store) http.Handler {
	svc := service.New(service.WithStore(store))
	server := api.NewServer(svc, svc, testKey)
	return server.NewRouter(context.Background())
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a router over a healthy store", t, func() {
		h := newRouter(repository.NewMemoryStore(repository.WithMembers(seed(3)...)))

		Convey("Health, stats and metrics are served", func() {
			So(do(h, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodGet, "/stats", "").Code, ShouldEqual, http.StatusOK)
			metrics := do(h, http.MethodGet, "/metrics", "")
			So(metrics.Code, ShouldEqual, http.StatusOK)
			So(metrics.Body.String(), ShouldContainSubstring, "reputation_service_")
		})

		Convey("Every response carries a request id", func() {
			w := do(h, http.MethodGet, "/leaderboard", "")
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)

			req := httptest.NewRequest(http.MethodGet, "/leaderboard", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			So(rec.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})

		Convey("Unknown paths are 404 and wrong methods 405", func() {
			So(do(h, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(h, http.MethodDelete, "/reputation", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})

	Convey("Given a nil router", t, func() {
		svc := service.New()
		server := api.NewServer(svc, svc, testKey)
		So(func() { server.Register(context.Background(), nil) }, ShouldPanic)
	})
}

func TestLeaderboardEndpoint(t *testing.T) {
	Convey("Given 23 members", t, func() {
		h := newRouter(repository.NewMemoryStore(repository.WithMembers(seed(23)...)))

		Convey("The first page has the envelope fields", func() {
			w := do(h, http.MethodGet, "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(len(body["users"].([]any)), ShouldEqual, 10)
			So(body["pages"], ShouldEqual, 3)
			So(body["optedIn"], ShouldEqual, 23)
			So(body["timestamp"], ShouldBeGreaterThan, 0)
			first := body["users"].([]any)[0].(map[string]any)
			So(first["name"], ShouldEqual, "member01")
			So(first["reputation"], ShouldEqual, 100)
		})

		Convey("Later pages are sliced", func() {
			body := decode(do(h, http.MethodGet, "/leaderboard?page=3", ""))
			So(len(body["users"].([]any)), ShouldEqual, 3)
		})

		Convey("Pages past the end are empty arrays", func() {
			body := decode(do(h, http.MethodGet, "/leaderboard?page=9", ""))
			So(body["users"], ShouldResemble, []any{})
		})

		Convey("Invalid pages are rejected", func() {
			for _, p := range []string{"abc", "0", "-2", "1.5"} {
				w := do(h, http.MethodGet, "/leaderboard?page="+p, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			}
		})
	})

	Convey("Given a store that is down and nothing cached", t, func() {
		h := newRouter(downStore{repository.NewMemoryStore()})

		Convey("The leaderboard fails with a generic message", func() {
			w := do(h, http.MethodGet, "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			body := decode(w)
			So(body["error"], ShouldEqual, "Failed to fetch leaderboard")
			So(w.Body.String(), ShouldNotContainSubstring, "10.0.0.5")
		})

		Convey("Health reports unavailable", func() {
			So(do(h, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestSearchEndpoint(t *testing.T) {
	Convey("Given 23 members", t, func() {
		h := newRouter(repository.NewMemoryStore(repository.WithMembers(seed(23)...)))

		Convey("A missing query is 400 whatever the page", func() {
			for _, target := range []string{"/search", "/search?search=", "/search?page=2", "/search?search=&page=x"} {
				w := do(h, http.MethodGet, target, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["error"], ShouldEqual, "Search query is required")
			}
		})

		Convey("Matches carry their global rank", func() {
			w := do(h, http.MethodGet, "/search?search=MEMBER2", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			users := body["users"].([]any)
			So(len(users), ShouldEqual, 4)
			So(users[0].(map[string]any)["name"], ShouldEqual, "member20")
			So(users[0].(map[string]any)["rank"], ShouldEqual, 20)
			So(body["pages"], ShouldEqual, 1)
			So(body["optedIn"], ShouldEqual, 4)
		})

		Convey("No matches is 404 with a zeroed payload", func() {
			w := do(h, http.MethodGet, "/search?search=zzz", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			body := decode(w)
			So(body["error"], ShouldEqual, "No users found")
			So(body["users"], ShouldResemble, []any{})
			So(body["pages"], ShouldEqual, 0)
			So(body["optedIn"], ShouldEqual, 0)
		})
	})

	Convey("Given a store that is down", t, func() {
		h := newRouter(downStore{repository.NewMemoryStore()})
		w := do(h, http.MethodGet, "/search?search=a", "")
		So(w.Code, ShouldEqual, http.StatusInternalServerError)
		So(decode(w)["error"], ShouldEqual, "Failed to search members")
	})
}

func TestMemberEndpoints(t *testing.T) {
	Convey("Given a member with history", t, func() {
		store := repository.NewMemoryStore(repository.WithMembers(seed(2)...))
		h := newRouter(store)
		_, _ = store.AwardPoints(context.Background(), "member01", 5, "first", model.CategoryAchievements)
		_, _ = store.AwardPoints(context.Background(), "member01", -2, "second", model.CategoryPenalty)

		Convey("History is newest first", func() {
			w := do(h, http.MethodGet, "/member/1/history", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var entries []model.HistoryEntry
			So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
			So(len(entries), ShouldEqual, 2)
			So(entries[0].Reason, ShouldEqual, "second")
		})

		Convey("History of a member without entries is an empty array", func() {
			w := do(h, http.MethodGet, "/member/2/history", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("A non-integer id is 400", func() {
			w := do(h, http.MethodGet, "/member/abc/history", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["error"], ShouldEqual, "Invalid member ID")
		})

		Convey("Members are looked up by name", func() {
			w := do(h, http.MethodGet, "/member?name=member02", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["id"], ShouldEqual, 2)

			So(do(h, http.MethodGet, "/member?name=ghost", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(h, http.MethodGet, "/member", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Profiles are patched with the key", func() {
			w := do(h, http.MethodPatch, "/member/2", `{"githubUsername":"m2gh","apiKey":"`+testKey+`"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["github_username"], ShouldEqual, "m2gh")

			So(do(h, http.MethodPatch, "/member/2", `{"githubUsername":"x","apiKey":"nope"}`).Code,
				ShouldEqual, http.StatusUnauthorized)
			So(do(h, http.MethodPatch, "/member/99", `{"githubUsername":"x","apiKey":"`+testKey+`"}`).Code,
				ShouldEqual, http.StatusNotFound)
			So(do(h, http.MethodPatch, "/member/2", `{"apiKey":"`+testKey+`"}`).Code,
				ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("Given a store that is down", t, func() {
		h := newRouter(downStore{repository.NewMemoryStore()})
		w := do(h, http.MethodGet, "/member/1/history", "")
		So(w.Code, ShouldEqual, http.StatusInternalServerError)
		So(decode(w)["error"], ShouldEqual, "Failed to fetch member history")
	})
}

func TestReputationEndpoints(t *testing.T) {
	Convey("Given Alice at 100", t, func() {
		store := repository.NewMemoryStore(repository.WithMembers(model.Member{Name: "Alice", Reputation: 100}))
		h := newRouter(store)
		reputation := func() int {
			m, err := store.MemberByName(context.Background(), "Alice")
			So(err, ShouldBeNil)
			return m.Reputation
		}

		Convey("A valid award returns the store result", func() {
			w := do(h, http.MethodPost, "/reputation",
				`{"name":"Alice","points":50,"reason":"talk","category":"Learning & Sharing","apiKey":"`+testKey+`"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["success"], ShouldEqual, true)
			So(body["new_reputation"], ShouldEqual, 150)
			So(reputation(), ShouldEqual, 150)
		})

		Convey("A wrong or missing key is 401 and changes nothing", func() {
			for _, payload := range []string{
				`{"name":"Alice","points":50,"reason":"x","category":"Achievements","apiKey":"wrong"}`,
				`{"name":"Alice","points":50,"reason":"x","category":"Achievements"}`,
				`{"apiKey":"wrong"}`,
			} {
				w := do(h, http.MethodPost, "/reputation", payload)
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(decode(w)["error"], ShouldEqual, "Unauthorized")
			}
			So(reputation(), ShouldEqual, 100)
		})

		Convey("Missing fields are 400", func() {
			w := do(h, http.MethodPost, "/reputation", `{"name":"Alice","reason":"x","category":"Achievements","apiKey":"`+testKey+`"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["error"], ShouldContainSubstring, "points")
		})

		Convey("Unknown categories are 400", func() {
			w := do(h, http.MethodPost, "/reputation", `{"name":"Alice","points":1,"reason":"x","category":"Misc","apiKey":"`+testKey+`"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Malformed bodies are 400", func() {
			So(do(h, http.MethodPost, "/reputation", `{"name":`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodPost, "/reputation", `{"points":"ten","apiKey":"`+testKey+`"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Members are created with PUT", func() {
			w := do(h, http.MethodPut, "/reputation", `{"name":"Bob","githubUsername":"bobgh","apiKey":"`+testKey+`"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["name"], ShouldEqual, "Bob")
			So(body["reputation"], ShouldEqual, 0)
			So(body["github_username"], ShouldEqual, "bobgh")
			So(body["avatar_url"], ShouldBeNil)
		})

		Convey("Duplicate names conflict", func() {
			w := do(h, http.MethodPut, "/reputation", `{"name":"Alice","apiKey":"`+testKey+`"}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("PUT checks the key and the name", func() {
			So(do(h, http.MethodPut, "/reputation", `{"name":"Carl","apiKey":"x"}`).Code, ShouldEqual, http.StatusUnauthorized)
			So(do(h, http.MethodPut, "/reputation", `{"apiKey":"`+testKey+`"}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("Given a store that is down", t, func() {
		h := newRouter(downStore{repository.NewMemoryStore()})
		w := do(h, http.MethodPost, "/reputation",
			`{"name":"Alice","points":1,"reason":"x","category":"Achievements","apiKey":"`+testKey+`"}`)
		So(w.Code, ShouldEqual, http.StatusInternalServerError)
		So(decode(w)["error"], ShouldEqual, "Failed to add reputation")
	})
}
