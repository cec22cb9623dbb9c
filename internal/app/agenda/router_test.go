package agenda

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notifdomain "github.com/Apurer/agenda-client/internal/domains/notifications/domain"
	sessionhttp "github.com/Apurer/agenda-client/internal/domains/session/adapters/http"
	"github.com/Apurer/agenda-client/internal/domains/session/adapters/storage/memory"
	sessionports "github.com/Apurer/agenda-client/internal/domains/session/ports"
	apierrors "github.com/Apurer/agenda-client/internal/shared/errors"
)

// fakeBackend plays the Agenda REST API.
type fakeBackend struct {
	token string

	mu          sync.Mutex
	profileAuth string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"user": map[string]any{"id": 1, "name": "Ann", "email": "a@x.com", "manager": false},
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)

	b := &fakeBackend{token: token}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/user/token/", func(w http.ResponseWriter, r *http.Request) {
		var creds sessionports.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access": b.token, "refresh": "refresh"})
	})
	mux.HandleFunc("PUT /api/user/1/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.profileAuth = r.Header.Get("Authorization")
		b.mu.Unlock()
		var changes sessionports.ProfileChanges
		_ = json.NewDecoder(r.Body).Decode(&changes)
		if changes.Email == "taken@x.com" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"email":["user with this email already exists."]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "name": changes.Name, "email": changes.Email, "manager": false})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

func newTestRuntime(t *testing.T, apiURL string) (*Runtime, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := Config{
		APIURL:      apiURL,
		Storage:     StorageMemory,
		ToastTTL:    3 * time.Second,
		HTTPTimeout: 5 * time.Second,
		Port:        "0",
	}
	rt, err := NewRuntime(context.Background(), cfg, nil,
		WithClock(clockwork.NewFakeClock()),
		WithStorage(memory.NewStorage()),
	)
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))
	t.Cleanup(rt.Stop)
	return rt, NewRouter(rt)
}

func call(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_SignInProfileSignOut(t *testing.T) {
	backend, srv := newFakeBackend(t)
	rt, router := newTestRuntime(t, srv.URL+"/api/")

	rec := call(router, http.MethodPost, "/v1/session", map[string]string{"email": "a@x.com", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Bearer "+backend.token, rt.Client.Authorization())

	rec = call(router, http.MethodPut, "/v1/profile", sessionports.ProfileChanges{Name: "Ann Smith", Email: "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view sessionhttp.SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "Ann Smith", view.User.Name)
	backend.mu.Lock()
	assert.Equal(t, "Bearer "+backend.token, backend.profileAuth)
	backend.mu.Unlock()

	current, err := rt.Session.Current()
	require.NoError(t, err)
	assert.Equal(t, backend.token, current.Token)

	rec = call(router, http.MethodGet, "/v1/toasts", nil)
	var toasts []notifdomain.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toasts))
	require.Len(t, toasts, 1)
	assert.Equal(t, "Profile saved", toasts[0].Title)

	assert.Equal(t, http.StatusNoContent, call(router, http.MethodDelete, "/v1/session", nil).Code)
	assert.Empty(t, rt.Client.Authorization())
}

func TestRouter_RejectedSignIn(t *testing.T) {
	_, srv := newFakeBackend(t)
	rt, router := newTestRuntime(t, srv.URL+"/api/")

	rec := call(router, http.MethodPost, "/v1/session", map[string]string{"email": "a@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	current, err := rt.Session.Current()
	require.NoError(t, err)
	assert.False(t, current.Authenticated())

	toasts := rt.Toasts.Messages()
	require.Len(t, toasts, 1)
	assert.Equal(t, notifdomain.KindError, toasts[0].Kind)
	assert.Equal(t, "Authentication failed", toasts[0].Title)
}

func TestRouter_ProfileValidationProblem(t *testing.T) {
	_, srv := newFakeBackend(t)
	rt, router := newTestRuntime(t, srv.URL+"/api/")
	_, err := rt.SignIn.Submit(context.Background(), "a@x.com", "secret")
	require.NoError(t, err)

	rec := call(router, http.MethodPut, "/v1/profile", sessionports.ProfileChanges{Name: "Ann", Email: "taken@x.com"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem apierrors.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, map[string]string{"email": "user with this email already exists."}, problem.Fields)
}

func TestRouter_ProfileWithoutSessionConflicts(t *testing.T) {
	_, srv := newFakeBackend(t)
	_, router := newTestRuntime(t, srv.URL+"/api/")

	rec := call(router, http.MethodPut, "/v1/profile", sessionports.ProfileChanges{Name: "Ann", Email: "a@x.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_Healthz(t *testing.T) {
	_, srv := newFakeBackend(t)
	_, router := newTestRuntime(t, srv.URL+"/api/")
	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/healthz", nil).Code)
}

func TestRouter_MetricsExposeRequests(t *testing.T) {
	_, srv := newFakeBackend(t)
	_, router := newTestRuntime(t, srv.URL+"/api/")

	require.Equal(t, http.StatusOK, call(router, http.MethodGet, "/v1/toasts", nil).Code)

	rec := call(router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `agenda_http_requests_total{method="GET",route="/v1/toasts",status_code="200"} 1`)
	assert.NotContains(t, body, `route="/metrics"`)
}

func TestRouter_SignInIsRateLimited(t *testing.T) {
	_, srv := newFakeBackend(t)
	rt, _ := newTestRuntime(t, srv.URL+"/api/")
	rt.Config.SignInRate = 0.001
	rt.Config.SignInBurst = 1
	router := NewRouter(rt)

	creds := map[string]string{"email": "a@x.com", "password": "wrong"}
	assert.Equal(t, http.StatusUnauthorized, call(router, http.MethodPost, "/v1/session", creds).Code)

	rec := call(router, http.MethodPost, "/v1/session", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1000", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/v1/session", nil).Code)
}
