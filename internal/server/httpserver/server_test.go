package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ostrval/carpooling/internal/common"
	"github.com/ostrval/carpooling/internal/logging"
	"github.com/ostrval/carpooling/internal/server/auth"
	"github.com/ostrval/carpooling/internal/server/cache"
	"github.com/ostrval/carpooling/internal/server/models"
	"github.com/ostrval/carpooling/internal/server/repositories/users"
	"github.com/ostrval/carpooling/internal/server/services"
)

// --- in-memory repos for transport tests ---

type memRouteRepo struct {
	mu     sync.Mutex
	nextID int64
	routes []models.Route
}

func (m *memRouteRepo) Create(ctx context.Context, route *models.Route) (*models.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	route.ID = m.nextID
	m.routes = append(m.routes, *route)
	return route, nil
}

func (m *memRouteRepo) ListByOwner(ctx context.Context, userID int64) ([]models.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Route
	for _, r := range m.routes {
		if r.UserID == userID {
			result = append(result, r)
		}
	}
	return result, nil
}

type memTripRepo struct {
	mu     sync.Mutex
	nextID int64
	trips  map[int64]models.Trip
}

func (m *memTripRepo) Create(ctx context.Context, trip *models.Trip) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	trip.ID = m.nextID
	m.trips[trip.ID] = *trip
	return trip, nil
}

func (m *memTripRepo) Get(ctx context.Context, id int64) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &trip, nil
}

func (m *memTripRepo) AddCompanion(ctx context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil
	}
	if !slices.Contains(trip.Companions, userID) {
		trip.Companions = append(trip.Companions, userID)
		m.trips[id] = trip
	}
	return nil
}

// --- harness ---

type testEnv struct {
	handler http.Handler
	tokens  *auth.TokenService
	users   *services.UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	tokens := auth.NewTokenService([]byte("test-secret"))
	userSvc := services.NewUserService(users.NewDocumentRepository(), tokens, 30*time.Minute, log)
	routeSvc := services.NewRouteService(&memRouteRepo{}, cache.NewRedisCache(rdb, 0), log)
	tripSvc := services.NewTripService(&memTripRepo{trips: make(map[int64]models.Trip)})

	srv := New(":0", log, tokens, userSvc, routeSvc, tripSvc)
	return &testEnv{handler: srv.Handler(), tokens: tokens, users: userSvc}
}

func (e *testEnv) registerUser(t *testing.T, username, password string) {
	t.Helper()
	_, err := e.users.Register(context.Background(), &models.User{Username: username, FirstName: "Test", LastName: "User"}, password)
	if err != nil {
		t.Fatalf("register error: %v", err)
	}
}

func (e *testEnv) login(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) token(t *testing.T, username, password string) string {
	t.Helper()
	rec := e.login(t, username, password)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	if resp.TokenType != "bearer" {
		t.Fatalf("unexpected token type %q", resp.TokenType)
	}
	return resp.AccessToken
}

func (e *testEnv) do(t *testing.T, method, target, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// --- tests ---

func TestLogin_IssuesUsableToken(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "admin", "secret")

	token := env.token(t, "admin", "secret")

	subject, err := env.tokens.Verify(token)
	if err != nil || subject != "admin" {
		t.Fatalf("token subject %q err %v", subject, err)
	}

	rec := env.do(t, http.MethodGet, "/routes?user_id=1", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("protected call with fresh token: status %d", rec.Code)
	}
}

func TestLogin_UniformFailureShape(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "admin", "secret")

	unknown := env.login(t, "nonexistent", "any")
	wrongPw := env.login(t, "admin", "wrong-password")

	if unknown.Code != http.StatusUnauthorized || wrongPw.Code != http.StatusUnauthorized {
		t.Fatalf("statuses %d / %d, want both 401", unknown.Code, wrongPw.Code)
	}
	if unknown.Body.String() != wrongPw.Body.String() {
		t.Fatalf("bodies differ:\n%s\n%s", unknown.Body, wrongPw.Body)
	}
	if unknown.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Fatalf("missing bearer challenge")
	}
}

func TestAuth_MissingToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/routes?user_id=1", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Fatal("missing challenge header")
	}
}

func TestAuth_RejectedTokensLookIdentical(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "admin", "secret")
	good := env.token(t, "admin", "secret")

	tampered := good[:len(good)-2] + "xx"
	expired, err := env.tokens.Issue("admin", -time.Second)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	recTampered := env.do(t, http.MethodGet, "/routes?user_id=1", tampered, "")
	recExpired := env.do(t, http.MethodGet, "/routes?user_id=1", expired, "")

	if recTampered.Code != http.StatusUnauthorized || recExpired.Code != http.StatusUnauthorized {
		t.Fatalf("statuses %d / %d, want both 401", recTampered.Code, recExpired.Code)
	}
	if recTampered.Body.String() != recExpired.Body.String() {
		t.Fatalf("401 bodies must not leak the failure reason:\n%s\n%s", recTampered.Body, recExpired.Body)
	}
}

func TestRoutes_CreateThenList(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "admin", "secret")
	token := env.token(t, "admin", "secret")

	rec := env.do(t, http.MethodPost, "/routes", token,
		`{"user_id":1,"start_point":"Moscow","end_point":"St. Petersburg"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodGet, "/routes?user_id=1", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	var routes []models.Route
	if err := json.Unmarshal(rec.Body.Bytes(), &routes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(routes) != 1 || routes[0].StartPoint != "Moscow" {
		t.Fatalf("unexpected routes: %+v", routes)
	}
}

func TestRoutes_EmptyListIsJSONArray(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "admin", "secret")
	token := env.token(t, "admin", "secret")

	rec := env.do(t, http.MethodGet, "/routes?user_id=42", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("want empty array, got %s", rec.Body)
	}
}

func TestRoutes_ValidationError(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "admin", "secret")
	token := env.token(t, "admin", "secret")

	rec := env.do(t, http.MethodPost, "/routes", token, `{"user_id":1,"start_point":"","end_point":"B"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestTrips_CreateGetAddCompanion(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "admin", "secret")
	token := env.token(t, "admin", "secret")

	rec := env.do(t, http.MethodPost, "/trips", token,
		`{"user_id":1,"companions":[2],"date":"2023-12-25T10:00:00Z"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body)
	}
	var trip models.Trip
	if err := json.Unmarshal(rec.Body.Bytes(), &trip); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = env.do(t, http.MethodPost, "/trips/1/companions?user_id=3", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("add companion status %d: %s", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodGet, "/trips/1", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &trip); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(trip.Companions) != 2 {
		t.Fatalf("unexpected companions: %v", trip.Companions)
	}
}

func TestTrips_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "admin", "secret")
	token := env.token(t, "admin", "secret")

	rec := env.do(t, http.MethodGet, "/trips/99", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestUsers_CreateAndGetOmitsPasswordHash(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "admin", "secret")
	token := env.token(t, "admin", "secret")

	rec := env.do(t, http.MethodPost, "/users", token,
		`{"username":"kiros","first_name":"Kirill","last_name":"Ostrovskiy","email":"k@example.com","password":"student"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response leaks password material: %s", rec.Body)
	}

	rec = env.do(t, http.MethodGet, "/users/kiros", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/users/ghost", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestUsers_SearchByName(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "admin", "secret")
	token := env.token(t, "admin", "secret")

	rec := env.do(t, http.MethodGet, "/users?first_name=tes&last_name=use", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var found []models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &found); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(found) != 1 || found[0].Username != "admin" {
		t.Fatalf("unexpected result: %+v", found)
	}
}

func TestRequireAuth_AttachesSubject(t *testing.T) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	tokens := auth.NewTokenService([]byte("test-secret"))
	srv := New(":0", log, tokens, nil, nil, nil)

	token, err := tokens.Issue("admin", time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	var got string
	h := srv.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SubjectFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if got != "admin" {
		t.Fatalf("subject = %q, want admin", got)
	}
}

func TestWriteDomainError_LogsCaller(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	srv := New(":0", log, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	req = req.WithContext(context.WithValue(req.Context(), subjectKey, "admin"))
	rec := httptest.NewRecorder()

	srv.writeDomainError(rec, req, errors.New("db down"))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", rec.Code)
	}
	if !strings.Contains(buf.String(), "caller=admin") {
		t.Fatalf("log line missing caller: %s", buf.String())
	}
}
