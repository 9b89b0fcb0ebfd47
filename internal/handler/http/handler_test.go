package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/auth"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/event"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/repository/memory"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/service"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/health"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	codec, err := auth.NewTokenManager(auth.Config{
		AccessSecret:  []byte("access-secret-for-tests-0123456789abcdef"),
		RefreshSecret: []byte("refresh-secret-for-tests-0123456789abcdef"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "freelance-api",
	})
	require.NoError(t, err)

	throttle := service.NewLoginThrottle(memory.NewLoginAttemptStore(), 5, 15*time.Minute, logger)
	authSvc := service.NewAuthService(memory.NewUserRepository(), memory.NewRefreshTokenRepository(),
		codec, event.Discard{}, throttle, logger)
	clientSvc := service.NewClientService(memory.NewClientRepository(), logger)

	hh := health.NewHandler(time.Second)
	hh.RegisterCritical("store", func(context.Context) error { return nil })

	return NewRouter(authSvc, clientSvc, hh, logger, RouterConfig{})
}

type envelope struct {
	Status       string          `json:"status"`
	Code         string          `json:"code"`
	Message      string          `json:"message"`
	Data         json.RawMessage `json:"data"`
	Fields       map[string]any  `json:"fields"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

func do(t *testing.T, h http.Handler, method, path, bearer string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func registerBody() map[string]any {
	return map[string]any{
		"email":      "a@x.com",
		"password":   "Passw0rd!",
		"first_name": "A",
		"last_name":  "B",
	}
}

func TestAuthFlow_RegisterRefreshReuse(t *testing.T) {
	h := newTestRouter(t)

	status, reg := do(t, h, http.MethodPost, "/auth/register", "", registerBody())
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "success", reg.Status)
	require.NotEmpty(t, reg.AccessToken)
	require.NotEmpty(t, reg.RefreshToken)

	var user map[string]any
	require.NoError(t, json.Unmarshal(reg.Data, &user))
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, "EUR", user["currency"])
	assert.NotContains(t, user, "password_hash")
	assert.NotContains(t, user, "PasswordHash")

	status, refreshed := do(t, h, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": reg.RefreshToken})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, reg.AccessToken, refreshed.AccessToken)
	assert.NotEqual(t, reg.RefreshToken, refreshed.RefreshToken)

	status, reused := do(t, h, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": reg.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "error", reused.Status)
	assert.Equal(t, "UNAUTHORIZED", reused.Code)
}

func TestRegister_DuplicateEmailConflict(t *testing.T) {
	h := newTestRouter(t)

	status, _ := do(t, h, http.MethodPost, "/auth/register", "", registerBody())
	require.Equal(t, http.StatusCreated, status)

	status, env := do(t, h, http.MethodPost, "/auth/register", "", registerBody())
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Code)
}

func TestRegister_MissingFieldIsValidationError(t *testing.T) {
	h := newTestRouter(t)

	body := registerBody()
	delete(body, "first_name")

	status, env := do(t, h, http.MethodPost, "/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
	assert.Contains(t, env.Fields, "first_name")
}

func TestRegister_RejectsNonJSONBody(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("email=a@x.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestLogin_WrongPasswordIsCoarse401(t *testing.T) {
	h := newTestRouter(t)

	status, _ := do(t, h, http.MethodPost, "/auth/register", "", registerBody())
	require.Equal(t, http.StatusCreated, status)

	status, wrong := do(t, h, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, unknown := do(t, h, http.MethodPost, "/auth/login", "", map[string]string{"email": "z@x.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, wrong.Message, unknown.Message)

	status, ok := do(t, h, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "Passw0rd!"})
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, ok.AccessToken)
	assert.NotEmpty(t, ok.RefreshToken)
}

func TestLogin_LockoutIsScopedToSource(t *testing.T) {
	h := newTestRouter(t)

	status, _ := do(t, h, http.MethodPost, "/auth/register", "", registerBody())
	require.Equal(t, http.StatusCreated, status)

	login := func(password, forwardedFor string) int {
		body := fmt.Sprintf(`{"email":"a@x.com","password":%q}`, password)
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusUnauthorized, login("nope-nope", "203.0.113.9"))
	}
	assert.Equal(t, http.StatusTooManyRequests, login("Passw0rd!", "203.0.113.9"))
	assert.Equal(t, http.StatusOK, login("Passw0rd!", "198.51.100.4"))
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	h := newTestRouter(t)

	_, reg := do(t, h, http.MethodPost, "/auth/register", "", registerBody())

	for _, token := range []string{reg.RefreshToken, reg.RefreshToken, "garbage"} {
		status, env := do(t, h, http.MethodPost, "/auth/logout", "", map[string]string{"refreshToken": token})
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "success", env.Status)
	}

	status, _ := do(t, h, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": reg.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := do(t, h, http.MethodPost, "/auth/logout", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Fields, "refreshToken")
}

func TestGuardedRoutes(t *testing.T) {
	h := newTestRouter(t)

	status, _ := do(t, h, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	_, reg := do(t, h, http.MethodPost, "/auth/register", "", registerBody())

	status, _ = do(t, h, http.MethodGet, "/auth/me", reg.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, me := do(t, h, http.MethodGet, "/auth/me", reg.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	var identity map[string]any
	require.NoError(t, json.Unmarshal(me.Data, &identity))
	assert.Equal(t, "a@x.com", identity["email"])

	status, sessions := do(t, h, http.MethodGet, "/auth/sessions", reg.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(sessions.Data, &list))
	require.Len(t, list, 1)
	assert.NotContains(t, list[0], "token_hash")

	status, revoked := do(t, h, http.MethodPost, "/auth/logout-all", reg.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"revoked":1}`, string(revoked.Data))

	status, _ = do(t, h, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": reg.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestClientsCRUD(t *testing.T) {
	h := newTestRouter(t)
	_, reg := do(t, h, http.MethodPost, "/auth/register", "", registerBody())
	token := reg.AccessToken

	status, _ := do(t, h, http.MethodGet, "/clients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := do(t, h, http.MethodPost, "/clients", token, map[string]string{"name": "Acme", "type": "company"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Fields, "type")

	status, created := do(t, h, http.MethodPost, "/clients", token, map[string]string{
		"name":          "Acme",
		"type":          "entreprise",
		"contact_email": "billing@acme.test",
	})
	require.Equal(t, http.StatusCreated, status)
	var client struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(created.Data, &client))
	require.Positive(t, client.ID)
	path := "/clients/" + strconv.FormatInt(client.ID, 10)

	status, _ = do(t, h, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, h, http.MethodGet, "/clients/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, h, http.MethodGet, "/clients/999", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, h, http.MethodPut, path, token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, updated := do(t, h, http.MethodPut, path, token, map[string]any{"notes": "net 30"})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(updated.Data), "net 30")

	status, listed := do(t, h, http.MethodGet, "/clients?q=acm&type=entreprise", token, nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Items      []map[string]any `json:"items"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(listed.Data, &page))
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Pagination.Total)

	status, archived := do(t, h, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "client archived", archived.Message)

	_, listed = do(t, h, http.MethodGet, "/clients", token, nil)
	require.NoError(t, json.Unmarshal(listed.Data, &page))
	assert.Empty(t, page.Items)

	_, listed = do(t, h, http.MethodGet, "/clients?include_archived=1", token, nil)
	require.NoError(t, json.Unmarshal(listed.Data, &page))
	assert.Len(t, page.Items, 1)
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
