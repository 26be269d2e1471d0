package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"workshop-service/internal/config"
	"workshop-service/internal/notify"
	"workshop-service/internal/repository"
	"workshop-service/internal/service"
	"workshop-service/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-signing-key"

func newTestApp(t *testing.T) (*fiber.App, *sqlx.DB) {
	t.Helper()

	cfg := config.Config{
		Env:                 config.EnvDevelopment,
		DBType:              config.DBTypeSqlite,
		DBFolder:            t.TempDir(),
		DBName:              "test.db",
		SupabaseURL:         "https://project.supabase.co",
		SupabaseKey:         "anon-key",
		SupabaseJWTSecret:   testSecret,
		FrontendURL:         "http://localhost:3000",
		CORSOrigins:         "http://localhost:3000",
		RateLimitMax:        10000,
		RateLimitExpiration: 60,
	}

	db, err := storage.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	publisher, err := notify.NewPublisher("")
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	authService := service.NewAuthService(cfg, userRepo)
	workshopService := service.NewWorkshopService(
		repository.NewWorkshopRepository(db),
		repository.NewRegistrationRepository(db),
		publisher,
	)

	app := fiber.New()
	SetupRoutes(app, cfg, authService,
		NewAuthHandler(authService, cfg),
		NewUserHandler(nil),
		NewWorkshopHandler(workshopService),
	)
	return app, db
}

func signedToken(t *testing.T, email, name string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "sub-" + email,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"user_metadata": map[string]interface{}{
			"full_name": name,
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func seedWorkshopRow(t *testing.T, db *sqlx.DB, title string, capacity int) int64 {
	t.Helper()

	res, err := db.Exec(
		`INSERT INTO workshop (title, description, session_datetime, duration_min, max_capacity)
		 VALUES (?, '', ?, 90, ?)`,
		title, time.Now().Add(48*time.Hour).UTC(), capacity)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp.StatusCode, parsed
}

func TestHealthCheck(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthProviders(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/auth/providers", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])
}

func TestGoogleURLGet(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := doJSON(t, app, http.MethodGet,
		"/auth/google/url?redirect_to=http%3A%2F%2Flocalhost%3A3000%2Fdone", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "google", body["provider"])
	assert.Equal(t, "http://localhost:3000/done", body["redirect_to"])
	assert.Contains(t, body["oauth_url"], "provider=google")
}

func TestGoogleURLPostDefaultRedirect(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/auth/google/url", "", map[string]string{})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "http://localhost:3000/auth/callback", body["redirect_to"])
}

func TestExtractTokenEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/auth/extract-token", "", map[string]string{
		"callback_url": "http://localhost:3000/auth/callback#access_token=a.b.c&expires_in=3600&refresh_token=r1",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	tokens := body["tokens"].(map[string]interface{})
	assert.Equal(t, "a.b.c", tokens["access_token"])

	status, _ = doJSON(t, app, http.MethodPost, "/auth/extract-token", "", map[string]string{
		"callback_url": "http://localhost:3000/auth/callback#refresh_token=r1",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, app, http.MethodPost, "/auth/extract-token", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app, _ := newTestApp(t)

	status, _ := doJSON(t, app, http.MethodGet, "/workshops", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodGet, "/user/profile", "not.a.token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestVerifyEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/auth/verify", signedToken(t, "dana@example.com", "Dana Levi"), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["valid"])

	status, body = doJSON(t, app, http.MethodGet, "/auth/verify", "bad.bearer.token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["valid"])
}

func TestSignOutAlwaysReturnsCleanupInstructions(t *testing.T) {
	app, _ := newTestApp(t)

	// The provider relay targets an unreachable host here, so this exercises
	// the warning branch; cleanup instructions must be present regardless.
	status, body := doJSON(t, app, http.MethodPost, "/auth/signout", signedToken(t, "dana@example.com", "Dana Levi"), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, []interface{}{"success", "warning"}, body["status"])

	instructions, ok := body["instructions"].(map[string]interface{})
	require.True(t, ok, "signout response missing instructions")
	cleanup, ok := instructions["client_cleanup"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, cleanup)
}

func TestProfileCreatesUserOnFirstSight(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/user/profile", signedToken(t, "dana@example.com", "Dana Levi"), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "dana@example.com", body["email"])
	assert.Equal(t, "Dana Levi", body["name"])
	assert.Equal(t, "PARTICIPANT", body["role"])
}

func TestSignupFlow(t *testing.T) {
	app, db := newTestApp(t)
	workshopID := seedWorkshopRow(t, db, "Lockpicking 101", 1)
	path := fmt.Sprintf("/signup/%d", workshopID)

	dana := signedToken(t, "dana@example.com", "Dana Levi")
	omer := signedToken(t, "omer@example.com", "Omer Cohen")

	status, body := doJSON(t, app, http.MethodPost, path, dana, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "registered", body["action"])

	// Same user again: conflict, not a duplicate row.
	status, _ = doJSON(t, app, http.MethodPost, path, dana, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Other user: the single slot is taken.
	status, body = doJSON(t, app, http.MethodPost, path, omer, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Workshop capacity exceeded", body["error"])

	status, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/vacant/%d", workshopID), dana, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["vacant"])
}

func TestCancelIsIdempotentOverHTTP(t *testing.T) {
	app, db := newTestApp(t)
	workshopID := seedWorkshopRow(t, db, "Intro to SDR", 5)
	dana := signedToken(t, "dana@example.com", "Dana Levi")

	status, _ := doJSON(t, app, http.MethodPost, fmt.Sprintf("/signup/%d", workshopID), dana, nil)
	require.Equal(t, http.StatusOK, status)

	cancelPath := fmt.Sprintf("/cancel/%d", workshopID)
	status, body := doJSON(t, app, http.MethodPost, cancelPath, dana, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cancelled", body["status"])
	assert.Equal(t, "confirmed", body["previous_status"])

	status, body = doJSON(t, app, http.MethodPost, cancelPath, dana, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cancelled", body["status"])
	assert.Equal(t, "cancelled", body["previous_status"])
}

func TestSignupUnknownWorkshop(t *testing.T) {
	app, _ := newTestApp(t)
	dana := signedToken(t, "dana@example.com", "Dana Levi")

	status, _ := doJSON(t, app, http.MethodPost, "/signup/9999", dana, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, app, http.MethodPost, "/signup/abc", dana, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRegistrationStatusEndpoint(t *testing.T) {
	app, db := newTestApp(t)
	workshopID := seedWorkshopRow(t, db, "Intro to SDR", 5)
	dana := signedToken(t, "dana@example.com", "Dana Levi")
	path := fmt.Sprintf("/registration_status/%d", workshopID)

	status, body := doJSON(t, app, http.MethodGet, path, dana, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["registered"])

	doJSON(t, app, http.MethodPost, fmt.Sprintf("/signup/%d", workshopID), dana, nil)

	status, body = doJSON(t, app, http.MethodGet, path, dana, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["registered"])
	assert.Equal(t, true, body["can_cancel"])
	assert.Equal(t, false, body["can_signup"])
}

func TestAvatarUploadURLUnconfigured(t *testing.T) {
	app, _ := newTestApp(t)
	dana := signedToken(t, "dana@example.com", "Dana Levi")

	status, _ := doJSON(t, app, http.MethodPost, "/user/profile/avatar/upload-url", dana, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
