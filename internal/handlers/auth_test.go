package handlers_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/storm/internal/auth"
	"github.com/example/storm/internal/config"
	"github.com/example/storm/internal/handlers"
	"github.com/example/storm/internal/middleware"
	"github.com/example/storm/internal/models"
	"github.com/example/storm/internal/testutil"
)

func newAccountApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t)
	cfg := &config.Config{AppEnv: "test", SessionTTL: 30 * 24 * time.Hour}

	app := fiber.New()
	app.Use(middleware.SessionMiddleware(db))

	authHandler := handlers.NewAuthHandler(db, cfg)
	accountHandler := handlers.NewAccountHandler(db)

	app.Post("/api/auth/register", authHandler.Register)
	app.Post("/api/auth/login", authHandler.Login)
	app.Post("/api/auth/logout", authHandler.Logout)
	app.Get("/api/account", accountHandler.Show)
	app.Post("/api/account/update", accountHandler.Update)

	return app, db
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values, cookie *http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == auth.SessionCookie {
			return cookie
		}
	}
	return nil
}

func registerForm(email string) url.Values {
	return url.Values{
		"email":    {email},
		"password": {"password123"},
		"name":     {"Alice"},
		"phone":    {"555-0100"},
	}
}

func TestRegisterCreatesUserAndSession(t *testing.T) {
	app, db := newAccountApp(t)

	resp := postForm(t, app, "/api/auth/register", registerForm("Alice@Example.com"), nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/account", resp.Header.Get("Location"))

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "alice@example.com").Error)
	assert.Equal(t, "Alice", user.Name)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.NotEmpty(t, user.PasswordHash)

	var session models.Session
	require.NoError(t, db.First(&session, "user_id = ?", user.ID).Error)
	assert.Equal(t, auth.TokenHash(cookie.Value), session.TokenHash)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	app, db := newAccountApp(t)

	first := postForm(t, app, "/api/auth/register", registerForm("alice@example.com"), nil)
	first.Body.Close()
	require.Equal(t, http.StatusSeeOther, first.StatusCode)

	// Same email with different case must hit the same row.
	second := postForm(t, app, "/api/auth/register", registerForm("ALICE@example.com"), nil)
	second.Body.Close()
	assert.Equal(t, http.StatusConflict, second.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	app, _ := newAccountApp(t)

	short := registerForm("carol@example.com")
	short.Set("password", "short")
	resp := postForm(t, app, "/api/auth/register", short, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	bad := registerForm("not-an-email")
	resp = postForm(t, app, "/api/auth/register", bad, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postForm(t, app, "/api/auth/register", url.Values{"password": {"password123"}}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginFailsUniformly(t *testing.T) {
	app, _ := newAccountApp(t)

	resp := postForm(t, app, "/api/auth/register", registerForm("alice@example.com"), nil)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	wrongPassword := postForm(t, app, "/api/auth/login", url.Values{
		"email":    {"alice@example.com"},
		"password": {"wrong-password"},
	}, nil)
	defer wrongPassword.Body.Close()

	unknownEmail := postForm(t, app, "/api/auth/login", url.Values{
		"email":    {"nobody@example.com"},
		"password": {"password123"},
	}, nil)
	defer unknownEmail.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.StatusCode)

	// The two failures must be indistinguishable.
	firstBody, err := io.ReadAll(wrongPassword.Body)
	require.NoError(t, err)
	secondBody, err := io.ReadAll(unknownEmail.Body)
	require.NoError(t, err)
	assert.Equal(t, string(firstBody), string(secondBody))
}

func TestLoginIssuesSession(t *testing.T) {
	app, db := newAccountApp(t)

	resp := postForm(t, app, "/api/auth/register", registerForm("alice@example.com"), nil)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	login := postForm(t, app, "/api/auth/login", url.Values{
		"email":    {"alice@example.com"},
		"password": {"password123"},
	}, nil)
	login.Body.Close()

	assert.Equal(t, http.StatusSeeOther, login.StatusCode)
	assert.Equal(t, "/account", login.Header.Get("Location"))
	require.NotNil(t, sessionCookie(login))

	var count int64
	require.NoError(t, db.Model(&models.Session{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestLogoutRevokesSession(t *testing.T) {
	app, db := newAccountApp(t)

	register := postForm(t, app, "/api/auth/register", registerForm("alice@example.com"), nil)
	register.Body.Close()
	cookie := sessionCookie(register)
	require.NotNil(t, cookie)

	logout := postForm(t, app, "/api/auth/logout", nil, cookie)
	logout.Body.Close()

	assert.Equal(t, http.StatusSeeOther, logout.StatusCode)
	assert.Equal(t, "/", logout.Header.Get("Location"))

	cleared := sessionCookie(logout)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.Expires.Before(time.Now()))

	var count int64
	require.NoError(t, db.Model(&models.Session{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLogoutWithoutSessionSucceeds(t *testing.T) {
	app, _ := newAccountApp(t)

	resp := postForm(t, app, "/api/auth/logout", nil, nil)
	resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.NotNil(t, sessionCookie(resp), "logout must still clear the cookie")
}

func TestLogoutWithStaleCookieSucceeds(t *testing.T) {
	app, _ := newAccountApp(t)

	stale := &http.Cookie{Name: auth.SessionCookie, Value: "long-gone-token"}
	resp := postForm(t, app, "/api/auth/logout", nil, stale)
	resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}
