package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jordanlanch/leadintake/pkg/auth"
	"github.com/jordanlanch/leadintake/pkg/cache"
	"github.com/jordanlanch/leadintake/pkg/database"
	"github.com/jordanlanch/leadintake/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const jwtTestSecret = "test-secret-key-minimum-32-characters-long"

func setupJWTTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func runJWT(t *testing.T, db *gorm.DB, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := JWTMiddleware(jwtTestSecret, db)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	require.NoError(t, handler(c))
	return rec, c
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	rec, _ := runJWT(t, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_BadFormat(t *testing.T) {
	rec, _ := runJWT(t, nil, "Token abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_InvalidToken(t *testing.T) {
	rec, _ := runJWT(t, nil, "Bearer not-a-real-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token, err := auth.GenerateJWT("user-1", "test@example.com", "user", jwtTestSecret, 1)
	require.NoError(t, err)

	rec, c := runJWT(t, nil, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", c.Get("user_id"))
	assert.Equal(t, "test@example.com", c.Get("user_email"))
	assert.Equal(t, "user", c.Get("user_role"))
}

func TestJWTMiddleware_DeletedUserRejected(t *testing.T) {
	db := setupJWTTestDB(t)

	token, err := auth.GenerateJWT("ghost", "ghost@example.com", "user", jwtTestSecret, 1)
	require.NoError(t, err)

	rec, _ := runJWT(t, db, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_RevokedTokenRejected(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient, err := cache.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { redisClient.Close() })
	blacklist := auth.NewTokenBlacklist(redisClient)

	token, err := auth.GenerateJWT("user-1", "test@example.com", "user", jwtTestSecret, 1)
	require.NoError(t, err)

	e := echo.New()
	handler := JWTMiddlewareWithBlacklist(jwtTestSecret, blacklist, nil)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	run := func() (*httptest.ResponseRecorder, echo.Context) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		require.NoError(t, handler(c))
		return rec, c
	}

	rec, c := run()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, token, c.Get("token"), "raw token is exposed for logout")

	require.NoError(t, blacklist.Add(c.Request().Context(), token, time.Hour))

	rec, _ = run()
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_DatabaseRoleWins(t *testing.T) {
	db := setupJWTTestDB(t)
	now := time.Now().UTC()
	require.NoError(t, db.Create(&models.User{
		ID:           "user-1",
		Email:        "test@example.com",
		Name:         "Test User",
		PasswordHash: "x",
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}).Error)

	// Token claims admin, but the account was demoted.
	token, err := auth.GenerateJWT("user-1", "test@example.com", models.RoleAdmin, jwtTestSecret, 1)
	require.NoError(t, err)

	rec, c := runJWT(t, db, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleUser, c.Get("user_role"))
}
