package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nightout-app/server/cache"
	"github.com/nightout-app/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "auth-test-secret"

func newAuthRouter(t *testing.T) (*gin.Engine, cache.Cache) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, err := cache.New(cache.Config{})
	require.NoError(t, err)

	r := gin.New()
	sec := config.SecurityConfig{JWTSecret: testSecret}
	authed := r.Group("/", Auth(sec, c))
	authed.GET("/browse", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"profile_id": GetProfileID(ctx)})
	})
	authed.POST("/write", RequireUser(), func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r, c
}

func doReq(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_MissingOrBadToken(t *testing.T) {
	r, _ := newAuthRouter(t)

	assert.Equal(t, http.StatusUnauthorized, doReq(r, http.MethodGet, "/browse", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doReq(r, http.MethodGet, "/browse", "garbage").Code)
}

func TestAuth_SessionChecked(t *testing.T) {
	r, c := newAuthRouter(t)

	token, err := GenerateToken(5, testSecret, time.Hour)
	require.NoError(t, err)

	// A valid JWT without a live session is rejected: sign-out revokes.
	assert.Equal(t, http.StatusUnauthorized, doReq(r, http.MethodGet, "/browse", token).Code)

	require.NoError(t, c.Set(context.Background(), "session:"+token, "5", time.Hour))
	assert.Equal(t, http.StatusOK, doReq(r, http.MethodGet, "/browse", token).Code)

	require.NoError(t, c.Del(context.Background(), "session:"+token))
	assert.Equal(t, http.StatusUnauthorized, doReq(r, http.MethodGet, "/browse", token).Code)
}

func TestAuth_GuestCanBrowseNotWrite(t *testing.T) {
	r, _ := newAuthRouter(t)

	token, err := GenerateGuestToken(testSecret, time.Hour)
	require.NoError(t, err)

	// Guests skip the session check and may browse.
	assert.Equal(t, http.StatusOK, doReq(r, http.MethodGet, "/browse", token).Code)

	w := doReq(r, http.MethodPost, "/write", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "requires sign-in")
}

func TestRequireUser_AllowsSignedIn(t *testing.T) {
	r, c := newAuthRouter(t)

	token, err := GenerateToken(5, testSecret, time.Hour)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), "session:"+token, "5", time.Hour))

	assert.Equal(t, http.StatusOK, doReq(r, http.MethodPost, "/write", token).Code)
}
