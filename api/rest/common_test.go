package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nightout-app/server/api/rest"
	"github.com/nightout-app/server/cache"
	"github.com/nightout-app/server/config"
	"github.com/nightout-app/server/feed"
	"github.com/nightout-app/server/media"
	mw "github.com/nightout-app/server/middleware"
	"github.com/nightout-app/server/mirror"
	"github.com/nightout-app/server/moderation"
	"github.com/nightout-app/server/night"
	"github.com/nightout-app/server/profile"
	"github.com/nightout-app/server/realtime"
	"github.com/nightout-app/server/session"
	"github.com/nightout-app/server/social"
	"github.com/nightout-app/server/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "rest-test-secret"

type apiSetup struct {
	router *gin.Engine
	db     *gorm.DB
	cache  cache.Cache
}

// newAPISetup wires the full route table over in-memory backends, matching
// the production wiring in main.go.
func newAPISetup(t *testing.T) *apiSetup {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	sec := config.SecurityConfig{JWTSecret: testSecret, JWTTTLH: 24 * time.Hour}

	presence := session.NewManager(logger)
	pub := realtime.NewPublisher(ps, logger)
	profileSvc := profile.NewService(db, c, sec, logger)
	socialSvc := social.NewService(db, presence, logger)
	nightSvc := night.NewService(db, c, pub, config.NightConfig{MaxHours: 24}, logger)
	feedSvc := feed.NewService(db, c, pub, socialSvc, logger)
	storage, err := media.NewDiskStorage(t.TempDir(), "http://localhost/media")
	require.NoError(t, err)
	mediaSvc := media.NewService(db, storage, pub, logger)
	moderationSvc := moderation.NewService(db, socialSvc, 3, logger)
	syncRemote := mirror.NewSchemaRemote(db)

	authH := rest.NewAuthHandler(profileSvc, c, sec)
	profileH := rest.NewProfileHandler(profileSvc, mediaSvc)
	nightH := rest.NewNightHandler(nightSvc, socialSvc)
	feedH := rest.NewFeedHandler(feedSvc)
	socialH := rest.NewSocialHandler(socialSvc)
	mediaH := rest.NewMediaHandler(mediaSvc)
	moderationH := rest.NewModerationHandler(moderationSvc)
	syncH := rest.NewSyncHandler(syncRemote)

	r := gin.New()
	authed := mw.Auth(sec, c)
	user := mw.RequireUser()

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/signup", authH.Signup)
		authG.POST("/signin", authH.Signin)
		authG.POST("/guest", authH.Guest)
		authG.POST("/magic-link", authH.MagicLink)
		authG.POST("/magic-redeem", authH.MagicRedeem)
		authG.POST("/signout", authed, authH.Signout)
		authG.POST("/refresh", authed, user, authH.Refresh)

		profileG := api.Group("/profile", authed)
		profileG.GET("/me", user, profileH.Me)
		profileG.PATCH("/me", user, profileH.Update)
		profileG.POST("/password", user, profileH.ChangePassword)
		profileG.GET("/:username", profileH.Get)

		nightsG := api.Group("/nights", authed)
		nightsG.POST("", user, nightH.Start)
		nightsG.POST("/end", user, nightH.End)
		nightsG.GET("/active", user, nightH.Active)
		nightsG.GET("", user, nightH.ListMine)
		nightsG.POST("/drinks", user, nightH.AddDrink)
		nightsG.POST("/venues", user, nightH.CheckInVenue)
		nightsG.POST("/moods", user, nightH.SetMood)
		nightsG.POST("/songs", user, nightH.AddSong)
		nightsG.POST("/locations", user, nightH.RecordLocation)
		nightsG.GET("/:id", nightH.Get)
		nightsG.GET("/:id/route", nightH.Route)
		nightsG.DELETE("/:id", user, nightH.Delete)
		nightsG.POST("/:id/like", user, feedH.Like)
		nightsG.DELETE("/:id/like", user, feedH.Unlike)
		nightsG.GET("/:id/comments", feedH.ListComments)
		nightsG.POST("/:id/comments", user, feedH.AddComment)
		nightsG.GET("/:id/media", mediaH.List)

		commentsG := api.Group("/comments", authed)
		commentsG.PATCH("/:id", user, feedH.EditComment)
		commentsG.DELETE("/:id", user, feedH.DeleteComment)

		feedG := api.Group("/feed", authed)
		feedG.GET("", feedH.Feed)
		feedG.GET("/trending", feedH.Trending)

		friendsG := api.Group("/friends", authed, user)
		friendsG.GET("", socialH.List)
		friendsG.GET("/requests", socialH.Pending)
		friendsG.POST("/requests", socialH.SendRequest)
		friendsG.POST("/requests/:id/accept", socialH.Accept)
		friendsG.POST("/requests/:id/reject", socialH.Reject)
		friendsG.DELETE("/:id", socialH.Unfriend)

		api.POST("/reports", authed, user, moderationH.Report)
		api.POST("/blocks", authed, user, moderationH.Block)
		api.DELETE("/blocks/:id", authed, user, moderationH.Unblock)

		api.GET("/sync/full", authed, user, syncH.Full)
	}

	return &apiSetup{router: r, db: db, cache: c}
}

// postJSON issues a JSON request. Extra arguments are header key/value
// pairs, typically "Authorization", "Bearer <token>".
func (s *apiSetup) request(t *testing.T, method, path string, body interface{}, headerPairs ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headerPairs); i += 2 {
		req.Header.Set(headerPairs[i], headerPairs[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *apiSetup) postJSON(t *testing.T, path string, body interface{}, headerPairs ...string) *httptest.ResponseRecorder {
	return s.request(t, http.MethodPost, path, body, headerPairs...)
}

func (s *apiSetup) getJSON(t *testing.T, path string, headerPairs ...string) *httptest.ResponseRecorder {
	return s.request(t, http.MethodGet, path, nil, headerPairs...)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// signup registers a profile through the API and returns its bearer token.
func (s *apiSetup) signup(t *testing.T, username string) string {
	t.Helper()
	w := s.postJSON(t, "/api/auth/signup", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "s3cretpass",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func bearer(token string) []string { return []string{"Authorization", "Bearer " + token} }

func nightPath(id int64) string {
	return "/api/nights/" + strconv.FormatInt(id, 10)
}

func commentPath(id int64) string {
	return "/api/comments/" + strconv.FormatInt(id, 10)
}

func acceptPath(id int64) string {
	return "/api/friends/requests/" + strconv.FormatInt(id, 10) + "/accept"
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
