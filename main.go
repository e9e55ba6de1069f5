package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/nightout-app/server/api/rest"
	"github.com/nightout-app/server/api/sse"
	"github.com/nightout-app/server/audit"
	"github.com/nightout-app/server/cache"
	"github.com/nightout-app/server/config"
	dbadapter "github.com/nightout-app/server/db"
	"github.com/nightout-app/server/feed"
	"github.com/nightout-app/server/media"
	mw "github.com/nightout-app/server/middleware"
	"github.com/nightout-app/server/mirror"
	"github.com/nightout-app/server/model"
	"github.com/nightout-app/server/moderation"
	"github.com/nightout-app/server/night"
	"github.com/nightout-app/server/profile"
	"github.com/nightout-app/server/realtime"
	"github.com/nightout-app/server/scheduler"
	"github.com/nightout-app/server/session"
	"github.com/nightout-app/server/social"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Security.JWTSecret == "" {
		log.Fatal("security.jwt_secret is required")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.New(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Media storage ----
	var storage media.Storage
	switch cfg.Storage.Mode {
	case "s3":
		storage, err = media.NewS3Storage(context.Background(), media.S3Config{
			Bucket:   cfg.Storage.S3Bucket,
			Region:   cfg.Storage.S3Region,
			Key:      cfg.Storage.S3Key,
			Secret:   cfg.Storage.S3Secret,
			BaseURL:  cfg.Storage.S3Base,
			Endpoint: cfg.Storage.S3Endpoint,
		})
	default:
		storage, err = media.NewDiskStorage(cfg.Storage.DiskDir, cfg.Storage.DiskBase)
	}
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	// ---- Services ----
	presence := session.NewManager(logger)
	pub := realtime.NewPublisher(pubsub, logger)
	profileSvc := profile.NewService(db, c, cfg.Security, logger)
	socialSvc := social.NewService(db, presence, logger)
	nightSvc := night.NewService(db, c, pub, cfg.Night, logger)
	feedSvc := feed.NewService(db, c, pub, socialSvc, logger)
	mediaSvc := media.NewService(db, storage, pub, logger)
	moderationSvc := moderation.NewService(db, socialSvc, cfg.Night.ReportHide, logger)
	syncRemote := mirror.NewSchemaRemote(db)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	sweep := time.Duration(cfg.Night.SweepIntervalM) * time.Minute
	maxAge := time.Duration(cfg.Night.MaxHours) * time.Hour
	sched.AddTicker("night_autoclose", sweep, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if n := nightSvc.AutoCloseStale(ctx, maxAge); n > 0 {
			logger.Info("auto-closed stale nights", zap.Int("count", n))
		}
	})
	sched.AddTicker("trending_refresh", 5*time.Minute, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := feedSvc.RefreshTrending(ctx); err != nil {
			logger.Warn("trending refresh failed", zap.Error(err))
		}
	})
	sched.AddTicker("presence_prune", time.Minute, func() {
		presence.PruneStale(3 * time.Duration(cfg.Realtime.KeepaliveS) * time.Second)
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// Disk-stored media is served statically; S3 objects resolve to S3 URLs.
	if cfg.Storage.Mode != "s3" {
		r.Static(cfg.Storage.DiskBase, cfg.Storage.DiskDir)
	}

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(profileSvc, c, cfg.Security)
	profileH := apirest.NewProfileHandler(profileSvc, mediaSvc)
	nightH := apirest.NewNightHandler(nightSvc, socialSvc)
	feedH := apirest.NewFeedHandler(feedSvc)
	socialH := apirest.NewSocialHandler(socialSvc)
	mediaH := apirest.NewMediaHandler(mediaSvc)
	moderationH := apirest.NewModerationHandler(moderationSvc)
	syncH := apirest.NewSyncHandler(syncRemote)

	authed := mw.Auth(cfg.Security, c)
	user := mw.RequireUser()
	audited := mw.AuditTrail(auditSvc)

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
		profileG.PATCH("/me", user, audited, profileH.Update)
		profileG.POST("/password", user, audited, profileH.ChangePassword)
		profileG.POST("/avatar", user, audited, profileH.UploadAvatar)
		profileG.GET("/:username", profileH.Get)

		nightsG := api.Group("/nights", authed)
		nightsG.POST("", user, audited, nightH.Start)
		nightsG.POST("/end", user, audited, nightH.End)
		nightsG.GET("/active", user, nightH.Active)
		nightsG.GET("", user, nightH.ListMine)
		nightsG.GET("/live-locations", user, nightH.LiveLocations)
		nightsG.POST("/drinks", user, audited, nightH.AddDrink)
		nightsG.POST("/venues", user, audited, nightH.CheckInVenue)
		nightsG.POST("/moods", user, audited, nightH.SetMood)
		nightsG.POST("/songs", user, audited, nightH.AddSong)
		nightsG.POST("/locations", user, nightH.RecordLocation)
		nightsG.GET("/:id", nightH.Get)
		nightsG.GET("/:id/route", nightH.Route)
		nightsG.DELETE("/:id", user, audited, nightH.Delete)
		nightsG.POST("/:id/like", user, feedH.Like)
		nightsG.DELETE("/:id/like", user, feedH.Unlike)
		nightsG.GET("/:id/comments", feedH.ListComments)
		nightsG.POST("/:id/comments", user, audited, feedH.AddComment)
		nightsG.GET("/:id/media", mediaH.List)
		nightsG.POST("/:id/media", user, audited, mediaH.Upload)

		commentsG := api.Group("/comments", authed)
		commentsG.PATCH("/:id", user, audited, feedH.EditComment)
		commentsG.DELETE("/:id", user, audited, feedH.DeleteComment)

		feedG := api.Group("/feed", authed)
		feedG.GET("", feedH.Feed)
		feedG.GET("/trending", feedH.Trending)

		friendsG := api.Group("/friends", authed, user)
		friendsG.GET("", socialH.List)
		friendsG.GET("/requests", socialH.Pending)
		friendsG.POST("/requests", audited, socialH.SendRequest)
		friendsG.POST("/requests/:id/accept", audited, socialH.Accept)
		friendsG.POST("/requests/:id/reject", audited, socialH.Reject)
		friendsG.DELETE("/:id", audited, socialH.Unfriend)

		api.POST("/reports", authed, user, audited, moderationH.Report)
		api.POST("/blocks", authed, user, audited, moderationH.Block)
		api.DELETE("/blocks/:id", authed, user, audited, moderationH.Unblock)

		mediaG := api.Group("/media", authed)
		mediaG.DELETE("/:id", user, audited, mediaH.Delete)

		api.GET("/sync/full", authed, user, syncH.Full)
	}

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, c, cfg.Security, socialSvc, presence, cfg.Realtime, logger)
	r.GET("/sse", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
