package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meettrack/internal/auth"
	"meettrack/internal/avatar"
	"meettrack/internal/clock"
	"meettrack/internal/config"
	"meettrack/internal/handler"
	"meettrack/internal/httpmiddleware"
	"meettrack/internal/meeting"
	"meettrack/internal/member"
	"meettrack/internal/schedule"
	"meettrack/internal/store"
	"meettrack/internal/store/inmem"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run(cfg config.App) error {
	loc, err := time.LoadLocation(cfg.ScheduleTimezone)
	if err != nil {
		log.Printf("invalid SCHEDULE_TZ %q: %v, falling back to UTC", cfg.ScheduleTimezone, err)
		loc = time.UTC
	}

	var (
		memberStore   member.Store
		userGetter    meeting.UserGetter
		meetingStore  meeting.Store
		scheduleStore schedule.Store
		cache         *meeting.LatestCache
		db            *store.DB
		redisClient   *store.Redis
	)

	if cfg.StoreBackend == "memory" {
		log.Println("using in-memory store (data is lost on restart)")
		mem := inmem.New()
		memberStore, userGetter, meetingStore, scheduleStore = mem, mem, mem, mem
	} else {
		db, err = store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		redisClient = store.NewRedis(cfg.RedisAddr)
		cache = meeting.NewLatestCache(redisClient.Client, 30*time.Second)

		memberRepo := member.NewRepository(db.Client)
		memberStore, userGetter = memberRepo, memberRepo
		meetingStore = meeting.NewRepository(db.Client)
		scheduleStore = schedule.NewRepository(db.Client)
	}

	members := member.NewService(memberStore, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.TokenTTL)
	meetings := meeting.NewService(meetingStore, userGetter, cache)

	registry := schedule.NewRegistry(scheduleStore, meetings, clock.System(), loc)
	defer registry.Close()
	if err := registry.Restore(context.Background()); err != nil {
		log.Printf("warning: schedule restore failed: %v", err)
	}

	var avatars *avatar.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		avatars = avatar.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured, avatar uploads disabled")
	}

	h := handler.New(members, meetings, registry, avatars)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware(cfg.AllowedOrigin))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		dbHealthy := db == nil || db.Client.PingContext(c.Request.Context()) == nil
		redisHealthy := redisClient == nil || redisClient.Healthy(c.Request.Context())
		status := http.StatusOK
		if !dbHealthy || !redisHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "db": dbHealthy, "redis": redisHealthy, "backend": cfg.StoreBackend})
	})

	requireAuth := auth.RequireAuth(cfg.JWTSigningKey, cfg.JWTIssuer)
	requireAdmin := auth.RequireAdmin(cfg.JWTSigningKey, cfg.JWTIssuer)

	api := r.Group("/api")

	users := api.Group("/users")
	users.POST("", h.Signup)
	users.POST("/login", h.Login)
	users.GET("", h.ListUsers)
	users.GET("/:uid", h.GetUser)
	users.GET("/:uid/meetings", h.MeetingsAttended)
	users.PATCH("/attend", requireAuth, h.Attend)
	users.PATCH("/me", requireAuth, h.UpdateMe)
	users.PATCH("/password", requireAuth, h.UpdatePassword)
	users.DELETE("/me", requireAuth, h.DeleteMe)

	meetingRoutes := api.Group("/meetings")
	meetingRoutes.GET("", h.ListMeetings)
	meetingRoutes.GET("/:mid", h.GetMeeting)
	meetingRoutes.POST("", requireAdmin, h.CreateMeeting)
	meetingRoutes.PATCH("/:mid", requireAdmin, h.UpdateMeeting)
	meetingRoutes.DELETE("/:mid", requireAdmin, h.DeleteMeeting)

	scheduleRoutes := api.Group("/schedules")
	scheduleRoutes.GET("", requireAuth, h.ListSchedules)
	scheduleRoutes.POST("", requireAdmin, h.CreateSchedule)
	scheduleRoutes.DELETE("/:sid", requireAdmin, h.DeleteSchedule)

	api.POST("/uploads/avatar", requireAuth, h.UploadAvatar)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := allowedOrigin
		if origin == "*" {
			if reqOrigin := c.Request.Header.Get("Origin"); reqOrigin != "" {
				origin = reqOrigin
			}
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
