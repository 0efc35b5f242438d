package router

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"community-interaction-api/internal/cache"
	"community-interaction-api/internal/client"
	"community-interaction-api/internal/database"
	"community-interaction-api/internal/handler"
	"community-interaction-api/internal/metrics"
	"community-interaction-api/internal/middleware"
	"community-interaction-api/internal/service"
)

// Config holds the router dependencies
type Config struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *zap.Logger
	JWTSecret      string
	TokenValidator middleware.TokenValidator
	BasePath       string
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	Transactor     database.Transactor
	TallyCache     cache.TallyCache
	Notifier       client.NotificationClient
}

// Setup wires services and handlers and registers all routes
func Setup(cfg Config) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Transactor == nil {
		cfg.Transactor = database.NewTransactor(cfg.DB, cfg.Logger, database.WithRetryRecorder(cfg.Metrics))
	}
	if cfg.TallyCache == nil {
		cfg.TallyCache = cache.NewNoopTallyCache()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = client.NewNoOpNotificationClient()
	}
	if cfg.TokenValidator == nil {
		cfg.TokenValidator = middleware.NewHMACValidator(cfg.JWTSecret)
	}

	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	// Initialize services
	voteService := service.NewVoteService(cfg.DB, cfg.Transactor, cfg.TallyCache, cfg.Metrics, cfg.Logger)
	commentService := service.NewCommentService(cfg.DB, cfg.Transactor, cfg.TallyCache, cfg.Notifier, cfg.Metrics, cfg.Logger)
	rosterService := service.NewRosterService(cfg.DB, cfg.Transactor, cfg.Notifier, cfg.Metrics, cfg.Logger)
	subjectService := service.NewSubjectService(cfg.DB, cfg.TallyCache, cfg.Logger)

	// Initialize handlers
	voteHandler := handler.NewVoteHandler(voteService)
	commentHandler := handler.NewCommentHandler(commentService)
	rosterHandler := handler.NewRosterHandler(rosterService)
	subjectHandler := handler.NewSubjectHandler(subjectService)
	healthHandler := handler.NewHealthHandler(cfg.DB, cfg.Redis)

	// Probe and scrape endpoints (no auth), at the root and under the base path
	metricsHandler := gin.WrapH(promhttp.Handler())
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", metricsHandler)

	api := r.Group(cfg.BasePath)
	if cfg.BasePath != "" && cfg.BasePath != "/" {
		api.GET("/health", healthHandler.Health)
		api.GET("/ready", healthHandler.Ready)
		api.GET("/metrics", metricsHandler)
	}

	auth := middleware.AuthWithValidator(cfg.TokenValidator)

	// Public reads
	api.GET("/events/:eventId", subjectHandler.GetEvent)
	api.GET("/events/:eventId/roster", rosterHandler.GetRoster)
	api.GET("/tallies/:kind/:id", subjectHandler.GetTally)
	api.GET("/subjects/:kind/:id/comments", commentHandler.GetThread)
	api.GET("/comments/:commentId", commentHandler.GetComment)

	protected := api.Group("")
	protected.Use(auth)
	{
		protected.POST("/posts", subjectHandler.CreatePost)
		protected.POST("/events", subjectHandler.CreateEvent)

		protected.POST("/votes", voteHandler.CastVote)
		protected.GET("/votes/:kind/:id", voteHandler.GetMyVote)

		protected.POST("/comments", commentHandler.CreateComment)
		protected.DELETE("/comments/:commentId", commentHandler.DeleteComment)

		protected.POST("/events/:eventId/roster", rosterHandler.Join)
		protected.DELETE("/events/:eventId/roster", rosterHandler.Leave)
		protected.GET("/events/:eventId/roster/me", rosterHandler.GetMyPosition)
		protected.PUT("/events/:eventId/capacity", rosterHandler.UpdateCapacity)
	}

	return r
}
