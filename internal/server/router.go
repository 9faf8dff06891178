package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/radiq/radiq-backend/internal/handlers"
	"github.com/radiq/radiq-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName         string
	AllowOrigins        []string
	AuthMiddleware      *middleware.AuthMiddleware
	PublicHandler       *handlers.PublicHandler
	SessionHandler      *handlers.SessionHandler
	VisionHandler       *handlers.VisionHandler
	PairwiseHandler     *handlers.PairwiseHandler
	PairwiseTaskHandler *handlers.PairwiseTaskHandler
	StudyHandler        *handlers.StudyHandler
	InvitationHandler   *handlers.InvitationHandler
	ImageHandler        *handlers.ImageHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware(cfg.ServiceName))

	// Cors
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Public    ||
	// ===============
	// Anonymous observer flow: invitation token in, pairwise answers out.
	public := router.Group("/public")
	{
		public.GET("/study/:token", cfg.PublicHandler.DescribeInvitation)
		public.POST("/session/start", cfg.PublicHandler.StartSession)
		public.POST("/session/:sessionId/vision", cfg.PublicHandler.SubmitVision)
		public.GET("/session/:sessionId/pairwise/next", cfg.PublicHandler.NextPairwise)
		public.POST("/session/:sessionId/pairwise/answer", cfg.PublicHandler.AnswerPairwise)
		public.GET("/session/:sessionId/series/:seriesUID/instances", cfg.PublicHandler.ListSeriesInstances)
	}

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	// Sessions
	api.POST("/sessions", cfg.SessionHandler.Start)
	api.GET("/sessions/:sessionId", cfg.SessionHandler.Get)
	api.POST("/sessions/:sessionId/complete", cfg.SessionHandler.Complete)
	// Vision screening
	api.POST("/vision-test", cfg.VisionHandler.Submit)
	api.GET("/vision-test/status", cfg.VisionHandler.Status)
	// Pairwise queue
	api.GET("/studies/:studyId/pairwise/next", cfg.PairwiseHandler.Next)
	api.POST("/pairwise/answer", cfg.PairwiseHandler.Answer)
	// Task generation
	api.POST("/studies/:studyId/pairwise/generate", cfg.PairwiseTaskHandler.Generate)
	api.GET("/studies/:studyId/pairwise/tasks", cfg.PairwiseTaskHandler.List)
	// Studies
	api.POST("/studies", cfg.StudyHandler.Create)
	api.GET("/studies", cfg.StudyHandler.List)
	// Invitations
	api.POST("/studies/:studyId/invitations", cfg.InvitationHandler.Mint)
	// Image catalog
	api.POST("/images", cfg.ImageHandler.Create)
	api.GET("/images", cfg.ImageHandler.List)
	api.POST("/images/sync", cfg.ImageHandler.Sync)
	api.POST("/studies/:studyId/images", cfg.ImageHandler.Attach)

	return router
}
