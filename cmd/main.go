package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/radiq/radiq-backend/internal/clients/orthanc"
	"github.com/radiq/radiq-backend/internal/db"
	"github.com/radiq/radiq-backend/internal/handlers"
	"github.com/radiq/radiq-backend/internal/middleware"
	"github.com/radiq/radiq-backend/internal/observability"
	"github.com/radiq/radiq-backend/internal/platform/envutil"
	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/repos"
	"github.com/radiq/radiq-backend/internal/server"
	"github.com/radiq/radiq-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := envutil.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	port := envutil.GetEnv("PORT", "8080", log)
	gatePolicyPath := envutil.GetEnv("VISION_GATE_CONFIG", "config/visiongate.yaml", log)
	dicomWebBaseURL := envutil.GetEnv("ORTHANC_DICOMWEB_BASEURL", "http://localhost:8042/dicom-web", log)
	orthancBaseURL := envutil.GetEnv("ORTHANC_BASEURL", "http://localhost:8042", log)
	orthancUser := envutil.GetEnv("ORTHANC_USERNAME", "", log)
	orthancPassword := envutil.GetEnv("ORTHANC_PASSWORD", "", log)
	allowOrigins := envutil.GetEnv("CORS_ALLOW_ORIGINS", "", log)

	// Tracing
	shutdownTracing := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "radiq-backend",
		Environment: envutil.GetEnv("DEPLOY_ENV", "development", log),
		Version:     envutil.GetEnv("SERVICE_VERSION", "dev", log),
	})
	if shutdownTracing != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				log.Warn("otel shutdown failed", "error", err)
			}
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	studyRepo := repos.NewStudyRepo(thePG, log)
	invitationRepo := repos.NewInvitationRepo(thePG, log)
	profileRepo := repos.NewObserverProfileRepo(thePG, log)
	sessionRepo := repos.NewSessionRepo(thePG, log)
	visionResultRepo := repos.NewVisionTestResultRepo(thePG, log)
	imageRepo := repos.NewImageRepo(thePG, log)
	taskRepo := repos.NewPairwiseTaskRepo(thePG, log)
	evaluationRepo := repos.NewPairwiseEvaluationRepo(thePG, log)

	// Clients
	archive := orthanc.NewClient(orthancBaseURL, orthancUser, orthancPassword, log)

	// Services
	log.Info("Setting up Services from main...")
	gatePolicy := services.LoadGatePolicy(gatePolicyPath)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	invitationService := services.NewInvitationService(thePG, log, invitationRepo, profileRepo, sessionRepo, studyRepo)
	sessionService := services.NewSessionService(thePG, log, sessionRepo, studyRepo)
	visionService := services.NewVisionService(thePG, log, gatePolicy, sessionRepo, visionResultRepo)
	samplerService := services.NewSamplerService(thePG, log, sessionRepo, imageRepo, taskRepo, dicomWebBaseURL, rng)
	taskGenService := services.NewTaskGenService(thePG, log, studyRepo, imageRepo, taskRepo)
	evaluationService := services.NewEvaluationService(thePG, log, sessionRepo, taskRepo, evaluationRepo)
	studyService := services.NewStudyService(thePG, log, studyRepo)
	imageService := services.NewImageService(thePG, log, imageRepo, studyRepo, archive)

	// Handlers
	log.Info("Setting up Handlers from main...")
	publicHandler := handlers.NewPublicHandler(invitationService, visionService, samplerService, evaluationService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	visionHandler := handlers.NewVisionHandler(visionService)
	pairwiseHandler := handlers.NewPairwiseHandler(samplerService, evaluationService)
	pairwiseTaskHandler := handlers.NewPairwiseTaskHandler(taskGenService)
	studyHandler := handlers.NewStudyHandler(studyService)
	invitationHandler := handlers.NewInvitationHandler(invitationService)
	imageHandler := handlers.NewImageHandler(imageService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Router
	var origins []string
	if allowOrigins != "" {
		for _, o := range strings.Split(allowOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	router := server.NewRouter(server.RouterConfig{
		ServiceName:         "radiq-backend",
		AllowOrigins:        origins,
		AuthMiddleware:      authMiddleware,
		PublicHandler:       publicHandler,
		SessionHandler:      sessionHandler,
		VisionHandler:       visionHandler,
		PairwiseHandler:     pairwiseHandler,
		PairwiseTaskHandler: pairwiseTaskHandler,
		StudyHandler:        studyHandler,
		InvitationHandler:   invitationHandler,
		ImageHandler:        imageHandler,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
