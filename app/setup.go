package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sahilchouksey/adaptive-tutor-api/api"
	"github.com/sahilchouksey/adaptive-tutor-api/config"
	"github.com/sahilchouksey/adaptive-tutor-api/database"
	"github.com/sahilchouksey/adaptive-tutor-api/router"
	"github.com/sahilchouksey/adaptive-tutor-api/services"
	"github.com/sahilchouksey/adaptive-tutor-api/services/cron"
	"github.com/sahilchouksey/adaptive-tutor-api/services/llm"
	"github.com/sahilchouksey/adaptive-tutor-api/services/storage"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/auth"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/cache"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/middleware"
	"golang.org/x/time/rate"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	cfg, err := config.Get()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LOG_MODE)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	store, err := database.Open(cfg, log)
	if err != nil {
		log.Error("check that the database is reachable", "driver", cfg.DB_DRIVER, "host", cfg.DB_HOST)
		return err
	}
	defer store.Close()

	if cfg.RESET_DB {
		err = store.Reset()
	} else {
		err = store.Init()
	}
	if err != nil {
		log.Error("failed to initialize database tables", "error", err)
		return err
	}

	// Redis is optional; every consumer degrades to in-process behaviour
	var redisCache *cache.RedisCache
	if cfg.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(cfg.REDIS_URL)
		if err != nil {
			log.Warn("redis unavailable, continuing without it", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	var mirror storage.Mirror
	if cfg.SpacesConfigured() {
		spaces, err := storage.NewSpacesMirror(storage.SpacesConfig{
			AccessKey: cfg.DO_SPACES_KEY,
			SecretKey: cfg.DO_SPACES_SECRET,
			Bucket:    cfg.DO_SPACES_BUCKET,
			Region:    cfg.DO_SPACES_REGION,
			Endpoint:  cfg.DO_SPACES_ENDPOINT,
		})
		if err != nil {
			log.Warn("upload mirror disabled", "error", err)
		} else {
			mirror = spaces
		}
	}
	fileStore := storage.NewLocalStore(cfg.UPLOAD_FOLDER, mirror, log)
	if err := fileStore.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create upload folders: %w", err)
	}

	llmClient, closeProvider := buildLLMClient(cfg, redisCache, log)
	defer closeProvider()

	deps := buildServices(cfg, store, fileStore, llmClient, redisCache, log)

	var cronManager *cron.CronManager
	if cfg.CRON_ENABLED {
		cronManager = cron.NewCronManager(store.GetDB(), deps.Notifications, cfg.REMINDER_SCHEDULE, log)
		if err := cronManager.Start(); err != nil {
			// reminders are not worth refusing to serve
			log.Warn("failed to start cron jobs", "error", err)
			cronManager = nil
		}
	}
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
	}()

	server := api.NewAPIServer(fmt.Sprintf(":%d", cfg.PORT), cfg.MAX_UPLOAD_BYTES, log)
	app := server.GetEngine()

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    splitOrigins(cfg.ALLOWED_ORIGINS),
		RateLimitRequests: cfg.RATE_LIMIT_REQUESTS,
		RateLimitWindow:   cfg.RATE_LIMIT_WINDOW,
	})

	router.SetupRoutes(app, deps)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		_ = server.Shutdown()
	}()

	return server.Run()
}

// buildLLMClient returns a client over Gemini, or a client that reports
// KindAuth on every call when no key is configured.
func buildLLMClient(cfg *config.EnvironmentVariable, redisCache *cache.RedisCache, log *logger.Logger) (*llm.Client, func()) {
	limit := rate.Inf
	if cfg.LLM_REQUESTS_PER_SECOND > 0 {
		limit = rate.Limit(cfg.LLM_REQUESTS_PER_SECOND)
	}
	opts := []llm.ClientOption{
		llm.WithRateLimit(rate.NewLimiter(limit, 1)),
		llm.WithLogger(log),
	}
	if redisCache != nil {
		opts = append(opts, llm.WithModelCache(redisCache, cfg.LLM_MODEL_CACHE_TTL))
	}

	if cfg.GEMINI_API_KEY == "" {
		log.Warn("GEMINI_API_KEY is not set, AI features will fail")
		return llm.NewClient(nil, opts...), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	provider, err := llm.NewGeminiProvider(ctx, cfg.GEMINI_API_KEY)
	if err != nil {
		log.Error("failed to create Gemini client", "error", err)
		return llm.NewClient(nil, opts...), func() {}
	}
	return llm.NewClient(provider, opts...), func() { _ = provider.Close() }
}

func buildServices(cfg *config.EnvironmentVariable, store *database.GORMStore, fileStore *storage.LocalStore, llmClient *llm.Client, redisCache *cache.RedisCache, log *logger.Logger) router.Dependencies {
	db := store.GetDB()
	extractor := services.NewPDFExtractor(log)

	var lock services.AnalysisLock
	if redisCache != nil {
		lock = redisCache
	}
	analysis := services.NewAnalysisService(db, llmClient, lock, log)

	var jwtManager *auth.JWTManager
	if cfg.JWT_SECRET != "" {
		jwtManager = auth.NewJWTManager(auth.JWTConfig{
			Secret: cfg.JWT_SECRET,
			Expiry: 24 * time.Hour,
			Issuer: cfg.JWT_ISSUER,
		})
	} else {
		log.Warn("JWT_SECRET is not set, login will not issue tokens")
	}

	return router.Dependencies{
		Store:         store,
		Accounts:      services.NewAccountService(db, fileStore, log),
		Subjects:      services.NewSubjectService(db, fileStore, extractor, analysis, cfg.IsExtensionAllowed, log),
		Analysis:      analysis,
		Materials:     services.NewMaterialService(db, fileStore, extractor, cfg.IsExtensionAllowed, log),
		Concepts:      services.NewConceptService(db, llmClient, log),
		Quizzes:       services.NewQuizService(db, llmClient, log),
		StudyPlans:    services.NewStudyPlanService(db, llmClient, nil, log),
		Notifications: services.NewNotificationService(db, log),
		JWTManager:    jwtManager,
		BruteForce:    middleware.NewBruteForceProtection(redisCache),
		UploadFolder:  cfg.UPLOAD_FOLDER,
	}
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
