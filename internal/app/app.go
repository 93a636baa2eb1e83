package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"quiz_engine_backend/internal/config"
	"quiz_engine_backend/internal/controller"
	"quiz_engine_backend/internal/repository"
	"quiz_engine_backend/internal/service"
	"quiz_engine_backend/internal/session"
	"quiz_engine_backend/pkg/database"
	"quiz_engine_backend/pkg/logger"
	"quiz_engine_backend/pkg/monitoring"
	"quiz_engine_backend/pkg/security"
	"quiz_engine_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Sessions        *session.Manager
	tracer          *sdktrace.TracerProvider
	stopJanitor     context.CancelFunc
	configCallbacks []func(*config.Config)
}

// Dependencies are the stores and collaborators the app is assembled from.
// NewApp fills them from config; tests pass in-memory ones.
type Dependencies struct {
	DB           *gorm.DB
	Redis        *redis.Client
	Quizzes      service.QuizRepository
	Attempts     service.AttemptRepository
	Materials    service.MaterialRepository
	SessionStore session.SessionStore
	// Generator defaults to the AI draft generator when nil.
	Generator service.DraftGenerator
}

type services struct {
	ai        *service.AIService
	storage   *service.StorageService
	quiz      *service.QuizService
	attempt   *service.AttemptService
	generator service.DraftGenerator
}

type controllers struct {
	quiz      *controller.QuizController
	attempt   *controller.AttemptController
	authoring *controller.AuthoringController
	taking    *controller.TakingController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ReloadConfig hands a re-read config to every registered callback.
func (a *App) ReloadConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initServices(cfg *config.Config, deps Dependencies) *services {
	s := &services{}
	s.ai = service.NewAIService(cfg.AI)
	s.storage = service.NewStorageService(cfg)
	s.quiz = service.NewQuizService(deps.Quizzes)
	s.attempt = service.NewAttemptService(deps.Quizzes, deps.Attempts)

	s.generator = deps.Generator
	if s.generator == nil {
		s.generator = service.NewAIDraftGenerator(deps.Materials, s.storage, s.ai, cfg.AI.MaxSourceChars)
	}

	a.RegisterConfigCallback(func(c *config.Config) {
		s.ai.UpdateConfig(c.AI)
		logger.Log.Info("AI client reconfigured", zap.String("model", c.AI.Model))
	})
	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		quiz:      controller.NewQuizController(s.quiz, s.generator),
		attempt:   controller.NewAttemptController(s.attempt),
		authoring: controller.NewAuthoringController(a.Sessions),
		taking:    controller.NewTakingController(a.Sessions),
		health:    controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if cfg.RateLimit.MaxRequests > 0 && window > 0 {
		router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))
	}

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New assembles the HTTP application from ready dependencies.
func New(cfg *config.Config, deps Dependencies) *App {
	if err := controller.RegisterValidators(); err != nil {
		logger.Log.Fatal("Failed to register validators", zap.Error(err))
	}
	monitoring.Init()

	app := &App{
		Config: cfg,
		DB:     deps.DB,
		Redis:  deps.Redis,
	}

	services := app.initServices(cfg, deps)
	app.Sessions = session.NewManager(deps.SessionStore, services.quiz, services.generator, services.attempt)
	app.Sessions.Hub = session.NewHub(security.OriginChecker(cfg.CORS.AllowedOrigins))
	controllers := app.initControllers(services)

	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	return app
}

// NewApp connects to the configured stores and builds the application.
func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := Dependencies{}
	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Log.Warn("Using in-memory storage; data is lost on restart")
		deps.Quizzes = repository.NewMemoryQuizRepository()
		deps.Attempts = repository.NewMemoryAttemptRepository()
		deps.Materials = repository.NewMemoryMaterialRepository()
	default:
		db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
		if err != nil {
			logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		}
		if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
			if err := database.Migrate(db); err != nil {
				logger.Log.Fatal("Failed to migrate database", zap.Error(err))
			}
		}
		deps.DB = db
		deps.Quizzes = repository.NewQuizRepository(db)
		deps.Attempts = repository.NewAttemptRepository(db)
		deps.Materials = repository.NewMaterialRepository(db)
	}

	if cfg.Redis.Host != "" {
		rdb, err := database.InitRedis(context.Background(), &cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		deps.Redis = rdb
		deps.SessionStore = session.NewRedisSessionStore(rdb, cfg.Redis.SessionTTL())
	} else {
		deps.SessionStore = session.NewMemorySessionStore(cfg.Redis.SessionTTL())
	}

	app := New(cfg, deps)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("quiz-engine", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.stopJanitor = cancel
	go app.Sessions.RunJanitor(ctx, 10*time.Minute, cfg.Redis.SessionTTL())

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	if a.stopJanitor != nil {
		a.stopJanitor()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	logger.Log.Info("Server exiting")
}
