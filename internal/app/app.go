package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"photoquest_backend/internal/config"
	"photoquest_backend/internal/controller"
	"photoquest_backend/internal/repository"
	"photoquest_backend/internal/service"
	"photoquest_backend/pkg/database"
	"photoquest_backend/pkg/logger"
	"photoquest_backend/pkg/monitoring"
	"photoquest_backend/pkg/security"
	"photoquest_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	Tracer *sdktrace.TracerProvider
}

type repositories struct {
	user        *repository.UserRepository
	quest       *repository.QuestRepository
	attempt     *repository.AttemptRepository
	submission  *repository.SubmissionRepository
	achievement *repository.AchievementRepository
	tag         *repository.TagRepository
	moderation  *repository.ModerationRepository
	progression *repository.ProgressionRepository
	analytics   *repository.AnalyticsRepository
}

type services struct {
	auth        *service.AuthService
	storage     *service.StorageService
	eligibility *service.EligibilityService
	moderation  *service.ModerationService
	progression *service.ProgressionService
	tag         *service.TagService
	achievement *service.AchievementService
	attempt     *service.AttemptService
	submission  *service.SubmissionService
	review      *service.ReviewService
	quest       *service.QuestService
	user        *service.UserService
}

type controllers struct {
	auth        *controller.AuthController
	quest       *controller.QuestController
	attempt     *controller.AttemptController
	submission  *controller.SubmissionController
	progression *controller.ProgressionController
	review      *controller.ReviewController
	user        *controller.UserController
	health      *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		quest:       repository.NewQuestRepository(db),
		attempt:     repository.NewAttemptRepository(db),
		submission:  repository.NewSubmissionRepository(db),
		achievement: repository.NewAchievementRepository(db),
		tag:         repository.NewTagRepository(db),
		moderation:  repository.NewModerationRepository(db),
		progression: repository.NewProgressionRepository(db),
		analytics:   repository.NewAnalyticsRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)

	classifier := service.NewHTTPClassifier(cfg.Moderation)
	s.moderation = service.NewModerationService(classifier, repos.moderation)

	s.eligibility = service.NewEligibilityService(repos.user, repos.quest, repos.attempt, cfg.Game.MaxDailyQuests)
	s.progression = service.NewProgressionService(repos.user, repos.progression, repos.analytics, db,
		cfg.Game.XPMultiplier, cfg.Game.SpeedBonusWindowHours)
	s.tag = service.NewTagService(repos.tag, repos.achievement, repos.progression, repos.submission, repos.user)
	s.achievement = service.NewAchievementService(repos.achievement, repos.progression, repos.submission, repos.user, s.tag, db)

	s.attempt = service.NewAttemptService(s.eligibility, repos.attempt, repos.quest, repos.submission,
		repos.analytics, s.storage, s.moderation, s.progression, s.achievement, db)
	s.submission = service.NewSubmissionService(repos.submission, s.achievement)
	s.review = service.NewReviewService(repos.submission, repos.attempt, repos.quest, repos.user,
		repos.analytics, s.storage, s.moderation, s.progression, s.achievement)

	s.quest = service.NewQuestService(repos.quest, repos.analytics)
	s.user = service.NewUserService(repos.user, repos.progression, repos.submission, repos.achievement,
		repos.tag, s.storage, rdb)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		quest:       controller.NewQuestController(s.quest, s.eligibility),
		attempt:     controller.NewAttemptController(s.attempt),
		submission:  controller.NewSubmissionController(s.submission),
		progression: controller.NewProgressionController(s.user, s.achievement, s.tag),
		review:      controller.NewReviewController(s.review),
		user:        controller.NewUserController(s.user),
		health:      controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(func(c *gin.Context) {
		c.Set("config", cfg)
		c.Next()
	})

	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	controllers := app.initControllers(services, db)

	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("photoquest", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		// 关闭在 Run 的优雅退出路径里做，进程存活期间 tracer 必须在线
		app.Tracer = tp
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.Tracer != nil {
		if err := a.Tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
