package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"skillplan_backend/internal/config"
	"skillplan_backend/internal/controller"
	"skillplan_backend/internal/repository"
	"skillplan_backend/internal/service"
	"skillplan_backend/internal/util"
	"skillplan_backend/pkg/cache"
	"skillplan_backend/pkg/configwatcher"
	"skillplan_backend/pkg/database"
	"skillplan_backend/pkg/logger"
	"skillplan_backend/pkg/monitoring"
	"skillplan_backend/pkg/ratelimit"
	"skillplan_backend/pkg/scheduler"
	"skillplan_backend/pkg/security"
	"skillplan_backend/pkg/tracing"
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
	services        *services
	limiter         *ratelimit.SlidingWindow
	scheduler       *scheduler.Scheduler
	watcher         *configwatcher.Watcher
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	skill        *repository.SkillRepository
	plan         *repository.SkillPlanRepository
	topic        *repository.DailyTopicRepository
	notification *repository.NotificationRepository
	history      *repository.AiHistoryRepository
	note         *repository.NoteRepository
}

type services struct {
	auth         *service.AuthService
	skill        *service.SkillService
	plan         *service.SkillPlanService
	topic        *service.DailyTopicService
	notification *service.NotificationService
	history      *service.AiHistoryService
	reminder     *service.ReminderService
	note         *service.NoteService
	generator    *service.LessonGenerator
}

type controllers struct {
	auth         *controller.AuthController
	skill        *controller.SkillController
	plan         *controller.SkillPlanController
	topic        *controller.DailyTopicController
	notification *controller.NotificationController
	history      *controller.AiHistoryController
	note         *controller.NoteController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		skill:        repository.NewSkillRepository(db),
		plan:         repository.NewSkillPlanRepository(db),
		topic:        repository.NewDailyTopicRepository(db),
		notification: repository.NewNotificationRepository(db),
		history:      repository.NewAiHistoryRepository(db),
		note:         repository.NewNoteRepository(db),
	}
}

// newLessonCache 按配置选择内存或 Redis 缓存
func newLessonCache(cfg *config.Config, rdb *redis.Client) cache.Cache {
	ttl := time.Duration(cfg.AI.Cache.TTLMinutes) * time.Minute
	if cfg.AI.Cache.Driver == util.CacheDriverRedis && rdb != nil {
		return cache.NewRedis(rdb, "", ttl)
	}
	return cache.NewMemory(cfg.AI.Cache.MaxEntries, ttl)
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client, lessonModel service.LessonModel) *services {
	s := &services{}

	a.limiter = ratelimit.NewSlidingWindow(cfg.AI.RateLimit.MaxCalls, cfg.AI.RateWindow())
	s.generator = service.NewLessonGenerator(
		lessonModel,
		a.limiter,
		newLessonCache(cfg, rdb),
		cfg.AI,
	)

	s.auth = service.NewAuthService(repos.user, cfg)
	s.skill = service.NewSkillService(repos.skill, s.generator)
	s.plan = service.NewSkillPlanService(db, repos.plan, repos.skill, repos.user, repos.topic, repos.notification, cfg.Plan)
	s.topic = service.NewDailyTopicService(db, s.plan, repos.topic, repos.history, s.generator)
	s.notification = service.NewNotificationService(repos.notification, repos.user)
	s.history = service.NewAiHistoryService(repos.history, s.plan)
	s.reminder = service.NewReminderService(repos.plan, repos.user, repos.notification)
	s.note = service.NewNoteService(s.plan, repos.note)

	// 配置热更新时调整生成限流
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		a.limiter.SetLimits(newCfg.AI.RateLimit.MaxCalls, newCfg.AI.RateWindow())
		logger.Log.Info("Generation rate limit updated",
			zap.Int("max_calls", newCfg.AI.RateLimit.MaxCalls),
			zap.Duration("window", newCfg.AI.RateWindow()),
		)
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		skill:        controller.NewSkillController(s.skill),
		plan:         controller.NewSkillPlanController(s.plan),
		topic:        controller.NewDailyTopicController(s.topic),
		notification: controller.NewNotificationController(s.notification),
		history:      controller.NewAiHistoryController(s.history),
		note:         controller.NewNoteController(s.note),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute, security.ClientIP))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(cfg *config.Config, s *services) {
	if cfg.Reminder.Enabled {
		loc, err := time.LoadLocation(cfg.Reminder.Timezone)
		if err != nil {
			logger.Log.Warn("Unknown reminder timezone, using UTC", zap.String("timezone", cfg.Reminder.Timezone))
			loc = time.UTC
		}
		a.scheduler = scheduler.New(loc, s.reminder)
		if err := a.scheduler.Start(cfg.Reminder.At); err != nil {
			logger.Log.Error("Failed to start reminder scheduler", zap.Error(err))
			a.scheduler = nil
		}
	}

	if cfg.File != "" {
		w, err := configwatcher.New(cfg.File, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher disabled", zap.Error(err))
			return
		}
		a.watcher = w
		go w.Run()
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		app.Redis = rdb
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, app.Redis, service.NewAIService(cfg.AI))
	app.services = services
	controllers := app.initControllers(services, db, app.Redis)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("skillplan-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, cfg)
	app.startBackgroundTasks(cfg, services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
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

	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.watcher != nil {
		a.watcher.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	log.Println("Server exiting")
}
