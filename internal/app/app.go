package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goal_tracker_backend/internal/config"
	"goal_tracker_backend/internal/controller"
	"goal_tracker_backend/internal/model"
	"goal_tracker_backend/internal/repository"
	"goal_tracker_backend/internal/service"
	"goal_tracker_backend/pkg/alarm"
	"goal_tracker_backend/pkg/configwatcher"
	"goal_tracker_backend/pkg/database"
	"goal_tracker_backend/pkg/logger"
	"goal_tracker_backend/pkg/monitoring"
	"goal_tracker_backend/pkg/security"
	"goal_tracker_backend/pkg/tracing"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	Store  repository.KVStore

	DB     *gorm.DB
	Redis  *redis.Client
	Badger *badger.DB

	services        *services
	tracerProvider  *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	goal     *repository.GoalRepository
	reminder *repository.ReminderRepository
}

type services struct {
	alarm    *alarm.Service
	hub      *service.NotifyHub
	reminder *service.ReminderService
	goal     *service.GoalService
	recovery *service.RecoveryService
}

type controllers struct {
	goal         *controller.GoalController
	dashboard    *controller.DashboardController
	notification *controller.NotificationController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// openStore 按配置选择键值存储后端
func (a *App) openStore(cfg *config.Config) (repository.KVStore, error) {
	switch cfg.Storage.Type {
	case "redis":
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.Redis = rdb
		return repository.NewRedisStore(rdb), nil
	case "mysql":
		db, err := database.InitDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		a.DB = db
		return repository.NewMySQLStore(db), nil
	case "badger":
		bdb, err := database.InitBadger(&cfg.Storage)
		if err != nil {
			return nil, err
		}
		a.Badger = bdb
		return repository.NewBadgerStore(bdb), nil
	default:
		logger.Log.Warn("using in-memory store, data will not survive restarts",
			zap.String("storageType", cfg.Storage.Type))
		return repository.NewMemoryStore(), nil
	}
}

func (a *App) initRepositories(store repository.KVStore) *repositories {
	return &repositories{
		goal:     repository.NewGoalRepository(store),
		reminder: repository.NewReminderRepository(store),
	}
}

func (a *App) initServices(repos *repositories) *services {
	s := &services{}

	s.hub = service.NewNotifyHub()
	go s.hub.Run()

	// 闹钟触发即投递：推给在线客户端并清掉簿记
	deliver := func(id string, payload model.ReminderPayload) {
		s.hub.BroadcastReminder(id, payload)
		if err := repos.reminder.RemoveID(context.Background(), payload.Data.TaskID, id); err != nil {
			logger.Log.Warn("failed to clear fired reminder record",
				zap.String("reminderId", id), zap.Error(err))
		}
	}
	s.alarm = alarm.New(deliver)

	s.reminder = service.NewReminderService(s.alarm, repos.reminder)
	s.goal = service.NewGoalService(repos.goal, s.reminder)
	s.recovery = service.NewRecoveryService(s.alarm, repos.reminder, deliver)

	return s
}

func (a *App) initControllers(s *services, store repository.KVStore) *controllers {
	return &controllers{
		goal:         controller.NewGoalController(s.goal),
		dashboard:    controller.NewDashboardController(s.goal),
		notification: controller.NewNotificationController(s.reminder, s.recovery, s.hub),
		health:       controller.NewHealthController(store),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
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

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 过期扫描定时器，独立于用户操作运行
func (a *App) startBackgroundTasks(s *services) {
	interval := a.Config.Reminder.SweepInterval()
	go func() {
		ticker := time.NewTicker(interval)
		for range ticker.C {
			if _, err := s.goal.CheckExpirations(context.Background(), time.Now()); err != nil {
				logger.Log.Error("expiration sweep error", zap.Error(err))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	app := &App{
		Config: cfg,
	}

	store, err := app.openStore(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	app.Store = store

	repos := app.initRepositories(store)
	services := app.initServices(repos)
	app.services = services
	controllers := app.initControllers(services, store)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("goal-tracker", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	app.registerRoutes(router, controllers)

	// 启动即恢复：进程（或设备）重启后重建提醒状态
	if err := services.goal.Load(context.Background()); err != nil {
		logger.Log.Fatal("Failed to load goal collections", zap.Error(err))
	}
	if _, err := services.recovery.Recover(context.Background()); err != nil {
		logger.Log.Error("reminder recovery failed", zap.Error(err))
	}

	app.startBackgroundTasks(services)

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		app.Config = newCfg
		logger.Log.Info("configuration reloaded")
	})
	go configwatcher.WatchConfig("configs/config.yaml", func(newCfg *config.Config) {
		for _, cb := range app.configCallbacks {
			cb(newCfg)
		}
	})

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

	// 停掉闹钟和推送通道
	if a.services != nil {
		a.services.alarm.Stop()
		a.services.hub.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Badger != nil {
		a.Badger.Close()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	log.Println("Server exiting")
}
