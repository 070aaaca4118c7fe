// Файл: main.go

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tramite-system/internal/authz"
	"tramite-system/internal/entities"
	"tramite-system/internal/jobs"
	"tramite-system/internal/listeners"
	"tramite-system/internal/metrics"
	"tramite-system/internal/repositories"
	"tramite-system/internal/routes"
	"tramite-system/internal/services"
	"tramite-system/pkg/config"
	"tramite-system/pkg/database/postgresql"
	apperrors "tramite-system/pkg/errors"
	"tramite-system/pkg/eventbus"
	"tramite-system/pkg/filestorage"
	applogger "tramite-system/pkg/logger"
	appmiddleware "tramite-system/pkg/middleware"
	"tramite-system/pkg/notify"
	"tramite-system/pkg/notify/email"
	"tramite-system/pkg/notify/sms"
	"tramite-system/pkg/service"
	"tramite-system/pkg/utils"
	"tramite-system/pkg/validation"
	appwebsocket "tramite-system/pkg/websocket"
)

const (
	schedulerInterval = time.Minute
	shutdownTimeout   = 15 * time.Second
)

func main() {
	// 1. Конфиг и логгер
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Logger)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Базы данных
	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("не удалось подключиться к PostgreSQL", zap.Error(err))
	}
	defer dbConn.Close()

	if cfg.Postgres.AutoMigrate {
		if err := postgresql.Migrate(dbConn, logger); err != nil {
			logger.Fatal("ошибка применения миграций", zap.Error(err))
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logger.Fatal("не удалось подключиться к Redis", zap.Error(err), zap.String("address", cfg.Redis.Address))
	}

	fileStorage, err := filestorage.NewLocalFileStorage(cfg.Storage.UploadsPath)
	if err != nil {
		logger.Fatal("не удалось инициализировать файловое хранилище", zap.Error(err))
	}

	// 3. Репозитории
	tramiteRepo := repositories.NewTramiteRepository(dbConn)
	tipoRepo := repositories.NewTipoTramiteRepository(dbConn)
	metricRepo := repositories.NewMetricRepository(dbConn)
	notificationRepo := repositories.NewNotificationRepository(dbConn)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)
	txManager := repositories.NewTxManager(dbConn)

	// 4. Сервисы
	appMetrics := metrics.New()
	bus := eventbus.New(logger, cfg.EventBus.HandlerTimeout)
	hub := appwebsocket.NewHub(logger)
	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.Issuer, logger)

	senders := map[entities.Canal]notify.Sender{
		entities.CanalEmail: email.NewSMTPSender(cfg.Notifications.SMTP, logger),
		entities.CanalSMS:   sms.NewGatewayClient(cfg.Notifications.SMS, logger),
		entities.CanalPush:  hub,
	}

	numeros := services.NewNumeroGenerator(cacheRepo, logger)
	tramiteService := services.NewTramiteService(tramiteRepo, tipoRepo, txManager, numeros, bus, appMetrics, logger)
	priorityService := services.NewPriorityService(tramiteRepo, tramiteService, services.NewWeightedPriorityStrategy(), logger)
	analyticsService := services.NewAnalyticsService(tramiteRepo, metricRepo, cfg.Analytics, logger)
	notificationService := services.NewNotificationService(notificationRepo, senders, appMetrics, logger)
	reminderService := services.NewReminderService(tramiteRepo, bus, logger)

	listeners.NewNotificationListener(notificationService, cfg.Notifications.ExtraChannels, logger).Register(bus)

	scheduler := jobs.NewScheduler(analyticsService, priorityService, reminderService, cacheRepo, appMetrics, cfg.Analytics.DailyJobHour, logger)

	// 5. HTTP
	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil)
				utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(appmiddleware.RequestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition},
	}))

	absPath, err := filepath.Abs(cfg.Storage.UploadsPath)
	if err != nil {
		logger.Fatal("не удалось получить абсолютный путь к uploads", zap.Error(err))
	}
	e.Static(filestorage.URLPrefix, absPath)

	routes.InitRouter(e, routes.Dependencies{
		TramiteService:      tramiteService,
		AnalyticsService:    analyticsService,
		PriorityService:     priorityService,
		NotificationService: notificationService,
		DailyMetrics:        scheduler,
		JWTService:          jwtSvc,
		Gatekeeper:          authz.NewGatekeeper(),
		FileStorage:         fileStorage,
		Hub:                 hub,
		AllowedOrigins:      cfg.Server.AllowedOrigins,
		Logger:              logger,
	})

	// 6. Фоновые процессы и сервер
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if cfg.Analytics.SchedulerEnabled {
		g.Go(func() error {
			scheduler.Start(gctx, schedulerInterval)
			return nil
		})
	} else {
		logger.Info("Планировщик отключен конфигурацией")
	}
	g.Go(func() error {
		logger.Info("🚀 Сервер запущен", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Остановка сервера...")
		if err := e.Shutdown(shutdownCtx); err != nil {
			return err
		}
		bus.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Сервер остановлен с ошибкой", zap.Error(err))
		return
	}
	logger.Info("Сервер остановлен")
}
