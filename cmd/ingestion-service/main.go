package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"finnews-notifier/internal/ingestor/config"
	delivery "finnews-notifier/internal/ingestor/delivery/http"
	"finnews-notifier/internal/ingestor/repository"
	"finnews-notifier/internal/ingestor/service"
	"finnews-notifier/internal/ingestor/source"
	"finnews-notifier/pkg/logger"
	"finnews-notifier/pkg/postgres"
	"finnews-notifier/pkg/redis"
	"finnews-notifier/pkg/utils"
	"finnews-notifier/pkg/webpush"

	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the news ingestion service",
	Run:   runServe,
}

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Runs a single ingestion cycle and exits",
	Run:   runOnce,
}

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Recomputes importance scores of stored news",
	Run:   runRescore,
}

type app struct {
	cfg       *config.Config
	logger    *logger.Logger
	db        *postgres.DB
	redis     *redis.Client
	ingestion service.IngestionService
	reminder  service.CalendarReminderService
	rescore   service.RescoreService
	gate      *service.CycleGate
}

func buildApp(needRedis bool) *app {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := postgres.NewDB(postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}

	var redisClient *redis.Client
	if needRedis {
		redisClient, err = redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
	}

	pushNotifier, err := webpush.NewClient(cfg.Push.Subscriber, cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)
	if err != nil {
		appLogger.Fatal("Failed to initialize Web Push client", zap.Error(err))
	}

	sourceClient := source.NewClient(cfg, appLogger)

	newsRepo := repository.NewNewsRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)
	symbolsRepo := repository.NewSymbolsRepository(db.DB)
	eventsRepo := repository.NewEconomicEventsRepository(db.DB)

	matcher := service.NewMatcherService(notificationRepo, appLogger)
	notifier := service.NewNotifierService(notificationRepo, pushNotifier, appLogger)
	symbolRefresh := service.NewSymbolRefreshService(symbolsRepo, sourceClient, appLogger)
	ingestion := service.NewIngestionService(cfg, appLogger, sourceClient, newsRepo, matcher, notifier, symbolRefresh)
	reminder := service.NewCalendarReminderService(cfg, eventsRepo, notificationRepo, pushNotifier, appLogger)
	rescore := service.NewRescoreService(newsRepo, appLogger)

	a := &app{
		cfg:       cfg,
		logger:    appLogger,
		db:        db,
		redis:     redisClient,
		ingestion: ingestion,
		reminder:  reminder,
		rescore:   rescore,
	}
	if needRedis {
		hostname, _ := os.Hostname()
		a.gate = service.NewCycleGate(redisClient.Client, appLogger, cfg.Ingestion.LeaseTTL, hostname)
	}
	return a
}

func (a *app) close() {
	if sqlDB, err := a.db.DB.DB(); err == nil {
		sqlDB.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	_ = a.logger.Sync()
}

func (a *app) runGatedCycle(ctx context.Context) {
	if !a.gate.TryAcquire(ctx) {
		return
	}
	defer a.gate.Release(ctx)

	if _, err := a.ingestion.RunCycle(ctx); err != nil {
		a.logger.Error("Ingestion cycle failed", logger.ErrorField(err))
	}
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := buildApp(true)
	defer a.close()

	a.logger.Info("Starting ingestion service", zap.String("name", a.cfg.App.Name))

	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	))

	if _, err := scheduler.AddFunc(a.cfg.Ingestion.CronSpec, func() {
		a.runGatedCycle(ctx)
	}); err != nil {
		a.logger.Fatal("Failed to schedule ingestion job", zap.Error(err))
	}

	if a.cfg.Calendar.Enabled {
		if _, err := scheduler.AddFunc(a.cfg.Calendar.CronSpec, func() {
			if err := a.reminder.Run(ctx); err != nil {
				a.logger.Error("Calendar reminder run failed", logger.ErrorField(err))
			}
		}); err != nil {
			a.logger.Fatal("Failed to schedule calendar reminders", zap.Error(err))
		}
	}

	scheduler.Start()
	defer scheduler.Stop()

	if a.cfg.Ingestion.RunOnStartup {
		utils.GoSafe(func() { a.runGatedCycle(ctx) })
	}

	e := echo.New()
	e.HideBanner = true
	jobHandler := delivery.NewJobHandler(a.ingestion, a.gate, a.logger)
	jobHandler.RegisterRoutes(e)

	utils.GoSafe(func() {
		addr := fmt.Sprintf("%s:%d", a.cfg.HTTP.Host, a.cfg.HTTP.Port)
		if err := e.Start(addr); err != nil {
			a.logger.Info("HTTP server stopped", logger.ErrorField(err))
		}
	})

	a.logger.Info("Ingestion service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.logger.Info("Shutting down ingestion service...")
	cancel()
	_ = e.Shutdown(context.Background())
	a.logger.Info("Ingestion service stopped")
}

func runOnce(cmd *cobra.Command, args []string) {
	a := buildApp(false)
	defer a.close()

	stats, err := a.ingestion.RunCycle(context.Background())
	if err != nil {
		a.logger.Fatal("Ingestion cycle failed", zap.Error(err))
	}
	a.logger.Info("Ingestion cycle completed",
		logger.IntField("inserted", stats.Inserted),
		logger.IntField("articles_inserted", stats.ArticlesInserted),
		logger.IntField("related_symbols_inserted", stats.RelatedSymbolsInserted))
}

func runRescore(cmd *cobra.Command, args []string) {
	a := buildApp(false)
	defer a.close()

	updated, err := a.rescore.Run(context.Background())
	if err != nil {
		a.logger.Fatal("Rescore failed", zap.Error(err))
	}
	a.logger.Info("Rescore completed", logger.IntField("updated", updated))
}

func main() {
	rootCmd := &cobra.Command{Use: "ingestion-service"}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd, runOnceCmd, rescoreCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing ingestion-service CLI: %s\n", err)
		os.Exit(1)
	}
}
