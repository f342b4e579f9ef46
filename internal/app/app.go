package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/antenna/internal/config"
	"github.com/MrSnakeDoc/antenna/internal/httpserver"
	"github.com/MrSnakeDoc/antenna/internal/httpserver/deps"
	"github.com/MrSnakeDoc/antenna/internal/logger"
	"github.com/MrSnakeDoc/antenna/internal/redis"
	"github.com/MrSnakeDoc/antenna/internal/saver"
	"github.com/MrSnakeDoc/antenna/internal/service"
	redisstore "github.com/MrSnakeDoc/antenna/internal/store/redis"
	"github.com/MrSnakeDoc/antenna/internal/tuner"
	"github.com/MrSnakeDoc/antenna/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	core        *service.Core
	pool        *tuner.Pool
	saveQueue   *saver.Queue
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	store := redisstore.NewStore(redisClient)

	core := service.NewCore(loggerClient)

	// Build the receiving topology from the inventory file.
	inv, err := tuner.LoadInventory(cfg.InventoryFile)
	if err != nil {
		loggerClient.Errorf("Failed to load inventory %s: %v", cfg.InventoryFile, err)
		os.Exit(1)
	}
	pool := tuner.Build(inv, core, cfg.GracePeriod, loggerClient)

	// Restore persisted component tables over the fresh services.
	restoreRecords(core, store, loggerClient)

	saveQueue := saver.New(core, func(ctx context.Context, s *service.Service) error {
		return store.SaveRecord(ctx, s.SaveRecord())
	}, loggerClient)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:      loggerClient,
		StartTime:   time.Now(),
		Version:     version.Version,
		Commit:      version.Commit,
		BuildDate:   version.BuildDate,
		GoVersion:   version.GoVersion,
		TimeNow:     time.Now,
		RedisClient: redisClient,
		Core:        core,
		Saver:       saveQueue,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		core:        core,
		pool:        pool,
		saveQueue:   saveQueue,
	}
}

// restoreRecords loads stored records and replays them onto the matching
// services. Records for services no longer in the inventory are left
// alone; the next save cycle will not touch them either.
func restoreRecords(core *service.Core, store *redisstore.Store, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := store.GetAllRecords(ctx)
	if err != nil {
		log.Warn("failed to load stored service records",
			logger.Error(err))
		return
	}

	restored := 0
	for _, rec := range records {
		svc := core.Find(rec.ID)
		if svc == nil {
			log.Debug("stored record for unknown service",
				logger.String("id", rec.ID),
				logger.String("nicename", rec.NiceName))
			continue
		}
		svc.LoadRecord(rec)
		core.SetEnabled(svc, rec.Enabled)
		restored++
	}

	log.Info("service records restored",
		logger.Int("stored", len(records)),
		logger.Int("restored", restored))
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Antenna v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Antenna %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the background save queue
	a.saveQueue.Start(ctx)
	a.logger.Info("save queue started")

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// Flush pending saves before closing the store connection.
	a.saveQueue.Stop()
	a.logger.Info("save queue drained")

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Antenna stopped cleanly")
	return nil
}
