package main

// @title fkwriter API
// @version 1.0
// @description Write-path coordinator for a serverless ZooKeeper-compatible coordination service

// @contact.name API Support
// @contact.url https://github.com/goclaw/goclaw

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goclaw/goclaw/config"
	"github.com/goclaw/goclaw/pkg/api"
	"github.com/goclaw/goclaw/pkg/api/handlers"
	"github.com/goclaw/goclaw/pkg/coordinator"
	"github.com/goclaw/goclaw/pkg/distributor"
	"github.com/goclaw/goclaw/pkg/eventbus"
	"github.com/goclaw/goclaw/pkg/lane"
	"github.com/goclaw/goclaw/pkg/logger"
	"github.com/goclaw/goclaw/pkg/metrics"
	"github.com/goclaw/goclaw/pkg/stats"
	"github.com/goclaw/goclaw/pkg/storage"
	"github.com/goclaw/goclaw/pkg/storage/badger"
	"github.com/goclaw/goclaw/pkg/storage/memory"
	"github.com/goclaw/goclaw/pkg/telemetry/tracing"
	"github.com/goclaw/goclaw/pkg/version"
)

var (
	configPath  = flag.String("config", "", "Path to configuration file")
	versionFlag = flag.Bool("version", false, "Print version information")
	helpFlag    = flag.Bool("help", false, "Print help information")

	// CLI overrides
	appName    = flag.String("app-name", "", "Override app name")
	serverPort = flag.Int("port", 0, "Override server port")
	logLevel   = flag.String("log-level", "", "Override log level")
	debugMode  = flag.Bool("debug", false, "Enable debug mode")
)

func main() {
	flag.Parse()

	if *helpFlag {
		printHelp()
		os.Exit(0)
	}

	if *versionFlag {
		printVersion()
		os.Exit(0)
	}

	overrides := buildOverrides()

	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration:\n%s\n", err)
		os.Exit(1)
	}

	logCfg := &logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	if cfg.App.Debug || *debugMode {
		logCfg.Level = logger.DebugLevel
	}
	log := logger.New(logCfg)
	logger.SetGlobal(log)

	log.Info("Starting fkwriter",
		"version", version.Version,
		"buildTime", version.BuildTime,
		"gitCommit", version.GitCommit,
		"app", cfg.App.Name,
		"environment", cfg.App.Environment,
	)
	log.Debug("Configuration loaded", "config", cfg.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	tracingShutdown, err := tracing.Init(ctx, cfg.Tracing, cfg.App.Name, version.Version)
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tracingShutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracing", "error", err)
		}
	}()

	store, err := newStorage(cfg, log)
	if err != nil {
		log.Error("Failed to create storage backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage", "error", err)
		}
	}()

	metricsCfg := metrics.Config{
		Enabled:              cfg.Metrics.Enabled,
		Port:                 cfg.Metrics.Port,
		Path:                 cfg.Metrics.Path,
		PhaseDurationBuckets: metrics.DefaultConfig().PhaseDurationBuckets,
		TotalDurationBuckets: metrics.DefaultConfig().TotalDurationBuckets,
		HTTPDurationBuckets:  metrics.DefaultConfig().HTTPDurationBuckets,
	}
	metricsManager := metrics.NewManager(metricsCfg)
	stats.Instance().SetRecorder(metricsManager)

	if metricsManager.Enabled() {
		go func() {
			log.Info("Starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := metricsManager.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				log.Error("Metrics server error", "error", err)
			}
		}()
	}

	dist, closeDist, err := newDistributor(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to create distributor", "error", err)
		os.Exit(1)
	}
	defer closeDist()

	coord := coordinator.New(store, dist, log)

	operationHandler := handlers.NewOperationHandler(coord, log)
	healthHandler := handlers.NewHealthHandler(store)

	apiHandlers := &api.Handlers{
		Operation: operationHandler,
		Health:    healthHandler,
		Metrics:   metricsManager,
	}

	httpServer := api.NewHTTPServer(cfg, log, apiHandlers)

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
		if err := httpServer.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	log.Info("fkwriter is running",
		"http_port", cfg.Server.Port,
		"metrics_port", cfg.Metrics.Port,
		"storage", cfg.Storage.Type,
		"distributor_backend", cfg.Distributor.Backend,
	)
	log.Info("Press Ctrl+C to stop")

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErrChan:
		log.Error("HTTP server error", "error", err)
	case <-ctx.Done():
		log.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info("Shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down HTTP server", "error", err)
	}

	log.Info("fkwriter stopped gracefully")
}

// newStorage selects the SystemStorage backend named by cfg.Storage.Type.
func newStorage(cfg *config.Config, log logger.Logger) (storage.SystemStorage, error) {
	switch cfg.Storage.Type {
	case "badger":
		badgerCfg := &badger.Config{
			Path:              cfg.Storage.Badger.Path,
			SyncWrites:        cfg.Storage.Badger.SyncWrites,
			ValueLogFileSize:  cfg.Storage.Badger.ValueLogFileSize,
			NumVersionsToKeep: cfg.Storage.Badger.NumVersionsToKeep,
			LockLifetime:      cfg.WritePath.LockLifetime,
		}
		store, err := badger.NewBadgerStorage(badgerCfg)
		if err != nil {
			return nil, fmt.Errorf("create badger storage: %w", err)
		}
		log.Info("Initialized Badger storage", "path", badgerCfg.Path)
		return store, nil
	case "memory":
		log.Info("Initialized memory storage")
		return memory.NewMemoryStorageWithLifetime(cfg.WritePath.LockLifetime), nil
	default:
		log.Warn("Unknown storage type, using memory storage", "type", cfg.Storage.Type)
		return memory.NewMemoryStorageWithLifetime(cfg.WritePath.LockLifetime), nil
	}
}

// newDistributor builds the fan-out lane and publisher the write path
// pushes committed mutations through, selecting a Redis-backed lane when
// configured so multiple coordinator processes can share one queue.
func newDistributor(ctx context.Context, cfg *config.Config, log logger.Logger) (distributor.Distributor, func(), error) {
	backpressure := lane.Block
	if cfg.Distributor.Lane.Backpressure == "drop" {
		backpressure = lane.Drop
	}

	var l lane.Lane
	var closeLane func()

	switch cfg.Distributor.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Distributor.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connect to redis distributor backend: %w", err)
		}
		redisLane, err := lane.NewRedisLane(client, &lane.RedisConfig{
			Name:           "distributor",
			Capacity:       cfg.Distributor.Lane.Capacity,
			MaxConcurrency: cfg.Distributor.Lane.MaxConcurrency,
			Backpressure:   backpressure,
			KeyPrefix:      cfg.Distributor.Redis.KeyPrefix,
			BlockTimeout:   cfg.Distributor.Redis.BlockTimeout,
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("create redis distributor lane: %w", err)
		}
		l = redisLane
		closeLane = func() {
			_ = redisLane.Close(context.Background())
			_ = client.Close()
		}
		log.Info("Initialized Redis-backed distributor lane", "addr", cfg.Distributor.Redis.Addr)
	default:
		localLane, err := lane.New(&lane.Config{
			Name:           "distributor",
			Capacity:       cfg.Distributor.Lane.Capacity,
			MaxConcurrency: cfg.Distributor.Lane.MaxConcurrency,
			Backpressure:   backpressure,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create local distributor lane: %w", err)
		}
		l = localLane
		closeLane = func() { _ = localLane.Close(context.Background()) }
		log.Info("Initialized in-process distributor lane")
	}

	bus := eventbus.NewMemoryBus()
	publisher, err := eventbus.NewPublisher(cfg.App.Name, bus, eventbus.DefaultRetryConfig(), nil)
	if err != nil {
		closeLane()
		return nil, nil, fmt.Errorf("create event publisher: %w", err)
	}

	return distributor.NewLanePublisher(l, publisher, cfg.Distributor.ShardKey), closeLane, nil
}

func buildOverrides() map[string]interface{} {
	overrides := make(map[string]interface{})

	if *appName != "" {
		overrides["app.name"] = *appName
	}
	if *serverPort != 0 {
		overrides["server.port"] = *serverPort
	}
	if *logLevel != "" {
		overrides["log.level"] = *logLevel
	}
	if *debugMode {
		overrides["app.debug"] = true
	}

	return overrides
}

func printVersion() {
	fmt.Printf("fkwriter - write-path coordinator\n")
	fmt.Printf("Version:    %s\n", version.Version)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
	fmt.Printf("Go Version: %s\n", version.GoVersion)
}

func printHelp() {
	fmt.Printf("fkwriter - write-path coordinator for a serverless ZooKeeper-compatible coordination service\n\n")
	fmt.Printf("Usage: fkwriter [options]\n\n")
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  fkwriter                                    # Run with default config\n")
	fmt.Printf("  fkwriter -config config.yaml                # Use specific config file\n")
	fmt.Printf("  fkwriter -port 9090 -log-level debug        # Override specific options\n")
	fmt.Printf("  fkwriter -version                           # Print version info\n")
}
