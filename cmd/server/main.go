package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"heliotelligence/internal/api"
	"heliotelligence/internal/config"
	"heliotelligence/internal/ingest"
	"heliotelligence/internal/metrics"
	"heliotelligence/internal/queue"
	"heliotelligence/internal/repository"
	"heliotelligence/internal/service"
	"heliotelligence/internal/weather"
	"heliotelligence/internal/ws"
	"heliotelligence/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Initialize logger
	logger.Init()
	logger.Info("Starting Heliotelligence")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	gin.SetMode(cfg.GinMode)

	// Initialize stores: PostgreSQL + InfluxDB in production, in-memory
	// otherwise
	var (
		farms     repository.FarmRepository
		alerts    repository.AlertRepository
		telemetry repository.TelemetryRepository
		catalog   repository.CatalogRepository
	)

	if cfg.DBType == "postgres" {
		pg, err := config.InitPostgres(cfg)
		if err != nil {
			log.Fatal("Failed to initialize PostgreSQL:", err)
		}
		defer pg.Close()

		pgRepo := repository.NewPostgresRepo(pg)
		if err := pgRepo.RunMigrations(); err != nil {
			log.Fatal("Failed to run migrations:", err)
		}
		if err := pgRepo.SeedCatalog(context.Background()); err != nil {
			log.Fatal("Failed to seed equipment catalog:", err)
		}

		influx, err := config.InitInflux(cfg)
		if err != nil {
			log.Fatal("Failed to initialize InfluxDB:", err)
		}
		defer influx.Close()

		farms, alerts, catalog = pgRepo, pgRepo, pgRepo
		telemetry = repository.NewInfluxRepo(influx)
	} else {
		mem := repository.NewMemoryRepo()
		farms, alerts, catalog, telemetry = mem, mem, mem, mem
		logger.Warn("Running with in-memory stores, data is lost on restart")
	}

	// Telemetry batch writer
	writer := service.NewBatchWriter(telemetry, cfg.BatchSize, time.Duration(cfg.BatchInterval)*time.Millisecond)

	// Weather source, with optional Redis response cache
	var bodyCache weather.BodyCache
	if cfg.RedisAddr != "" {
		redisCache, err := weather.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.WeatherCacheTTL)
		if err != nil {
			logger.Warnf("Weather cache disabled: %v", err)
		} else {
			defer redisCache.Close()
			bodyCache = redisCache
			fmt.Println("✓ Connected to Redis weather cache")
		}
	}
	pvgis := weather.NewClient(cfg.PVGISBaseURL, bodyCache)

	// Kafka alert events (nil producer when no brokers configured)
	producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if producer != nil {
		fmt.Println("✓ Kafka alert events enabled")
	}

	// Live feed hub
	hub := ws.NewHub()

	// Services
	monitoring := service.NewMonitoringService(farms, alerts, telemetry, writer, producer, hub)
	defer monitoring.Close()
	prediction := service.NewPredictionService(pvgis)

	if registered, err := monitoring.ListFarms(context.Background()); err == nil {
		metrics.ActiveFarms.Set(float64(len(registered)))
	}

	// Optional MQTT field ingest
	var bridge *ingest.Bridge
	if cfg.MQTTBroker != "" {
		bridge = ingest.NewBridge(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTUsername, cfg.MQTTPassword, monitoring)
		if err := bridge.Start(); err != nil {
			logger.Errorf("MQTT ingest disabled: %v", err)
			bridge = nil
		}
	}

	// Setup HTTP server
	router := setupRouter(monitoring, prediction, catalog, hub)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server starting on port %d", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error:", err)
		}
	}()

	printStartupInfo(cfg)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\n🛑 Shutdown signal received. Gracefully shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if bridge != nil {
		bridge.Stop()
	}
	writer.Close()
	if err := producer.Close(); err != nil {
		logger.Warnf("Kafka producer close failed: %v", err)
	}

	logger.Info("Server stopped gracefully")
	fmt.Println("✓ Server exited gracefully")
}

func setupRouter(monitoring *service.MonitoringService, prediction *service.PredictionService, catalog repository.CatalogRepository, hub *ws.Hub) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(api.Logger())
	r.Use(api.CORS())
	r.Use(api.Metrics())

	// API routes, metrics, websocket feed, static dashboard
	api.SetupRoutes(r, monitoring, prediction, catalog, ws.NewHandler(hub))

	return r
}

func printStartupInfo(cfg *config.Config) {
	fmt.Println("\n☀️  Heliotelligence - Solar Prediction & Monitoring")
	fmt.Println("===================================================")
	fmt.Printf("Server: http://localhost:%d\n", cfg.ServerPort)
	fmt.Printf("Stores: %s\n", cfg.DBType)
	fmt.Println("\n📊 Prediction APIs:")
	fmt.Println("   POST /api/v1/predict            - Annual energy yield")
	fmt.Println("   GET  /api/v1/catalog/modules    - PV module catalog")
	fmt.Println("   GET  /api/v1/catalog/inverters  - Inverter catalog")
	fmt.Println("\n⚡ Monitoring APIs:")
	fmt.Println("   POST /api/v1/farms              - Register a farm")
	fmt.Println("   POST /api/v1/farms/:id/data     - Ingest telemetry")
	fmt.Println("   GET  /api/v1/farms/:id/monitoring - Dashboard data")
	fmt.Println("   POST /api/v1/farms/:id/analyze  - Run analysis")
	fmt.Println("   PUT  /api/v1/alerts/:id/resolve - Resolve an alert")
	fmt.Println("\n📈 Observability:")
	fmt.Println("   GET  /metrics                   - Prometheus metrics")
	fmt.Println("   GET  /ws                        - Live telemetry feed")
	fmt.Print("\n💡 Press Ctrl+C to shutdown gracefully\n\n")
}
