package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackpulse/config"
	"trackpulse/database"
	"trackpulse/repositories"
	"trackpulse/routes"
	"trackpulse/services"
	"trackpulse/websocket"
	"trackpulse/workers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	setupLogger(cfg)

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}
	defer database.Disconnect()

	// Initialize Redis
	redisClient := config.InitRedis(cfg)
	defer redisClient.Close()

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// Repositories
	reportRepo := repositories.NewReportRepository(db)
	geofenceRepo := repositories.NewGeofenceRepository(db)

	// Publishing pipeline: mongo is the source of truth, redis and the hub
	// fan the report out to live observers.
	publish := services.NewPublishService(reportRepo, redisClient, hub)

	// Geofence pipeline
	evaluator := services.NewGeofenceEvaluator()
	definitions := services.NewDefinitionService(geofenceRepo, evaluator)
	if err := definitions.LoadActive(context.Background()); err != nil {
		logrus.Warnf("Could not warm geofence definitions: %v", err)
	}
	sink := services.NewBoundarySink(geofenceRepo, definitions, hub)

	// Local device: platform inputs flow through the feed, the scheduler
	// decides when to report.
	registry := services.NewRegistry()
	policy := services.NewIntervalPolicy(cfg.Policy)
	sensor := services.NewSensorActivityService(cfg.Activity)
	feed := services.NewDeviceFeed(cfg.DeviceID, sensor)

	scheduler := services.NewReportScheduler(cfg.DeviceID, cfg.Scheduler, policy, publish, feed, sensor, feed)
	feed.Bind(scheduler)
	if err := registry.Register(cfg.DeviceID, scheduler); err != nil {
		logrus.Fatal("Failed to register local device: ", err)
	}

	tracking := services.NewTrackingService(cfg.Tracking, cfg.Scheduler.OverrideInterval, registry)
	registry.SetTracking(tracking)

	// Workers
	geofenceWorker := workers.NewGeofenceWorker(evaluator, definitions, sink, publish,
		cfg.Geofence.WorkerCount, cfg.Geofence.QueueSize)
	if err := geofenceWorker.Start(); err != nil {
		logrus.Fatal("Failed to start geofence worker: ", err)
	}

	wakeWorker := workers.NewWakeWorker(redisClient, cfg.WakeChannel, tracking, registry)
	if err := wakeWorker.Start(); err != nil {
		logrus.Fatal("Failed to start wake worker: ", err)
	}

	// Setup routes
	router := routes.SetupRoutes(routes.Deps{
		Registry:    registry,
		Feeds:       map[string]*services.DeviceFeed{cfg.DeviceID: feed},
		Tracking:    tracking,
		Publish:     publish,
		Reports:     reportRepo,
		Definitions: definitions,
		Geofences:   geofenceWorker,
		Wake:        wakeWorker,
		Hub:         hub,
	})

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logrus.Infof("Tracking engine starting on port %s (device %s)", cfg.Port, cfg.DeviceID)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Error("Server forced to shutdown: ", err)
	}

	if err := wakeWorker.Stop(); err != nil {
		logrus.Error("Wake worker stop: ", err)
	}
	if err := geofenceWorker.Stop(); err != nil {
		logrus.Error("Geofence worker stop: ", err)
	}
	registry.Shutdown()
	hub.Shutdown()

	logrus.Info("Shutdown complete")
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Environment == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
