package main

import (
	"AgentDeck/backend/go/internal/agent"
	"AgentDeck/backend/go/internal/config"
	"AgentDeck/backend/go/internal/database/kafka"
	"AgentDeck/backend/go/internal/metrics"
	"AgentDeck/backend/go/internal/models"
	"AgentDeck/backend/go/internal/task_service/api"
	"AgentDeck/backend/go/internal/task_service/publisher"
	"AgentDeck/backend/go/internal/task_service/service"
	"AgentDeck/backend/go/pkg/circuitbreaker"
	agenthttp "AgentDeck/backend/go/pkg/http"
	"AgentDeck/backend/go/pkg/logger"
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (defaults are used when empty)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logLevel, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Invalid logger level: %v", err)
	}
	logger.Init(logLevel)
	serviceLogger := logger.New("TaskService", "", "")

	// Agents and simulator
	registry := agent.NewDefaultRegistry()
	d := cfg.Simulation.AgentDurations
	registry.SetDurations(map[models.AgentType]time.Duration{
		models.AgentPlanner:    config.MustDuration(d.Planner),
		models.AgentResearcher: config.MustDuration(d.Researcher),
		models.AgentAnalyst:    config.MustDuration(d.Analyst),
		models.AgentWriter:     config.MustDuration(d.Writer),
		models.AgentVisualizer: config.MustDuration(d.Visualizer),
	})
	simulator := agent.NewSimulator(registry,
		agent.WithProgressInterval(config.MustDuration(cfg.Simulation.ProgressInterval)))

	m := metrics.Default()
	opts := []service.Option{
		service.WithMetrics(m),
		service.WithSubmitLimit(cfg.Simulation.SubmitRate, cfg.Simulation.SubmitBurst),
	}

	// Optional Kafka event mirror
	var eventPublisher *publisher.EventPublisher
	var kafkaClient *kafka.Client
	if cfg.Databases.Kafka.Enabled {
		kafkaClient, err = kafka.NewClient(&cfg.Databases.Kafka)
		if err != nil {
			serviceLogger.WithError(models.NewErrorInfo(err, "kafka_error")).Fatal("Failed to connect to Kafka")
		}
		eventPublisher = publisher.NewEventPublisher(
			kafka.NewLogPublisher(kafkaClient.Writer),
			cfg.Databases.Kafka.QueueSize,
			config.MustDuration(cfg.Databases.Kafka.WriteLimit),
			serviceLogger,
			publisher.WithBreaker(circuitbreaker.New(5, 1, 30*time.Second)),
			publisher.WithDropHook(m.IncMirrorDropped),
		)
		opts = append(opts, service.WithEventSink(eventPublisher))
		serviceLogger.WithPayload(map[string]interface{}{"topic": cfg.Databases.Kafka.Topic}).Info("Mirroring task events to Kafka")
	}

	taskService := service.NewTaskService(simulator, service.Timings{
		Planning:    config.MustDuration(cfg.Simulation.PlanningDelay),
		Aggregation: config.MustDuration(cfg.Simulation.AggregationDelay),
	}, serviceLogger, opts...)

	// Setup HTTP server
	gin.SetMode(gin.ReleaseMode)
	srv, err := agenthttp.NewServer(cfg, serviceLogger)
	if err != nil {
		serviceLogger.WithError(models.NewErrorInfo(err, "config_error")).Fatal("Failed to create HTTP server")
	}
	var apiOpts []api.Option
	if kafkaClient != nil {
		apiOpts = append(apiOpts, api.WithHealthCheck("kafka", kafkaClient))
	}
	apiHandler := api.NewAPI(taskService, serviceLogger, cfg.Server.AllowedOrigins, config.MustDuration(cfg.Server.WriteTimeout), apiOpts...)
	api.RegisterRoutes(srv.Engine(), apiHandler, cfg.Auth.JwtSecret)
	srv.RegisterOnShutdown(apiHandler.Shutdown)

	// Start server
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serviceLogger.WithError(models.NewErrorInfo(err, "transport_error")).Fatal("HTTP server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	serviceLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.MustDuration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		serviceLogger.WithError(models.NewErrorInfo(err, "transport_error")).Error("Server forced to shutdown")
	}
	// RegisterOnShutdown hooks run asynchronously; close sessions before the mirror.
	apiHandler.Shutdown()

	if eventPublisher != nil {
		if err := eventPublisher.Close(); err != nil {
			serviceLogger.WithError(models.NewErrorInfo(err, "kafka_error")).Error("Error closing event publisher")
		}
	}
	if err := kafkaClient.Close(); err != nil {
		serviceLogger.WithError(models.NewErrorInfo(err, "kafka_error")).Error("Error closing Kafka client")
	}

	serviceLogger.Info("Server gracefully stopped")
}
