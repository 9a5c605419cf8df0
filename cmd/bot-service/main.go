package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ubernicholi/bravo-bot/internal/api/handler"
	"github.com/ubernicholi/bravo-bot/internal/api/router"
	"github.com/ubernicholi/bravo-bot/internal/api/storage"
	"github.com/ubernicholi/bravo-bot/internal/comfy"
	"github.com/ubernicholi/bravo-bot/internal/config"
	"github.com/ubernicholi/bravo-bot/internal/indicator"
	"github.com/ubernicholi/bravo-bot/internal/queue"
	"github.com/ubernicholi/bravo-bot/internal/textgen"
	"github.com/ubernicholi/bravo-bot/internal/tts"
	"github.com/ubernicholi/bravo-bot/internal/words"
	"github.com/ubernicholi/bravo-bot/shared/logger"
	"github.com/ubernicholi/bravo-bot/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("BOT_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/bot-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateBotConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting bot service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize indicator emitter (event bus when enabled, logs otherwise)
	busEmitter, rabbitClient, err := initIndicator(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize indicator bus: %w", err)
	}

	// Load workflow templates
	workflows, err := loadWorkflows(&cfg.ComfyUI.Workflows)
	if err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}

	appLogger.Info("Workflow templates loaded")

	// Initialize backend clients
	comfyClient := comfy.NewClient(&comfy.Config{
		Endpoint:    cfg.ComfyUI.Endpoint,
		ExecTimeout: cfg.ComfyUI.ExecTimeout,
		Logger:      appLogger.Logger,
	})

	textgenClient, err := textgen.NewClient(&textgen.Config{
		Endpoint:   cfg.TextGen.Endpoint,
		ParamsFile: cfg.TextGen.ParamsFile,
		MaxLength:  cfg.TextGen.MaxLength,
		Timeout:    cfg.TextGen.Timeout,
		Logger:     appLogger.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize text generation client: %w", err)
	}

	ttsClient := tts.NewClient(&tts.Config{
		Endpoint:    cfg.TTS.Endpoint,
		MaleVoice:   cfg.TTS.MaleVoice,
		FemaleVoice: cfg.TTS.FemaleVoice,
		Timeout:     cfg.TTS.Timeout,
		Logger:      appLogger.Logger,
	})

	// Start the task queue
	taskQueue := queue.New(&queue.Config{
		Logger:        appLogger.Logger,
		MaxConcurrent: cfg.Queue.MaxConcurrent,
	})

	queueCtx, queueCancel := context.WithCancel(context.Background())
	defer queueCancel()
	taskQueue.Start(queueCtx)

	appLogger.Info("Task queue started",
		slog.Int("max_concurrent", cfg.Queue.MaxConcurrent),
	)

	// Initialize router
	r := initRouter(cfg.App.Environment, &handler.Dependencies{
		Logger:    appLogger.Logger,
		Queue:     taskQueue,
		Generator: comfyClient,
		TextGen:   textgenClient,
		TTS:       ttsClient,
		Words:     words.NewGenerator(rand.NewSource(time.Now().UnixNano())),
		Indicator: busEmitter,
		Store:     storage.NewStorage(),
		Workflows: workflows,
	})

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Bot service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	// Cleanup function to close all resources
	cleanup := func() {
		cancel()
		queueCancel()
		taskQueue.Stop()
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initIndicator connects to the event bus when it is enabled and falls back
// to log-only emission when it is not.
func initIndicator(cfg *config.RabbitMQConfig, logger *slog.Logger) (indicator.Emitter, *rabbitmq.Client, error) {
	if !cfg.Enabled {
		return indicator.NewLogEmitter(logger), nil, nil
	}

	rabbitConfig := &rabbitmq.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		User:              cfg.User,
		Password:          cfg.Password,
		VHost:             cfg.VHost,
		ExchangeName:      cfg.Exchange.Name,
		ExchangeType:      cfg.Exchange.Type,
		ExchangeDurable:   cfg.Exchange.Durable,
		RoutingKey:        cfg.RoutingKey,
		RetryAttempts:     cfg.Connection.RetryAttempts,
		RetryInterval:     cfg.Connection.RetryInterval,
		Heartbeat:         cfg.Connection.Heartbeat,
		ConnectionTimeout: cfg.Connection.ConnectionTimeout,
	}

	rabbitClient, err := rabbitmq.NewClient(rabbitConfig, logger)
	if err != nil {
		return nil, nil, err
	}

	return indicator.NewBusEmitter(rabbitClient, logger), rabbitClient, nil
}

// loadWorkflows parses the workflow template files once at startup.
func loadWorkflows(cfg *config.WorkflowsConfig) (*handler.Workflows, error) {
	image, err := comfy.LoadWorkflow(cfg.Image)
	if err != nil {
		return nil, fmt.Errorf("image workflow: %w", err)
	}

	imageEnhanced := image
	if cfg.ImageEnhanced != "" {
		imageEnhanced, err = comfy.LoadWorkflow(cfg.ImageEnhanced)
		if err != nil {
			return nil, fmt.Errorf("enhanced image workflow: %w", err)
		}
	}

	voice, err := comfy.LoadWorkflow(cfg.Voice)
	if err != nil {
		return nil, fmt.Errorf("voice workflow: %w", err)
	}

	music, err := comfy.LoadWorkflow(cfg.Music)
	if err != nil {
		return nil, fmt.Errorf("music workflow: %w", err)
	}

	return &handler.Workflows{
		Image:         image,
		ImageEnhanced: imageEnhanced,
		Voice:         voice,
		Music:         music,
	}, nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies) *gin.Engine {
	// Set Gin mode based on environment
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps)
}
