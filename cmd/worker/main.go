package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/activebuddy/activebuddy/internal/agent"
	"github.com/activebuddy/activebuddy/internal/config"
	"github.com/activebuddy/activebuddy/internal/database"
	"github.com/activebuddy/activebuddy/internal/logger"
	"github.com/activebuddy/activebuddy/internal/queue"
	"github.com/activebuddy/activebuddy/internal/strava"
	"github.com/activebuddy/activebuddy/internal/telegram"
	"github.com/activebuddy/activebuddy/internal/tools"
	"github.com/activebuddy/activebuddy/internal/transcribe"
	"github.com/activebuddy/activebuddy/internal/workers"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.New(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("agent_model", cfg.AgentModel),
		zap.String("whisper_model", cfg.WhisperModel),
	)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	bot, err := telegram.New(cfg.TelegramToken)
	if err != nil {
		zapLogger.Fatal("failed_to_create_telegram_bot", zap.Error(err))
	}

	profiles := database.NewProfileRepository(db)
	oauth := strava.NewOAuth(cfg.StravaClientID, cfg.StravaClientSecret, cfg.StravaRedirectURL())
	stravaClient := strava.NewClient("", &http.Client{Timeout: 10 * time.Second})

	stravaTool := tools.NewStravaTool(profiles, oauth, stravaClient, zapLogger)
	registry := tools.NewRegistry()
	registry.Register(tools.NewWeatherTool(profiles, zapLogger))
	registry.Register(stravaTool)
	registry.Register(tools.NewMemoryTool(profiles, zapLogger))

	model := agent.NewOpenAIClient(cfg.ModelAPIKey, cfg.ModelBaseURL, cfg.AgentModel)
	loop := agent.NewLoop(model, registry, zapLogger)

	transcriber := transcribe.New(cfg.ModelAPIKey, cfg.WhisperBaseURL, cfg.WhisperModel)

	responder := workers.NewResponder(profiles, loop, stravaTool, transcriber, bot, jobQueue, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}

	zapLogger.Info("worker_started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}
				if err := responder.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("failed_to_process_job",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	<-sigChan
	zapLogger.Info("shutdown_signal_received")
	cancel()
	zapLogger.Info("worker_stopped")
}
