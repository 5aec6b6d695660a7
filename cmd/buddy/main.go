package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thesathwik/brainstorm-buddy/internal/api"
	"github.com/thesathwik/brainstorm-buddy/internal/config"
	"github.com/thesathwik/brainstorm-buddy/internal/degradation"
	"github.com/thesathwik/brainstorm-buddy/internal/intervention"
	"github.com/thesathwik/brainstorm-buddy/internal/llm"
	"github.com/thesathwik/brainstorm-buddy/internal/notify"
	"github.com/thesathwik/brainstorm-buddy/internal/pipeline"
	"github.com/thesathwik/brainstorm-buddy/internal/processor"
	"github.com/thesathwik/brainstorm-buddy/internal/resilience"
	"github.com/thesathwik/brainstorm-buddy/internal/response"
	"github.com/thesathwik/brainstorm-buddy/internal/store"
	"github.com/thesathwik/brainstorm-buddy/internal/summon"
	"github.com/thesathwik/brainstorm-buddy/internal/transport"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("brainstorm-buddy starting",
		"port", cfg.Port,
		"nats_url", cfg.NatsURL,
		"model", cfg.OpenAIModel,
		"max_history", cfg.MaxHistorySize,
		"offline_mode", cfg.OfflineMode,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 1: Connect to the audit database when configured. Without it the
	// service runs with in-memory history only.
	var ds store.DataStore
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		ds = db
		slog.Info("audit database connected")
	} else {
		slog.Info("no DATABASE_URL set, audit trail disabled")
	}

	// Step 2: Build the resilient completion client.
	coord := resilience.NewCoordinator(resilience.Config{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBase,
	})

	apiKey := cfg.OpenAIAPIKey
	if apiKey == "" {
		// Validate guarantees offline mode here; the placeholder is never sent
		// because offline mode short-circuits before any API call.
		apiKey = "offline"
	}
	svc, err := llm.NewOpenAIService(llm.OpenAIConfig{
		APIKey:  apiKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	})
	if err != nil {
		slog.Error("failed to create completion service", "error", err)
		os.Exit(1)
	}
	client := llm.NewResilientClient(svc, coord, llm.ClientConfig{
		CacheEnabled: cfg.CacheEnabled,
		CacheTTL:     cfg.CacheTTL,
	})
	if cfg.OfflineMode {
		client.SetOfflineMode(true)
	}

	// Step 3: Build the processing stages.
	proc := processor.New(client, cfg.PauseThreshold)
	detector := summon.NewDetector(summon.DetectorConfig{})
	analyzer := summon.NewAnalyzer(client)
	engine := intervention.NewEngine(intervention.Config{
		Cooldown:            cfg.InterventionCooldown,
		TopicDriftThreshold: cfg.TopicDriftThreshold,
		InfoGapThreshold:    cfg.InfoGapThreshold,
		FactCheckThreshold:  cfg.FactCheckThreshold,
	})
	generator := response.NewGenerator(client)
	degrade := degradation.NewService()

	// Step 4: Connect to NATS.
	listener, err := transport.ConnectNATS(cfg.NatsURL)
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}

	// Step 5: Wire the pipeline and route inbound chat into it.
	pipe := pipeline.New(pipeline.Config{
		Processor:  proc,
		Detector:   detector,
		Analyzer:   analyzer,
		Engine:     engine,
		Generator:  generator,
		Degrade:    degrade,
		Store:      ds,
		Publisher:  listener,
		MaxHistory: cfg.MaxHistorySize,
	})
	listener.OnMessage(pipe.HandleMessage)

	// Conditionally create Slack alerter for degradation notifications.
	var alerter *notify.Alerter
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		alerter = notify.NewAlerter(cfg.SlackBotToken, cfg.SlackChannel)
		slog.Info("Slack degradation alerter enabled", "channel", cfg.SlackChannel)
	}

	// Announce degradation transitions on NATS and, when configured, Slack.
	degrade.OnTransition(func(from, to degradation.Level, reason string) {
		payload, _ := json.Marshal(map[string]any{
			"event_type": "degradation.transition",
			"from":       from.String(),
			"to":         to.String(),
			"reason":     reason,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		})
		if err := listener.Publish(transport.SystemSubject+".degradation", payload); err != nil {
			slog.Warn("failed to publish degradation event", "error", err)
		}
		if alerter != nil {
			if err := alerter.PostDegradationAlert(ctx, from, to, reason); err != nil {
				slog.Warn("failed to post degradation alert to Slack", "error", err)
			}
		}
	})

	if err := listener.Start(); err != nil {
		slog.Error("failed to start NATS listener", "error", err)
		os.Exit(1)
	}
	slog.Info("NATS listener started")

	// Step 6: Start the health monitor.
	monitor := pipeline.NewMonitor(client, coord, degrade, pipe, cfg.HealthInterval)
	monitor.Start(ctx)

	// Step 7: Announce availability.
	announcement, _ := json.Marshal(map[string]any{
		"event_type": "assistant.registered",
		"source":     "brainstorm-buddy",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"metadata":   map[string]any{"port": cfg.Port, "offline_mode": cfg.OfflineMode},
	})
	if err := listener.Publish(transport.SystemSubject+".registered", announcement); err != nil {
		slog.Warn("failed to publish registration event", "error", err)
	}

	// Step 8: Start HTTP admin API.
	srv := api.NewServer(pipe, engine, coord, degrade, client, ds, listener, cfg.Port)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("brainstorm-buddy ready", "port", cfg.Port)

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	slog.Info("shutting down", "signal", sig)
	listener.Stop()
	cancel()
	pipe.Wait()
	monitor.Wait()
	slog.Info("brainstorm-buddy stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
