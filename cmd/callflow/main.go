// callflow: telephony interview service.
// Answers voice webhooks, transcribes each answer and asks the next question.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-callflow/internal/config"
	"github.com/teslashibe/go-callflow/internal/log"
	"github.com/teslashibe/go-callflow/pkg/callflow"
	"github.com/teslashibe/go-callflow/pkg/dialogue"
	"github.com/teslashibe/go-callflow/pkg/export"
	"github.com/teslashibe/go-callflow/pkg/hub"
	"github.com/teslashibe/go-callflow/pkg/inference"
	"github.com/teslashibe/go-callflow/pkg/recording"
	"github.com/teslashibe/go-callflow/pkg/session"
	"github.com/teslashibe/go-callflow/pkg/stt"
	"github.com/teslashibe/go-callflow/pkg/twiml"
	"github.com/teslashibe/go-callflow/pkg/web"
)

var (
	version    = "1.0.0"
	configPath = flag.String("config", "", "Path to YAML config file")
	port       = flag.Int("port", 0, "HTTP server port (overrides config)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "callflow: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Init(cfg.LogLevel)
	logger := log.L()
	logger.Info("starting callflow", "version", version, "store", cfg.Store.Driver)

	store, err := session.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	retrieverOpts := []recording.Option{
		recording.WithPolicy(cfg.Recording.Policy()),
		recording.WithLogger(logger),
	}
	if cfg.Recording.AccountSID != "" {
		retrieverOpts = append(retrieverOpts,
			recording.WithBasicAuth(cfg.Recording.AccountSID, cfg.Recording.AuthToken))
	}
	retriever := recording.New(retrieverOpts...)

	transcriber, err := stt.NewWhisper(
		stt.WithAPIKey(cfg.OpenAI.APIKey),
		stt.WithBaseURL(cfg.OpenAI.BaseURL),
		stt.WithModel(cfg.OpenAI.TranscriptionModel),
		stt.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("create transcriber: %w", err)
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return fmt.Errorf("create inference provider: %w", err)
	}
	defer provider.Close()

	engine, err := dialogue.NewLLM(provider,
		dialogue.WithClosingSentence(cfg.Interview.ClosingSentence),
		dialogue.WithTemperature(cfg.OpenAI.Temperature),
		dialogue.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("create dialogue engine: %w", err)
	}

	events := hub.New(logger)
	opts := []callflow.Option{
		callflow.WithClosingSentence(cfg.Interview.ClosingSentence),
		callflow.WithVoice(twiml.Voice(cfg.Voice)),
		callflow.WithObserver(web.EventFeed(events)),
		callflow.WithLogger(logger),
	}

	var docs *export.Docs
	if cfg.Google.Enabled() {
		docs, err = export.New(export.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
			TokenPath:    cfg.Google.TokenPath,
			Logger:       logger,
		})
		if err != nil {
			return fmt.Errorf("create exporter: %w", err)
		}
		opts = append(opts, callflow.WithObserver(export.NewObserver(docs, store, logger)))
		logger.Info("google docs export enabled", "connected", docs.Connected())
	}

	controller, err := callflow.New(callflow.Deps{
		Store:       store,
		Retriever:   retriever,
		Transcriber: transcriber,
		Engine:      engine,
	}, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go events.Run(ctx)

	var auth web.Authorizer
	if docs != nil {
		auth = docs
	}
	web.Version = version
	if cfg.APIKey == "" {
		logger.Warn("CALLFLOW_API_KEY not set, call data API and live feed disabled")
	}
	server := web.NewServer(controller, events, auth, web.Config{
		TurnTimeout: cfg.TurnTimeout,
		APIKey:      cfg.APIKey,
		Inference:   provider,
		Debug:       *debug,
		Logger:      logger,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("webhooks ready",
			"voice", fmt.Sprintf("http://localhost:%d/voice", cfg.Port),
			"health", fmt.Sprintf("http://localhost:%d/health", cfg.Port))
		errCh <- server.Listen(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-quit:
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.TurnTimeout+time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
	return nil
}

// newProvider builds the chat provider, chaining a fallback model when one
// is configured.
func newProvider(cfg *config.Config) (inference.Provider, error) {
	client := func(model string) (*inference.Client, error) {
		return inference.NewClient(
			inference.WithAPIKey(cfg.OpenAI.APIKey),
			inference.WithBaseURL(cfg.OpenAI.BaseURL),
			inference.WithModel(model),
			inference.WithTemperature(cfg.OpenAI.Temperature),
			inference.WithLogger(log.Component("inference")),
		)
	}

	primary, err := client(cfg.OpenAI.ChatModel)
	if err != nil {
		return nil, err
	}
	if cfg.OpenAI.FallbackChatModel == "" {
		return primary, nil
	}
	fallback, err := client(cfg.OpenAI.FallbackChatModel)
	if err != nil {
		return nil, err
	}
	return inference.NewChainWithLogger(log.Component("inference"), primary, fallback)
}
