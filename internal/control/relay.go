package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openbridge/relay/internal/agent"
	"github.com/openbridge/relay/internal/async"
	"github.com/openbridge/relay/internal/bot"
	"github.com/openbridge/relay/internal/core/config"
	"github.com/openbridge/relay/internal/correlation"
	"github.com/openbridge/relay/internal/httpapi"
	"github.com/openbridge/relay/internal/resolver"
	"github.com/openbridge/relay/internal/speech"
	"github.com/openbridge/relay/internal/telegram"
)

// Relay is the main application struct wiring the webhook surface to
// the async dispatch and callback correlation machinery.
type Relay struct {
	cfg        *config.AppConfig
	store      *correlation.Store
	dispatcher *async.Dispatcher
	server     *httpapi.Server
	log        *slog.Logger
}

// NewRelay creates a Relay with all dependencies initialized.
func NewRelay(cfg *config.AppConfig) (*Relay, error) {
	store, err := correlation.NewStore(cfg.Redis, cfg.Correlation.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to init correlation store: %w", err)
	}

	tg := telegram.NewClient(cfg.Telegram.Token)
	runner := agent.NewClient(cfg.Agent)

	var synth resolver.Synthesizer
	if cfg.Speech.URL != "" {
		synth = speech.NewClient(cfg.Speech.URL)
	}

	failures := async.NewFailureLog(0)
	dispatcher := async.NewDispatcher(cfg.Dispatch.Timeout, failures)
	res := resolver.New(store, tg, synth)

	updates := bot.NewUpdateHandler(
		store,
		runner,
		tg,
		callbackURL(cfg.Agent.CallbackBaseURL),
		cfg.Correlation.TTL,
	)

	server := httpapi.NewServer(cfg.Server.Port, httpapi.Deps{
		Dispatcher:      dispatcher,
		Updates:         updates,
		Resolver:        res,
		Failures:        failures,
		Health:          store.Ping,
		DispatchOptions: async.Options{Policy: cfg.Dispatch.RetryPolicy(), Failures: failures},
		TelegramSecret:  cfg.Telegram.WebhookSecret,
		CallbackSecret:  cfg.Agent.SharedSecret,
	})

	return &Relay{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		server:     server,
		log:        slog.Default().With("component", "control"),
	}, nil
}

// Start launches the HTTP server. It returns once the listener is
// running; server errors are logged from the serving goroutine.
func (r *Relay) Start(ctx context.Context) error {
	r.log.Info("Starting relay", "port", r.cfg.Server.Port)

	go func() {
		if err := r.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.Error("HTTP server stopped", "error", err)
		}
	}()
	return nil
}

// Stop shuts down the server, waits for in-flight operations and
// closes the store.
func (r *Relay) Stop(ctx context.Context) error {
	r.log.Info("Stopping relay")

	if err := r.server.Stop(ctx); err != nil {
		r.log.Warn("HTTP server shutdown error", "error", err)
	}
	if err := r.dispatcher.Shutdown(ctx); err != nil {
		r.log.Warn("Dispatcher did not drain in time", "error", err)
	}
	if err := r.store.Close(); err != nil {
		return fmt.Errorf("failed to close correlation store: %w", err)
	}

	r.log.Info("Relay stopped")
	return nil
}

func callbackURL(base string) string {
	return strings.TrimRight(base, "/") + "/callbacks/agent"
}
