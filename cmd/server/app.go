// File: cmd/server/app.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/iyunix/oni-chat/internal/auth"
	"github.com/iyunix/oni-chat/internal/config"
	"github.com/iyunix/oni-chat/internal/handlers"
	"github.com/iyunix/oni-chat/internal/middleware"
	"github.com/iyunix/oni-chat/internal/ratelimit"
	"github.com/iyunix/oni-chat/internal/repository/message"
	"github.com/iyunix/oni-chat/internal/repository/thread"
	"github.com/iyunix/oni-chat/internal/services"
	"github.com/iyunix/oni-chat/internal/services/ai"
	"github.com/iyunix/oni-chat/internal/services/chat"
	"github.com/iyunix/oni-chat/internal/turn"
)

// application aggregates the handlers the router serves.
type application struct {
	cfg     *config.Config
	logger  services.Logger
	relay   *handlers.RelayHandler
	logs    *handlers.LogHandler
	threads *handlers.ThreadHandler // nil when no auth provider is configured
	auth    auth.Provider
	limiter *ratelimit.MemoryRateLimiter
}

func newApplication(cfg *config.Config, db *gorm.DB, upstream chat.Upstream, logger services.Logger) (*application, error) {
	chatCfg := chat.DefaultConfig()
	if cfg.SystemPrompt != "" {
		chatCfg.DefaultSystemPrompt = cfg.SystemPrompt
	}

	relayService, err := chat.NewRelayService(chatCfg, upstream, logger)
	if err != nil {
		return nil, fmt.Errorf("relay service: %w", err)
	}
	relayHandler, err := handlers.NewRelayHandler(relayService, logger)
	if err != nil {
		return nil, fmt.Errorf("relay handler: %w", err)
	}

	app := &application{
		cfg:     cfg,
		logger:  logger,
		relay:   relayHandler,
		logs:    handlers.NewLogHandler(logger),
		limiter: ratelimit.NewMemoryRateLimiter(ratelimit.DefaultChatConfig(cfg.ChatRateLimitPerMinute)),
	}

	if !cfg.AuthEnabled() {
		logger.Warn("no auth provider configured; thread routes disabled")
		return app, nil
	}

	if cfg.SupabaseJWTSecret != "" {
		app.auth = auth.NewJWTProvider(cfg.SupabaseJWTSecret)
	} else {
		app.auth = auth.NewRemoteProvider(cfg.SupabaseURL, cfg.SupabaseAnonKey, 10*time.Second)
	}

	chatService, err := services.NewChatService(
		thread.NewThreadRepository(db, logger),
		message.NewMessageRepository(db, logger),
		chatCfg,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("chat service: %w", err)
	}

	turns := turn.NewController(relayService, ai.Options{}, logger)
	app.threads, err = handlers.NewThreadHandler(chatService, turns, chatCfg.TurnTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("thread handler: %w", err)
	}
	return app, nil
}

// routes mounts every route at the root and again under /api.
func (app *application) routes() http.Handler {
	r := mux.NewRouter()
	for _, prefix := range []string{"/api", ""} {
		app.mount(r, prefix)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found"}`))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error":"method_not_allowed"}`))
	})

	// Outside the router so preflights and 404s pass through them too
	var h http.Handler = r
	h = middleware.LoggingMiddleware(app.logger)(h)
	h = middleware.RecoverPanic(app.logger)(h)
	h = middleware.CORS(app.cfg.CORSOrigin)(h)
	return h
}

func (app *application) mount(r *mux.Router, prefix string) {
	base := r
	if prefix != "" {
		base = r.PathPrefix(prefix).Subrouter()
	}

	base.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	base.Handle("/chat", middleware.RateLimitMiddleware(app.limiter, "chat", app.logger)(
		http.HandlerFunc(app.relay.Chat),
	)).Methods(http.MethodPost)
	base.HandleFunc("/log", app.logs.LogFrontendEvent).Methods(http.MethodPost)

	if app.threads == nil {
		return
	}

	protected := base.PathPrefix("/threads").Subrouter()
	protected.Use(middleware.RequireIdentity(app.auth, app.logger))
	protected.HandleFunc("", app.threads.ListThreads).Methods(http.MethodGet)
	protected.HandleFunc("", app.threads.CreateThread).Methods(http.MethodPost)
	protected.HandleFunc("/{id}", app.threads.DeleteThread).Methods(http.MethodDelete)
	protected.HandleFunc("/{id}/messages", app.threads.GetMessages).Methods(http.MethodGet)
	protected.HandleFunc("/{id}/messages", app.threads.AddMessage).Methods(http.MethodPost)
	protected.HandleFunc("/{id}/reply", app.threads.Reply).Methods(http.MethodPost)
	protected.HandleFunc("/{id}/transcript", app.threads.Transcript).Methods(http.MethodGet)
}

func (app *application) close() {
	app.limiter.Close()
}
