package snapfeed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gorilla/sessions"
	"github.com/nasermirzaei89/env"
	"github.com/nasermirzaei89/snapfeed/contents"
	"github.com/nasermirzaei89/snapfeed/database/redis"
	"github.com/nasermirzaei89/snapfeed/database/sqlite3"
	"github.com/nasermirzaei89/snapfeed/discuss"
	eventbroker "github.com/nasermirzaei89/snapfeed/eventbroker/nats"
	"github.com/nasermirzaei89/snapfeed/feed"
	"github.com/nasermirzaei89/snapfeed/identity"
	"github.com/nasermirzaei89/snapfeed/notify"
	"github.com/nasermirzaei89/snapfeed/random"
	"github.com/nasermirzaei89/snapfeed/reactions"
	"github.com/nasermirzaei89/snapfeed/saved"
	"github.com/nasermirzaei89/snapfeed/server"
	"github.com/nasermirzaei89/snapfeed/web"
)

type App struct {
	server  *server.Server
	handler *web.Handler
	db      *sql.DB
	closers []func(ctx context.Context) error
}

func NewApp(ctx context.Context) (_ *App, err error) {
	app := &App{}

	defer func() {
		if err != nil {
			app.close(ctx)
		}
	}()

	shutdownTracer, err := initTracer(ctx, env.GetString("OTEL_EXPORTER_OTLP_ENDPOINT", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to init tracer: %w", err)
	}

	app.closers = append(app.closers, shutdownTracer)

	db, err := sqlite3.NewDB(ctx, env.GetString("DB_DSN", "file::memory:?cache=shared"))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	app.db = db

	err = sqlite3.MigrateUp(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	postRepo := sqlite3.NewPostRepository(db)
	commentRepo := sqlite3.NewCommentRepository(db)
	savedPostRepo := sqlite3.NewSavedPostRepository(db)

	publisher, err := app.newPublisher()
	if err != nil {
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	guard, err := app.newGuard(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create like guard: %w", err)
	}

	notifier := notify.NewLogger(slog.Default())

	contentsSvc := contents.NewService(postRepo, publisher)
	discussSvc := discuss.NewService(commentRepo, contentsSvc)
	toggler := reactions.NewToggler(postRepo, guard, notifier)
	savedManager := saved.NewManager(postRepo, savedPostRepo, sqlite3.NewTransactor(db))
	postFeed := feed.New(contentsSvc, feed.WithPageSize(getPageSizeFromEnv()))

	cookieStore, sessionName, err := newCookieStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie store: %w", err)
	}

	app.handler = web.NewHandler(
		postFeed,
		contentsSvc,
		discussSvc,
		toggler,
		savedManager,
		cookieStore,
		sessionName,
		app.newIdentityWatcher(ctx),
		handlerOptions()...,
	)
	app.server = newServer()

	return app, nil
}

func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer app.close(ctx)

	err := app.server.Run(ctx, app.handler)
	if err != nil {
		return fmt.Errorf("failed to run server: %w", err)
	}

	return nil
}

func (app *App) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	for i := len(app.closers) - 1; i >= 0; i-- {
		err := app.closers[i](ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to close resource", "error", err)
		}
	}

	if app.db != nil {
		err := app.db.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close database", "error", err)
		}
	}
}

func (app *App) newPublisher() (contents.EventPublisher, error) {
	url := env.GetString("NATS_URL", "")
	if url == "" {
		slog.Info("NATS_URL not set, post events are not published")

		return contents.NopPublisher{}, nil
	}

	nc, err := eventbroker.Connect(url)
	if err != nil {
		return nil, err
	}

	app.closers = append(app.closers, func(context.Context) error {
		return nc.Drain()
	})

	return eventbroker.NewPublisher(nc), nil
}

func (app *App) newGuard(ctx context.Context) (reactions.Guard, error) {
	if env.GetString("LIKE_GUARD", "") == "none" {
		return reactions.NopGuard{}, nil
	}

	addr := env.GetString("REDIS_ADDR", "")
	if addr == "" {
		return reactions.NewLocalGuard(), nil
	}

	client, err := redis.NewClient(ctx, addr)
	if err != nil {
		return nil, err
	}

	app.closers = append(app.closers, func(context.Context) error {
		return client.Close()
	})

	return redis.NewGuard(client), nil
}

// newIdentityWatcher logs provider hand-offs. The subscription lives as long
// as the app.
func (app *App) newIdentityWatcher(ctx context.Context) *identity.Watcher {
	watcher := identity.NewWatcher()

	unsubscribe := watcher.Subscribe(func(state identity.State, id *identity.Identity) {
		if id != nil {
			slog.InfoContext(ctx, "identity changed", "state", state.String(), "userId", id.UserID)

			return
		}

		slog.InfoContext(ctx, "identity changed", "state", state.String())
	})

	app.closers = append(app.closers, func(context.Context) error {
		unsubscribe()

		return nil
	})

	return watcher
}

func handlerOptions() []web.HandlerOption {
	if env.GetString("APP_ENV", "") != "local" {
		return nil
	}

	slog.Warn("session hand-off endpoint enabled, any caller can sign in as any user")

	return []web.HandlerOption{web.WithSessionHandOff()}
}

func newCookieStore() (*sessions.CookieStore, string, error) {
	suffix, err := random.String(4)
	if err != nil {
		return nil, "", err
	}

	sessionName := env.GetString("SESSION_NAME", "snapfeed-"+suffix)

	sessionKey := env.GetString("SESSION_KEY", "")
	if sessionKey == "" {
		slog.Warn("SESSION_KEY not set, sessions will not survive a restart")

		sessionKey, err = random.String(32)
		if err != nil {
			return nil, "", err
		}
	}

	cookieStore := sessions.NewCookieStore([]byte(sessionKey))
	cookieStore.Options.HttpOnly = true
	cookieStore.Options.SameSite = http.SameSiteLaxMode

	return cookieStore, sessionName, nil
}

func newServer() *server.Server {
	server := &server.Server{
		Port: env.GetString("PORT", server.DefaultPort),
		Host: env.GetString("HOST", ""),
		TLS: server.ServerTLS{
			Enabled: env.GetBool("TLS_ENABLED", false),
			Mode:    env.GetString("TLS_MODE", server.DefaultTLSMode),
			AutoCert: &server.ServerTLSAutoCert{
				CacheDir: env.GetString("TLS_AUTOCERT_CACHE_DIR", "./cert-cache"),
				Domains:  env.GetStringSlice("TLS_AUTOCERT_DOMAINS", []string{}),
				Email:    env.GetString("TLS_AUTOCERT_EMAIL", ""),
			},
			CertFile: env.GetString("TLS_CERT_FILE", ""),
			KeyFile:  env.GetString("TLS_KEY_FILE", ""),
		},
	}

	return server
}

func getPageSizeFromEnv() int {
	value := env.GetString("FEED_PAGE_SIZE", strconv.Itoa(feed.DefaultPageSize))

	size, err := strconv.Atoi(value)
	if err != nil || size < 1 || size > feed.MaxPageSize {
		slog.Warn("invalid feed page size, using default", "value", value, "default", feed.DefaultPageSize)

		return feed.DefaultPageSize
	}

	return size
}

func GetLogLevelFromEnv() slog.Level {
	levelStr := env.GetString("LOG_LEVEL", "info")
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("unknown log level, defaulting to info", "level", levelStr)

		return slog.LevelInfo
	}
}

// NewLogger logs text when APP_ENV is local and JSON otherwise.
func NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: GetLogLevelFromEnv()}

	if env.GetString("APP_ENV", "") == "local" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
