package web

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/nasermirzaei89/snapfeed/contents"
	"github.com/nasermirzaei89/snapfeed/discuss"
	"github.com/nasermirzaei89/snapfeed/feed"
	"github.com/nasermirzaei89/snapfeed/identity"
	"github.com/nasermirzaei89/snapfeed/reactions"
	"github.com/nasermirzaei89/snapfeed/saved"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handler struct {
	router       chi.Router
	handler      http.Handler
	feed         *feed.Feed
	contentsSvc  *contents.Service
	discussSvc   *discuss.Service
	toggler      *reactions.Toggler
	savedManager *saved.Manager
	cookieStore  sessions.Store
	sessionName  string
	identities   *identity.Watcher

	sessionHandOff bool
}

var _ http.Handler = (*Handler)(nil)

type HandlerOption func(h *Handler)

// WithSessionHandOff exposes PUT /session, which signs in whatever identity
// the request carries. It must only be enabled for local development.
func WithSessionHandOff() HandlerOption {
	return func(h *Handler) {
		h.sessionHandOff = true
	}
}

func NewHandler(
	postFeed *feed.Feed,
	contentsSvc *contents.Service,
	discussSvc *discuss.Service,
	toggler *reactions.Toggler,
	savedManager *saved.Manager,
	cookieStore sessions.Store,
	sessionName string,
	identities *identity.Watcher,
	opts ...HandlerOption,
) *Handler {
	if identities == nil {
		identities = identity.NewWatcher()
	}

	h := &Handler{
		feed:         postFeed,
		contentsSvc:  contentsSvc,
		discussSvc:   discussSvc,
		toggler:      toggler,
		savedManager: savedManager,
		cookieStore:  cookieStore,
		sessionName:  sessionName,
		identities:   identities,
	}

	for _, opt := range opts {
		opt(h)
	}

	{
		router := chi.NewRouter()
		router.Use(middleware.RequestID)
		router.Use(middleware.RealIP)
		router.Use(recoverMiddleware)
		router.Use(h.identityMiddleware)

		h.router = router
		h.registerRoutes()
	}

	h.handler = otelhttp.NewHandler(h.router, "snapfeed", otelhttp.WithSpanNameFormatter(
		func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		},
	))

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.Get("/healthz", h.HandleHealth)

	if h.sessionHandOff {
		h.router.Put("/session", h.HandleSignIn)
	}

	h.router.Delete("/session", h.HandleSignOut)

	h.router.Route("/api", func(r chi.Router) {
		r.Get("/feed", h.HandleFeed)
		r.Get("/posts/{postID}", h.HandleGetPost)
		r.Get("/posts/{postID}/comments", h.HandleListComments)

		r.Group(func(r chi.Router) {
			r.Use(signedInOnly)

			r.Post("/posts", h.HandleCreatePost)
			r.Delete("/posts/{postID}", h.HandleDeletePost)
			r.Post("/posts/{postID}/comments", h.HandleCreateComment)
			r.Post("/posts/{postID}/like", h.HandleToggleLike)
			r.Put("/posts/{postID}/save", h.HandleSave)
			r.Delete("/posts/{postID}/save", h.HandleUnsave)

			r.Get("/users/me/posts", h.HandleMyPosts)
			r.Get("/users/me/saved", h.HandleListSaved)
			r.Post("/users/me/saved/reconcile", h.HandleReconcileSaved)
		})
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			if err := recover(); err != nil {
				slog.ErrorContext(
					ctx,
					"recovered from panic",
					"error",
					err,
					"stack",
					string(debug.Stack()),
				)

				writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: "internal error occurred"})
			}
		}(r.Context())

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
