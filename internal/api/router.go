package api

import (
	"net/http"

	"github.com/UkralStul/blog-platform/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Broadcaster рассылает событие всем, кто смотрит пост.
type Broadcaster interface {
	Broadcast(postID, event string, data interface{}) int
}

type Options struct {
	Service        *service.Service
	Logger         *zap.Logger
	AllowedOrigins []string
	// Loaders добавляет в каждый запрос свои лоадеры авторов.
	Loaders func(http.Handler) http.Handler
	// Presence обслуживает websocket и получает события commentAdded.
	Presence interface {
		http.Handler
		Broadcaster
	}
}

type handler struct {
	svc    *service.Service
	events Broadcaster
	logger *zap.Logger
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string, string, interface{}) int { return 0 }

func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{svc: opts.Service, events: noopBroadcaster{}, logger: logger}
	if opts.Presence != nil {
		h.events = opts.Presence
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if opts.Loaders != nil {
		r.Use(opts.Loaders)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{"message": "Welcome to Blog Platform API"})
	})
	if opts.Presence != nil {
		r.Handle("/ws", opts.Presence)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.With(h.RequireAuth).Get("/me", h.me)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", h.listPosts)
			r.Get("/{id}", h.getPost)
			r.Group(func(r chi.Router) {
				r.Use(h.RequireAuth)
				r.Post("/", h.createPost)
				r.Put("/{id}", h.updatePost)
				r.Delete("/{id}", h.deletePost)
				r.Put("/{id}/like", h.likePost)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.Get("/post/{postId}", h.listComments)
			r.Group(func(r chi.Router) {
				r.Use(h.RequireAuth)
				r.Post("/", h.createComment)
				r.Put("/{id}", h.updateComment)
				r.Delete("/{id}", h.deleteComment)
				r.Put("/{id}/like", h.likeComment)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/profile/{username}", h.getProfile)
			r.Get("/posts/{username}", h.listUserPosts)
			r.With(h.RequireAuth).Put("/profile", h.updateProfile)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusNotFound, envelope{Success: false, Message: "route not found", Error: "NotFound"})
	})

	return r
}
