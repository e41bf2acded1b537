package server

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vaughan-dsouza/BeSocial/internal/handlers"
	"github.com/vaughan-dsouza/BeSocial/internal/media"
	"github.com/vaughan-dsouza/BeSocial/internal/middleware"
)

type RouterConfig struct {
	JWTSecret    string
	MaxBodyBytes int64
	CORSOrigins  []string
	AssetsDir    string
	UploadFolder string
}

// NewRouter wires the middleware chain and every route.
func NewRouter(cfg RouterConfig, h *handlers.Handler, images media.Store) *chi.Mux {
	r := chi.NewRouter()

	// Order matters: IDs and recovery first, then limits, headers, logging, CORS.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestSize(cfg.MaxBodyBytes))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	if cfg.AssetsDir != "" {
		if _, err := os.Stat(cfg.AssetsDir); err == nil {
			r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(cfg.AssetsDir))))
		}
	}

	r.Get("/healthz", h.Health.Healthz)

	auth := middleware.Auth(cfg.JWTSecret)
	upload := func(required bool) func(http.Handler) http.Handler {
		return middleware.SingleUpload(middleware.UploadOptions{
			Store:    images,
			Folder:   cfg.UploadFolder,
			Field:    "picture",
			Required: required,
		})
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(upload(false)).Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(auth)
		r.With(middleware.SelfOnly("id"), upload(true)).Put("/{id}/picture", h.Users.UpdatePicture)
		r.Get("/{id}", h.Users.GetUser)
		r.Get("/{id}/friends", h.Users.GetUserFriends)
		r.Patch("/{id}/{friendId}", h.Users.AddRemoveFriend)
	})

	r.Route("/posts", func(r chi.Router) {
		r.Use(auth)
		r.With(upload(true)).Post("/", h.Posts.CreatePost)
		r.Get("/", h.Posts.GetFeedPosts)
		r.Get("/{id}", h.Posts.GetPostByID)
		r.Get("/{id}/posts", h.Posts.GetUserPosts)
		r.Put("/{id}", h.Posts.UpdatePost)
		r.Delete("/{id}", h.Posts.DeletePost)
		r.Patch("/{id}/like", h.Posts.LikePost)
		r.Post("/{id}/comments", h.Posts.CommentPost)
	})

	return r
}
