package handlers

import (
	"context"

	"github.com/vaughan-dsouza/BeSocial/internal/services"
)

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Auth   *AuthHandler
	Users  *UserHandler
	Posts  *PostHandler
	Health *HealthHandler
}

func NewHandler(
	auth services.AuthServiceProvider,
	users services.UserServiceProvider,
	posts services.PostServiceProvider,
	db Pinger,
) *Handler {
	return &Handler{
		Auth:   NewAuthHandler(auth),
		Users:  NewUserHandler(users),
		Posts:  NewPostHandler(posts),
		Health: NewHealthHandler(db),
	}
}
