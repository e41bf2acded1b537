package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vaughan-dsouza/BeSocial/internal/models"
	"github.com/vaughan-dsouza/BeSocial/internal/repository"
	"github.com/vaughan-dsouza/BeSocial/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// AuthServiceProvider defines the interface for registration and login.
type AuthServiceProvider interface {
	Register(ctx context.Context, in RegisterInput) (models.User, error)
	Login(ctx context.Context, email, password string) (LoginResult, error)
}

type RegisterInput struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	PicturePath     string
	PicturePublicID string
	Location        string
	Occupation      string
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expiresAt"`
	User      models.User `json:"user"`
}

// AuthService hashes passwords and issues access tokens.
type AuthService struct {
	users  repository.UserRepository
	secret string
	ttl    string
	cost   int
}

func NewAuthService(users repository.UserRepository, secret, ttl string) *AuthService {
	return &AuthService{users: users, secret: secret, ttl: ttl, cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost (tests use bcrypt.MinCost).
func (s *AuthService) WithCost(cost int) *AuthService {
	s.cost = cost
	return s
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		Email:           normalizeEmail(in.Email),
		Password:        string(hash),
		PicturePath:     in.PicturePath,
		PicturePublicID: in.PicturePublicID,
		Friends:         []string{},
		Location:        strings.TrimSpace(in.Location),
		Occupation:      strings.TrimSpace(in.Occupation),
	}

	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}

	user.Password = ""
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return LoginResult{}, ErrUserNotFound
	}
	if err != nil {
		return LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, exp, err := utils.GenerateToken(user.ID, user.Email, s.secret, s.ttl)
	if err != nil {
		return LoginResult{}, fmt.Errorf("token error: %w", err)
	}

	user.Password = ""
	return LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
