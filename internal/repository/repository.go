// Package repository persists users and posts. Three backends share the same
// interfaces: MongoDB, PostgreSQL and an in-memory store used in development
// and tests.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vaughan-dsouza/BeSocial/internal/db"
	"github.com/vaughan-dsouza/BeSocial/internal/models"
)

var (
	ErrNotFound  = errors.New("repository: not found")
	ErrDuplicate = errors.New("repository: duplicate")
)

type UserRepository interface {
	// Create assigns ID and timestamps. ErrDuplicate when the e-mail is taken.
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	// ListByIDs returns the users that exist, in the order of ids.
	ListByIDs(ctx context.Context, ids []string) ([]models.User, error)
	// AddFriend and RemoveFriend update both sides of the relation.
	AddFriend(ctx context.Context, userID, friendID string) error
	RemoveFriend(ctx context.Context, userID, friendID string) error
	UpdatePicture(ctx context.Context, id, picturePath, publicID string) (models.User, error)
	AddCounters(ctx context.Context, id string, views, impressions int64) error
}

type PostRepository interface {
	Create(ctx context.Context, p *models.Post) error
	GetByID(ctx context.Context, id string) (models.Post, error)
	// List returns every post, newest first.
	List(ctx context.Context) ([]models.Post, error)
	ListByUser(ctx context.Context, userID string) ([]models.Post, error)
	// SetLike reports whether the like state actually changed.
	SetLike(ctx context.Context, postID, userID string, liked bool) (models.Post, bool, error)
	AddComment(ctx context.Context, postID, comment string) (models.Post, error)
	UpdateDescription(ctx context.Context, postID, description string) (models.Post, error)
	Delete(ctx context.Context, postID string) error
}

// Repositories bundles the backend selected at startup.
type Repositories struct {
	Users   UserRepository
	Posts   PostRepository
	Backend string

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

func (r *Repositories) Ping(ctx context.Context) error {
	if r.ping == nil {
		return nil
	}
	return r.ping(ctx)
}

func (r *Repositories) Close(ctx context.Context) error {
	if r.close == nil {
		return nil
	}
	return r.close(ctx)
}

// Options configure Open.
type Options struct {
	// MongoDatabase overrides the database name in a mongodb:// URL.
	MongoDatabase string
	Pool          db.PoolConfig
}

// Open connects to the backend named by the URL scheme:
// mongodb:// and mongodb+srv:// (MongoDB), postgres:// and postgresql://
// (PostgreSQL, migrations applied), memory:// (in-process).
func Open(ctx context.Context, url string, opts Options) (*Repositories, error) {
	switch {
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		database, err := db.ConnectMongo(ctx, url, opts.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return NewMongo(ctx, database)

	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		sqlDB, err := db.ConnectPostgres(ctx, url, opts.Pool)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, url); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return NewPostgres(sqlDB), nil

	case strings.HasPrefix(url, "memory://"):
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("repository: unsupported database URL scheme in %q", redact(url))
}

// redact hides credentials before a URL ends up in an error message.
func redact(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return "<invalid>"
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***@" + rest[at+1:]
	}
	return scheme + "://" + rest
}
