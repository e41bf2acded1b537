package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/vaughan-dsouza/BeSocial/internal/media"
	"github.com/vaughan-dsouza/BeSocial/internal/models"
	"github.com/vaughan-dsouza/BeSocial/internal/repository"
)

// PostServiceProvider defines the interface for post operations.
type PostServiceProvider interface {
	Create(ctx context.Context, authorID, description string, picture media.Image) ([]models.Post, error)
	Feed(ctx context.Context) ([]models.Post, error)
	UserPosts(ctx context.Context, userID string) ([]models.Post, error)
	Get(ctx context.Context, id string) (models.Post, error)
	ToggleLike(ctx context.Context, postID, userID string) (models.Post, error)
	Comment(ctx context.Context, postID, userID, comment string) (models.Post, error)
	UpdateDescription(ctx context.Context, postID, callerID, description string) (models.Post, error)
	Delete(ctx context.Context, postID, callerID string) error
}

type PostService struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	images media.Store
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository, images media.Store) *PostService {
	return &PostService{posts: posts, users: users, images: images}
}

// Create stores a post with the author's name, location and picture copied in,
// and returns the whole feed.
func (s *PostService) Create(ctx context.Context, authorID, description string, picture media.Image) ([]models.Post, error) {
	if picture.URL == "" {
		return nil, ErrPictureRequired
	}

	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return nil, userErr(err)
	}

	post := models.Post{
		UserID:          author.ID,
		FirstName:       author.FirstName,
		LastName:        author.LastName,
		Location:        author.Location,
		Description:     strings.TrimSpace(description),
		PicturePath:     picture.URL,
		PicturePublicID: picture.PublicID,
		UserPicturePath: author.PicturePath,
		Likes:           map[string]bool{},
		Comments:        []string{},
	}
	if err := s.posts.Create(ctx, &post); err != nil {
		return nil, err
	}

	log.Info().Str("post_id", post.ID).Str("user_id", author.ID).Msg("post created")
	return s.posts.List(ctx)
}

func (s *PostService) Feed(ctx context.Context) ([]models.Post, error) {
	return s.posts.List(ctx)
}

func (s *PostService) UserPosts(ctx context.Context, userID string) ([]models.Post, error) {
	return s.posts.ListByUser(ctx, userID)
}

func (s *PostService) Get(ctx context.Context, id string) (models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	return post, postErr(err)
}

// ToggleLike flips userID's like and moves the author's impressions with it.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID string) (models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return models.Post{}, postErr(err)
	}

	liked := !post.LikedBy(userID)
	updated, changed, err := s.posts.SetLike(ctx, postID, userID, liked)
	if err != nil {
		return models.Post{}, postErr(err)
	}
	if !changed {
		// A concurrent toggle already moved the like; its counter update stands.
		return updated, nil
	}

	delta := int64(1)
	if !liked {
		delta = -1
	}
	if err := s.users.AddCounters(ctx, post.UserID, 0, delta); err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Warn().Err(err).Str("user_id", post.UserID).Msg("failed to update impressions")
	}
	return updated, nil
}

func (s *PostService) Comment(ctx context.Context, postID, userID, comment string) (models.Post, error) {
	post, err := s.posts.AddComment(ctx, postID, strings.TrimSpace(comment))
	if err != nil {
		return models.Post{}, postErr(err)
	}
	log.Debug().Str("post_id", postID).Str("user_id", userID).Msg("comment added")
	return post, nil
}

func (s *PostService) UpdateDescription(ctx context.Context, postID, callerID, description string) (models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return models.Post{}, postErr(err)
	}
	if post.UserID != callerID {
		return models.Post{}, ErrForbidden
	}
	updated, err := s.posts.UpdateDescription(ctx, postID, strings.TrimSpace(description))
	return updated, postErr(err)
}

// Delete removes the post, then its picture on a best-effort basis.
func (s *PostService) Delete(ctx context.Context, postID, callerID string) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return postErr(err)
	}
	if post.UserID != callerID {
		return ErrForbidden
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return postErr(err)
	}

	if post.PicturePublicID != "" && s.images != nil {
		if err := s.images.Delete(ctx, post.PicturePublicID); err != nil {
			log.Warn().Err(err).Str("public_id", post.PicturePublicID).Msg("failed to delete post picture")
		}
	}
	return nil
}

func postErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPostNotFound
	}
	return err
}
