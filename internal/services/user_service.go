package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/vaughan-dsouza/BeSocial/internal/media"
	"github.com/vaughan-dsouza/BeSocial/internal/models"
	"github.com/vaughan-dsouza/BeSocial/internal/repository"
)

// UserServiceProvider defines the interface for profile and friend operations.
type UserServiceProvider interface {
	GetUser(ctx context.Context, viewerID, id string) (models.User, error)
	GetFriends(ctx context.Context, id string) ([]models.Friend, error)
	ToggleFriend(ctx context.Context, callerID, id, friendID string) ([]models.Friend, error)
	UpdatePicture(ctx context.Context, callerID, id string, picture media.Image) (models.User, error)
}

type UserService struct {
	users  repository.UserRepository
	images media.Store
}

func NewUserService(users repository.UserRepository, images media.Store) *UserService {
	return &UserService{users: users, images: images}
}

// GetUser returns a profile. Views by anyone but the owner are counted.
func (s *UserService) GetUser(ctx context.Context, viewerID, id string) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, userErr(err)
	}

	if viewerID != "" && viewerID != id {
		if err := s.users.AddCounters(ctx, id, 1, 0); err != nil {
			log.Warn().Err(err).Str("user_id", id).Msg("failed to count profile view")
		} else {
			user.ViewedProfile++
		}
	}

	user.Password = ""
	return user, nil
}

func (s *UserService) GetFriends(ctx context.Context, id string) ([]models.Friend, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userErr(err)
	}
	return s.friendsOf(ctx, user)
}

// ToggleFriend adds friendID to id's friends, or removes it if already there.
// Both sides of the relation change together. Only the owner may edit their list.
func (s *UserService) ToggleFriend(ctx context.Context, callerID, id, friendID string) ([]models.Friend, error) {
	if callerID != id {
		return nil, ErrForbidden
	}
	if id == friendID {
		return nil, ErrSelfFriend
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userErr(err)
	}
	if _, err := s.users.GetByID(ctx, friendID); err != nil {
		return nil, userErr(err)
	}

	if user.HasFriend(friendID) {
		err = s.users.RemoveFriend(ctx, id, friendID)
	} else {
		err = s.users.AddFriend(ctx, id, friendID)
	}
	if err != nil {
		return nil, userErr(err)
	}

	user, err = s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userErr(err)
	}
	return s.friendsOf(ctx, user)
}

// UpdatePicture replaces the profile picture, then removes the old one from
// the image store on a best-effort basis.
func (s *UserService) UpdatePicture(ctx context.Context, callerID, id string, picture media.Image) (models.User, error) {
	if callerID != id {
		return models.User{}, ErrForbidden
	}
	if picture.URL == "" {
		return models.User{}, ErrPictureRequired
	}

	old, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, userErr(err)
	}
	user, err := s.users.UpdatePicture(ctx, id, picture.URL, picture.PublicID)
	if err != nil {
		return models.User{}, userErr(err)
	}

	if old.PicturePublicID != "" && old.PicturePublicID != picture.PublicID && s.images != nil {
		if err := s.images.Delete(ctx, old.PicturePublicID); err != nil {
			log.Warn().Err(err).Str("public_id", old.PicturePublicID).Msg("failed to delete old profile picture")
		}
	}

	user.Password = ""
	return user, nil
}

func (s *UserService) friendsOf(ctx context.Context, user models.User) ([]models.Friend, error) {
	friends, err := s.users.ListByIDs(ctx, user.Friends)
	if err != nil {
		return nil, err
	}
	out := make([]models.Friend, 0, len(friends))
	for _, f := range friends {
		out = append(out, f.AsFriend())
	}
	return out, nil
}

func userErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
