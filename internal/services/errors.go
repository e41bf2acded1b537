package services

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user does not exist")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPostNotFound       = errors.New("post not found")
	ErrForbidden          = errors.New("forbidden")
	ErrSelfFriend         = errors.New("cannot befriend yourself")
	ErrPictureRequired    = errors.New("picture is required")
)
