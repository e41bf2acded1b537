package models

import "time"

type Post struct {
	ID              string          `db:"id" json:"_id"`
	UserID          string          `db:"user_id" json:"userId"`
	FirstName       string          `db:"first_name" json:"firstName"`
	LastName        string          `db:"last_name" json:"lastName"`
	Location        string          `db:"location" json:"location"`
	Description     string          `db:"description" json:"description"`
	PicturePath     string          `db:"picture_path" json:"picturePath"`
	PicturePublicID string          `db:"picture_public_id" json:"-"`
	UserPicturePath string          `db:"user_picture_path" json:"userPicturePath"`
	Likes           map[string]bool `db:"-" json:"likes"`
	Comments        []string        `db:"-" json:"comments"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// LikedBy reports whether userID currently likes the post.
func (p Post) LikedBy(userID string) bool {
	return p.Likes[userID]
}
