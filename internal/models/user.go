package models

import "time"

type User struct {
	ID              string    `db:"id" json:"_id"`
	FirstName       string    `db:"first_name" json:"firstName"`
	LastName        string    `db:"last_name" json:"lastName"`
	Email           string    `db:"email" json:"email"`
	Password        string    `db:"password_hash" json:"-"`
	PicturePath     string    `db:"picture_path" json:"picturePath"`
	PicturePublicID string    `db:"picture_public_id" json:"-"`
	Friends         []string  `db:"-" json:"friends"`
	Location        string    `db:"location" json:"location"`
	Occupation      string    `db:"occupation" json:"occupation"`
	ViewedProfile   int64     `db:"viewed_profile" json:"viewedProfile"`
	Impressions     int64     `db:"impressions" json:"impressions"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// HasFriend reports whether id is in the user's friend list.
func (u User) HasFriend(id string) bool {
	for _, f := range u.Friends {
		if f == id {
			return true
		}
	}
	return false
}

// Friend is the public card shown in friend lists.
type Friend struct {
	ID          string `json:"_id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Occupation  string `json:"occupation"`
	Location    string `json:"location"`
	PicturePath string `json:"picturePath"`
}

func (u User) AsFriend() Friend {
	return Friend{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Occupation:  u.Occupation,
		Location:    u.Location,
		PicturePath: u.PicturePath,
	}
}
