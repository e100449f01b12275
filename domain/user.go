package domain

import (
	"context"
)

// User represents an account of the app. Users don't log in, they are created
// by an administrator (see the "users" cli commands) and identify themselves
// on every request with their APIKey.
// A user owns tweets, likes and both directions of follow relationships.
// Deleting a user cascades to all of them.
type User struct {
	ID        int     `json:"id"`
	Nickname  string  `json:"name" gorm:"not null;uniqueIndex;check:nickname_length,length(nickname) >= 5 AND length(nickname) <= 20"`
	FirstName *string `json:"first_name,omitempty" gorm:"check:first_name_length,length(first_name) >= 1 AND length(first_name) <= 100"`
	LastName  *string `json:"last_name,omitempty" gorm:"check:last_name_length,length(last_name) >= 1 AND length(last_name) <= 100"`
	APIKey    string  `json:"-" gorm:"column:api_key;not null;uniqueIndex;check:api_key_length,length(api_key) >= 30 AND length(api_key) <= 256"`

	Tweets     []Tweet    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Likes      []Like     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Followers  []Follower `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Followings []Follower `json:"-" gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE"`
}

// TableName overrides gorm's default table name.
func (User) TableName() string {
	return "users"
}

// UserFilter narrows down and paginates user listings.
// An empty Search matches every user.
type UserFilter struct {
	Search string
	Page   Page
}

// UserService is a set of methods to manipulate and work with the User model.
type UserService interface {
	ByID(ctx context.Context, id int) (*User, error)
	ByAPIKey(ctx context.Context, key string) (*User, error)
	ByNickname(ctx context.Context, nickname string) (*User, error)
	Profile(ctx context.Context, id int) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	RenewAPIKey(ctx context.Context, user *User) error
	Delete(ctx context.Context, user *User) error
}
