package domain

import (
	"context"
)

// Follower represents a self-referential many-to-many relationship between two users.
// A Follower is created when one user decides to follow another user.
// The UserID is the ID of the user that is being followed, and the FollowerID is the ID
// of the user that follows. Nobody can follow themselves.
type Follower struct {
	ID         int  `json:"id"`
	UserID     int  `json:"user_id" gorm:"not null;uniqueIndex:unique_following"`
	User       User `json:"-" gorm:"foreignKey:UserID"`
	FollowerID int  `json:"follower_id" gorm:"not null;uniqueIndex:unique_following;index;check:user_and_follower_not_equal,user_id <> follower_id"`
	Follower   User `json:"-" gorm:"foreignKey:FollowerID"`
}

// TableName overrides gorm's default table name.
func (Follower) TableName() string {
	return "followers"
}

// FollowService is a set of methods to manipulate and work with the Follower model.
type FollowService interface {
	// Create reports whether a new Follower has been stored. Following an
	// already followed user is not an error.
	Create(ctx context.Context, follow *Follower) (bool, error)
	Delete(ctx context.Context, follow *Follower) error
	Exists(ctx context.Context, follow *Follower) (bool, error)
}
