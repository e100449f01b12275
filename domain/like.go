package domain

import (
	"context"
)

// Like represents a many-to-many relationship between a User and a Tweet.
// A Like is created when a user decides to like a tweet. It's destroyed when
// a user decides to unlike a previously liked tweet, or when the tweet gets deleted.
// A user can like a tweet only once (their own tweets included).
type Like struct {
	ID      int  `json:"id"`
	TweetID int  `json:"tweet_id" gorm:"not null;uniqueIndex:unique_like"`
	UserID  int  `json:"user_id" gorm:"not null;uniqueIndex:unique_like;index"`
	User    User `json:"-"`
}

// TableName overrides gorm's default table name.
func (Like) TableName() string {
	return "likes"
}

// LikeService is a set of methods to manipulate and work with the Like model.
type LikeService interface {
	// Create reports whether a new Like has been stored. Liking an already
	// liked tweet is not an error.
	Create(ctx context.Context, like *Like) (bool, error)
	Delete(ctx context.Context, like *Like) error
}
