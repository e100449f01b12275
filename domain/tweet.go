package domain

import (
	"context"
	"time"
)

const (
	// ContentMaxLength is the maximum number of characters of a tweet.
	// Longer content gets truncated to this length.
	ContentMaxLength = 280
	// MaxTweetMedias is the maximum number of medias attached to one tweet.
	MaxTweetMedias = 10
)

// Tweet is a short text post by a User. Its Medias are attached when the
// tweet is created, and it collects Likes of other users (or its author).
// Deleting a tweet cascades to its medias and likes.
type Tweet struct {
	ID       int       `json:"id"`
	UserID   int       `json:"user_id" gorm:"not null;index"`
	User     User      `json:"-"`
	Content  string    `json:"content" gorm:"type:varchar(280);not null;check:content_length,length(content) >= 1"`
	PostedAt time.Time `json:"posted_at" gorm:"not null;autoCreateTime;index"`

	Medias []TweetMedia `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Likes  []Like       `json:"-" gorm:"constraint:OnDelete:CASCADE"`

	// LikeCount is only filled in by the feed query.
	LikeCount int `json:"-" gorm:"->;-:migration"`
}

// TableName overrides gorm's default table name.
func (Tweet) TableName() string {
	return "tweets"
}

// DeleteResult tells apart the two successful outcomes of an idempotent delete.
type DeleteResult int

const (
	// Deleted means the record existed and has been removed.
	Deleted DeleteResult = iota
	// AlreadyAbsent means there was nothing to remove.
	AlreadyAbsent
)

// Page selects a slice of a sorted result. The zero Page selects everything.
type Page struct {
	Number int
	Size   int
}

// Paginated reports whether the Page actually limits the result.
func (p Page) Paginated() bool {
	return p.Number > 0 && p.Size > 0
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// TweetService is a set of methods to manipulate and work with the Tweet model.
type TweetService interface {
	ByID(ctx context.Context, id int) (*Tweet, error)
	Create(ctx context.Context, tweet *Tweet, mediaIDs []int) error
	Delete(ctx context.Context, id int, user *User) (DeleteResult, error)
	Feed(ctx context.Context, user *User, page Page) ([]Tweet, error)
}
