package domain

import (
	"context"
	"time"
)

// TweetMedia is the metadata record of an uploaded file. The file itself lives
// in a MediaStore under RelURI. A TweetMedia is unattached (TweetID is nil)
// right after the upload, and gets bound to a tweet when that tweet is created
// with the media's ID.
type TweetMedia struct {
	ID         int       `json:"id"`
	RelURI     string    `json:"-" gorm:"column:rel_uri;not null;check:rel_uri_length,length(rel_uri) >= 1"`
	UploadedAt time.Time `json:"uploaded_at" gorm:"not null;autoCreateTime"`
	TweetID    *int      `json:"tweet_id" gorm:"index"`
}

// TableName overrides gorm's default table name.
func (TweetMedia) TableName() string {
	return "tweet_medias"
}

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

// MediaService is a set of methods to manipulate and work with the TweetMedia model
// and the respective files.
type MediaService interface {
	Upload(ctx context.Context, user *User, upload *Upload) (*TweetMedia, error)
	URL(media TweetMedia) string
}

// MediaStore stores media files by key. Keys are slash separated relative paths.
// Deleting a key that doesn't exist is not an error.
type MediaStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
