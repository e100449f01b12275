package crud

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tweetty/domain"
	"tweetty/errs"
)

// TweetService manages Tweets.
// It implements the domain.TweetService interface.
type TweetService struct {
	tweetValidator
}

// tweetValidator runs validations on incoming Tweet data.
// On success, it passes the data on to tweetGorm.
// Otherwise, it returns the error of the validation that has failed.
type tweetValidator struct {
	tweetGorm
}

// tweetGorm runs CRUD operations on the database using incoming Tweet data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type tweetGorm struct {
	db    *gorm.DB
	store domain.MediaStore
}

// NewTweetService returns an instance of TweetService.
func NewTweetService(db *gorm.DB, store domain.MediaStore) *TweetService {
	return &TweetService{
		tweetValidator{
			tweetGorm{
				db:    db,
				store: store,
			},
		},
	}
}

// Ensure the TweetService struct properly implements the domain.TweetService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.TweetService = &TweetService{}

// Create runs validations needed for creating new Tweet database records.
func (tv *tweetValidator) Create(ctx context.Context, tweet *domain.Tweet, mediaIDs []int) error {
	err := runTweetValFns(tweet,
		tv.userIdValid,
		tv.contentNormalize,
		tv.contentMinLength,
		tv.contentMaxLength)
	if err != nil {
		return err
	}
	if err := mediaIDsValid(mediaIDs); err != nil {
		return err
	}
	return tv.tweetGorm.Create(ctx, tweet, mediaIDs)
}

// runTweetValFns runs any number of functions of type tweetValFn on the passed in Tweet object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runTweetValFns(tweet *domain.Tweet, fns ...tweetValFn) error {
	for _, fn := range fns {
		if err := fn(tweet); err != nil {
			return err
		}
	}
	return nil
}

// A tweetValFn is any function that takes in a pointer to a domain.Tweet object and returns an error.
type tweetValFn = func(tweet *domain.Tweet) error

// contentNormalize trims the Tweet's content and cuts it down to the maximum content length.
func (tv *tweetValidator) contentNormalize(tweet *domain.Tweet) error {
	content := strings.TrimSpace(tweet.Content)
	if runes := []rune(content); len(runes) > domain.ContentMaxLength {
		content = string(runes[:domain.ContentMaxLength])
	}
	tweet.Content = content
	return nil
}

// contentMinLength makes sure that the Tweet's content is not empty.
func (tv *tweetValidator) contentMinLength(tweet *domain.Tweet) error {
	if tweet.Content == "" {
		return errs.Errorf(errs.EINVALID, "Tweet content must not be empty.")
	}
	return nil
}

// contentMaxLength makes sure that the Tweet's content does not exceed the maximum content length.
func (tv *tweetValidator) contentMaxLength(tweet *domain.Tweet) error {
	if len([]rune(tweet.Content)) > domain.ContentMaxLength {
		return errs.Errorf(errs.EINVALID, "Tweet content max length is %d characters.", domain.ContentMaxLength)
	}
	return nil
}

// userIdValid ensures that the userId is not empty.
func (tv *tweetValidator) userIdValid(tweet *domain.Tweet) error {
	if tweet.UserID <= 0 {
		return errs.Errorf(errs.EINVALID, "The tweet has no author.")
	}
	return nil
}

// mediaIDsValid makes sure a tweet gets at most MaxTweetMedias medias, each of them once.
func mediaIDsValid(ids []int) error {
	if len(ids) > domain.MaxTweetMedias {
		return errs.Errorf(errs.EINVALID, "A tweet can have at most %d medias.", domain.MaxTweetMedias)
	}
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return errs.Errorf(errs.EINVALID, "The media %d is attached more than once.", id)
		}
		seen[id] = true
	}
	return nil
}

// ByID retrieves a single Tweet by ID, along with its author, medias and likes.
// If the record doesn't exist, it returns errs.ENOTFOUND.
func (tg *tweetGorm) ByID(ctx context.Context, id int) (*domain.Tweet, error) {
	var tweet domain.Tweet
	db := tg.db.WithContext(ctx).
		Preload("User").
		Preload("Medias", orderByID).
		Preload("Likes", orderByID).
		Preload("Likes.User").
		Where("id = ?", id)
	if err := first(db, &tweet); err != nil {
		return nil, err
	}
	return &tweet, nil
}

// Feed retrieves the tweets of the user and of everyone the user follows.
// The most liked tweets come first, ties are broken by recency and then by id.
// Pagination, when requested, is applied after sorting.
func (tg *tweetGorm) Feed(ctx context.Context, user *domain.User, page domain.Page) ([]domain.Tweet, error) {
	db := tg.db.WithContext(ctx)
	followed := db.Model(&domain.Follower{}).
		Select("user_id").
		Where("follower_id = ?", user.ID)

	query := db.Model(&domain.Tweet{}).
		Select("tweets.*, COUNT(likes.id) AS like_count").
		Joins("LEFT JOIN likes ON likes.tweet_id = tweets.id").
		Where("tweets.user_id = ? OR tweets.user_id IN (?)", user.ID, followed).
		Group("tweets.id").
		Order("like_count DESC, tweets.posted_at DESC, tweets.id DESC")
	if page.Paginated() {
		query = query.Offset(page.Offset()).Limit(page.Size)
	}

	var feed []domain.Tweet
	err := query.
		Preload("User").
		Preload("Medias", orderByID).
		Preload("Likes", orderByID).
		Preload("Likes.User").
		Find(&feed).Error
	if err != nil {
		return nil, err
	}
	return feed, nil
}

// Create stores the data from the Tweet object in a new database record and
// attaches the medias with the given IDs to it, in one transaction. Medias that
// don't exist or are already attached to another tweet are skipped.
func (tg *tweetGorm) Create(ctx context.Context, tweet *domain.Tweet, mediaIDs []int) error {
	return forWrite(ctx, tg.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(tweet).Error; err != nil {
			return err
		}
		if len(mediaIDs) == 0 {
			return nil
		}
		return tx.Model(&domain.TweetMedia{}).
			Where("id IN ? AND tweet_id IS NULL", mediaIDs).
			Update("tweet_id", tweet.ID).Error
	})
}

// Delete permanently deletes a Tweet record from the database, along with its
// associated Medias and Likes. The media files are removed from the store once
// the records are gone. Deleting a tweet that doesn't exist is not an error,
// deleting somebody else's tweet is.
func (tg *tweetGorm) Delete(ctx context.Context, id int, user *domain.User) (domain.DeleteResult, error) {
	result := domain.Deleted
	var paths []string
	err := forWrite(ctx, tg.db).Transaction(func(tx *gorm.DB) error {
		var tweet domain.Tweet
		err := first(tx.Preload("Medias").Where("id = ?", id), &tweet)
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			result = domain.AlreadyAbsent
			return nil
		}
		if err != nil {
			return err
		}
		if tweet.UserID != user.ID {
			return errs.Errorf(errs.EFORBIDDEN, "You can only delete your own tweets.")
		}
		for _, media := range tweet.Medias {
			paths = append(paths, media.RelURI)
		}
		return tx.Select("Medias", "Likes").Delete(&tweet).Error
	})
	if err != nil {
		return 0, err
	}
	removeFiles(ctx, tg.store, paths)
	return result, nil
}
