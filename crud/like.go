package crud

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tweetty/domain"
	"tweetty/errs"
)

// LikeService manages Likes.
// It implements the domain.LikeService interface.
type LikeService struct {
	likeValidator
}

// likeValidator runs validations on incoming Like data.
// On success, it passes the data on to likeGorm.
// Otherwise, it returns the error of the validation that has failed.
type likeValidator struct {
	likeGorm
}

// likeGorm runs CRUD operations on the database using incoming Like data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type likeGorm struct {
	db *gorm.DB
}

// NewLikeService returns an instance of LikeService.
func NewLikeService(db *gorm.DB) *LikeService {
	return &LikeService{
		likeValidator{
			likeGorm{
				db: db,
			},
		},
	}
}

// Ensure the LikeService struct properly implements the domain.LikeService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.LikeService = &LikeService{}

// Create runs validations needed for creating new Like database records.
func (lv *likeValidator) Create(ctx context.Context, like *domain.Like) (bool, error) {
	if err := runLikeValFns(like, lv.userIdValid); err != nil {
		return false, err
	}
	return lv.likeGorm.Create(ctx, like)
}

// Delete runs validations needed for deleting existing Like database records.
func (lv *likeValidator) Delete(ctx context.Context, like *domain.Like) error {
	if err := runLikeValFns(like, lv.userIdValid); err != nil {
		return err
	}
	return lv.likeGorm.Delete(ctx, like)
}

// runLikeValFns runs any number of functions of type likeValFn on the passed in Like object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runLikeValFns(like *domain.Like, fns ...likeValFn) error {
	for _, fn := range fns {
		if err := fn(like); err != nil {
			return err
		}
	}
	return nil
}

// A likeValFn is any function that takes in a pointer to a domain.Like object and returns an error.
type likeValFn func(like *domain.Like) error

// userIdValid ensures that the userId is not empty.
func (lv *likeValidator) userIdValid(like *domain.Like) error {
	if like.UserID <= 0 {
		return errs.Errorf(errs.EINVALID, "The like has no user.")
	}
	return nil
}

// likedTweetExists makes sure that the tweet to be (un)liked actually exists.
func likedTweetExists(tx *gorm.DB, like *domain.Like) error {
	var tweet domain.Tweet
	return first(tx.Select("id").Where("id = ?", like.TweetID), &tweet)
}

// Create stores the data from the Like object in a new database record and
// reports whether it did. Liking a tweet twice keeps the first Like, even
// when both requests race each other.
func (lg *likeGorm) Create(ctx context.Context, like *domain.Like) (bool, error) {
	var created bool
	err := forWrite(ctx, lg.db).Transaction(func(tx *gorm.DB) error {
		if err := likedTweetExists(tx, like); err != nil {
			return err
		}
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(like)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected == 1
		return nil
	})
	return created, err
}

// Delete permanently deletes the user's Like of the tweet, if there is one.
func (lg *likeGorm) Delete(ctx context.Context, like *domain.Like) error {
	return forWrite(ctx, lg.db).Transaction(func(tx *gorm.DB) error {
		if err := likedTweetExists(tx, like); err != nil {
			return err
		}
		return tx.
			Where("tweet_id = ? AND user_id = ?", like.TweetID, like.UserID).
			Delete(&domain.Like{}).Error
	})
}
