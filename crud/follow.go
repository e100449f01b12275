package crud

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tweetty/domain"
	"tweetty/errs"
)

// FollowService manages Followers.
// It implements the domain.FollowService interface.
type FollowService struct {
	followValidator
}

// followValidator runs validations on incoming Follower data.
// On success, it passes the data on to followGorm.
// Otherwise, it returns the error of the validation that has failed.
type followValidator struct {
	followGorm
}

// followGorm runs CRUD operations on the database using incoming Follower data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type followGorm struct {
	db *gorm.DB
}

// NewFollowService returns an instance of FollowService.
func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{
		followValidator{
			followGorm{
				db: db,
			},
		},
	}
}

// Ensure the FollowService struct properly implements the domain.FollowService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.FollowService = &FollowService{}

// Create runs validations needed for creating new Follower database records.
// Following oneself is rejected before anything else is looked at.
func (fv *followValidator) Create(ctx context.Context, follow *domain.Follower) (bool, error) {
	if err := runFollowValFns(follow, fv.followerIdValid, fv.followedIsNotFollower); err != nil {
		return false, err
	}
	return fv.followGorm.Create(ctx, follow)
}

// Delete runs validations needed for deleting existing Follower database records.
func (fv *followValidator) Delete(ctx context.Context, follow *domain.Follower) error {
	if err := runFollowValFns(follow, fv.followerIdValid); err != nil {
		return err
	}
	return fv.followGorm.Delete(ctx, follow)
}

// runFollowValFns runs any number of functions of type followValFn on the passed in Follower object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runFollowValFns(follow *domain.Follower, fns ...followValFn) error {
	for _, fn := range fns {
		if err := fn(follow); err != nil {
			return err
		}
	}
	return nil
}

// A followValFn is any function that takes in a pointer to a domain.Follower object and returns an error.
type followValFn func(follow *domain.Follower) error

// followerIdValid ensures that the followerId is not empty.
func (fv *followValidator) followerIdValid(follow *domain.Follower) error {
	if follow.FollowerID <= 0 {
		return errs.Errorf(errs.EINVALID, "The follow has no follower.")
	}
	return nil
}

// followedIsNotFollower makes sure that nobody follows themselves.
func (fv *followValidator) followedIsNotFollower(follow *domain.Follower) error {
	if follow.UserID == follow.FollowerID {
		return errs.Errorf(errs.ENOTACCEPTABLE, "You cannot follow yourself.")
	}
	return nil
}

// followedUserExists makes sure that the user to be (un)followed actually exists.
func followedUserExists(tx *gorm.DB, follow *domain.Follower) error {
	var user domain.User
	return first(tx.Select("id").Where("id = ?", follow.UserID), &user)
}

// Exists reports whether the follower follows the user.
func (fg *followGorm) Exists(ctx context.Context, follow *domain.Follower) (bool, error) {
	var count int64
	err := fg.db.WithContext(ctx).
		Model(&domain.Follower{}).
		Where("user_id = ? AND follower_id = ?", follow.UserID, follow.FollowerID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create stores the data from the Follower object in a new database record and
// reports whether it did. Following a user twice keeps the first Follower record.
func (fg *followGorm) Create(ctx context.Context, follow *domain.Follower) (bool, error) {
	var created bool
	err := forWrite(ctx, fg.db).Transaction(func(tx *gorm.DB) error {
		if err := followedUserExists(tx, follow); err != nil {
			return err
		}
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(follow)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected == 1
		return nil
	})
	return created, err
}

// Delete permanently deletes the Follower record of the two users, if there is one.
func (fg *followGorm) Delete(ctx context.Context, follow *domain.Follower) error {
	return forWrite(ctx, fg.db).Transaction(func(tx *gorm.DB) error {
		if err := followedUserExists(tx, follow); err != nil {
			return err
		}
		return tx.
			Where("user_id = ? AND follower_id = ?", follow.UserID, follow.FollowerID).
			Delete(&domain.Follower{}).Error
	})
}
