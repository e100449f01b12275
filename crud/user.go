package crud

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tweetty/auth"
	"tweetty/domain"
	"tweetty/errs"
)

// UserService manages Users. It also contains the part of the authentication system
// that handles database interactions and api key creation. It's basically
// the "backend" of the auth system, with http/auth.go dealing with requests and
// middleware being the "frontend". It implements the domain.UserService interface.
type UserService struct {
	userValidator
}

// userValidator runs validations on incoming User data.
// On success, it passes the data on to userGorm.
// Otherwise, it returns the error of the validation that has failed.
type userValidator struct {
	apiKeyPrefix string
	userGorm
}

// userGorm runs CRUD operations on the database using incoming User data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type userGorm struct {
	db    *gorm.DB
	store domain.MediaStore
}

// NewUserService returns an instance of UserService.
func NewUserService(db *gorm.DB, apiKeyPrefix string, store domain.MediaStore) *UserService {
	return &UserService{
		userValidator{
			apiKeyPrefix: apiKeyPrefix,
			userGorm: userGorm{
				db:    db,
				store: store,
			},
		},
	}
}

// Ensure the UserService struct properly implements the domain.UserService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.UserService = &UserService{}

// MakeAPIKey is a helper to generate api keys carrying the configured prefix.
func (uv *userValidator) MakeAPIKey() (string, error) {
	return auth.MakeAPIKey(uv.apiKeyPrefix)
}

// Create runs validations needed for creating new User database records.
// It will create an api key if none is provided.
func (uv *userValidator) Create(ctx context.Context, user *domain.User) error {
	err := runUserValFns(ctx, user,
		uv.nicknameNormalize,
		uv.nicknameLength,
		uv.nicknameFormat,
		uv.nicknameIsAvail,
		uv.firstNameLength,
		uv.lastNameLength,
		uv.apiKeySetIfUnset,
		uv.apiKeyLength)
	if err != nil {
		return err
	}
	return uv.userGorm.Create(ctx, user)
}

// Update runs validations needed for updating a User record in the database.
func (uv *userValidator) Update(ctx context.Context, user *domain.User) error {
	err := runUserValFns(ctx, user,
		uv.idValid,
		uv.nicknameNormalize,
		uv.nicknameLength,
		uv.nicknameFormat,
		uv.nicknameIsAvail,
		uv.firstNameLength,
		uv.lastNameLength,
		uv.apiKeyLength)
	if err != nil {
		return err
	}
	return uv.userGorm.Update(ctx, user)
}

// RenewAPIKey replaces the user's api key with a newly generated one.
// The old key stops working immediately.
func (uv *userValidator) RenewAPIKey(ctx context.Context, user *domain.User) error {
	if err := runUserValFns(ctx, user, uv.idValid); err != nil {
		return err
	}
	key, err := uv.MakeAPIKey()
	if err != nil {
		return err
	}
	return uv.userGorm.UpdateAPIKey(ctx, user, key)
}

// Delete runs validations needed for deleting a User record from the database.
func (uv *userValidator) Delete(ctx context.Context, user *domain.User) error {
	if err := runUserValFns(ctx, user, uv.idValid); err != nil {
		return err
	}
	return uv.userGorm.Delete(ctx, user)
}

// runUserValFns runs any number of functions of type userValFn on the passed in User object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runUserValFns(ctx context.Context, user *domain.User, fns ...userValFn) error {
	for _, fn := range fns {
		if err := fn(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

// A userValFn is any function that takes in a pointer to a domain.User object and returns an error.
type userValFn func(ctx context.Context, user *domain.User) error

// idValid makes sure that the user has been stored before.
func (uv *userValidator) idValid(ctx context.Context, user *domain.User) error {
	if user.ID <= 0 {
		return errs.Errorf(errs.EINVALID, "The user id is invalid.")
	}
	return nil
}

// nicknameNormalize trims the nickname's whitespaces.
func (uv *userValidator) nicknameNormalize(ctx context.Context, user *domain.User) error {
	user.Nickname = strings.TrimSpace(user.Nickname)
	return nil
}

// nicknameLength makes sure the nickname has between 5 and 20 characters.
func (uv *userValidator) nicknameLength(ctx context.Context, user *domain.User) error {
	n := utf8.RuneCountInString(user.Nickname)
	if n < 5 || n > 20 {
		return errs.Errorf(errs.EINVALID, "The nickname must have between 5 and 20 characters.")
	}
	return nil
}

// nicknameFormat makes sure the nickname can be used as a directory name,
// since every user's uploads are stored under their nickname.
func (uv *userValidator) nicknameFormat(ctx context.Context, user *domain.User) error {
	if strings.ContainsAny(user.Nickname, `/\`) || strings.HasPrefix(user.Nickname, ".") {
		return errs.Errorf(errs.EINVALID, "The nickname must not contain slashes or start with a dot.")
	}
	return nil
}

// nicknameIsAvail makes sure that a provided nickname is not yet taken.
func (uv *userValidator) nicknameIsAvail(ctx context.Context, user *domain.User) error {
	existing, err := uv.userGorm.ByNickname(ctx, user.Nickname)
	if errs.ErrorCode(err) == errs.ENOTFOUND {
		// Nickname is not taken.
		return nil
	}
	if err != nil {
		return err
	}
	if user.ID != existing.ID {
		return errs.Errorf(errs.EINVALID, "The nickname %q is already taken.", user.Nickname)
	}
	return nil
}

// firstNameLength makes sure a provided first name has between 1 and 100 characters.
func (uv *userValidator) firstNameLength(ctx context.Context, user *domain.User) error {
	return nameLength(user.FirstName, "first name")
}

// lastNameLength makes sure a provided last name has between 1 and 100 characters.
func (uv *userValidator) lastNameLength(ctx context.Context, user *domain.User) error {
	return nameLength(user.LastName, "last name")
}

func nameLength(name *string, field string) error {
	if name == nil {
		return nil
	}
	n := utf8.RuneCountInString(*name)
	if n < 1 || n > 100 {
		return errs.Errorf(errs.EINVALID, "The %s must have between 1 and 100 characters.", field)
	}
	return nil
}

// apiKeySetIfUnset creates the user's api key if none is provided.
func (uv *userValidator) apiKeySetIfUnset(ctx context.Context, user *domain.User) error {
	if user.APIKey != "" {
		return nil
	}
	key, err := uv.MakeAPIKey()
	if err != nil {
		return err
	}
	user.APIKey = key
	return nil
}

// apiKeyLength makes sure that the api key has between 30 and 256 characters.
func (uv *userValidator) apiKeyLength(ctx context.Context, user *domain.User) error {
	n := len(user.APIKey)
	if n < 30 || n > 256 {
		return errs.Errorf(errs.EINVALID, "The api key must have between 30 and 256 characters.")
	}
	return nil
}

// ByID retrieves a User database record by ID.
func (ug *userGorm) ByID(ctx context.Context, id int) (*domain.User, error) {
	var user domain.User
	db := ug.db.WithContext(ctx).Where("id = ?", id)
	if err := first(db, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ByAPIKey retrieves a User database record by its api key.
// The requireAuth middleware calls this on every request, trying to identify a user
// by matching the api-key request header to an api key in the database.
func (ug *userGorm) ByAPIKey(ctx context.Context, key string) (*domain.User, error) {
	var user domain.User
	db := ug.db.WithContext(ctx).Where("api_key = ?", key)
	if err := first(db, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ByNickname retrieves a User database record by Nickname.
func (ug *userGorm) ByNickname(ctx context.Context, nickname string) (*domain.User, error) {
	var user domain.User
	db := ug.db.WithContext(ctx).Where("nickname = ?", nickname)
	if err := first(db, &user); err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return nil, errs.Errorf(errs.ENOTFOUND, "User %q not found", nickname)
		}
		return nil, err
	}
	return &user, nil
}

// Profile retrieves a User database record by ID, along with the users following
// them and the users they follow.
func (ug *userGorm) Profile(ctx context.Context, id int) (*domain.User, error) {
	var user domain.User
	db := ug.db.WithContext(ctx).
		Preload("Followers", orderByID).
		Preload("Followers.Follower").
		Preload("Followings", orderByID).
		Preload("Followings.User").
		Where("id = ?", id)
	if err := first(db, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// List retrieves users ordered by nickname. A non-empty filter.Search only keeps
// users whose nickname, first name or last name contains it.
func (ug *userGorm) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	db := ug.db.WithContext(ctx).Order("nickname")
	if filter.Search != "" {
		expr := "%" + filter.Search + "%"
		db = db.Where("nickname LIKE ? OR first_name LIKE ? OR last_name LIKE ?", expr, expr, expr)
	}
	if filter.Page.Paginated() {
		db = db.Offset(filter.Page.Offset()).Limit(filter.Page.Size)
	}
	var users []domain.User
	if err := db.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Create stores the data from the User object in a new database record.
func (ug *userGorm) Create(ctx context.Context, user *domain.User) error {
	return forWrite(ctx, ug.db).Omit(clause.Associations).Create(user).Error
}

// Update saves changes to an existing user record in the database.
func (ug *userGorm) Update(ctx context.Context, user *domain.User) error {
	return forWrite(ctx, ug.db).Omit(clause.Associations).Save(user).Error
}

// UpdateAPIKey stores a new api key for the user.
func (ug *userGorm) UpdateAPIKey(ctx context.Context, user *domain.User, key string) error {
	err := forWrite(ctx, ug.db).Model(user).Update("api_key", key).Error
	if err != nil {
		return err
	}
	user.APIKey = key
	return nil
}

// Delete permanently deletes a User record. The database cascades the deletion
// to the user's tweets (and their medias and likes), likes and follow relations.
// Afterwards, the files attached to the user's tweets are removed from the store.
func (ug *userGorm) Delete(ctx context.Context, user *domain.User) error {
	var paths []string
	err := forWrite(ctx, ug.db).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&domain.TweetMedia{}).
			Joins("JOIN tweets ON tweets.id = tweet_medias.tweet_id").
			Where("tweets.user_id = ?", user.ID).
			Pluck("tweet_medias.rel_uri", &paths).Error
		if err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return err
	}
	removeFiles(ctx, ug.store, paths)
	return nil
}

// first is a helper for getting the first database record that matches a given query.
// It turns gorm.ErrRecordNotFound into an errs.ENOTFOUND error.
func first(db *gorm.DB, dst interface{}) error {
	err := db.First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.Errorf(errs.ENOTFOUND, "The %s does not exist.", recordName(dst))
	}
	return err
}

// recordName is the human-readable name of a model used in error messages.
func recordName(dst interface{}) string {
	switch dst.(type) {
	case *domain.User:
		return "user"
	case *domain.Tweet:
		return "tweet"
	case *domain.TweetMedia:
		return "media"
	default:
		return "record"
	}
}

// forWrite returns db bound to ctx without its cancellation. A write that has
// started runs to completion or failure even if the client goes away.
func forWrite(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(context.WithoutCancel(ctx))
}

// orderByID keeps preloaded has-many associations in insertion order.
func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

// removeFiles deletes files from the store after the database records pointing
// at them are gone. Failures are only logged, the records can't come back.
func removeFiles(ctx context.Context, store domain.MediaStore, paths []string) {
	if store == nil {
		return
	}
	for _, path := range paths {
		if err := store.Delete(context.WithoutCancel(ctx), path); err != nil {
			logrus.WithError(err).WithField("path", path).Warn("could not remove media file")
		}
	}
}
