package crud

import (
	"context"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tweetty/database"
	"tweetty/domain"
	"tweetty/errs"
)

// MediaConfig holds the limits and retry settings of the upload pipeline.
type MediaConfig struct {
	// MinSize and MaxSize bound the size of an upload in bytes.
	MinSize int64
	MaxSize int64
	// InsertRetryBudget is how long a failing metadata insert is retried.
	InsertRetryBudget time.Duration
	// RetryInterval is the first backoff interval between insert attempts.
	RetryInterval time.Duration
}

// DefaultMediaConfig returns the limits used when nothing else is configured.
func DefaultMediaConfig() MediaConfig {
	return MediaConfig{
		MinSize:           1,
		MaxSize:           100 << 20,
		InsertRetryBudget: 5 * time.Second,
		RetryInterval:     100 * time.Millisecond,
	}
}

// MediaService manages TweetMedias and their files.
// It implements the domain.MediaService interface.
type MediaService struct {
	mediaValidator
}

// mediaValidator runs validations on incoming uploads.
// On success, it passes the data on to mediaGorm.
// Otherwise, it returns the error of the validation that has failed.
type mediaValidator struct {
	config   MediaConfig
	extRegex *regexp.Regexp
	mediaGorm
}

// mediaGorm stores files in the media store and their metadata in the database.
type mediaGorm struct {
	db     *gorm.DB
	store  domain.MediaStore
	config MediaConfig
}

// NewMediaService returns an instance of MediaService.
// Zero fields of config fall back to DefaultMediaConfig.
func NewMediaService(db *gorm.DB, store domain.MediaStore, config MediaConfig) *MediaService {
	defaults := DefaultMediaConfig()
	if config.MinSize <= 0 {
		config.MinSize = defaults.MinSize
	}
	if config.MaxSize <= 0 {
		config.MaxSize = defaults.MaxSize
	}
	if config.InsertRetryBudget <= 0 {
		config.InsertRetryBudget = defaults.InsertRetryBudget
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = defaults.RetryInterval
	}
	return &MediaService{
		mediaValidator{
			config:   config,
			extRegex: regexp.MustCompile(`^\.[a-z0-9]{1,10}$`),
			mediaGorm: mediaGorm{
				db:     db,
				store:  store,
				config: config,
			},
		},
	}
}

// Ensure the MediaService struct properly implements the domain.MediaService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.MediaService = &MediaService{}

// Upload runs validations needed for storing an uploaded file and then stores it
// under a unique name in the uploader's directory: {nickname}/medias/{uuid}{ext}.
func (mv *mediaValidator) Upload(ctx context.Context, user *domain.User, upload *domain.Upload) (*domain.TweetMedia, error) {
	err := runMediaValFns(upload,
		mv.aboveMinSize,
		mv.belowMaxSize,
		mv.extensionNormalize)
	if err != nil {
		return nil, err
	}
	key := path.Join(user.Nickname, "medias", uuid.NewString()+filepath.Ext(upload.Filename))
	return mv.mediaGorm.Create(ctx, key, upload.Data)
}

// runMediaValFns runs any number of functions of type mediaValFn on the passed in Upload object.
func runMediaValFns(upload *domain.Upload, fns ...mediaValFn) error {
	for _, fn := range fns {
		if err := fn(upload); err != nil {
			return err
		}
	}
	return nil
}

// A mediaValFn is any function that takes in a pointer to a domain.Upload object and returns an error.
type mediaValFn func(upload *domain.Upload) error

// aboveMinSize makes sure that the upload is not smaller than MinSize.
func (mv *mediaValidator) aboveMinSize(upload *domain.Upload) error {
	if int64(len(upload.Data)) < mv.config.MinSize {
		return errs.Errorf(errs.EFILETOOSMALL, "File is too small, the minimum size is %d bytes.", mv.config.MinSize)
	}
	return nil
}

// belowMaxSize makes sure that the upload does not exceed MaxSize.
func (mv *mediaValidator) belowMaxSize(upload *domain.Upload) error {
	if int64(len(upload.Data)) > mv.config.MaxSize {
		return errs.Errorf(errs.EFILETOOLARGE, "File is too large, the maximum size is %d bytes.", mv.config.MaxSize)
	}
	return nil
}

// extensionNormalize lowercases the extension of the upload's file name.
// Extensions that are not plain alphanumeric are dropped, so the client can't
// smuggle path elements into the stored name.
func (mv *mediaValidator) extensionNormalize(upload *domain.Upload) error {
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if !mv.extRegex.MatchString(ext) {
		ext = ""
	}
	upload.Filename = "upload" + ext
	return nil
}

// URL returns the public URL of the media's file.
func (mg *mediaGorm) URL(media domain.TweetMedia) string {
	return mg.store.URL(media.RelURI)
}

// Create writes the file to the store and inserts its unattached TweetMedia record.
// Transient database errors are retried until the insert retry budget is spent.
// If the record can't be inserted, the file is removed again.
// Once started, the upload is not canceled with ctx.
func (mg *mediaGorm) Create(ctx context.Context, key string, data []byte) (*domain.TweetMedia, error) {
	ctx = context.WithoutCancel(ctx)
	log := logrus.WithField("path", key)

	if err := mg.store.Put(ctx, key, data); err != nil {
		log.WithError(err).Error("could not store media file")
		return nil, errs.Errorf(errs.EUPLOAD, "The file could not be stored.")
	}

	media := &domain.TweetMedia{RelURI: key}
	insert := func() error {
		err := mg.db.WithContext(ctx).Create(media).Error
		if err != nil && !database.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = mg.config.RetryInterval
	b.MaxElapsedTime = mg.config.InsertRetryBudget
	notify := func(err error, wait time.Duration) {
		log.WithError(err).WithField("wait", wait).Warn("retrying media insert")
	}

	if err := backoff.RetryNotify(insert, backoff.WithContext(b, ctx), notify); err != nil {
		log.WithError(err).Error("could not save media metadata")
		if delErr := mg.store.Delete(ctx, key); delErr != nil {
			log.WithError(delErr).Warn("could not remove orphaned media file")
		}
		return nil, errs.Errorf(errs.EUPLOAD, "The file could not be saved.")
	}
	return media, nil
}
