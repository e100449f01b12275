package crud

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tweetty/domain"
	"tweetty/internal/testdb"
	"tweetty/storage"
)

const testKeyPrefix = "test_"

type testEnv struct {
	db       *gorm.DB
	store    *storage.DiskStore
	services *Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testdb.New(t)
	store := storage.NewDiskStore(storage.DiskConfig{
		Root:          t.TempDir(),
		URLPrefix:     "/static",
		WriteRetries:  1,
		RetryInterval: time.Millisecond,
	})
	services, err := NewServices(db,
		WithUser(testKeyPrefix, store),
		WithTweet(store),
		WithFollow(),
		WithLike(),
		WithMedia(store, MediaConfig{
			MinSize:           1,
			MaxSize:           1024,
			InsertRetryBudget: 200 * time.Millisecond,
			RetryInterval:     time.Millisecond,
		}),
	)
	require.NoError(t, err)

	return &testEnv{db: db, store: store, services: services}
}

func (env *testEnv) createUser(t *testing.T, nickname string) *domain.User {
	t.Helper()
	user := &domain.User{Nickname: nickname}
	require.NoError(t, env.services.User.Create(context.Background(), user))
	return user
}

func (env *testEnv) createTweet(t *testing.T, user *domain.User, content string, postedAt time.Time, mediaIDs ...int) *domain.Tweet {
	t.Helper()
	tweet := &domain.Tweet{UserID: user.ID, Content: content, PostedAt: postedAt}
	require.NoError(t, env.services.Tweet.Create(context.Background(), tweet, mediaIDs))
	return tweet
}

func (env *testEnv) like(t *testing.T, tweet *domain.Tweet, users ...*domain.User) {
	t.Helper()
	for _, user := range users {
		created, err := env.services.Like.Create(context.Background(), &domain.Like{TweetID: tweet.ID, UserID: user.ID})
		require.NoError(t, err)
		require.True(t, created)
	}
}

func (env *testEnv) upload(t *testing.T, user *domain.User, filename string) *domain.TweetMedia {
	t.Helper()
	media, err := env.services.Media.Upload(context.Background(), user, &domain.Upload{
		Filename: filename,
		Data:     []byte("not really an image"),
	})
	require.NoError(t, err)
	return media
}

func (env *testEnv) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(model).Count(&n).Error)
	return n
}
