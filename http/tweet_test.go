package http

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tweetty/domain"
	"tweetty/errs"
)

func TestCreateTweet(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice")

	rec := ts.doJSON(t, "POST", "/api/tweets", alice, tweetForm{Content: "hello world"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var res tweetCreatedResponse
	decode(t, rec, &res)
	require.True(t, res.Result)
	require.NotZero(t, res.TweetID)

	tweet, err := ts.services.Tweet.ByID(ctx, res.TweetID)
	require.NoError(t, err)
	require.Equal(t, "hello world", tweet.Content)
	require.Equal(t, alice.ID, tweet.UserID)

	rec = ts.doJSON(t, "POST", "/api/tweets", alice, tweetForm{Content: strings.Repeat("a", 300)})
	require.Equal(t, http.StatusCreated, rec.Code)
	decode(t, rec, &res)
	tweet, err = ts.services.Tweet.ByID(ctx, res.TweetID)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("a", 280), tweet.Content)

	rec = ts.doJSON(t, "POST", "/api/tweets", alice, tweetForm{Content: "   "})
	requireError(t, rec, http.StatusUnprocessableEntity, errs.EINVALID)

	rec = ts.do(t, "POST", "/api/tweets", alice.APIKey, strings.NewReader(`{"tweet_data": 5}`), "application/json")
	requireError(t, rec, http.StatusUnprocessableEntity, errs.EINVALID)
}

func TestCreateTweetWithMedias(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice")

	var ids []int
	for _, name := range []string{"a.png", "b.png"} {
		rec := ts.upload(t, alice, name, []byte("data"))
		require.Equal(t, http.StatusCreated, rec.Code)
		var res mediaCreatedResponse
		decode(t, rec, &res)
		ids = append(ids, res.MediaID)
	}

	rec := ts.doJSON(t, "POST", "/api/tweets", alice, tweetForm{Content: "pictures", MediaIDs: ids})
	require.Equal(t, http.StatusCreated, rec.Code)
	var res tweetCreatedResponse
	decode(t, rec, &res)

	tweet, err := ts.services.Tweet.ByID(ctx, res.TweetID)
	require.NoError(t, err)
	require.Len(t, tweet.Medias, 2)

	rec = ts.doJSON(t, "POST", "/api/tweets", alice, tweetForm{Content: "dup", MediaIDs: []int{ids[0], ids[0], ids[0]}})
	requireError(t, rec, http.StatusUnprocessableEntity, errs.EINVALID)

	rec = ts.doJSON(t, "POST", "/api/tweets", alice, tweetForm{Content: "many", MediaIDs: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}})
	requireError(t, rec, http.StatusUnprocessableEntity, errs.EINVALID)
}

func TestDeleteTweet(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice")
	bobby := ts.createUser(t, "bobby")

	tweet := &domain.Tweet{UserID: alice.ID, Content: "delete me"}
	require.NoError(t, ts.services.Tweet.Create(ctx, tweet, nil))
	path := "/api/tweets/" + itoa(tweet.ID)

	rec := ts.doJSON(t, "DELETE", path, bobby, nil)
	requireError(t, rec, http.StatusForbidden, errs.EFORBIDDEN)

	for i := 0; i < 2; i++ {
		rec = ts.doJSON(t, "DELETE", path, alice, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var res resultResponse
		decode(t, rec, &res)
		require.True(t, res.Result)
	}

	_, err := ts.services.Tweet.ByID(ctx, tweet.ID)
	require.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
}

func TestFeed(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice")
	bobby := ts.createUser(t, "bobby")
	carol := ts.createUser(t, "carol")

	_, err := ts.services.Follow.Create(ctx, &domain.Follower{UserID: bobby.ID, FollowerID: alice.ID})
	require.NoError(t, err)

	rec := ts.upload(t, bobby, "cat.png", []byte("meow"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var media mediaCreatedResponse
	decode(t, rec, &media)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	t1 := &domain.Tweet{UserID: alice.ID, Content: "older", PostedAt: base}
	t2 := &domain.Tweet{UserID: bobby.ID, Content: "newer", PostedAt: base.Add(time.Hour)}
	t3 := &domain.Tweet{UserID: alice.ID, Content: "newest", PostedAt: base.Add(2 * time.Hour)}
	require.NoError(t, ts.services.Tweet.Create(ctx, t1, nil))
	require.NoError(t, ts.services.Tweet.Create(ctx, t2, []int{media.MediaID}))
	require.NoError(t, ts.services.Tweet.Create(ctx, t3, nil))

	for _, like := range []domain.Like{
		{TweetID: t1.ID, UserID: bobby.ID},
		{TweetID: t1.ID, UserID: carol.ID},
		{TweetID: t2.ID, UserID: alice.ID},
		{TweetID: t2.ID, UserID: carol.ID},
		{TweetID: t3.ID, UserID: carol.ID},
	} {
		_, err := ts.services.Like.Create(ctx, &like)
		require.NoError(t, err)
	}

	rec = ts.doJSON(t, "GET", "/api/tweets", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res feedResponse
	decode(t, rec, &res)
	require.True(t, res.Result)
	require.Len(t, res.Tweets, 3)
	require.Equal(t, []int{t2.ID, t1.ID, t3.ID}, []int{res.Tweets[0].ID, res.Tweets[1].ID, res.Tweets[2].ID})

	first := res.Tweets[0]
	require.Equal(t, "newer", first.Content)
	require.Equal(t, userRef{ID: bobby.ID, Name: "bobby"}, first.Author)
	require.Len(t, first.Attachments, 1)
	require.True(t, strings.HasPrefix(first.Attachments[0], "/static/bobby/medias/"), first.Attachments[0])
	require.Equal(t, []likeView{{UserID: alice.ID, Name: "alice"}, {UserID: carol.ID, Name: "carol"}}, first.Likes)
	require.Empty(t, res.Tweets[1].Attachments)

	rec = ts.doJSON(t, "GET", "/api/tweets?page=2&limit=2", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res = feedResponse{}
	decode(t, rec, &res)
	require.Len(t, res.Tweets, 1)
	require.Equal(t, t3.ID, res.Tweets[0].ID)

	// Only one of the two doesn't paginate.
	rec = ts.doJSON(t, "GET", "/api/tweets?limit=1", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res = feedResponse{}
	decode(t, rec, &res)
	require.Len(t, res.Tweets, 3)

	for _, query := range []string{"page=0&limit=1", "page=1&limit=x", "page=-1", "limit=0"} {
		rec = ts.doJSON(t, "GET", "/api/tweets?"+query, alice, nil)
		requireError(t, rec, http.StatusUnprocessableEntity, errs.EINVALID)
	}

	// Empty feeds are empty lists.
	rec = ts.doJSON(t, "GET", "/api/tweets", carol, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"result": true, "tweets": []}`, rec.Body.String())
}
