package http

import (
	"tweetty/domain"
)

// resultResponse is the body of successful responses without payload.
type resultResponse struct {
	Result bool `json:"result"`
}

var okResponse = resultResponse{Result: true}

type tweetCreatedResponse struct {
	Result  bool `json:"result"`
	TweetID int  `json:"tweet_id"`
}

type mediaCreatedResponse struct {
	Result  bool `json:"result"`
	MediaID int  `json:"media_id"`
}

type feedResponse struct {
	Result bool        `json:"result"`
	Tweets []tweetView `json:"tweets"`
}

type profileResponse struct {
	Result bool     `json:"result"`
	User   userView `json:"user"`
}

// userRef is the short form of a user embedded in other views.
type userRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type likeView struct {
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
}

type tweetView struct {
	ID          int        `json:"id"`
	Content     string     `json:"content"`
	Attachments []string   `json:"attachments"`
	Author      userRef    `json:"author"`
	Likes       []likeView `json:"likes"`
}

type userView struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Followers []userRef `json:"followers"`
	Following []userRef `json:"following"`
}

// newTweetView maps a feed tweet to its json representation.
// Attachment URLs are resolved by the media service.
func newTweetView(tweet domain.Tweet, ms domain.MediaService) tweetView {
	view := tweetView{
		ID:          tweet.ID,
		Content:     tweet.Content,
		Attachments: make([]string, 0, len(tweet.Medias)),
		Author:      userRef{ID: tweet.User.ID, Name: tweet.User.Nickname},
		Likes:       make([]likeView, 0, len(tweet.Likes)),
	}
	for _, media := range tweet.Medias {
		view.Attachments = append(view.Attachments, ms.URL(media))
	}
	for _, like := range tweet.Likes {
		view.Likes = append(view.Likes, likeView{UserID: like.UserID, Name: like.User.Nickname})
	}
	return view
}

// newUserView maps a user with preloaded follow relations to its json representation.
func newUserView(user *domain.User) userView {
	view := userView{
		ID:        user.ID,
		Name:      user.Nickname,
		Followers: make([]userRef, 0, len(user.Followers)),
		Following: make([]userRef, 0, len(user.Followings)),
	}
	for _, f := range user.Followers {
		view.Followers = append(view.Followers, userRef{ID: f.Follower.ID, Name: f.Follower.Nickname})
	}
	for _, f := range user.Followings {
		view.Following = append(view.Following, userRef{ID: f.User.ID, Name: f.User.Nickname})
	}
	return view
}
