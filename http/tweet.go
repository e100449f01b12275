package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tweetty/auth"
	"tweetty/domain"
	"tweetty/errs"
)

// registerTweetRoutes is a helper for registering all Tweet routes.
func (s *Server) registerTweetRoutes(r *mux.Router) {
	// Get the feed of the authed user.
	r.HandleFunc("/tweets", s.requireAuth(s.handleFeed)).Methods("GET")

	// Create a new tweet.
	r.HandleFunc("/tweets", s.requireAuth(s.handleCreateTweet)).Methods("POST")

	// Delete one of the authed user's tweets.
	r.HandleFunc("/tweets/{id}", s.requireAuth(s.handleDeleteTweet)).Methods("DELETE")
}

// tweetForm is the json body of a create tweet request.
type tweetForm struct {
	Content  string `json:"tweet_data"`
	MediaIDs []int  `json:"tweet_media_ids"`
}

// handleCreateTweet handles the route "POST /api/tweets".
// It reads the tweet's content and media IDs from the json body, creates the tweet
// and attaches the medias to it.
func (s *Server) handleCreateTweet(w http.ResponseWriter, r *http.Request) {
	// Parse the request's json body into a tweetForm object.
	var form tweetForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}

	// Create the tweet, authored by the authed user.
	user := auth.GetUser(r.Context())
	tweet := domain.Tweet{
		UserID:  user.ID,
		Content: form.Content,
	}
	if err := s.ts.Create(r.Context(), &tweet, form.MediaIDs); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	s.metrics.TweetsCreated.Inc()

	// Return the ID of the new tweet.
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(tweetCreatedResponse{Result: true, TweetID: tweet.ID}); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleDeleteTweet handles the route "DELETE /api/tweets/{id}".
// Deleting a tweet that doesn't exist (anymore) succeeds as well.
func (s *Server) handleDeleteTweet(w http.ResponseWriter, r *http.Request) {
	// Parse the tweet ID from the url.
	id, err := pathID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Delete the tweet, if it belongs to the authed user.
	user := auth.GetUser(r.Context())
	if _, err := s.ts.Delete(r.Context(), id, user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(okResponse); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleFeed handles the route "GET /api/tweets?page=&limit=".
// It returns the tweets of the authed user and of the users they follow,
// most liked first. Both page and limit must be given to paginate.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	// Parse the pagination parameters.
	page, err := parsePage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Fetch the feed.
	user := auth.GetUser(r.Context())
	tweets, err := s.ts.Feed(r.Context(), user, page)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Return the feed.
	res := feedResponse{Result: true, Tweets: make([]tweetView, 0, len(tweets))}
	for _, tweet := range tweets {
		res.Tweets = append(res.Tweets, newTweetView(tweet, s.ms))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		errs.LogError(r, err)
		return
	}
}

// parsePage reads the "page" and "limit" query parameters.
// Each of them is optional, but has to be a positive integer when present.
func parsePage(r *http.Request) (domain.Page, error) {
	var page domain.Page
	query := r.URL.Query()
	for name, dst := range map[string]*int{"page": &page.Number, "limit": &page.Size} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return domain.Page{}, errs.Errorf(errs.EINVALID, "The %s parameter must be a positive integer.", name)
		}
		*dst = n
	}
	return page, nil
}
