package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"tweetty/auth"
	"tweetty/domain"
	"tweetty/errs"
)

// registerLikeRoutes is a helper for registering all Like routes.
func (s *Server) registerLikeRoutes(r *mux.Router) {
	// Create a new like for a tweet (Like a tweet).
	r.HandleFunc("/tweets/{id}/likes", s.requireAuth(s.handleCreateLike)).Methods("POST")

	// Delete an existing like of a tweet (Unlike a tweet).
	r.HandleFunc("/tweets/{id}/likes", s.requireAuth(s.handleDeleteLike)).Methods("DELETE")
}

// handleCreateLike handles the route "POST /api/tweets/{id}/likes".
// It reads the tweet ID from the url and creates a new Like record in the database.
// Liking an already liked tweet answers 200 instead of 201.
func (s *Server) handleCreateLike(w http.ResponseWriter, r *http.Request) {
	// Parse the tweet ID from the url.
	id, err := pathID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Create a new Like database record for the authed user.
	user := auth.GetUser(r.Context())
	created, err := s.ls.Create(r.Context(), &domain.Like{TweetID: id, UserID: user.ID})
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	s.metrics.Likes.WithLabelValues(createdLabel(created)).Inc()

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(okResponse); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleDeleteLike handles the route "DELETE /api/tweets/{id}/likes".
// It reads the tweet ID from the url and permanently deletes the authed user's
// like of that tweet, if there is one.
func (s *Server) handleDeleteLike(w http.ResponseWriter, r *http.Request) {
	// Parse the tweet ID from the url.
	id, err := pathID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Delete the like.
	user := auth.GetUser(r.Context())
	if err := s.ls.Delete(r.Context(), &domain.Like{TweetID: id, UserID: user.ID}); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(okResponse); err != nil {
		errs.LogError(r, err)
		return
	}
}
