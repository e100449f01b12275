package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"tweetty/auth"
	"tweetty/domain"
	"tweetty/errs"
)

// registerFollowRoutes is a helper for registering all Follow routes.
func (s *Server) registerFollowRoutes(r *mux.Router) {
	r.HandleFunc("/users/{id}/follow", s.requireAuth(s.handleCreateFollow)).Methods("POST")
	r.HandleFunc("/users/{id}/follow", s.requireAuth(s.handleDeleteFollow)).Methods("DELETE")
}

// handleCreateFollow handles the route "POST /api/users/{id}/follow".
// The authed user starts following the user with the ID from the url.
func (s *Server) handleCreateFollow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	follower := auth.GetUser(r.Context())
	created, err := s.fs.Create(r.Context(), &domain.Follower{UserID: id, FollowerID: follower.ID})
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	s.metrics.Follows.WithLabelValues(createdLabel(created)).Inc()

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(okResponse); err != nil {
		errs.LogError(r, err)
	}
}

// handleDeleteFollow handles the route "DELETE /api/users/{id}/follow".
func (s *Server) handleDeleteFollow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	follower := auth.GetUser(r.Context())
	if err := s.fs.Delete(r.Context(), &domain.Follower{UserID: id, FollowerID: follower.ID}); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(okResponse); err != nil {
		errs.LogError(r, err)
	}
}
