package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"tweetty/auth"
	"tweetty/errs"
)

// ownProfilePath is where users find their own profile.
const ownProfilePath = "/api/users/me"

func (s *Server) registerUserRoutes(r *mux.Router) {
	// Get the profile data of the authed user.
	r.HandleFunc("/users/me", s.requireAuth(s.handleOwnProfile)).Methods("GET")

	// Get the profile data of a specific user.
	r.HandleFunc("/users/{id}", s.requireAuth(s.handleGetProfile)).Methods("GET")
}

// handleOwnProfile handles the route "GET /api/users/me".
func (s *Server) handleOwnProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	s.writeProfile(w, r, user.ID)
}

// handleGetProfile handles the route "GET /api/users/{id}".
// Users asking for their own profile are redirected to /api/users/me.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	// Parse the User ID from the url.
	id, err := pathID(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	authedUser := auth.GetUser(r.Context())
	if authedUser.ID == id {
		http.Redirect(w, r, ownProfilePath, http.StatusPermanentRedirect)
		return
	}
	s.writeProfile(w, r, id)
}

// writeProfile fetches the user with their followers and followings
// and returns them.
func (s *Server) writeProfile(w http.ResponseWriter, r *http.Request, id int) {
	user, err := s.us.Profile(r.Context(), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(profileResponse{Result: true, User: newUserView(user)}); err != nil {
		errs.LogError(r, err)
		return
	}
}
