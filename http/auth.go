package http

import (
	"net/http"

	"tweetty/auth"
	"tweetty/errs"
)

// requireAuth identifies the user by the api-key request header before
// handing the request over to next. It runs before anything else looks at
// the request, so a bad key always results in 401.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(auth.Header)
		if key == "" {
			errs.ReturnError(w, r, errs.Errorf(errs.EUNAUTHORIZED, "missing api-key header"))
			return
		}

		user, err := s.us.ByAPIKey(r.Context(), key)
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			errs.ReturnError(w, r, errs.Errorf(errs.EUNAUTHORIZED, "no user with such api-key"))
			return
		}
		if err != nil {
			errs.ReturnError(w, r, err)
			return
		}

		r = r.WithContext(auth.SetUser(r.Context(), user))
		next(w, r)
	}
}
