package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"tweetty/auth"
	"tweetty/domain"
	"tweetty/errs"
)

// mediaField is the multipart form field carrying the uploaded file.
const mediaField = "media"

// formOverhead is what a multipart body may carry on top of the file itself.
const formOverhead = 1 << 20

func (s *Server) registerMediaRoutes(r *mux.Router) {
	// Upload a file to be attached to a tweet later.
	r.HandleFunc("/medias", s.requireAuth(s.handleUploadMedia)).Methods("POST")
}

// handleUploadMedia handles the route "POST /api/medias".
// It stores the file from the multipart field "media" and returns the ID
// of its (yet unattached) TweetMedia record.
func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	upload, err := s.readUpload(w, r)
	if err != nil {
		s.metrics.MediaUploads.WithLabelValues("rejected").Inc()
		errs.ReturnError(w, r, err)
		return
	}

	// Store the file and its metadata (includes validation).
	user := auth.GetUser(r.Context())
	media, err := s.ms.Upload(r.Context(), user, upload)
	if err != nil {
		result := "rejected"
		if code := errs.ErrorCode(err); code == errs.EUPLOAD || code == errs.EINTERNAL {
			result = "failed"
		}
		s.metrics.MediaUploads.WithLabelValues(result).Inc()
		errs.ReturnError(w, r, err)
		return
	}
	s.metrics.MediaUploads.WithLabelValues("ok").Inc()

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(mediaCreatedResponse{Result: true, MediaID: media.ID}); err != nil {
		errs.LogError(r, err)
		return
	}
}

// readUpload reads the whole uploaded file into memory. Bodies far beyond
// the maximum upload size are cut off early.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*domain.Upload, error) {
	maxSize := s.config.MaxUploadSize
	if maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+formOverhead)
	}

	file, header, err := r.FormFile(mediaField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errs.Errorf(errs.EFILETOOLARGE, "File is too large, the maximum size is %d bytes.", maxSize)
		}
		return nil, errs.Errorf(errs.EINVALID, "A multipart form with the file in the %q field is required.", mediaField)
	}
	defer file.Close()

	var src io.Reader = file
	if maxSize > 0 {
		// One byte more than allowed is enough for the size check to fail.
		src = io.LimitReader(file, maxSize+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return &domain.Upload{Filename: header.Filename, Data: data}, nil
}
