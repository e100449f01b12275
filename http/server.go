package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"tweetty/crud"
	"tweetty/domain"
	"tweetty/errs"
)

// Config holds the settings of the http server.
type Config struct {
	IsProd bool
	// MaxUploadSize is the largest media upload accepted, in bytes.
	MaxUploadSize int64
	// MediaRoot is the directory of the disk media store. When set, its
	// files are served under MediaURLPrefix.
	MediaRoot      string
	MediaURLPrefix string
	// RateLimit is the number of /api requests a client may send per
	// RateWindow. Zero disables rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Server provides most of the http functionality of this app, namely routing,
// request handling, and middleware. It also performs authentication and
// authorization before handing things over to one of the crud services.
type Server struct {
	router  *mux.Router
	handler http.Handler
	config  Config
	metrics *Metrics

	us domain.UserService
	ts domain.TweetService
	fs domain.FollowService
	ls domain.LikeService
	ms domain.MediaService
}

// NewServer returns a new instance of the server, registers all necessary
// routes and gives their handlers access to the app services passed in.
func NewServer(services *crud.Services, config Config) *Server {
	// Construct a new Server with a gorilla router and the services passed in.
	s := &Server{
		router:  mux.NewRouter(),
		config:  config,
		metrics: NewMetrics(),
		us:      services.User,
		ts:      services.Tweet,
		fs:      services.Follow,
		ls:      services.Like,
		ms:      services.Media,
	}

	// Unknown routes and wrong methods get the usual error envelope.
	s.router.NotFoundHandler = http.HandlerFunc(handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	// Every route of the api lives under /api.
	api := s.router.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = s.router.NotFoundHandler
	api.MethodNotAllowedHandler = s.router.MethodNotAllowedHandler
	api.Use(setContentTypeJSON)
	if config.RateLimit > 0 {
		api.Use(httprate.Limit(
			config.RateLimit,
			config.RateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(handleTooManyRequests),
		))
	}

	// Register routes of the crud system.
	s.registerTweetRoutes(api)
	s.registerLikeRoutes(api)
	s.registerFollowRoutes(api)
	s.registerUserRoutes(api)
	s.registerMediaRoutes(api)

	// Register routes outside the api.
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	if prefix := strings.TrimRight(config.MediaURLPrefix, "/") + "/"; config.MediaRoot != "" && prefix != "/" {
		files := http.StripPrefix(prefix, http.FileServer(http.Dir(config.MediaRoot)))
		s.router.PathPrefix(prefix).Handler(noDirListing(files)).Methods("GET", "HEAD")
	}

	s.handler = s.observe(s.router)
	return s
}

// ServeHTTP makes the Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run listens and serves on the specified port until ctx is canceled.
// It then stops accepting connections and waits for running requests to finish.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.WithField("addr", srv.Addr).Info("listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// The setContentTypeJSON middleware sets the content type to "application/json".
func setContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// noDirListing answers requests for directories with 404.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			handleNotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	errs.ReturnError(w, r, errs.Errorf(errs.ENOTFOUND, "Not found."))
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	errs.ReturnError(w, r, errs.Errorf(errs.EMETHOD, "Method %s is not allowed here.", r.Method))
}

func handleTooManyRequests(w http.ResponseWriter, r *http.Request) {
	errs.ReturnError(w, r, errs.Errorf(errs.ETOOMANYREQUESTS, "Too many requests, slow down."))
}

// pathID parses the numeric route parameter "id".
func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, errs.Errorf(errs.EINVALID, "Invalid Id format.")
	}
	return id, nil
}
