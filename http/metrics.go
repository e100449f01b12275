package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// slowRequest is the duration above which requests are logged as warnings.
const slowRequest = 2 * time.Second

// Metrics holds the prometheus counters of a Server. Each Server has its own
// registry, so any number of servers can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	Requests      *prometheus.CounterVec
	TweetsCreated prometheus.Counter
	Likes         *prometheus.CounterVec
	Follows       *prometheus.CounterVec
	MediaUploads  *prometheus.CounterVec
}

// NewMetrics creates and registers the counters.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetty_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),
		TweetsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tweetty_tweets_created_total",
				Help: "Total number of created tweets",
			},
		),
		Likes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetty_likes_total",
				Help: "Total number of successful like requests, by whether a like was created",
			},
			[]string{"result"},
		),
		Follows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetty_follows_total",
				Help: "Total number of successful follow requests, by whether a follow was created",
			},
			[]string{"result"},
		),
		MediaUploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetty_media_uploads_total",
				Help: "Total number of media uploads by outcome",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(m.Requests)
	m.registry.MustRegister(m.TweetsCreated)
	m.registry.MustRegister(m.Likes)
	m.registry.MustRegister(m.Follows)
	m.registry.MustRegister(m.MediaUploads)

	return m
}

// Handler serves the metrics in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// createdLabel is the "result" label of idempotent create requests.
func createdLabel(created bool) string {
	if created {
		return "created"
	}
	return "existing"
}

// statusRecorder remembers the status code written to a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// observe counts and logs every request once it has completed.
// Requests taking longer than slowRequest are logged as warnings.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := s.routeTemplate(r)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		s.metrics.Requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()

		entry := logrus.WithFields(logrus.Fields{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    rec.status,
			"duration":  duration,
			"remote_ip": r.RemoteAddr,
		})
		if duration > slowRequest {
			entry.Warn("slow request")
		} else {
			entry.Info("request completed")
		}
	})
}

// routeTemplate returns the path template of the route matching r, so that
// requests for different tweets share one metrics label.
func (s *Server) routeTemplate(r *http.Request) string {
	var match mux.RouteMatch
	if !s.router.Match(r, &match) || match.Route == nil {
		return "unmatched"
	}
	tpl, err := match.Route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}
	return tpl
}
