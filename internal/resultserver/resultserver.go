// Package resultserver exposes a run's live metrics and progress over
// a small read-only HTTP API, rate limited per client IP with one
// token-bucket limiter per key, created lazily and reused.
package resultserver

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"epidemicsim/internal/scheduler"
)

// Limiter lazily creates and caches one rate.Limiter per client key.
// Rate limiting lives only here, at the HTTP boundary: the
// deterministic simulation core never depends on wall-clock time, so
// wiring a token bucket into it would break seed-based reproducibility.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewLimiter builds a Limiter allowing ratePerSecond requests per
// second with the given burst, per client key.
func NewLimiter(ratePerSecond float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(ratePerSecond),
		burst:    burst,
	}
}

// Allow reports whether the client identified by key may proceed,
// creating that client's bucket on first use.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[key] = lim
	}
	return lim.Allow()
}

// Snapshot is the JSON body served at /status: the run's progress so far.
type Snapshot struct {
	RunID         string                     `json:"run_id"`
	Tick          int                        `json:"tick"`
	TotalTicks    int                        `json:"total_ticks"`
	InjectedOps   int                        `json:"injected_ops"`
	LatestMetrics *scheduler.MetricsSample   `json:"latest_metrics,omitempty"`
	Metrics       []scheduler.MetricsSample  `json:"metrics,omitempty"`
}

// SnapshotFunc produces the current Snapshot on demand; the server
// never mutates simulation state itself, only reads it.
type SnapshotFunc func() Snapshot

// Server is a minimal read-only HTTP server over a running simulation.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	limiter    *Limiter
	log        *zap.Logger
}

// New builds a results server bound to addr, serving whatever
// snapshot() returns at request time. When gatherer is non-nil, its
// collectors are additionally exposed at /metrics for Prometheus
// scraping, rate limited like every other route.
func New(addr string, ratePerSecond float64, burst int, snapshot SnapshotFunc, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{limiter: NewLimiter(ratePerSecond, burst), log: log.With(zap.String("component", "resultserver"))}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.withRateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshot()); err != nil {
			s.log.Warn("failed to encode status response", zap.Error(err))
		}
	}))
	mux.HandleFunc("/healthz", s.withRateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	if gatherer != nil {
		metricsHandler := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
		mux.Handle("/metrics", s.withRateLimit(metricsHandler.ServeHTTP))
	}

	s.handler = mux
	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Handler exposes the underlying mux for testing against httptest
// without binding a real listener.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !s.limiter.Allow(key) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ListenAndServe blocks serving the results API until the process is
// stopped or Close is called from another goroutine.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts the server down.
func (s *Server) Close() error {
	return s.httpServer.Close()
}
