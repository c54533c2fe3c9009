// Package http serves the transaction resource, the insight endpoint and the
// health probes over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"clinica/internal/cache"
	"clinica/internal/insight"
	"clinica/internal/ledger"
	"clinica/internal/log"
	"clinica/internal/middleware/ratelimit"
	"clinica/internal/middleware/security"
	"clinica/internal/middleware/trace"
)

const (
	defaultMaxBodyBytes = 64 << 10
	defaultInsightTTL   = 10 * time.Minute
	insightCacheSize    = 32
	storeTimeout        = 7 * time.Second
)

// Options configures a Server. Store is required; everything else has a
// usable default.
type Options struct {
	Store   ledger.Store
	Insight *insight.Service
	// Ready reports whether the backing store can serve requests.
	Ready          func(ctx context.Context) error
	Logger         *log.Logger
	RateLimit      ratelimit.Config
	AllowedOrigins []string
	InsightTTL     time.Duration
	MaxBodyBytes   int64
	// Now is the clock used for defaulting dates of created records.
	Now func() time.Time
}

type Server struct {
	http.Server
	store        ledger.Store
	insight      *insight.Service
	ready        func(ctx context.Context) error
	logger       *log.Logger
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	insightCache *cache.LRUCache[string]
	insightGroup singleflight.Group
	caches       *cache.Manager
	maxBody      int64
	now          func() time.Time
	started      time.Time
	shutdownOnce sync.Once
}

// NewServer wires routes and the middleware chain, returning a ready-to-run
// server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentHTTP)
	}
	if opts.Insight == nil {
		opts.Insight = insight.NewService(nil, logger.WithComponent(log.ComponentInsight))
	}
	if opts.InsightTTL <= 0 {
		opts.InsightTTL = defaultInsightTTL
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Ready == nil {
		opts.Ready = func(context.Context) error { return nil }
	}

	s := &Server{
		store:        opts.Store,
		insight:      opts.Insight,
		ready:        opts.Ready,
		logger:       logger,
		limiter:      ratelimit.NewLimiter(opts.RateLimit),
		detector:     security.NewDetector(logger.WithComponent(log.ComponentSecurity)),
		insightCache: cache.NewLRUCache[string](insightCacheSize, opts.InsightTTL),
		caches:       cache.NewManager(logger.WithComponent(log.ComponentCache)),
		maxBody:      opts.MaxBodyBytes,
		now:          opts.Now,
		started:      time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger.WithComponent(log.ComponentTrace), s.detector.ExtractClientIP)
	s.caches.Register(s.insightCache)
	s.caches.StartCleanup(opts.InsightTTL)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/transactions/{id}", s.handleTransaction)
	mux.HandleFunc("/api/insight", s.handleInsight)
	mux.HandleFunc("/api/", s.handleAPINotFound)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.writeRateLimited, http.MethodPost)(h)
	h = security.NewCORS(opts.AllowedOrigins).Middleware(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	h = log.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// insight calls can take a while
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}
	return s
}

// Shutdown stops accepting requests, waits for in-flight ones and releases
// the background cleanup goroutines. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
