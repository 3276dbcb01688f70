// Package http serves the bill JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"billbook/internal/core"
	"billbook/internal/log"
	"billbook/internal/middleware/ratelimit"
	"billbook/internal/middleware/security"
	"billbook/internal/middleware/trace"
)

// maxBodyBytes bounds create and update payloads.
const maxBodyBytes = 1 << 20

// BillService is what the API needs from the service layer.
type BillService interface {
	List(ctx context.Context) ([]core.Bill, error)
	Create(ctx context.Context, in core.BillInput) (int64, error)
	Update(ctx context.Context, id int64, in core.BillInput) error
	Remove(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// Options tune the middleware chain.
type Options struct {
	CORSOrigin        string
	RequestsPerMinute int
	TrustedProxies    []string
}

type Server struct {
	http.Server
	bills    BillService
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, bills BillService, logger *log.Logger, opts Options) (*Server, error) {
	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		bills:    bills,
		logger:   logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		detector: detector,
	}
	s.tracer = trace.NewMiddleware(logger, detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /bills", s.handleListBills)
	mux.HandleFunc("POST /bills", s.handleCreateBill)
	mux.HandleFunc("PUT /bills/{id}", s.handleUpdateBill)
	mux.HandleFunc("DELETE /bills/{id}", s.handleDeleteBill)

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, ratelimit.Mutations, s.onRateLimit)(h)
	h = security.CORS(security.DefaultCORSConfig(opts.CORSOrigin))(h)
	h = detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.APIHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	s.Handler = h

	return s, nil
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}

// Shutdown stops the listener and the limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)

		m := s.tracer.GetMetrics()
		rl := s.limiter.GetMetrics()
		s.logger.Info("API server stopped",
			"total_requests", m.TotalRequests,
			"rate_limit_hits", rl.TotalHits,
			"suspicious_requests", s.detector.GetMetrics().SuspiciousRequests)
	})
	return err
}
