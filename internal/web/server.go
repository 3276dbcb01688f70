// Package web serves the server-rendered bill book pages.
package web

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"billbook/internal/core"
	"billbook/internal/log"
	"billbook/internal/middleware/ratelimit"
	"billbook/internal/middleware/security"
	"billbook/internal/middleware/trace"
	appweb "billbook/web"
)

const maxFormBytes = 1 << 20

// BillsAPI is the subset of the API client the pages use.
type BillsAPI interface {
	List(ctx context.Context) ([]core.Bill, error)
	Create(ctx context.Context, in core.BillInput) (int64, error)
	Update(ctx context.Context, id int64, in core.BillInput) error
	Delete(ctx context.Context, id int64) error
}

type Options struct {
	RequestsPerMinute int
	TrustedProxies    []string
	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server
	api      BillsAPI
	logger   *log.Logger
	pages    map[string]*template.Template
	partials *template.Template
	now      func() time.Time

	fetches  singleflight.Group
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and configures routes.
func NewServer(addr string, api BillsAPI, logger *log.Logger, opts Options) (*Server, error) {
	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		api:      api,
		logger:   logger.WithComponent(log.ComponentWeb),
		now:      opts.Now,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		detector: detector,
	}
	if err := s.parseTemplates(); err != nil {
		s.limiter.Stop()
		return nil, err
	}

	mux := http.NewServeMux()
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		s.limiter.Stop()
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /bills", s.handleBills)
	mux.HandleFunc("POST /bills", s.handleSubmitBill)
	mux.HandleFunc("POST /bills/{id}/delete", s.handleDeleteBill)
	mux.HandleFunc("GET /bills/total-preview", s.handleTotalPreview)
	mux.HandleFunc("GET /analysis", s.handleAnalysis)
	mux.HandleFunc("GET /report.pdf", s.handleReport)

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, ratelimit.Mutations, nil)(h)
	h = detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.WebHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(logger, detector.ExtractClientIP).Middleware(h)
	s.Handler = h

	return s, nil
}

func (s *Server) parseTemplates() error {
	s.pages = make(map[string]*template.Template)
	for _, page := range []string{"bills.html", "analysis.html"} {
		t, err := template.New(page).Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/layout.html", "templates/partials.html", "templates/"+page)
		if err != nil {
			return fmt.Errorf("parse %s: %w", page, err)
		}
		s.pages[page] = t
	}

	t, err := template.New("partials").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/partials.html")
	if err != nil {
		return fmt.Errorf("parse partials: %w", err)
	}
	s.partials = t
	return nil
}

// listBills shares one in-flight API call among concurrent renders. The
// result is not kept once the call returns; callers get their own copy.
func (s *Server) listBills(ctx context.Context) ([]core.Bill, error) {
	v, err, shared := s.fetches.Do("bills", func() (any, error) {
		return s.api.List(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.FromContext(ctx).DebugContext(ctx, "Shared in-flight bill fetch")
	}
	return slices.Clone(v.([]core.Bill)), nil
}

// Shutdown stops the listener and background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
