package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"billing/internal/cache"
	applog "billing/internal/log"
	"billing/internal/middleware/ratelimit"
	"billing/internal/middleware/security"
	"billing/internal/middleware/trace"
	"billing/internal/store"
	"billing/internal/tracker"
	appweb "billing/web"
)

const (
	defaultListTimeout = 7 * time.Second
	sessionSweepEvery  = 10 * time.Minute
)

type Options struct {
	Addr         string
	AppName      string
	AppSlug      string
	Practitioner string

	SessionTTL time.Duration
	SessionMax int
	// ListTimeout bounds each report query. Defaults to 7s.
	ListTimeout time.Duration
	// WritesPerMinute caps POST and DELETE requests per client.
	WritesPerMinute int
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool

	Logger *applog.Logger
	Now    func() time.Time
}

type appMetrics struct {
	uptime         time.Time
	entriesSaved   atomic.Int64
	entriesDeleted atomic.Int64
	writeErrors    atomic.Int64
	exports        atomic.Int64
	sessionsOpened atomic.Int64
}

// Server is the billing tracker web server. Each browser session gets its
// own tracker.View, kept in an LRU cache with an idle ttl.
type Server struct {
	http.Server

	store     store.BillingStore
	opts      Options
	validate  *validator.Validate
	templates *template.Template
	sessions  *cache.LRUCache[*tracker.View]

	logger   *applog.Logger
	events   *applog.StructuredLogger
	trace    *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter

	appMetrics appMetrics

	stopBackground context.CancelFunc
	shutdownOnce   sync.Once
}

// NewServer parses the embedded templates, mounts every route and starts
// the session and rate limit sweepers. Shutdown stops them.
func NewServer(opts Options, s store.BillingStore) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ListTimeout <= 0 {
		opts.ListTimeout = defaultListTimeout
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	if opts.SessionMax <= 0 {
		opts.SessionMax = 500
	}
	if opts.AppName == "" {
		opts.AppName = "NovaBody"
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	srv := &Server{
		store:     s,
		opts:      opts,
		validate:  tracker.NewValidator(),
		templates: t,
		sessions:  cache.NewLRUCache[*tracker.View](opts.SessionMax, opts.SessionTTL),
		logger:    logger,
		events:    applog.NewStructuredLogger(opts.Logger.WithComponent(applog.ComponentTracker)),
		detector:  security.NewDetector(),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.WritesPerMinute}),
	}
	srv.appMetrics.uptime = time.Now()
	srv.trace = trace.NewMiddleware(opts.Logger, srv.detector.ClientIP)

	mux := http.NewServeMux()
	if err := srv.routes(mux); err != nil {
		return nil, err
	}

	var handler http.Handler = mux
	handler = srv.limiter.Middleware(srv.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})(handler)
	handler = srv.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = applog.Middleware(opts.Logger)(handler)
	handler = srv.trace.Middleware(handler)

	srv.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv.stopBackground = cancel
	go cache.NewJanitor(srv.sessions).Run(ctx, sessionSweepEvery)
	go srv.limiter.Run(ctx, ratelimit.DefaultConfig().CleanupInterval)

	return srv, nil
}

func (s *Server) routes(mux *http.ServeMux) error {
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return err
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("GET /{$}", s.withSession(s.handleIndex))
	mux.Handle("POST /entries", s.withSession(s.handleSubmit))
	mux.Handle("POST /entries/cancel", s.withSession(s.handleCancelEdit))
	mux.Handle("GET /entries/{id}/edit", s.withSession(s.handleEdit))
	mux.Handle("DELETE /entries/{id}", s.withSession(s.handleDelete))
	mux.Handle("POST /entries/{id}/delete", s.withSession(s.handleDelete))
	mux.Handle("GET /ui/report", s.withSession(s.handleReport))
	mux.Handle("POST /ui/report/refresh", s.withSession(s.handleReportRefresh))
	mux.Handle("GET /report/export.csv", s.withSession(s.handleExport))
	return nil
}

// newView builds the tracker state for a fresh session.
func (s *Server) newView() *tracker.View {
	s.appMetrics.sessionsOpened.Add(1)
	return tracker.New(s.store, tracker.Options{
		Practitioner: s.opts.Practitioner,
		AppSlug:      s.opts.AppSlug,
		ListTimeout:  s.opts.ListTimeout,
		Now:          s.opts.Now,
		Validator:    s.validate,
	})
}

// render executes a template into memory so a failure can still produce
// a clean error response.
func (s *Server) render(ctx context.Context, name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(ctx, "Template execution failed",
			applog.FieldTemplate, name,
			applog.FieldError, err,
			applog.FieldOperation, applog.OpRender)
		return nil, err
	}
	return buf.Bytes(), nil
}

// Shutdown stops the background sweepers and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.stopBackground != nil {
			s.stopBackground()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}
