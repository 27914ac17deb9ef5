package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/samjhill/dream-companion/internal/analysis"
	"github.com/samjhill/dream-companion/internal/database"
	"github.com/samjhill/dream-companion/internal/premium"
	"github.com/samjhill/dream-companion/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Reports use markdown tables.
var md = goldmark.New(goldmark.WithExtensions(extension.Table))

const shutdownTimeout = 5 * time.Second

// Server is the HTTP server for the journal API and report pages.
type Server struct {
	db      *database.DB
	source  *database.RecordSource
	engine  *analysis.Engine
	premium *premium.Checker
	limiter *userLimiter
	logger  *zap.Logger
	pages   map[string]*template.Template
	mux     *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRateLimit sets the per-user limit applied to analysis routes.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(s *Server) { s.limiter = newUserLimiter(requestsPerSecond, burst) }
}

// New creates a new Server.
func New(db *database.DB, engine *analysis.Engine, checker *premium.Checker, opts ...Option) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"formatDate": formatDate,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so its "title" and "content"
	// blocks do not collide.
	pageNames := []string{"index.html", "report.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		db:      db,
		source:  database.NewRecordSource(db),
		engine:  engine,
		premium: checker,
		limiter: newUserLimiter(2, 5),
		logger:  zap.NewNop(),
		pages:   pages,
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Pages
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /report", s.handleReportLookup)
	s.mux.Handle("GET /report/{user}", s.reportRoute(s.handleReport))

	// Journal API
	s.mux.HandleFunc("GET /api/{$}", s.handleHealth)
	s.mux.HandleFunc("GET /api/dreams/{user}", s.handleListDreams)
	s.mux.HandleFunc("POST /api/dreams/{user}", s.handleCreateDream)
	s.mux.HandleFunc("GET /api/dreams/{user}/{id}", s.handleGetDream)
	s.mux.HandleFunc("DELETE /api/dreams/{user}/{id}", s.handleDeleteDream)

	// Premium analysis API
	s.mux.Handle("GET /api/dream-analysis/advanced/{user}", s.analysisRoute(s.handleAdvanced))
	s.mux.Handle("GET /api/dream-analysis/archetypes/{user}", s.analysisRoute(s.handleArchetypes))
	s.mux.Handle("GET /api/dream-analysis/patterns/{user}", s.analysisRoute(s.handlePatterns))
	s.mux.HandleFunc("GET /api/dream-analysis/premium-status/{user}", s.handlePremiumStatus)
}

// analysisRoute guards h behind the premium check and the per-user limiter.
func (s *Server) analysisRoute(h http.HandlerFunc) http.Handler {
	return s.premium.Guard("user", s.rateLimit("user", h))
}

// reportRoute gates the report page on the user's subscription. Browsers do
// not send the API bearer token, so only the entitlement is checked.
func (s *Server) reportRoute(h http.HandlerFunc) http.Handler {
	limited := s.rateLimit("user", h)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.PathValue("user")
		ok, err := s.premium.Entitled(user)
		if err != nil {
			s.logger.Error("premium check failed", zap.String("user", user), zap.Error(err))
		}
		if !ok {
			s.render(w, http.StatusForbidden, "report.html", map[string]any{"User": user, "Locked": true})
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		s.logger.Error("reading stats", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, http.StatusOK, "index.html", map[string]any{
		"Stats":   stats,
		"Lexicon": s.engine.Lexicon().Version(),
	})
}

func (s *Server) handleReportLookup(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/report/"+url.PathEscape(user), http.StatusFound)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	rep, err := s.engine.AnalyzeSource(r.Context(), s.source, user)
	if errors.Is(err, analysis.ErrNoDreams) {
		s.render(w, http.StatusNotFound, "report.html", map[string]any{"User": user})
		return
	}
	stale := false
	if err != nil {
		s.logger.Error("analyzing dreams", zap.String("user", user), zap.Error(err))
		if rep = s.latestReport(user); rep == nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		stale = true
	} else {
		s.saveReport(user, rep)
	}

	history, err := s.db.GetReportHistory(user, 10)
	if err != nil {
		s.logger.Warn("reading report history", zap.String("user", user), zap.Error(err))
	}

	s.render(w, http.StatusOK, "report.html", map[string]any{
		"User":     user,
		"Report":   rep,
		"Stale":    stale,
		"Markdown": report.Markdown(rep, user),
		"History":  history,
	})
}

// latestReport returns the last stored report for user, or nil.
func (s *Server) latestReport(user string) *analysis.Report {
	stored, err := s.db.GetLatestReport(user)
	if err != nil {
		s.logger.Warn("reading latest report", zap.String("user", user), zap.Error(err))
		return nil
	}
	if stored == nil {
		return nil
	}
	var rep analysis.Report
	if err := json.Unmarshal(stored.ReportJSON, &rep); err != nil {
		s.logger.Warn("decoding stored report", zap.String("user", user), zap.Int64("report", stored.ID), zap.Error(err))
		return nil
	}
	return &rep
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("template not found", zap.String("template", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.logger.Error("rendering template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// formatDate renders a stored RFC 3339 or SQLite timestamp for display.
// Values in neither layout are returned unchanged.
func formatDate(value string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("Jan 2, 2006 15:04")
		}
	}
	return value
}

// Serve listens on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", "http://"+addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
