// Package api provides the HTTP server for the AI financial analyst.
//
// It serves the interactive analysis page, a JSON API over the same
// fetch-and-summarize pipeline, statement downloads, and Prometheus metrics.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seenimoa/aifinanalyst/internal/analyst"
	"github.com/seenimoa/aifinanalyst/internal/config"
	"github.com/seenimoa/aifinanalyst/internal/observability/metrics"
	"github.com/seenimoa/aifinanalyst/internal/statement"
	"github.com/seenimoa/aifinanalyst/web"
)

// Version is reported by /health. Set at build time.
var Version = "dev"

// Server is the HTTP server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	fetcher analyst.StatementFetcher
	analyst *analyst.Analyst
	pages   *web.Renderer
	logger  *log.Logger
}

// NewServer creates a configured server with all routes and middleware.
func NewServer(cfg *config.Config, fetcher analyst.StatementFetcher, summarizer analyst.Summarizer, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}
	pages, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}
	metrics.Init()

	srv := &Server{
		cfg:     cfg,
		fetcher: fetcher,
		analyst: analyst.New(fetcher, summarizer, analyst.WithLogger(logger)),
		pages:   pages,
		logger:  logger,
	}
	srv.router = srv.buildRouter()
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.runTimeout() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Printf("api: listening on %s", addr)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-done:
	}
	s.logger.Println("api: shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

// runTimeout bounds one pipeline run: both outbound calls back to back.
func (s *Server) runTimeout() time.Duration {
	d := s.cfg.FMP.Timeout + s.cfg.LLM.Timeout
	if d <= 0 {
		d = 150 * time.Second
	}
	return d
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: s.logger, NoColor: true}))
	r.Use(middleware.Recoverer)

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	// Interactive page
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.runTimeout()))
		r.Get("/", s.handleIndex)
		r.Post("/run", s.handleRun)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.runTimeout()))

		r.Get("/health", s.handleHealth)
		r.Post("/analyze", s.handleAnalyze)

		r.Get("/statements/{ticker}", s.handleStatement)
		r.Get("/statements/{ticker}/export", s.handleExport)

		r.Get("/config", s.handleGetConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// AnalyzeRequest is the body for POST /api/v1/analyze. Type and Period
// accept anything statement.ParseType / ParsePeriod accept; empty fields
// take the configured defaults.
type AnalyzeRequest struct {
	Ticker string `json:"ticker"`
	Type   string `json:"type,omitempty"`
	Period string `json:"period,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// StatementResponse is returned by GET /api/v1/statements/{ticker}.
type StatementResponse struct {
	Request statement.Request `json:"request"`
	Table   *statement.Table  `json:"table"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":  "ok",
			"version": Version,
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	req, _ := s.parseRequest("", r.URL.Query().Get("type"), r.URL.Query().Get("period"), r.URL.Query().Get("limit"))
	s.renderPage(w, http.StatusOK, web.Page{Form: web.NewForm(req)})
}

// handleRun is the form submit: run the pipeline and render the page with
// notices, table and summary.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	req, err := s.parseRequest(r.PostFormValue("ticker"), r.PostFormValue("type"), r.PostFormValue("period"), r.PostFormValue("limit"))
	if err != nil {
		res := &analyst.Result{Request: req, Table: statement.NewTable(), Outcome: analyst.OutcomeInvalid,
			Notices: []analyst.Notice{{Level: analyst.LevelError, Message: analyst.ValidationMessage(err)}}}
		s.renderPage(w, http.StatusBadRequest, web.Page{Form: web.NewForm(req), Result: res})
		return
	}

	res := s.analyst.Run(r.Context(), req)
	page := web.Page{Form: web.NewForm(res.Request), Result: res}
	if !res.Table.Empty() {
		page.Downloads = downloadLinks(res.Request)
	}
	s.renderPage(w, http.StatusOK, page)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := s.parseRequest(body.Ticker, body.Type, body.Period, limitString(body.Limit))
	if err != nil {
		writeError(w, http.StatusBadRequest, analyst.ValidationMessage(err))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, analyst.ValidationMessage(err))
		return
	}

	res := s.analyst.Run(r.Context(), req)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: !res.HasErrors(),
		Data:    res,
		Error:   firstError(res),
	})
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	req, ok := s.statementRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	table, err := s.fetcher.Fetch(r.Context(), req)
	metrics.ObserveFetch(req.Type.String(), metrics.Result(err), time.Since(start))
	if err != nil {
		writeError(w, fetchStatus(err), analyst.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    StatementResponse{Request: req, Table: table},
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := statement.ExportCSV
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := statement.ParseExportFormat(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}
	req, ok := s.statementRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	table, err := s.fetcher.Fetch(r.Context(), req)
	metrics.ObserveFetch(req.Type.String(), metrics.Result(err), time.Since(start))
	if err != nil {
		writeError(w, fetchStatus(err), analyst.UserMessage(err))
		return
	}

	// Buffer so a failed export can still become a JSON error.
	var buf bytes.Buffer
	exportStart := time.Now()
	err = statement.Export(&buf, table, format, req.Ticker+" "+req.Type.String())
	metrics.ObserveExport(string(format), metrics.Result(err), time.Since(exportStart))
	if err != nil {
		s.logger.Printf("api: export %s: %v", req, err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFilename(req, format)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// ============================================================
// Helpers
// ============================================================

// parseRequest builds a Request from raw form/query values. Empty values
// take the configured defaults. Unparseable values are reported; range
// checks are left to Request.Validate.
func (s *Server) parseRequest(ticker, typ, period, limit string) (statement.Request, error) {
	def := s.cfg.Request
	if strings.TrimSpace(typ) == "" {
		typ = def.DefaultType
	}
	if strings.TrimSpace(period) == "" {
		period = def.DefaultPeriod
	}

	req := statement.NewRequest(ticker, 0, 0, def.DefaultLimit)
	if req.Limit == 0 {
		req.Limit = statement.DefaultLimit
	}

	var errs []error
	if t, err := statement.ParseType(typ); err != nil {
		errs = append(errs, err)
	} else {
		req.Type = t
	}
	if p, err := statement.ParsePeriod(period); err != nil {
		errs = append(errs, err)
	} else {
		req.Period = p
	}
	if strings.TrimSpace(limit) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(limit))
		if err != nil {
			errs = append(errs, fmt.Errorf("%w (got %q)", statement.ErrLimitRange, limit))
		} else {
			req.Limit = n
		}
	}
	return req, errors.Join(errs...)
}

// statementRequest parses and validates the ticker route plus its query.
// It writes the error response itself when the request is unusable.
func (s *Server) statementRequest(w http.ResponseWriter, r *http.Request) (statement.Request, bool) {
	q := r.URL.Query()
	req, err := s.parseRequest(chi.URLParam(r, "ticker"), q.Get("type"), q.Get("period"), q.Get("limit"))
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, analyst.ValidationMessage(err))
		return req, false
	}
	return req, true
}

func (s *Server) renderPage(w http.ResponseWriter, status int, page web.Page) {
	var buf bytes.Buffer
	if err := s.pages.Render(&buf, page); err != nil {
		s.logger.Printf("api: render page: %v", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// ExportFilename names a download, e.g. "AAPL-cash-flow-annual.csv".
func ExportFilename(req statement.Request, format statement.ExportFormat) string {
	return fmt.Sprintf("%s-%s-%s.%s", req.Ticker, statement.MustKind(req.Type).Slug, req.Period, format)
}

func downloadLinks(req statement.Request) []web.Link {
	q := url.Values{}
	q.Set("type", statement.MustKind(req.Type).Slug)
	q.Set("period", req.Period.String())
	q.Set("limit", strconv.Itoa(req.Limit))

	var links []web.Link
	for _, f := range []struct {
		label  string
		format statement.ExportFormat
	}{{"CSV", statement.ExportCSV}, {"Excel", statement.ExportXLSX}} {
		q.Set("format", string(f.format))
		u := "/api/v1/statements/" + url.PathEscape(req.Ticker) + "/export?" + q.Encode()
		links = append(links, web.Link{Label: f.label, URL: template.URL(u)})
	}
	return links
}

// fetchStatus maps a fetch failure to the status this server answers with.
func fetchStatus(err error) int {
	var fe *statement.FetchError
	if !errors.As(err, &fe) {
		return http.StatusBadGateway
	}
	switch {
	case fe.Timeout():
		return http.StatusGatewayTimeout
	case fe.Kind == statement.ErrKindHTTP && fe.StatusCode == http.StatusNotFound,
		fe.Kind == statement.ErrKindData:
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func firstError(res *analyst.Result) string {
	for _, n := range res.Notices {
		if n.Level == analyst.LevelError {
			return n.Message
		}
	}
	return ""
}

func limitString(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
