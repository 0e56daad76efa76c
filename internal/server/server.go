package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/nao1215/sitescan/internal/database"
	"github.com/nao1215/sitescan/internal/model"
	"github.com/nao1215/sitescan/internal/session"
)

// Session identity carriers.
const (
	SessionCookieName = "sitescan_session"
	SessionHeaderName = "X-Session-ID"
)

// HistoryStore persists settled scans and answers history queries.
// *database.HistoryDB implements it.
type HistoryStore interface {
	SaveScanReport(ctx context.Context, report *model.ScanReport) (int64, error)
	GetRecentScans(ctx context.Context, limit int) ([]database.ScanRecord, error)
	GetScanReportByID(ctx context.Context, id int64) (*model.ScanReport, error)
}

// Server is the HTTP + WebSocket API surface for sitescan.
type Server struct {
	cfg      Config
	sender   session.Sender
	history  HistoryStore
	sessions *sessionTable
	limiter  *rate.Limiter
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger

	// ctx outlives individual requests; scans started by a request keep
	// running after the response and stop when the server closes.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a Server that sends scans through sender. history may
// be nil, in which case settled scans are not stored and the history
// endpoints answer 503.
func NewServer(cfg Config, sender session.Sender, history HistoryStore) (*Server, error) {
	if sender == nil {
		return nil, errors.New("server: scan sender is required")
	}
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		sender:  sender,
		history: history,
		router:  chi.NewRouter(),
		logger:  cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	if cfg.ScanRate > 0 {
		burst := int(math.Ceil(cfg.ScanRate))
		s.limiter = rate.NewLimiter(rate.Limit(cfg.ScanRate), burst)
	}

	sessions, err := newSessionTable(cfg.MaxSessions, s.newController)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating session table: %w", err)
	}
	s.sessions = sessions

	s.routes()
	return s, nil
}

func (s *Server) newController() *session.Controller {
	opts := []session.Option{session.WithLogger(s.logger)}
	if s.history != nil {
		opts = append(opts, session.WithOnSettled(s.saveHistory))
	}
	return session.NewController(s.sender, opts...)
}

// saveHistory stores a settled scan. Failures are logged; they never
// affect the session.
func (s *Server) saveHistory(st session.State) {
	report := st.Report()
	if report == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), historySaveTimeout)
	defer cancel()

	id, err := s.history.SaveScanReport(ctx, report)
	if err != nil {
		s.logger.Warn("saving scan history", "target", report.Identifier.String(), "error", err)
		return
	}
	s.logger.Debug("saved scan history", "target", report.Identifier.String(), "id", id)
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/api/scan", s.optionsHandler("POST"))
	r.Options("/api/session", s.optionsHandler("GET, DELETE"))
	r.Options("/api/checks", s.optionsHandler("GET"))
	r.Options("/api/scans/history", s.optionsHandler("GET"))
	r.Options("/api/scans/{id}", s.optionsHandler("GET"))

	r.Post("/api/scan", s.handleSubmitScan)
	r.Get("/api/session", s.handleGetSession)
	r.Delete("/api/session", s.handleResetSession)

	r.Get("/api/checks", s.handleListChecks)
	r.Get("/api/scans/history", s.handleScanHistory)
	r.Get("/api/scans/{id}", s.handleGetScan)

	r.Get("/ws/session", s.handleSessionWS)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SessionHeaderName)
		w.Header().Set("Access-Control-Expose-Headers", SessionHeaderName)
		w.Header().Set("Access-Control-Max-Age", "86400")
		if s.cfg.AllowedOrigin != "*" {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.AllowedOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.cfg.AllowedOrigin
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("http_request", "method", r.Method, "path", r.URL.Path)
	s.router.ServeHTTP(w, r)
}

// Close cancels in-flight scans and closes every session.
func (s *Server) Close() {
	s.cancel()
	s.sessions.closeAll()
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// --- Session identity ---

// sessionID returns the session ID presented by the client, if it is a UUID.
func sessionID(r *http.Request) (string, bool) {
	id := r.Header.Get(SessionHeaderName)
	if id == "" {
		if c, err := r.Cookie(SessionCookieName); err == nil {
			id = c.Value
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func sessionCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// lookupSession returns the controller of the client's session, if any.
func (s *Server) lookupSession(r *http.Request) (*session.Controller, bool) {
	id, ok := sessionID(r)
	if !ok {
		return nil, false
	}
	return s.sessions.get(id)
}

// ensureSession returns the client's session controller, creating a session
// when the client has none. The returned header carries the session cookie
// and ID for the client to keep.
func (s *Server) ensureSession(r *http.Request) (*session.Controller, http.Header) {
	id, ok := sessionID(r)
	if !ok {
		id = uuid.NewString()
	}
	c, created := s.sessions.getOrCreate(id)
	if created {
		s.logger.Debug("session created", "session_id", id, "sessions", s.sessions.len())
	}

	h := http.Header{}
	h.Set(SessionHeaderName, id)
	h.Add("Set-Cookie", sessionCookie(id).String())
	return c, h
}

func copyHeader(w http.ResponseWriter, h http.Header) {
	for k, values := range h {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
}

// --- HTTP handlers ---

func (s *Server) handleSubmitScan(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "too many scan submissions, try again later")
		return
	}

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, header := s.ensureSession(r)
	copyHeader(w, header)

	err := c.Submit(s.ctx, req.URL)
	var verr *model.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, c.State())
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Reason: verr.Reason.String()})
	case errors.Is(err, session.ErrBusy):
		writeJSON(w, http.StatusConflict, c.State())
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Warn("submitting scan", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupSession(r)
	if !ok {
		writeJSON(w, http.StatusOK, session.State{})
		return
	}
	writeJSON(w, http.StatusOK, c.State())
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupSession(r)
	if !ok {
		writeJSON(w, http.StatusOK, session.State{})
		return
	}
	c.Reset()
	writeJSON(w, http.StatusOK, c.State())
}

// handleListChecks serves the fixed check set in display order so a front
// end can label results the same way the reports do.
func (s *Server) handleListChecks(w http.ResponseWriter, _ *http.Request) {
	checks := model.KnownChecks()
	out := make([]CheckResponse, len(checks))
	for i, c := range checks {
		out[i] = CheckResponse{
			Name:           string(c.Name),
			Label:          c.Label,
			Recommendation: c.Recommendation,
			PresenceIsGood: c.PresenceIsGood,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleScanHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "scan history is disabled")
		return
	}

	limit := s.cfg.HistoryLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, maxHistoryLimit)
	}

	records, err := s.history.GetRecentScans(r.Context(), limit)
	if err != nil {
		s.logger.Warn("fetching scan history", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to retrieve scan history",
			Details: err.Error(),
		})
		return
	}
	if records == nil {
		records = []database.ScanRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "scan history is disabled")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "scan id must be a positive integer")
		return
	}

	report, err := s.history.GetScanReportByID(r.Context(), id)
	if err != nil {
		s.logger.Warn("fetching scan report", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to retrieve scan report",
			Details: err.Error(),
		})
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
