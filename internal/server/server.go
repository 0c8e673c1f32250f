package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/logger"
	"github.com/jonathan/resume-analyzer/internal/pipeline"
	"github.com/jonathan/resume-analyzer/internal/server/middleware"
	"github.com/jonathan/resume-analyzer/internal/server/ratelimit"
	"github.com/jonathan/resume-analyzer/internal/tracker"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// DefaultMaxUploadBytes caps request bodies when no limit is configured.
const DefaultMaxUploadBytes int64 = 10 << 20

// DefaultAnalysisTimeout bounds a background analysis.
const DefaultAnalysisTimeout = 10 * time.Minute

// defaultOrigins are the local frontend dev servers.
var defaultOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// Analyzer runs one analysis. *pipeline.Analyzer implements it.
type Analyzer interface {
	AnalyzeWithID(ctx context.Context, analysisID string, req pipeline.AnalyzeRequest, onProgress pipeline.ProgressSink) (*types.AnalysisResult, error)
}

// Store reads stored analyses. *db.DB implements it.
type Store interface {
	GetAnalysis(ctx context.Context, id uuid.UUID) (*db.Analysis, error)
	ListAnalyses(ctx context.Context, limit int) ([]types.AnalysisSummary, error)
	DeleteAnalysis(ctx context.Context, id uuid.UUID) (bool, error)
	Ping(ctx context.Context) error
}

// Config holds server configuration
type Config struct {
	Port            int
	FrontendURL     string
	MaxUploadBytes  int64
	AnalysisTimeout time.Duration
	JWT             *config.JWTConfig // nil disables authentication
	RateLimit       *ratelimit.Config // nil uses the limiter defaults
	Logger          *zap.Logger
}

// Deps are the services the handlers call. Store is optional; its endpoints
// answer 503 without it. A nil Tracker is replaced by one the server owns.
type Deps struct {
	Analyzer Analyzer
	Tracker  *tracker.Tracker
	Store    Store
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	analyzer    Analyzer
	tracker     *tracker.Tracker
	ownTracker  bool
	store       Store
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	origins     []string
	maxUpload   int64
	runTimeout  time.Duration
	logger      *zap.Logger

	// background runs outlive their request but not the server
	baseCtx    context.Context
	cancelRuns context.CancelFunc
	runs       sync.WaitGroup
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Analyzer == nil {
		return nil, fmt.Errorf("server requires an analyzer")
	}

	s := &Server{
		analyzer:    deps.Analyzer,
		tracker:     deps.Tracker,
		store:       deps.Store,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		origins:     allowedOrigins(cfg.FrontendURL),
		maxUpload:   cfg.MaxUploadBytes,
		runTimeout:  cfg.AnalysisTimeout,
		logger:      logger.OrNop(cfg.Logger),
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	if s.runTimeout <= 0 {
		s.runTimeout = DefaultAnalysisTimeout
	}
	if cfg.JWT != nil {
		s.jwtService = NewJWTService(cfg.JWT)
	}
	if s.tracker == nil {
		s.tracker = tracker.New(tracker.Config{Logger: s.logger})
		s.tracker.StartJanitor(time.Minute)
		s.ownTracker = true
	}
	s.baseCtx, s.cancelRuns = context.WithCancel(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/analyze", s.handleStartAnalysis)
	mux.HandleFunc("POST /api/analyze/sync", s.handleAnalyze)
	mux.HandleFunc("POST /api/analyze/stream", s.handleAnalyzeStream)
	mux.HandleFunc("POST /api/analyses", s.handleStartAnalysis)
	mux.HandleFunc("GET /api/analyses", s.handleListAnalyses)
	mux.HandleFunc("GET /api/analysis/{id}", s.handleGetAnalysis)
	mux.HandleFunc("GET /api/analysis/{id}/stream", s.handleAnalysisStream)
	mux.HandleFunc("DELETE /api/analysis/{id}", s.handleDeleteAnalysis)

	// CORS is outermost so 401 and 429 responses carry the allow headers.
	s.handler = s.withCORS(s.withLogging(s.withRateLimit(s.withAuth(mux))))
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      s.runTimeout + 30*time.Second, // synchronous and streaming analyses
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens for requests until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.Close()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Close cancels background analyses and waits for them. It then stops the
// rate limiter and any tracker the server created.
func (s *Server) Close() {
	s.cancelRuns()
	s.runs.Wait()
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.ownTracker {
		s.tracker.Close()
	}
}

func allowedOrigins(frontendURL string) []string {
	origins := slices.Clone(defaultOrigins)
	if frontendURL = strings.TrimRight(strings.TrimSpace(frontendURL), "/"); frontendURL != "" && !slices.Contains(origins, frontendURL) {
		origins = append(origins, frontendURL)
	}
	return origins
}

// withCORS adds CORS headers for the configured frontend origins
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && slices.Contains(s.origins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Last-Event-ID")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withAuth requires a bearer token on /api/ routes when a JWT secret is configured
func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.jwtService == nil {
		return next
	}
	protected := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			protected.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, clientID, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Flush keeps SSE streaming working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response. detail repeats the message
// under the key the web frontend reads.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message, "detail": message})
}

// writeError maps err to a status and writes it. Server faults are logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	s.errorResponse(w, status, err.Error())
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, clientID string, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}

	if info.RetryAfter > 0 {
		seconds := int((info.RetryAfter + time.Second - 1) / time.Second)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Warn("rate limit exceeded",
		zap.String("client", clientID),
		zap.Int("limit", info.Limit),
		zap.Duration("retry_after", info.RetryAfter),
	)

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
