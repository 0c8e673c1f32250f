package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/logger"
	"github.com/jonathan/resume-analyzer/internal/pipeline"
	"github.com/jonathan/resume-analyzer/internal/tracker"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// StartResponse is returned when an analysis is started in the background
type StartResponse struct {
	AnalysisID string `json:"analysis_id"`
	Status     string `json:"status"`
}

// Background analysis states.
const (
	statusStarted = "started"
	statusRunning = "running"
	statusFailed  = "failed"
)

// handleRoot returns the API banner
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"message": "AI Resume Analyzer API",
		"status":  "running",
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if s.store != nil {
		resp["database"] = "ok"
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.Warn("database ping failed", zap.Error(err))
			resp["database"] = "unavailable"
		}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleAnalyze runs an analysis and returns its result
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := s.readAnalyzeRequest(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.analyzer.AnalyzeWithID(r.Context(), uuid.NewString(), req, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleAnalyzeStream runs an analysis and streams its progress as SSE
func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.readAnalyzeRequest(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	analysisID := uuid.NewString()
	log := s.logger.With(zap.String(logger.FieldAnalysisID, analysisID))
	onProgress := func(update types.AgentUpdate) {
		if err := sse.WriteEvent(eventUpdate, update); err != nil {
			log.Debug("failed to write SSE event", zap.Error(err))
		}
	}

	result, err := s.analyzer.AnalyzeWithID(r.Context(), analysisID, req, onProgress)
	if err != nil {
		log.Warn("streaming analysis failed", zap.Error(err))
		sse.WriteError(err.Error())
		return
	}
	if err := sse.WriteEvent(eventComplete, result); err != nil {
		log.Debug("failed to write SSE result", zap.Error(err))
	}
}

// handleStartAnalysis starts an analysis in the background
func (s *Server) handleStartAnalysis(w http.ResponseWriter, r *http.Request) {
	req, err := s.readAnalyzeRequest(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	analysisID := uuid.NewString()
	run, err := s.tracker.Start(analysisID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		ctx, cancel := context.WithTimeout(s.baseCtx, s.runTimeout)
		defer cancel()

		result, err := s.analyzer.AnalyzeWithID(ctx, analysisID, req, run.Publish)
		if err != nil {
			s.logger.Warn("background analysis failed", zap.String(logger.FieldAnalysisID, analysisID), zap.Error(err))
		}
		run.Finish(result, err)
	}()

	s.jsonResponse(w, http.StatusAccepted, StartResponse{AnalysisID: analysisID, Status: statusStarted})
}

// handleAnalysisStream replays and follows the events of a background analysis
func (s *Server) handleAnalysisStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, ok := s.tracker.Get(id)
	if !ok {
		s.writeError(w, r, &ErrNotFound{AnalysisID: id})
		return
	}

	var since int64
	if last := r.Header.Get("Last-Event-ID"); last != "" {
		if n, err := strconv.ParseInt(last, 10, 64); err == nil && n > 0 {
			since = n
		}
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	err = run.Stream(r.Context(), since, func(event tracker.Event) error {
		switch event.Type {
		case tracker.EventTypeUpdate:
			return sse.WriteEventWithID(event.Seq, eventUpdate, event.Update)
		case tracker.EventTypeResult:
			return sse.WriteEventWithID(event.Seq, eventComplete, event.Result)
		default:
			return sse.WriteEventWithID(event.Seq, eventError, map[string]string{"error": event.Error})
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("analysis stream ended", zap.String(logger.FieldAnalysisID, id), zap.Error(err))
	}
}

// handleGetAnalysis returns a background or stored analysis
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if run, ok := s.tracker.Get(id); ok {
		result, done, err := run.Outcome()
		switch {
		case !done:
			s.jsonResponse(w, http.StatusAccepted, StartResponse{AnalysisID: id, Status: statusRunning})
		case err != nil:
			s.jsonResponse(w, HTTPStatus(err), map[string]string{
				"analysis_id": id,
				"status":      statusFailed,
				"error":       err.Error(),
			})
		default:
			s.jsonResponse(w, http.StatusOK, result)
		}
		return
	}

	analysisID, err := uuid.Parse(id)
	if err != nil {
		s.writeError(w, r, &ErrValidation{Field: "id", Message: "invalid analysis ID format"})
		return
	}
	if s.store == nil {
		s.writeError(w, r, &ErrNotFound{AnalysisID: id})
		return
	}

	analysis, err := s.store.GetAnalysis(r.Context(), analysisID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if analysis == nil || analysis.Result == nil {
		s.writeError(w, r, &ErrNotFound{AnalysisID: id})
		return
	}
	s.jsonResponse(w, http.StatusOK, analysis.Result)
}

// handleListAnalyses lists recently stored analyses
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, &ErrUnavailable{Feature: "database"})
		return
	}

	limit := db.DefaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			s.writeError(w, r, &ErrValidation{Field: "limit", Message: "must be an integer"})
			return
		}
		limit = db.ClampLimit(n)
	}

	analyses, err := s.store.ListAnalyses(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if analyses == nil {
		analyses = []types.AnalysisSummary{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"analyses": analyses,
		"count":    len(analyses),
	})
}

// handleDeleteAnalysis deletes a stored analysis
func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, &ErrUnavailable{Feature: "database"})
		return
	}

	id := r.PathValue("id")
	analysisID, err := uuid.Parse(id)
	if err != nil {
		s.writeError(w, r, &ErrValidation{Field: "id", Message: "invalid analysis ID format"})
		return
	}

	deleted, err := s.store.DeleteAnalysis(r.Context(), analysisID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !deleted {
		s.writeError(w, r, &ErrNotFound{AnalysisID: id})
		return
	}
	s.tracker.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

// readAnalyzeRequest accepts a multipart upload or a JSON body with a base64 resume.
func (s *Server) readAnalyzeRequest(w http.ResponseWriter, r *http.Request) (pipeline.AnalyzeRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		return s.readMultipartRequest(r)
	case "application/json", "":
		return readJSONRequest(r)
	default:
		return pipeline.AnalyzeRequest{}, &ErrValidation{
			Field:   "content-type",
			Message: "expected multipart/form-data or application/json",
		}
	}
}

func (s *Server) readMultipartRequest(r *http.Request) (pipeline.AnalyzeRequest, error) {
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pipeline.AnalyzeRequest{}, err
		}
		return pipeline.AnalyzeRequest{}, &ErrValidation{Field: "body", Message: "invalid multipart form: " + err.Error()}
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("resume")
	if err != nil {
		return pipeline.AnalyzeRequest{}, &ErrValidation{Field: "resume", Message: "file is required"}
	}
	defer func() { _ = file.Close() }()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		return pipeline.AnalyzeRequest{}, &ErrValidation{Field: "resume", Message: "only PDF files are supported"}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return pipeline.AnalyzeRequest{}, err
	}

	return pipeline.AnalyzeRequest{
		ResumeFilename: header.Filename,
		Resume:         data,
		JobURL:         r.FormValue("job_url"),
		JobDescription: r.FormValue("job_description"),
	}, nil
}

func readJSONRequest(r *http.Request) (pipeline.AnalyzeRequest, error) {
	var body types.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pipeline.AnalyzeRequest{}, err
		}
		return pipeline.AnalyzeRequest{}, &ErrValidation{Field: "body", Message: "invalid request body: " + err.Error()}
	}
	if err := body.Validate(); err != nil {
		return pipeline.AnalyzeRequest{}, &ErrValidation{Field: "request", Message: err.Error()}
	}

	data, err := body.DecodeResume()
	if err != nil {
		return pipeline.AnalyzeRequest{}, &ErrValidation{Field: "resume_content", Message: err.Error()}
	}

	return pipeline.AnalyzeRequest{
		ResumeFilename: body.ResumeFilename,
		Resume:         data,
		JobURL:         body.JobURL,
		JobDescription: body.JobDescription,
	}, nil
}
