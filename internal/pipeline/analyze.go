package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/document"
	"github.com/jonathan/resume-analyzer/internal/ingestion"
	"github.com/jonathan/resume-analyzer/internal/logger"
	"github.com/jonathan/resume-analyzer/internal/schemas"
	"github.com/jonathan/resume-analyzer/internal/types"
	rootschemas "github.com/jonathan/resume-analyzer/schemas"
)

// JobIngester resolves a job posting URL to its description text.
type JobIngester interface {
	IngestFromURL(ctx context.Context, urlStr string) (string, *ingestion.Metadata, error)
}

// AnalysisStore persists finished analyses. *db.DB implements it.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, a *db.Analysis) error
}

// InputAgentName labels the error update sent when a request fails before
// the first stage runs.
const InputAgentName = "Input Processing"

// AnalyzeRequest is one resume document and exactly one job source.
type AnalyzeRequest struct {
	ResumeFilename string
	Resume         []byte
	JobURL         string
	JobDescription string
}

// Validate checks the request shape before any work is done.
func (r AnalyzeRequest) Validate() error {
	if len(r.Resume) == 0 {
		return &InputError{Field: "resume", Message: "a PDF document is required"}
	}
	hasURL := strings.TrimSpace(r.JobURL) != ""
	hasText := strings.TrimSpace(r.JobDescription) != ""
	switch {
	case hasURL && hasText:
		return &InputError{Field: "job", Message: "provide either job_url or job_description, not both"}
	case !hasURL && !hasText:
		return &InputError{Field: "job", Message: "job_url or job_description is required"}
	}
	return nil
}

// Analyzer turns an uploaded resume and a job source into an analysis result.
// It extracts the document text, resolves the job description, runs the
// orchestrator and stores the result when a store is configured.
type Analyzer struct {
	orchestrator *Orchestrator
	ingester     JobIngester
	store        AnalysisStore
	logger       *zap.Logger
}

// NewAnalyzer creates an Analyzer. ingester and store may be nil; without an
// ingester only pasted job descriptions are accepted.
func NewAnalyzer(o *Orchestrator, ingester JobIngester, store AnalysisStore, log *zap.Logger) *Analyzer {
	return &Analyzer{
		orchestrator: o,
		ingester:     ingester,
		store:        store,
		logger:       logger.OrNop(log),
	}
}

// Analyze runs a full analysis under a fresh id.
func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest, onProgress ProgressSink) (*types.AnalysisResult, error) {
	return a.AnalyzeWithID(ctx, uuid.NewString(), req, onProgress)
}

// AnalyzeWithID is Analyze with a caller-assigned analysis id.
func (a *Analyzer) AnalyzeWithID(ctx context.Context, analysisID string, req AnalyzeRequest, onProgress ProgressSink) (*types.AnalysisResult, error) {
	log := a.logger.With(zap.String(logger.FieldAnalysisID, analysisID))

	resumeText, jobText, err := a.prepare(ctx, req)
	if err != nil {
		log.Info("analysis rejected", zap.Error(err))
		if onProgress != nil {
			onProgress(types.AgentUpdate{
				AgentName: InputAgentName,
				Status:    types.StatusError,
				Message:   err.Error(),
			})
		}
		return nil, err
	}
	log.Debug("inputs prepared", zap.String("filename", req.ResumeFilename), zap.Int("resume_chars", len(resumeText)), zap.Int("job_chars", len(jobText)))

	result, err := a.orchestrator.RunPipelineWithID(ctx, analysisID, resumeText, jobText, onProgress)
	if err != nil {
		return nil, err
	}
	if err := schemas.ValidateDocument(rootschemas.AnalysisResult, result); err != nil {
		log.Error("assembled result does not match its schema", zap.Error(err))
		return nil, fmt.Errorf("invalid analysis result: %w", err)
	}

	if a.store != nil {
		record := &db.Analysis{
			ResumeFilename: req.ResumeFilename,
			JobURL:         strings.TrimSpace(req.JobURL),
			ResumeHash:     ingestion.ComputeHash(resumeText),
			JobHash:        ingestion.ComputeHash(jobText),
			Result:         result,
		}
		// persistence is best-effort
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := a.store.SaveAnalysis(saveCtx, record); err != nil {
			log.Warn("failed to persist analysis", zap.Error(err))
		}
		cancel()
	}
	return result, nil
}

// prepare validates the request and resolves the resume and job texts.
func (a *Analyzer) prepare(ctx context.Context, req AnalyzeRequest) (resumeText, jobText string, err error) {
	if err := req.Validate(); err != nil {
		return "", "", err
	}
	if resumeText, err = document.ExtractText(ctx, req.Resume); err != nil {
		return "", "", err
	}
	if jobText, err = a.jobDescription(ctx, req); err != nil {
		return "", "", err
	}
	return resumeText, jobText, nil
}

func (a *Analyzer) jobDescription(ctx context.Context, req AnalyzeRequest) (string, error) {
	if jobURL := strings.TrimSpace(req.JobURL); jobURL != "" {
		if a.ingester == nil {
			return "", &InputError{Field: "job_url", Message: "fetching job postings is not enabled"}
		}
		text, _, err := a.ingester.IngestFromURL(ctx, jobURL)
		if err != nil {
			return "", fmt.Errorf("failed to ingest job posting: %w", err)
		}
		return text, nil
	}

	text, _, err := ingestion.IngestText(req.JobDescription)
	if err != nil {
		return "", &InputError{Field: "job description", Message: err.Error()}
	}
	return text, nil
}
