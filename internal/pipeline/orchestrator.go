// Package pipeline runs the four analysis stages in order and assembles the report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-analyzer/internal/logger"
	"github.com/jonathan/resume-analyzer/internal/recovery"
	"github.com/jonathan/resume-analyzer/internal/report"
	"github.com/jonathan/resume-analyzer/internal/schemas"
	"github.com/jonathan/resume-analyzer/internal/stages"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// Final progress update values.
const (
	CompletedAgentName = "Analysis Complete"
	CompletedMessage   = "All agents finished successfully!"
	CompletedProgress  = 100
)

// DefaultStageTimeout bounds a single stage, retries included.
const DefaultStageTimeout = 90 * time.Second

// ProgressSink receives progress updates synchronously, in stage order.
type ProgressSink func(update types.AgentUpdate)

// Options configures an Orchestrator.
type Options struct {
	Fallbacks    report.Fallbacks
	StageTimeout time.Duration
	Logger       *zap.Logger
}

// Orchestrator runs the fixed stage sequence against a Delegate. It holds only
// immutable configuration and is safe for concurrent runs.
type Orchestrator struct {
	delegate     Delegate
	stages       []stages.Stage
	fallbacks    report.Fallbacks
	stageTimeout time.Duration
	logger       *zap.Logger
}

// New creates an Orchestrator. Zero-valued options take their defaults.
func New(delegate Delegate, opts Options) *Orchestrator {
	fb := opts.Fallbacks
	if fb == (report.Fallbacks{}) {
		fb = report.DefaultFallbacks()
	}
	timeout := opts.StageTimeout
	if timeout <= 0 {
		timeout = DefaultStageTimeout
	}
	return &Orchestrator{
		delegate:     delegate,
		stages:       stages.All(),
		fallbacks:    fb,
		stageTimeout: timeout,
		logger:       logger.OrNop(opts.Logger),
	}
}

// RunPipeline analyzes resumeText against jobDescription under a fresh analysis id.
func (o *Orchestrator) RunPipeline(ctx context.Context, resumeText, jobDescription string, onProgress ProgressSink) (*types.AnalysisResult, error) {
	return o.RunPipelineWithID(ctx, uuid.NewString(), resumeText, jobDescription, onProgress)
}

// RunPipelineWithID is RunPipeline with a caller-assigned analysis id.
func (o *Orchestrator) RunPipelineWithID(ctx context.Context, analysisID, resumeText, jobDescription string, onProgress ProgressSink) (*types.AnalysisResult, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, &InputError{Field: "resume text", Message: "must not be empty"}
	}
	if strings.TrimSpace(jobDescription) == "" {
		return nil, &InputError{Field: "job description", Message: "must not be empty"}
	}

	emit := func(u types.AgentUpdate) {
		if onProgress != nil {
			onProgress(u)
		}
	}

	log := o.logger.With(zap.String(logger.FieldAnalysisID, analysisID))
	log.Info("analysis started",
		zap.Int("resume_chars", len(resumeText)),
		zap.Int("job_chars", len(jobDescription)),
	)
	runStart := time.Now()

	var agentLogs []string
	records := make(map[stages.ID]recovery.Record, len(o.stages))

	for _, st := range o.stages {
		emit(types.AgentUpdate{
			AgentName: st.AgentName,
			Status:    types.StatusWorking,
			Message:   st.Message,
			Progress:  st.Progress,
		})

		raw, elapsed, err := o.runStage(ctx, st, resumeText, jobDescription)
		if err != nil {
			log.Error("stage failed", zap.String(logger.FieldStage, string(st.ID)), zap.Duration("elapsed", elapsed), zap.Error(err))
			emit(types.AgentUpdate{
				AgentName: st.AgentName,
				Status:    types.StatusError,
				Message:   fmt.Sprintf("%s failed: %s", st.AgentName, err.Error()),
				Progress:  st.Progress,
			})
			return nil, &StageError{Stage: st.ID, Agent: st.AgentName, Message: "delegate call failed", Cause: err}
		}

		rec, method := recovery.RecoverWithMethod(raw)
		records[st.ID] = rec
		agentLogs = append(agentLogs, stageLogLines(st, raw, rec, method)...)

		log.Info("stage completed",
			zap.String(logger.FieldStage, string(st.ID)),
			zap.Duration("elapsed", elapsed),
			zap.Int("response_chars", len(raw)),
			zap.String("recovery", string(method)),
			zap.Int("keys", rec.Len()),
		)
		log.Debug("stage response", zap.String(logger.FieldStage, string(st.ID)), zap.String("preview", logger.TruncateForLog(raw, 200)))
	}

	rep := report.Assemble(records[stages.QualityScoring], records[stages.MatchScoring], o.fallbacks)
	agentLogs = append(agentLogs, fmt.Sprintf("Report assembled: quality %.1f, match %.1f, keyword match %.1f%%",
		rep.QualityScore, rep.MatchScore, rep.MatchAnalysis.KeywordAnalysis.MatchPercentage))

	result := &types.AnalysisResult{
		AnalysisID:         analysisID,
		ResumeQualityScore: rep.QualityScore,
		JobMatchScore:      rep.MatchScore,
		QualityFeedback:    rep.QualityFeedback,
		MatchAnalysis:      rep.MatchAnalysis,
		AgentLogs:          agentLogs,
	}

	emit(types.AgentUpdate{
		AgentName: CompletedAgentName,
		Status:    types.StatusCompleted,
		Message:   CompletedMessage,
		Progress:  CompletedProgress,
	})
	log.Info("analysis completed",
		zap.Duration("elapsed", time.Since(runStart)),
		zap.Float64("quality_score", result.ResumeQualityScore),
		zap.Float64("match_score", result.JobMatchScore),
	)
	return result, nil
}

func (o *Orchestrator) runStage(ctx context.Context, st stages.Stage, resumeText, jobDescription string) (string, time.Duration, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	instruction, err := st.Instruction(resumeText, jobDescription)
	if err != nil {
		return "", 0, err
	}

	stageCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()

	raw, err := o.delegate.Invoke(stageCtx, st, instruction)
	return raw, time.Since(start), err
}

func stageLogLines(st stages.Stage, raw string, rec recovery.Record, method recovery.Method) []string {
	lines := []string{fmt.Sprintf("%s: received %d characters", st.AgentName, len(raw))}

	if method == recovery.MethodNone {
		return append(lines, fmt.Sprintf("%s: no structured output recovered, using defaults", st.AgentName))
	}
	lines = append(lines, fmt.Sprintf("%s: recovered %d fields (%s)", st.AgentName, rec.Len(), method))

	if err := schemas.ValidateDocument(st.SchemaFile, rec.Map()); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			lines = append(lines, fmt.Sprintf("%s: output deviates from expected shape: %s", st.AgentName, ve.Summary()))
		}
	}
	return lines
}
