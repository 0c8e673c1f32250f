// Package types provides type definitions for structured data used throughout the resume-analyzer system.
package types

import (
	"encoding/base64"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// AgentStatus is the lifecycle state reported in an AgentUpdate.
type AgentStatus string

const (
	// StatusWorking marks a stage that is about to run.
	StatusWorking AgentStatus = "working"
	// StatusCompleted marks the end of a successful run.
	StatusCompleted AgentStatus = "completed"
	// StatusError marks a run aborted by invalid input or a stage failure.
	StatusError AgentStatus = "error"
)

// AnalysisRequest is the boundary request for an analysis.
// ResumeContent carries the raw resume bytes, base64 encoded.
type AnalysisRequest struct {
	ResumeFilename string `json:"resume_filename" validate:"required"`
	ResumeContent  string `json:"resume_content" validate:"required,base64"`
	JobURL         string `json:"job_url,omitempty" validate:"omitempty,url"`
	JobDescription string `json:"job_description,omitempty" validate:"required_without=JobURL"`
}

// Validate validates the AnalysisRequest using the validator.
func (r *AnalysisRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.JobURL != "" && r.JobDescription != "" {
		return fmt.Errorf("only one of job_url or job_description may be set")
	}
	return nil
}

// DecodeResume returns the decoded resume bytes.
func (r *AnalysisRequest) DecodeResume() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(r.ResumeContent)
	if err != nil {
		return nil, fmt.Errorf("invalid resume_content encoding: %w", err)
	}
	return data, nil
}

// KeywordAnalysis describes keyword overlap between a resume and a job.
type KeywordAnalysis struct {
	MatchedKeywords []string `json:"matched_keywords"`
	MissingKeywords []string `json:"missing_keywords"`
	MatchPercentage float64  `json:"match_percentage"`
}

// QualityFeedback is one scored feedback entry about resume quality.
type QualityFeedback struct {
	Category    string   `json:"category"`
	Score       float64  `json:"score"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

// MatchAnalysis describes how well the resume matches the job.
type MatchAnalysis struct {
	MatchScore       float64         `json:"match_score"`
	KeywordAnalysis  KeywordAnalysis `json:"keyword_analysis"`
	SkillsGap        []string        `json:"skills_gap"`
	Strengths        []string        `json:"strengths"`
	ImprovementAreas []string        `json:"improvement_areas"`
}

// AnalysisResult is the final report of a single analysis run.
type AnalysisResult struct {
	AnalysisID         string            `json:"analysis_id"`
	ResumeQualityScore float64           `json:"resume_quality_score"`
	JobMatchScore      float64           `json:"job_match_score"`
	QualityFeedback    []QualityFeedback `json:"quality_feedback"`
	MatchAnalysis      MatchAnalysis     `json:"match_analysis"`
	AgentLogs          []string          `json:"agent_logs"`
}

// AgentUpdate is a progress notification emitted while a run executes.
type AgentUpdate struct {
	AgentName string      `json:"agent_name" validate:"required"`
	Status    AgentStatus `json:"status" validate:"required,oneof=working completed error"`
	Message   string      `json:"message"`
	Progress  int         `json:"progress" validate:"min=0,max=100"`
	Reasoning string      `json:"reasoning,omitempty"`
}

// Validate validates the AgentUpdate using the validator.
func (u *AgentUpdate) Validate() error {
	validate := validator.New()
	return validate.Struct(u)
}

// AnalysisSummary is a compact listing entry for stored analyses.
type AnalysisSummary struct {
	AnalysisID         string  `json:"analysis_id"`
	ResumeFilename     string  `json:"resume_filename,omitempty"`
	JobURL             string  `json:"job_url,omitempty"`
	ResumeQualityScore float64 `json:"resume_quality_score"`
	JobMatchScore      float64 `json:"job_match_score"`
	CreatedAt          string  `json:"created_at"`
}
