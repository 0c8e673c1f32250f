package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-analyzer/internal/types"
)

// DefaultListLimit is used when no positive limit is given to ListAnalyses.
const DefaultListLimit = 20

// MaxListLimit caps ListAnalyses.
const MaxListLimit = 100

// Analysis is a stored analysis result with its inputs' provenance.
type Analysis struct {
	ID             uuid.UUID
	ResumeFilename string
	JobURL         string
	ResumeHash     string
	JobHash        string
	Result         *types.AnalysisResult
	CreatedAt      time.Time
}

// Summary converts the stored analysis into a listing entry.
func (a *Analysis) Summary() types.AnalysisSummary {
	s := types.AnalysisSummary{
		AnalysisID:     a.ID.String(),
		ResumeFilename: a.ResumeFilename,
		JobURL:         a.JobURL,
		CreatedAt:      a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.Result != nil {
		s.ResumeQualityScore = a.Result.ResumeQualityScore
		s.JobMatchScore = a.Result.JobMatchScore
	}
	return s
}

// ClampLimit normalizes a listing limit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
