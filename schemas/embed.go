// Package schemas holds the JSON Schemas for stage outputs and analysis results.
package schemas

import "embed"

// Files contains every *.schema.json in this directory.
//
//go:embed *.schema.json
var Files embed.FS

// Schema file names.
const (
	ResumeExtraction = "resume_extraction.schema.json"
	JobExtraction    = "job_extraction.schema.json"
	QualityScoring   = "quality_scoring.schema.json"
	MatchScoring     = "match_scoring.schema.json"
	AnalysisResult   = "analysis_result.schema.json"
)
