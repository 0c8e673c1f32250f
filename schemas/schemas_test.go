package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/jonathan/resume-analyzer/internal/schemas"
	rootschemas "github.com/jonathan/resume-analyzer/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allSchemaFiles = []string{
	rootschemas.ResumeExtraction,
	rootschemas.JobExtraction,
	rootschemas.QualityScoring,
	rootschemas.MatchScoring,
	rootschemas.AnalysisResult,
}

func TestAllSchemaFiles_ValidJSON(t *testing.T) {
	for _, schemaFile := range allSchemaFiles {
		t.Run(schemaFile, func(t *testing.T) {
			data, err := rootschemas.Files.ReadFile(schemaFile)
			require.NoError(t, err, "should be able to read schema file")

			var v map[string]any
			require.NoError(t, json.Unmarshal(data, &v), "schema file should be valid JSON: %s", schemaFile)
			assert.Equal(t, "object", v["type"])
		})
	}
}

func TestQualityScoringSchema(t *testing.T) {
	valid := `{"overall_score": 88, "category_scores": {"clarity": 15}, "feedback": ["Add metrics"]}`
	assert.NoError(t, schemas.ValidateJSON(rootschemas.QualityScoring, []byte(valid)))

	outOfRange := `{"overall_score": 140, "category_scores": {}, "feedback": []}`
	err := schemas.ValidateJSON(rootschemas.QualityScoring, []byte(outOfRange))
	require.Error(t, err)
	var validationErr *schemas.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "overall_score", validationErr.Errors[0].Field)
}

func TestMatchScoringSchema(t *testing.T) {
	valid := `{"match_score": 90, "matched_keywords": ["Go", "SQL"], "missing_keywords": [],
		"skills_gap": [], "strengths": ["Go"], "suggestions": []}`
	assert.NoError(t, schemas.ValidateJSON(rootschemas.MatchScoring, []byte(valid)))

	missing := `{"match_score": 90}`
	assert.Error(t, schemas.ValidateJSON(rootschemas.MatchScoring, []byte(missing)))
}

func TestAnalysisResultSchema_RejectsOverlongLists(t *testing.T) {
	doc := `{
		"analysis_id": "a", "resume_quality_score": 75, "job_match_score": 70,
		"quality_feedback": [{"category": "Overall Quality", "score": 75, "feedback": "f", "suggestions": ["s"]}],
		"match_analysis": {
			"match_score": 70,
			"keyword_analysis": {"matched_keywords": [], "missing_keywords": [], "match_percentage": 0},
			"skills_gap": ["1", "2", "3", "4", "5", "6"], "strengths": [], "improvement_areas": []
		},
		"agent_logs": []
	}`
	assert.Error(t, schemas.ValidateJSON(rootschemas.AnalysisResult, []byte(doc)))
}
