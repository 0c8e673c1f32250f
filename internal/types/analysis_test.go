package types

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisRequest_Validate(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))

	tests := []struct {
		name    string
		request AnalysisRequest
		wantErr bool
	}{
		{
			name:    "valid with job url",
			request: AnalysisRequest{ResumeFilename: "cv.pdf", ResumeContent: content, JobURL: "https://boards.greenhouse.io/acme/jobs/1"},
		},
		{
			name:    "valid with job description",
			request: AnalysisRequest{ResumeFilename: "cv.pdf", ResumeContent: content, JobDescription: "Go engineer"},
		},
		{
			name:    "missing filename",
			request: AnalysisRequest{ResumeContent: content, JobURL: "https://example.com/job"},
			wantErr: true,
		},
		{
			name:    "content not base64",
			request: AnalysisRequest{ResumeFilename: "cv.pdf", ResumeContent: "not base64!!", JobURL: "https://example.com/job"},
			wantErr: true,
		},
		{
			name:    "missing job reference",
			request: AnalysisRequest{ResumeFilename: "cv.pdf", ResumeContent: content},
			wantErr: true,
		},
		{
			name:    "invalid job url",
			request: AnalysisRequest{ResumeFilename: "cv.pdf", ResumeContent: content, JobURL: "not a url"},
			wantErr: true,
		},
		{
			name:    "both job url and description",
			request: AnalysisRequest{ResumeFilename: "cv.pdf", ResumeContent: content, JobURL: "https://example.com/job", JobDescription: "Go engineer"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAnalysisRequest_DecodeResume(t *testing.T) {
	req := AnalysisRequest{ResumeContent: base64.StdEncoding.EncodeToString([]byte("hello"))}
	data, err := req.DecodeResume()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	req.ResumeContent = "%%%"
	_, err = req.DecodeResume()
	assert.Error(t, err)
}

func TestAgentUpdate_Validate(t *testing.T) {
	valid := AgentUpdate{AgentName: "Resume Parser Agent", Status: StatusWorking, Progress: 25}
	assert.NoError(t, valid.Validate())

	badProgress := valid
	badProgress.Progress = 101
	assert.Error(t, badProgress.Validate())

	badStatus := valid
	badStatus.Status = "idle"
	assert.Error(t, badStatus.Validate())
}

func TestAgentUpdate_JSONOmitsEmptyReasoning(t *testing.T) {
	data, err := json.Marshal(AgentUpdate{AgentName: "Job Analyst Agent", Status: StatusWorking, Message: "m", Progress: 40})
	require.NoError(t, err)
	assert.JSONEq(t, `{"agent_name":"Job Analyst Agent","status":"working","message":"m","progress":40}`, string(data))
}

func TestAnalysisResult_JSONFieldNames(t *testing.T) {
	result := AnalysisResult{
		AnalysisID:         "id-1",
		ResumeQualityScore: 88,
		JobMatchScore:      90,
		QualityFeedback:    []QualityFeedback{{Category: "Overall Quality", Score: 88, Feedback: "ok", Suggestions: []string{"Add metrics"}}},
		MatchAnalysis: MatchAnalysis{
			MatchScore:       90,
			KeywordAnalysis:  KeywordAnalysis{MatchedKeywords: []string{"Go"}, MissingKeywords: []string{"SQL"}, MatchPercentage: 50},
			SkillsGap:        []string{"SQL"},
			Strengths:        []string{"Go"},
			ImprovementAreas: []string{"Learn SQL"},
		},
		AgentLogs: []string{"done"},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"analysis_id", "resume_quality_score", "job_match_score", "quality_feedback", "match_analysis", "agent_logs"} {
		assert.Contains(t, raw, key)
	}
	match := raw["match_analysis"].(map[string]any)
	for _, key := range []string{"match_score", "keyword_analysis", "skills_gap", "strengths", "improvement_areas"} {
		assert.Contains(t, match, key)
	}
	kw := match["keyword_analysis"].(map[string]any)
	assert.Contains(t, kw, "match_percentage")
}
