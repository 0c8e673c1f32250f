// Package stages defines the fixed four-stage analysis pipeline: what each
// delegate is asked to do, which inputs it sees and which keys it should return.
package stages

import (
	"fmt"
	"strings"

	"github.com/jonathan/resume-analyzer/internal/llm"
	"github.com/jonathan/resume-analyzer/internal/prompts"
	rootschemas "github.com/jonathan/resume-analyzer/schemas"
)

const promptFile = "stages.json"

// ID identifies a pipeline stage.
type ID string

// Stage identifiers, in execution order.
const (
	ResumeExtraction ID = "resume_extraction"
	JobExtraction    ID = "job_extraction"
	QualityScoring   ID = "quality_scoring"
	MatchScoring     ID = "match_scoring"
)

// Input selects which raw texts a stage's instruction embeds.
type Input int

// Input flags.
const (
	InputResume Input = 1 << iota
	InputJob
)

// Stage is the immutable description of one delegated task.
type Stage struct {
	ID        ID
	AgentName string
	Role      string
	Goal      string
	Backstory string
	// Message is reported in the progress update emitted before the stage runs.
	Message      string
	Progress     int
	Goals        []string
	ExpectedKeys []string
	PromptKey    string
	SchemaFile   string
	Inputs       Input
	Tier         llm.ModelTier
}

var pipeline = []Stage{
	{
		ID:        ResumeExtraction,
		AgentName: "Resume Parser Agent",
		Role:      "Expert Resume Analyst",
		Goal:      "Extract and structure all resume information accurately",
		Backstory: "You are an expert at analyzing resumes. You can identify all sections, extract skills, " +
			"experience, education, and assess formatting quality. You understand ATS systems and what makes resumes parseable.",
		Message:  "Extracting resume structure and content...",
		Progress: 25,
		Goals: []string{
			"Contact information",
			"Work experience (companies, roles, dates, achievements)",
			"Education (degrees, institutions, dates)",
			"Skills (technical and soft skills)",
			"Certifications and awards",
		},
		ExpectedKeys: []string{"contact", "experience", "education", "skills", "certifications"},
		PromptKey:    "resume-extraction",
		SchemaFile:   rootschemas.ResumeExtraction,
		Inputs:       InputResume,
		Tier:         llm.TierLite,
	},
	{
		ID:        JobExtraction,
		AgentName: "Job Analyst Agent",
		Role:      "Job Requirements Specialist",
		Goal:      "Extract and analyze job posting requirements comprehensively",
		Backstory: "You are an expert at analyzing job postings. You can identify required vs preferred skills, " +
			"experience levels, key responsibilities, and company culture signals from job descriptions.",
		Message:  "Analyzing job requirements...",
		Progress: 40,
		Goals: []string{
			"Required skills and qualifications",
			"Preferred/nice-to-have skills",
			"Experience level required",
			"Key responsibilities",
			"Important keywords",
		},
		ExpectedKeys: []string{"required_skills", "preferred_skills", "experience_level", "responsibilities", "keywords"},
		PromptKey:    "job-extraction",
		SchemaFile:   rootschemas.JobExtraction,
		Inputs:       InputJob,
		Tier:         llm.TierLite,
	},
	{
		ID:        QualityScoring,
		AgentName: "Quality Scorer Agent",
		Role:      "Career Coach and Resume Critic",
		Goal:      "Evaluate resume quality and provide actionable improvement suggestions",
		Backstory: "You are a career coach with 15 years of experience. You know what makes resumes effective: " +
			"quantified achievements, clear impact statements, proper formatting, ATS optimization, and professional language.",
		Message:  "Evaluating resume quality...",
		Progress: 65,
		Goals: []string{
			"Formatting and readability (0-20 points)",
			"Use of quantified achievements (0-20 points)",
			"Clarity and impact of descriptions (0-20 points)",
			"Professional language and grammar (0-20 points)",
			"ATS optimization (0-20 points)",
		},
		ExpectedKeys: []string{"overall_score", "category_scores", "feedback"},
		PromptKey:    "quality-scoring",
		SchemaFile:   rootschemas.QualityScoring,
		Inputs:       InputResume,
		Tier:         llm.TierStandard,
	},
	{
		ID:        MatchScoring,
		AgentName: "Match Analyzer Agent",
		Role:      "Talent Matching Specialist",
		Goal:      "Analyze how well a resume matches specific job requirements",
		Backstory: "You are an expert recruiter who can quickly assess candidate-job fit. You identify keyword matches, " +
			"skills gaps, experience alignment, and provide specific recommendations for tailoring applications.",
		Message:  "Comparing resume to job requirements...",
		Progress: 85,
		Goals: []string{
			"Overall match score (0-100)",
			"Matched keywords (list)",
			"Missing keywords (list)",
			"Skills gap (what's missing)",
			"Strengths (what matches well)",
			"Tailoring suggestions",
		},
		ExpectedKeys: []string{"match_score", "matched_keywords", "missing_keywords", "skills_gap", "strengths", "suggestions"},
		PromptKey:    "match-scoring",
		SchemaFile:   rootschemas.MatchScoring,
		Inputs:       InputResume | InputJob,
		Tier:         llm.TierAdvanced,
	},
}

// All returns the pipeline stages in execution order.
func All() []Stage {
	out := make([]Stage, len(pipeline))
	copy(out, pipeline)
	return out
}

// Get returns the stage with the given id.
func Get(id ID) (Stage, bool) {
	for _, s := range pipeline {
		if s.ID == id {
			return s, true
		}
	}
	return Stage{}, false
}

// Uses reports whether the stage embeds the given input.
func (s Stage) Uses(in Input) bool {
	return s.Inputs&in != 0
}

// Instruction renders the delegate instruction for this stage. Input texts
// are embedded verbatim.
func (s Stage) Instruction(resumeText, jobDescription string) (string, error) {
	data := map[string]string{
		"Role":         s.Role,
		"Goal":         s.Goal,
		"Backstory":    s.Backstory,
		"Goals":        numbered(s.Goals),
		"ExpectedKeys": strings.Join(s.ExpectedKeys, ", "),
	}
	if s.Uses(InputResume) {
		data["ResumeText"] = resumeText
	}
	if s.Uses(InputJob) {
		data["JobDescription"] = jobDescription
	}

	out, err := prompts.Render(promptFile, s.PromptKey, data)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", s.ID, err)
	}
	return out, nil
}

func numbered(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, item)
	}
	return sb.String()
}
