package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("stages.json", "quality-scoring")
	require.NoError(t, err)
	assert.Contains(t, prompt, "Evaluate this resume's quality")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("stages.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestFormat(t *testing.T) {
	result := Format("Hello {{.Name}}, welcome to {{.Company}}!", map[string]string{
		"Name":    "Alice",
		"Company": "Acme Corp",
	})
	assert.Equal(t, "Hello Alice, welcome to Acme Corp!", result)
}

func TestFormat_SubstitutedTextNotRescanned(t *testing.T) {
	result := Format("Resume: {{.ResumeText}}", map[string]string{
		"ResumeText":     "literal {{.JobDescription}} in a resume",
		"JobDescription": "SHOULD NOT APPEAR",
	})
	assert.Equal(t, "Resume: literal {{.JobDescription}} in a resume", result)
}

func TestFormat_EmptyData(t *testing.T) {
	assert.Equal(t, "Hello {{.Name}}", Format("Hello {{.Name}}", map[string]string{}))
}

func TestPlaceholders(t *testing.T) {
	missing := Placeholders("{{.A}} {{.B}} {{.A}} {{.C}}", map[string]string{"B": "x"})
	assert.Equal(t, []string{"A", "C"}, missing)
}

func TestRender_MissingValue(t *testing.T) {
	ClearCache()

	_, err := Render("stages.json", "resume-extraction", map[string]string{"Role": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ResumeText")
}

func TestList_StageTemplates(t *testing.T) {
	ClearCache()

	keys, err := List("stages.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"job-extraction", "match-scoring", "quality-scoring", "resume-extraction"}, keys)
}

func TestCaching(t *testing.T) {
	ClearCache()

	prompt1, err := Get("stages.json", "match-scoring")
	require.NoError(t, err)
	prompt2, err := Get("stages.json", "match-scoring")
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}
