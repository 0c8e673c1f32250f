package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only whitespace", "   \n  \n\t ", ""},
		{"collapses spaces", "Line    with \t multiple    spaces", "Line with multiple spaces"},
		{"line endings", "Line 1\r\nLine 2\rLine 3\nLine 4", "Line 1\nLine 2\nLine 3\nLine 4"},
		{"blank line runs", "Line 1\n\n\n\n\nLine 2", "Line 1\n\nLine 2"},
		{"headings lose indent", "   ## Requirements\nGo", "## Requirements\nGo"},
		{"keeps indentation", "    Indented   line\n  Less indented", "Indented line\n  Less indented"},
		{"non-breaking spaces", "Go\u00a0and\u00a0\u00a0SQL", "Go and SQL"},
		{"zero-width characters", "Kuber\u200bnetes\ufeff", "Kubernetes"},
		{"ligatures", "e\ufb00ort \ufb01eld work\ufb02ow", "effort field workflow"},
		{"form feed splits pages", "Page one\fPage two", "Page one\n\nPage two"},
		{"pdf bullets", "\u2022 Led team\n  \u25aa Shipped   v2\n\uf0b7 Hired", "- Led team\n  - Shipped v2\n- Hired"},
		{"markdown bullets kept", "- Item 1\n* Item   3", "- Item 1\n* Item 3"},
		{"unicode text", "Test with émojis 🚀 and spéciàl chàracters", "Test with émojis 🚀 and spéciàl chàracters"},
		{
			"mixed formatting",
			"# Senior Engineer\r\n\r\n\r\n\r\n## Requirements\n- Go experience   \n  * Go (5+ years)\nWe   value   ownership.",
			"# Senior Engineer\n\n## Requirements\n- Go experience\n  * Go (5+ years)\nWe value ownership.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanText(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, CleanText(got), "cleaning is idempotent")
		})
	}
}

func TestIngestText(t *testing.T) {
	text, metadata, err := IngestText("  Backend   engineer\n\n\n\nGo  ")
	require.NoError(t, err)
	assert.Equal(t, "Backend engineer\n\nGo", text)
	assert.Equal(t, ComputeHash(text), metadata.Hash)
	assert.Empty(t, metadata.URL)

	_, _, err = IngestText(" \n\t\u200b ")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestIngestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.txt")
	require.NoError(t, os.WriteFile(path, []byte("# Job Title\r\n\r\nDescription here"), 0o600))

	text, metadata, err := IngestFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Job Title\n\nDescription here", text)
	assert.NotEmpty(t, metadata.Hash)

	_, _, err = IngestFromFile(filepath.Join(dir, "missing.txt"))
	assert.ErrorContains(t, err, "file not found")
}
