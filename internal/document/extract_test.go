package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText_SamplePDF(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "resume.pdf"))
	require.NoError(t, err)

	text, err := ExtractText(context.Background(), data)
	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe")
	assert.Contains(t, text, "Kubernetes")
}

func TestExtractText_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"empty", nil, "document is empty"},
		{"not a pdf", []byte("just some text"), "not a PDF document"},
		{"truncated pdf", []byte("%PDF-1.4\n1 0 obj\n<<"), "Failed to parse PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractText(context.Background(), tt.data)
			require.Error(t, err)

			var extractionErr *ExtractionError
			require.True(t, errors.As(err, &extractionErr))
			assert.Contains(t, err.Error(), "Failed to parse PDF")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExtractionError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &ExtractionError{Message: "unreadable document", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed to parse PDF: unreadable document: boom", err.Error())
}
