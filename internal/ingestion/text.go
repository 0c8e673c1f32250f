// Package ingestion turns job postings and resume text into clean, hashed text.
package ingestion

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	spaceRun     = regexp.MustCompile(`[ \t\v]+`)
	blankLineRun = regexp.MustCompile(`\n{3,}`)
)

// normalizer rewrites characters that PDF extraction and copy-paste leave behind.
var normalizer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\f", "\n\n",
	"\u00a0", " ",
	"\u200b", "",
	"\ufeff", "",
	"\u00ad", "",
	"\ufb01", "fi",
	"\ufb02", "fl",
	"\ufb00", "ff",
)

// bulletMarkers are accepted list prefixes. The PDF glyphs are rewritten to "- ".
var bulletMarkers = []string{"- ", "* ", "\u2022 ", "\u00b7 ", "\u25aa ", "\u25cf ", "\u25e6 ", "\uf0b7 "}

// CleanText normalizes whitespace while keeping headings, bullets and paragraph breaks.
// The result is deterministic for a given input.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	lines := strings.Split(normalizer.Replace(content), "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}
	joined := blankLineRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(joined)
}

func cleanLine(line string) string {
	body := strings.TrimLeft(line, " \t")
	body = strings.TrimRight(body, " \t")
	if body == "" {
		return ""
	}
	if strings.HasPrefix(body, "#") {
		return body
	}

	indent := strings.Repeat(" ", len(line)-len(strings.TrimLeft(line, " \t")))
	if marker, ok := bulletMarker(body); ok {
		rest := spaceRun.ReplaceAllString(strings.TrimSpace(body[len(marker):]), " ")
		if marker != "- " && marker != "* " {
			marker = "- "
		}
		return indent + marker + rest
	}
	return indent + spaceRun.ReplaceAllString(body, " ")
}

func bulletMarker(line string) (string, bool) {
	for _, m := range bulletMarkers {
		if strings.HasPrefix(line, m) {
			return m, true
		}
	}
	return "", false
}

// IngestText cleans pasted job description text.
func IngestText(content string) (string, *Metadata, error) {
	cleaned := CleanText(content)
	if cleaned == "" {
		return "", nil, ErrEmptyContent
	}
	return cleaned, NewMetadata(cleaned, ""), nil
}

// IngestFromFile reads and cleans a job description saved as text.
func IngestFromFile(path string) (string, *Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("file not found: %w", err)
		}
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}
	return IngestText(string(content))
}
