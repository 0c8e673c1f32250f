// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-analyzer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// barWidth is the width of a score bar
	barWidth = 20
)

// Printer handles formatted report output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// scoreBar renders a 0-100 score as a fixed-width bar.
func scoreBar(score float64) string {
	filled := int(score / 100 * barWidth)
	filled = max(0, min(barWidth, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// writeList writes up to limit items under a heading, noting how many were left out.
func writeList(sb *strings.Builder, heading string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + ":\n")
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > limit {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-limit))
	}
	sb.WriteString("\n")
}

// PrintScores outputs the headline scores of a report.
func (p *Printer) PrintScores(result *types.AnalysisResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Analysis: %s\n\n", result.AnalysisID))
	sb.WriteString(fmt.Sprintf("Resume quality  %s %5.1f\n", scoreBar(result.ResumeQualityScore), result.ResumeQualityScore))
	sb.WriteString(fmt.Sprintf("Job match       %s %5.1f\n", scoreBar(result.JobMatchScore), result.JobMatchScore))
	sb.WriteString(fmt.Sprintf("Keyword match   %s %5.1f%%", scoreBar(result.MatchAnalysis.KeywordAnalysis.MatchPercentage), result.MatchAnalysis.KeywordAnalysis.MatchPercentage))

	p.printBox("ANALYSIS SCORES", sb.String())
}

// PrintQualityFeedback outputs each feedback category with its top suggestions.
func (p *Printer) PrintQualityFeedback(feedback []types.QualityFeedback) {
	if len(feedback) == 0 {
		return
	}

	var sb strings.Builder
	for i, fb := range feedback {
		sb.WriteString(fmt.Sprintf("%s  (%.1f)\n", fb.Category, fb.Score))
		if fb.Feedback != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", fb.Feedback))
		}
		count := min(len(fb.Suggestions), 3)
		for j := 0; j < count; j++ {
			sb.WriteString(fmt.Sprintf("  → %s\n", fb.Suggestions[j]))
		}
		if i < len(feedback)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("RESUME QUALITY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMatchAnalysis outputs keyword overlap, strengths and gaps.
func (p *Printer) PrintMatchAnalysis(analysis *types.MatchAnalysis) {
	if analysis == nil {
		return
	}

	var sb strings.Builder
	kw := analysis.KeywordAnalysis
	sb.WriteString(fmt.Sprintf("Keywords: %d matched, %d missing\n\n", len(kw.MatchedKeywords), len(kw.MissingKeywords)))
	writeList(&sb, "Matched keywords", kw.MatchedKeywords, maxItemsToShow)
	writeList(&sb, "Missing keywords", kw.MissingKeywords, maxItemsToShow)
	writeList(&sb, "Strengths", analysis.Strengths, maxItemsToShow)
	writeList(&sb, "Skills gap", analysis.SkillsGap, maxItemsToShow)
	writeList(&sb, "Improvement areas", analysis.ImprovementAreas, maxItemsToShow)

	p.printBox("JOB MATCH", strings.TrimRight(sb.String(), "\n"))
}

// PrintReport outputs the scores, quality feedback and match analysis.
func (p *Printer) PrintReport(result *types.AnalysisResult) {
	if result == nil {
		return
	}
	p.PrintScores(result)
	p.PrintQualityFeedback(result.QualityFeedback)
	p.PrintMatchAnalysis(&result.MatchAnalysis)
}

// PrintAgentLogs outputs the run's log lines.
func (p *Printer) PrintAgentLogs(logs []string) {
	if len(logs) == 0 {
		return
	}
	p.printBox("AGENT LOG", strings.Join(logs, "\n"))
}

// PrintProgress outputs a single progress update as one line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(update types.AgentUpdate) {
	marker := "…"
	switch update.Status {
	case types.StatusCompleted:
		marker = "✓"
	case types.StatusError:
		marker = "✗"
	}
	fmt.Fprintf(p.out, "[%3d%%] %s %s: %s\n", update.Progress, marker, update.AgentName, update.Message)
}
