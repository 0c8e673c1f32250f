// Package report assembles the final analysis report from recovered stage records.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/jonathan/resume-analyzer/internal/recovery"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// List caps applied to the report.
const (
	MaxKeywords  = 15
	MaxListItems = 5
)

// Category is the single quality feedback category reported per run.
const Category = "Overall Quality"

// Fallbacks holds the values used when a recovered record lacks a field.
type Fallbacks struct {
	QualityScore float64
	MatchScore   float64

	Feedback        string
	Suggestions     string
	MatchedKeywords string
	MissingKeywords string
	SkillsGap       string
	Strengths       string
	Improvements    string
}

// DefaultFallbacks returns the standard fallback values.
func DefaultFallbacks() Fallbacks {
	return Fallbacks{
		QualityScore:    75.0,
		MatchScore:      70.0,
		Feedback:        "Detailed feedback could not be generated for this resume.",
		Suggestions:     "No suggestions provided",
		MatchedKeywords: "No keywords extracted",
		MissingKeywords: "No missing keywords identified",
		SkillsGap:       "No skills gap identified",
		Strengths:       "No strengths identified",
		Improvements:    "No improvement suggestions provided",
	}
}

// Report is the scored portion of an analysis result.
type Report struct {
	QualityScore    float64
	MatchScore      float64
	QualityFeedback []types.QualityFeedback
	MatchAnalysis   types.MatchAnalysis
}

// Assemble builds the report from the quality and match records. It never fails:
// missing or mistyped fields take their fallback value.
func Assemble(quality, match recovery.Record, fb Fallbacks) Report {
	qualityScore := clampScore(quality.Number("overall_score", fb.QualityScore))
	matchScore := clampScore(match.Number("match_score", fb.MatchScore))

	matched := nonBlank(match.Strings("matched_keywords"))
	missing := nonBlank(match.Strings("missing_keywords"))

	return Report{
		QualityScore: qualityScore,
		MatchScore:   matchScore,
		QualityFeedback: []types.QualityFeedback{{
			Category:    Category,
			Score:       qualityScore,
			Feedback:    feedbackText(quality, fb.Feedback),
			Suggestions: orPlaceholder(quality.Strings("feedback"), 0, fb.Suggestions),
		}},
		MatchAnalysis: types.MatchAnalysis{
			MatchScore: matchScore,
			KeywordAnalysis: types.KeywordAnalysis{
				MatchedKeywords: orPlaceholder(matched, MaxKeywords, fb.MatchedKeywords),
				MissingKeywords: orPlaceholder(missing, MaxKeywords, fb.MissingKeywords),
				MatchPercentage: MatchPercentage(len(matched), len(missing)),
			},
			SkillsGap:        orPlaceholder(match.Strings("skills_gap"), MaxListItems, fb.SkillsGap),
			Strengths:        orPlaceholder(match.Strings("strengths"), MaxListItems, fb.Strengths),
			ImprovementAreas: orPlaceholder(match.Strings("suggestions"), MaxListItems, fb.Improvements),
		},
	}
}

// MatchPercentage is matched / (matched + missing) * 100, or 0 when both are zero.
func MatchPercentage(matched, missing int) float64 {
	total := matched + missing
	if total <= 0 || matched <= 0 {
		return 0
	}
	return float64(matched) / float64(total) * 100
}

// Truncate returns at most n leading items. n <= 0 means no limit.
func Truncate(items []string, n int) []string {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func orPlaceholder(items []string, limit int, placeholder string) []string {
	items = nonBlank(items)
	if len(items) == 0 {
		return []string{placeholder}
	}
	return Truncate(items, limit)
}

func nonBlank(items []string) []string {
	out := items[:0:0]
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// feedbackText prefers a summary, then a rendering of category_scores.
func feedbackText(quality recovery.Record, placeholder string) string {
	if summary := strings.TrimSpace(quality.String("summary", "")); summary != "" {
		return summary
	}

	scores := quality.Object("category_scores")
	if scores.Len() == 0 {
		return placeholder
	}

	parts := make([]string, 0, scores.Len())
	for _, key := range scores.Keys() {
		n, ok := scores[key].AsNumber()
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s/20", strings.ReplaceAll(key, "_", " "), formatPoints(n)))
	}
	if len(parts) == 0 {
		return placeholder
	}
	return "Category scores: " + strings.Join(parts, ", ")
}

func formatPoints(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%.1f", n)
}

func clampScore(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
