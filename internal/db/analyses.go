package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-analyzer/internal/schemas"
	"github.com/jonathan/resume-analyzer/internal/types"
	rootschemas "github.com/jonathan/resume-analyzer/schemas"
)

// SaveAnalysis stores a completed analysis. Saving the same id twice replaces the result.
func (db *DB) SaveAnalysis(ctx context.Context, a *Analysis) error {
	if a == nil || a.Result == nil {
		return fmt.Errorf("analysis result is required")
	}
	id, err := uuid.Parse(a.Result.AnalysisID)
	if err != nil {
		return fmt.Errorf("invalid analysis id %q: %w", a.Result.AnalysisID, err)
	}
	a.ID = id

	resultJSON, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	err = db.pool.QueryRow(ctx,
		`INSERT INTO analyses (id, resume_filename, job_url, resume_quality_score, job_match_score, result, resume_hash, job_hash)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))
		 ON CONFLICT (id) DO UPDATE SET
		     resume_quality_score = $4,
		     job_match_score = $5,
		     result = $6
		 RETURNING created_at`,
		a.ID, a.ResumeFilename, a.JobURL, a.Result.ResumeQualityScore, a.Result.JobMatchScore,
		resultJSON, a.ResumeHash, a.JobHash,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// GetAnalysis retrieves a stored analysis by id. Returns nil, nil when not found.
func (db *DB) GetAnalysis(ctx context.Context, id uuid.UUID) (*Analysis, error) {
	a := &Analysis{}
	var resultJSON []byte
	var filename, jobURL, resumeHash, jobHash *string

	err := db.pool.QueryRow(ctx,
		`SELECT id, resume_filename, job_url, resume_hash, job_hash, result, created_at
		 FROM analyses WHERE id = $1`,
		id,
	).Scan(&a.ID, &filename, &jobURL, &resumeHash, &jobHash, &resultJSON, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	a.ResumeFilename = deref(filename)
	a.JobURL = deref(jobURL)
	a.ResumeHash = deref(resumeHash)
	a.JobHash = deref(jobHash)

	if err := schemas.ValidateJSON(rootschemas.AnalysisResult, resultJSON); err != nil {
		return nil, fmt.Errorf("stored analysis result is invalid: %w", err)
	}
	var result types.AnalysisResult
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	a.Result = &result
	return a, nil
}

// ListAnalyses returns the most recent analyses, newest first.
func (db *DB) ListAnalyses(ctx context.Context, limit int) ([]types.AnalysisSummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, resume_filename, job_url, resume_quality_score, job_match_score, created_at
		 FROM analyses ORDER BY created_at DESC LIMIT $1`,
		ClampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	summaries := []types.AnalysisSummary{}
	for rows.Next() {
		var a Analysis
		var filename, jobURL *string
		a.Result = &types.AnalysisResult{}
		if err := rows.Scan(&a.ID, &filename, &jobURL, &a.Result.ResumeQualityScore, &a.Result.JobMatchScore, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		a.ResumeFilename = deref(filename)
		a.JobURL = deref(jobURL)
		summaries = append(summaries, a.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analyses: %w", err)
	}
	return summaries, nil
}

// DeleteAnalysis removes a stored analysis. Reports whether a row was deleted.
func (db *DB) DeleteAnalysis(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete analysis: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
