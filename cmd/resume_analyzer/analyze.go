package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-analyzer/internal/ingestion"
	"github.com/jonathan/resume-analyzer/internal/observability"
	"github.com/jonathan/resume-analyzer/internal/pipeline"
	"github.com/jonathan/resume-analyzer/internal/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a resume against one or more job postings",
	Long: `Score a PDF resume and its match against job postings given by URL or text file.
Several jobs are analyzed concurrently; results are printed in the order given.`,
	RunE: runAnalyze,
}

var (
	resumePath      string
	jobURLs         []string
	jobFiles        []string
	analyzeJSON     bool
	analyzeLimit    int
	analyzeSave     bool
	analyzeShowLogs bool
)

func init() {
	analyzeCmd.Flags().StringVarP(&resumePath, "resume", "r", "", "Path to the resume PDF (required)")
	analyzeCmd.Flags().StringArrayVarP(&jobURLs, "job-url", "u", nil, "Job posting URL (repeatable)")
	analyzeCmd.Flags().StringArrayVarP(&jobFiles, "job", "j", nil, "Path to a job description text file (repeatable)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print results as JSON")
	analyzeCmd.Flags().IntVar(&analyzeLimit, "concurrency", 2, "Maximum analyses run at once")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Store results in the database (requires DATABASE_URL)")
	analyzeCmd.Flags().BoolVar(&analyzeShowLogs, "show-logs", false, "Print each run's agent log")

	_ = analyzeCmd.MarkFlagRequired("resume")

	rootCmd.AddCommand(analyzeCmd)
}

// jobSource is one job to analyze against: a URL or pasted text.
type jobSource struct {
	Label       string
	URL         string
	Description string
}

// jobReport pairs a job with its analysis outcome.
type jobReport struct {
	Job    string                `json:"job"`
	Result *types.AnalysisResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	jobs, err := collectJobs(jobURLs, jobFiles)
	if err != nil {
		return err
	}
	resume, err := os.ReadFile(resumePath)
	if err != nil {
		return fmt.Errorf("failed to read resume: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	svc, err := buildServices(cmd.Context(), cfg, log, analyzeSave)
	if err != nil {
		return err
	}
	defer svc.Close()

	out := cmd.OutOrStdout()
	var progress pipeline.ProgressSink
	if !analyzeJSON && len(jobs) == 1 {
		progress = observability.NewPrinter(cmd.ErrOrStderr()).PrintProgress
	}

	reports := analyzeJobs(cmd.Context(), svc.analyzer, filepath.Base(resumePath), resume, jobs, analyzeLimit, progress)
	if err := writeReports(out, reports, analyzeJSON, analyzeShowLogs); err != nil {
		return err
	}

	if n := countFailed(reports); n > 0 {
		return fmt.Errorf("%d of %d analyses failed", n, len(reports))
	}
	return nil
}

// collectJobs validates and loads the job flags.
func collectJobs(urls, files []string) ([]jobSource, error) {
	if len(urls) == 0 && len(files) == 0 {
		return nil, fmt.Errorf("at least one --job-url or --job must be provided")
	}

	jobs := make([]jobSource, 0, len(urls)+len(files))
	for _, u := range urls {
		jobs = append(jobs, jobSource{Label: u, URL: u})
	}
	for _, path := range files {
		text, _, err := ingestion.IngestFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read job description %s: %w", path, err)
		}
		jobs = append(jobs, jobSource{Label: path, Description: text})
	}
	return jobs, nil
}

// analyzer is the subset of *pipeline.Analyzer used by the command.
type analyzer interface {
	Analyze(ctx context.Context, req pipeline.AnalyzeRequest, onProgress pipeline.ProgressSink) (*types.AnalysisResult, error)
}

// analyzeJobs runs one analysis per job with at most limit in flight. A failed
// job is reported and does not cancel the others.
func analyzeJobs(ctx context.Context, a analyzer, filename string, resume []byte, jobs []jobSource, limit int, progress pipeline.ProgressSink) []jobReport {
	reports := make([]jobReport, len(jobs))

	var mu sync.Mutex
	sink := progress
	if progress != nil {
		sink = func(u types.AgentUpdate) {
			mu.Lock()
			defer mu.Unlock()
			progress(u)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, limit))
	for i, job := range jobs {
		g.Go(func() error {
			reports[i].Job = job.Label
			result, err := a.Analyze(gctx, pipeline.AnalyzeRequest{
				ResumeFilename: filename,
				Resume:         resume,
				JobURL:         job.URL,
				JobDescription: job.Description,
			}, sink)
			if err != nil {
				reports[i].Error = err.Error()
				return nil
			}
			reports[i].Result = result
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

func countFailed(reports []jobReport) int {
	n := 0
	for _, r := range reports {
		if r.Error != "" {
			n++
		}
	}
	return n
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func writeReports(out io.Writer, reports []jobReport, asJSON, showLogs bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if len(reports) == 1 && reports[0].Result != nil {
			return enc.Encode(reports[0].Result)
		}
		return enc.Encode(reports)
	}

	printer := observability.NewPrinter(out)
	for _, r := range reports {
		if len(reports) > 1 {
			fmt.Fprintf(out, "\n=== %s ===\n", r.Job)
		}
		if r.Error != "" {
			fmt.Fprintf(out, "Analysis failed: %s\n", r.Error)
			continue
		}
		printer.PrintReport(r.Result)
		if showLogs {
			printer.PrintAgentLogs(r.Result.AgentLogs)
		}
	}
	return nil
}
