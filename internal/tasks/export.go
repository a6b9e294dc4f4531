package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/vibes/internal/formatter"
	"github.com/desertthunder/vibes/internal/shared"
)

// ExportOpts contains configuration for exporting several vibes at once.
type ExportOpts struct {
	Format     formatter.Format // Output format: text, markdown, csv, json
	OutputDir  string           // Base output directory (default: vibes_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 3)
	Build      bool             // Also create a playlist for each vibe
	UserID     string           // Playlist owner when Build is set
	WithCover  bool             // Markdown only: download album art
}

// ExportJob is a single vibe queued for export.
type ExportJob struct {
	Index  int
	Prompt string
}

// ExportReportResult is the outcome of exporting one vibe.
type ExportReportResult struct {
	Prompt      string   `json:"prompt"`
	Name        string   `json:"name,omitempty"`
	Matched     int      `json:"matched"`
	Total       int      `json:"total"`
	PlaylistURL string   `json:"playlist_url,omitempty"`
	Files       []string `json:"files,omitempty"`
	Success     bool     `json:"success"`
	Error       error    `json:"-"`
	ErrorText   string   `json:"error,omitempty"`
}

// ExportResult summarizes an export run; it is also written as the manifest.
type ExportResult struct {
	TotalReports      int                  `json:"total_reports"`
	SuccessfulExports int                  `json:"successful_exports"`
	FailedExports     int                  `json:"failed_exports"`
	OutputDirectory   string               `json:"output_directory"`
	ManifestPath      string               `json:"-"`
	Results           []ExportReportResult `json:"results"`
}

// Export runs every prompt through [PlaylistEngine.Run] with a bounded worker pool and writes one report per prompt.
//
// Failures are recorded per prompt and do not stop the run. Results keep the order of prompts.
// A manifest summarizing the run is written to {dir}/export_manifest.json.
func (e *PlaylistEngine) Export(ctx context.Context, token string, prompts []string, opts ExportOpts, prog chan<- ProgressUpdate) (*ExportResult, error) {
	if len(prompts) == 0 {
		return nil, fmt.Errorf("%w: at least one prompt", shared.ErrMissingArgument)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("vibes_export_%d", time.Now().Unix())
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > len(prompts) {
		opts.NumWorkers = len(prompts)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		TotalReports:    len(prompts),
		OutputDirectory: opts.OutputDir,
		Results:         make([]ExportReportResult, len(prompts)),
	}

	jobs := make(chan ExportJob, len(prompts))
	results := make(chan indexedResult, len(prompts))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, token, jobs, results, opts, prog)
	}

	for i, prompt := range prompts {
		jobs <- ExportJob{Index: i, Prompt: prompt}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	seen := make([]bool, len(prompts))
	for res := range results {
		completed++
		seen[res.index] = true
		result.Results[res.index] = res.ExportReportResult

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(prompts), res.Name, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(prompts), res.Prompt, res.Error))
		}
	}

	for i := range result.Results {
		if !seen[i] {
			result.Results[i] = ExportReportResult{Prompt: prompts[i], Error: ctx.Err(), ErrorText: "not started"}
			result.FailedExports++
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

type indexedResult struct {
	index int
	ExportReportResult
}

// exportWorker is a worker goroutine that exports vibes from the jobs channel.
func (e *PlaylistEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	token string,
	jobs <-chan ExportJob,
	results chan<- indexedResult,
	opts ExportOpts,
	prog chan<- ProgressUpdate,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		e.sendProgress(prog, exportingUpdate(job.Index+1, cap(jobs), job.Prompt))
		results <- indexedResult{index: job.Index, ExportReportResult: e.exportSingle(ctx, token, job, opts)}
	}
}

// exportSingle generates, resolves and writes one vibe.
func (e *PlaylistEngine) exportSingle(ctx context.Context, token string, j ExportJob, opts ExportOpts) ExportReportResult {
	result := ExportReportResult{Prompt: j.Prompt, Files: []string{}}
	fail := func(err error) ExportReportResult {
		result.Error = err
		result.ErrorText = err.Error()
		return result
	}

	report, err := e.Run(ctx, token, j.Prompt, RunOptions{Build: opts.Build, UserID: opts.UserID}, nil)
	if report != nil {
		result.Name = report.Name
		result.Matched = report.MatchedCount()
		result.Total = len(report.Entries)
		if report.Playlist != nil {
			result.PlaylistURL = report.Playlist.URL
		}
	}
	if err != nil {
		return fail(err)
	}

	written, err := formatter.WriteReport(ctx, report, formatter.WriteOptions{
		Format:    opts.Format,
		Dir:       opts.OutputDir,
		BaseName:  fmt.Sprintf("%02d-%s", j.Index+1, formatter.Slug(report.Name)),
		WithCover: opts.WithCover,
	})
	if err != nil {
		return fail(fmt.Errorf("%s export failed: %w", opts.Format, err))
	}

	result.Files = written.Files
	result.Success = true
	return result
}
