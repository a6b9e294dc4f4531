package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/vibes/internal/formatter"
	"github.com/desertthunder/vibes/internal/models"
	"github.com/desertthunder/vibes/internal/shared"
	"github.com/desertthunder/vibes/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Parse asks the model to describe a vibe and prints the outcome as JSON.
//
// Output the model returned in an unexpected shape is printed raw alongside a warning.
func (r *Runner) Parse(ctx context.Context, cmd *cli.Command) error {
	prompt, err := promptArg(cmd)
	if err != nil {
		return err
	}

	parser, err := r.newParser()
	if err != nil {
		return err
	}

	r.logger.Info("parsing prompt", "prompt", prompt)
	outcome, err := parser.Parse(ctx, prompt)
	if err != nil {
		return err
	}
	if !outcome.OK() {
		r.logger.Warn(outcome.Warning)
	}
	return r.writeJSON(outcome, cmd.Bool("pretty"))
}

// Tracks resolves a vibe's songs to catalog tracks and renders the report.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	return r.runVibe(ctx, cmd, false)
}

// Build resolves a vibe's songs and creates a playlist from the matches.
func (r *Runner) Build(ctx context.Context, cmd *cli.Command) error {
	return r.runVibe(ctx, cmd, true)
}

func (r *Runner) runVibe(ctx context.Context, cmd *cli.Command, build bool) error {
	prompt, err := promptArg(cmd)
	if err != nil {
		return err
	}
	token, err := tokenFlag(cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	engine, err := r.newEngine(true)
	if err != nil {
		return err
	}

	r.logger.Info("running vibe", "prompt", prompt, "build", build)

	progressCh, stop := r.watchProgress()
	report, err := engine.Run(ctx, token, prompt, tasks.RunOptions{Build: build, UserID: cmd.String("user")}, progressCh)
	stop()

	if report != nil {
		r.writePlain("\n")
		if renderErr := formatter.Render(r.output, report, format); renderErr != nil {
			return renderErr
		}
	}
	if report != nil && report.Playlist != nil {
		r.printPlaylistSummary(report)
		if err == nil && cmd.Bool("open") {
			if openErr := shared.OpenBrowser(report.Playlist.URL); openErr != nil {
				r.logger.Warnf("failed to open browser %v", openErr)
			}
		}
	}
	return err
}

func (r *Runner) printPlaylistSummary(report *models.Report) {
	r.writePlain("\n")
	r.writePlainHeader("Playlist Ready!")
	r.writePlain("Name: %s\n", report.Playlist.Name)
	r.writePlain("URL: %s\n", report.Playlist.URL)
	r.writePlain("Tracks: %d/%d matched\n", report.MatchedCount(), len(report.Entries))
}

// Export resolves several vibes concurrently and writes one report per vibe plus a manifest.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	prompts := cmd.Args().Slice()
	if path := cmd.String("file"); path != "" {
		fromFile, err := readPrompts(path)
		if err != nil {
			return err
		}
		prompts = append(prompts, fromFile...)
	}
	if len(prompts) == 0 {
		return fmt.Errorf("%w: at least one prompt or --file", shared.ErrMissingArgument)
	}

	token, err := tokenFlag(cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	engine, err := r.newEngine(true)
	if err != nil {
		return err
	}

	opts := tasks.ExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		Build:      cmd.Bool("build"),
		WithCover:  cmd.Bool("cover"),
	}

	r.logger.Info("starting export", "vibes", len(prompts), "format", format)

	progressCh, stop := r.watchProgress()
	result, err := engine.Export(ctx, token, prompts, opts, progressCh)
	stop()
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Output: %s\n", result.OutputDirectory)
	r.writePlain("Succeeded: %d/%d\n", result.SuccessfulExports, result.TotalReports)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}

	if result.FailedExports > 0 {
		r.writePlain("\nFailed %d vibes:\n", result.FailedExports)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %q: %s\n", res.Prompt, res.ErrorText)
			}
		}
	}
	return nil
}

// readPrompts reads one prompt per non-blank line; lines starting with # are skipped.
func readPrompts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open prompt file: %w", err)
	}
	defer f.Close()

	var prompts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}
	return prompts, nil
}
