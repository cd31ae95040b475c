/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/valpere/tradutor/internal"
	"github.com/valpere/tradutor/internal/config"
	"github.com/valpere/tradutor/internal/detector"
	"github.com/valpere/tradutor/internal/logging"
	"github.com/valpere/tradutor/internal/orchestrator"
	"github.com/valpere/tradutor/internal/progress"
	"github.com/valpere/tradutor/internal/reassembler"
	"github.com/valpere/tradutor/internal/store"
	"github.com/valpere/tradutor/internal/textio"
	"github.com/valpere/tradutor/internal/translator"
	"github.com/valpere/tradutor/internal/validator"
)

const (
	// Lines sampled to guess the input language.
	detectSample   = 50
	detectMinRunes = 20
)

// persistentKeys maps root flags to config keys.
var persistentKeys = map[string]string{
	"log-level": "log.level",
	"cache-db":  "cache.db",
	"no-cache":  "cache.disabled",
}

// runKeys maps the flags shared by the translation commands to config keys.
var runKeys = map[string]string{
	"source":      "source",
	"target":      "target",
	"on-error":    "on_error",
	"workers":     "batch.workers",
	"status-file": "status_file",
	"resume":      "resume",
	"validate":    "validate",
	"no-progress": "no_progress",
}

func addRunFlags(c *cobra.Command) {
	c.Flags().StringP("source", "s", "en", "Source language code")
	c.Flags().StringP("target", "t", "pt", "Target language code")
	c.Flags().String("on-error", "", "What to do when a batch fails: fallback (keep source text) or abort")
	c.Flags().Int("workers", 1, "Number of batches translated concurrently")
	c.Flags().String("status-file", "", "Write the status of every line as JSON lines to this file")
	c.Flags().String("resume", "", "Continue the interrupted run with this ID")
	c.Flags().Bool("validate", false, "Warn about translated lines not detected as the target language")
	c.Flags().Bool("no-progress", false, "Do not draw the progress bar")
}

func mergeKeys(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// loadConfig layers positional arguments (overrides), bound flags, the
// environment, the config file and defaults, then validates the result.
// defaults replaces built-in defaults for the command being run.
func loadConfig(cmd *cobra.Command, keys map[string]string, overrides, defaults map[string]any) (*config.Config, error) {
	v := config.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	for name, key := range mergeKeys(persistentKeys, keys) {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	for key, val := range overrides {
		v.Set(key, val)
	}
	return config.Load(v, cfgFile)
}

// positional assigns args to keys in order.
func positional(args []string, keys ...string) map[string]any {
	out := make(map[string]any)
	for i, arg := range args {
		if i < len(keys) {
			out[keys[i]] = arg
		}
	}
	return out
}

// positiveInt parses a numeric positional argument.
func positiveInt(name, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return n, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(cfg.Log.Level, os.Stderr)
}

// probe checks the backend before a run. With fatal unset a failed probe
// is only logged.
func probe(ctx context.Context, tr translator.Translator, fatal bool, logger *slog.Logger) error {
	p, ok := tr.(translator.Prober)
	if !ok {
		return nil
	}
	if err := p.Probe(ctx); err != nil {
		if fatal {
			return fmt.Errorf("backend check failed: %w", err)
		}
		logger.Warn("backend did not answer, continuing anyway", "backend", tr.Name(), "error", err)
		return nil
	}
	logger.Debug("backend is reachable", "backend", tr.Name())
	return nil
}

// runTranslation reads the input, translates it and writes the output and
// optional status file. Nothing is written when the run fails.
func runTranslation(ctx context.Context, cfg *config.Config, tr translator.Translator, model string, logger *slog.Logger) error {
	lines, err := textio.ReadLines(cfg.Input)
	if err != nil {
		return err
	}
	logger.Info("input loaded", "file", cfg.Input, "lines", len(lines))

	checkSourceLanguage(lines, cfg, logger)

	opts := []orchestrator.Option{orchestrator.WithLogger(logger)}

	var db *store.Store
	var run *internal.Run
	if cfg.Cache.Disabled {
		if cfg.Resume != "" {
			return fmt.Errorf("resuming a run needs the run database, drop --no-cache")
		}
	} else {
		db, err = store.New(cfg.Cache.DB)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		opts = append(opts, orchestrator.WithMemory(db.MemoryFor(store.MemoryKey{
			SourceLang: cfg.Source,
			TargetLang: cfg.Target,
			Backend:    tr.Name(),
			Model:      model,
		})))

		run, err = startRun(ctx, db, cfg, lines, tr.Name(), model)
		if err != nil {
			return err
		}
		opts = append(opts, orchestrator.WithCheckpoint(db.CheckpointFor(run.ID)))
		logger.Info("run started", "run", run.ID)
	}

	if !cfg.NoProgress {
		opts = append(opts, orchestrator.WithProgress(progress.NewBar(os.Stderr).Update))
	}

	orch := orchestrator.New(tr, orchestrator.Config{
		Capacity:  cfg.Capacity(),
		BatchMode: cfg.BatchMode(),
		FailFast:  cfg.FailFast(),
		Workers:   cfg.Batch.Workers,
	}, opts...)

	res, err := orch.Execute(ctx, lines)
	if err != nil {
		if run != nil {
			if serr := db.SetRunStatus(context.WithoutCancel(ctx), run.ID, internal.RunFailed); serr != nil {
				logger.Warn("failed to record run status", "run", run.ID, "error", serr)
			}
			fmt.Fprintf(os.Stderr, "Run %s stopped, no output written. Continue it with --resume %s\n", run.ID, run.ID)
		}
		return fmt.Errorf("translation failed: %w", err)
	}

	if err := textio.WriteAtomic(cfg.Output, []byte(reassembler.Render(res.Texts()))); err != nil {
		return err
	}
	if cfg.StatusFile != "" {
		if err := textio.WriteJSONL(cfg.StatusFile, res.Lines); err != nil {
			return err
		}
	}
	if cfg.ValidateOutput {
		validateOutput(res, cfg, logger)
	}
	if run != nil {
		if err := db.SetRunStatus(ctx, run.ID, internal.RunCompleted); err != nil {
			logger.Warn("failed to record run status", "run", run.ID, "error", err)
		}
	}

	printStats(cfg, res.Stats)
	return nil
}

// startRun creates a new run, or reopens cfg.Resume after checking that it
// was started on the same input with the same backend.
func startRun(ctx context.Context, db *store.Store, cfg *config.Config, lines []string, backend, model string) (*internal.Run, error) {
	hash := textio.Hash(lines)
	if cfg.Resume == "" {
		return db.CreateRun(ctx, internal.Run{
			InputFile:  cfg.Input,
			OutputFile: cfg.Output,
			InputHash:  hash,
			TotalLines: len(lines),
			Backend:    backend,
			Model:      model,
			SourceLang: cfg.Source,
			TargetLang: cfg.Target,
		})
	}

	run, err := db.GetRun(ctx, cfg.Resume)
	if err != nil {
		return nil, err
	}
	switch {
	case run.Status == internal.RunCompleted:
		return nil, fmt.Errorf("run %s is already completed", run.ID)
	case run.InputHash != hash || run.TotalLines != len(lines):
		return nil, fmt.Errorf("run %s was started on different input (%s, %d lines)", run.ID, run.InputFile, run.TotalLines)
	case run.Backend != backend || run.Model != model:
		return nil, fmt.Errorf("run %s used backend %s (%s)", run.ID, run.Backend, run.Model)
	case run.SourceLang != cfg.Source || run.TargetLang != cfg.Target:
		return nil, fmt.Errorf("run %s translated %s to %s", run.ID, run.SourceLang, run.TargetLang)
	}
	if err := db.SetRunStatus(ctx, run.ID, internal.RunRunning); err != nil {
		return nil, fmt.Errorf("failed to reopen run: %w", err)
	}
	return run, nil
}

func checkSourceLanguage(lines []string, cfg *config.Config, logger *slog.Logger) {
	det := detector.New(cfg.Source, cfg.Target)
	code, share, ok := det.Dominant(lines, detectSample, detectMinRunes)
	if !ok {
		return
	}
	base, _, _ := strings.Cut(cfg.Source, "-")
	if !strings.EqualFold(code, base) {
		logger.Warn("input does not look like the source language",
			"source", cfg.Source, "detected", code, "share", fmt.Sprintf("%.0f%%", share*100))
	}
}

func validateOutput(res *orchestrator.Result, cfg *config.Config, logger *slog.Logger) {
	v := validator.New(cfg.Source, cfg.Target)
	mismatches := v.CheckLines(res.Texts(), cfg.Target, func(i int) bool {
		st := res.Lines[i].Status
		return st == reassembler.Translated || st == reassembler.Cached
	})
	for _, m := range mismatches {
		logger.Warn("translated line failed validation", "line", m.Index+1, "reason", m.Reason)
	}
	if len(mismatches) > 0 {
		fmt.Fprintf(os.Stderr, "%s %d lines may not be in %s\n", color.YellowString("Validation:"), len(mismatches), cfg.Target)
	}
}

func printStats(cfg *config.Config, s orchestrator.Stats) {
	fmt.Printf("%s %s -> %s\n", color.GreenString("Translated"), cfg.Input, cfg.Output)
	fmt.Printf("Lines:     %d (%d with text, %d blank)\n", s.TotalLines, s.NonBlankLines, s.BlankLines)
	fmt.Printf("Batches:   %d (%.1f lines per batch)\n", s.Batches, s.AvgPerBatch)
	if s.Cached > 0 || s.Resumed > 0 {
		fmt.Printf("Reused:    %d from memory, %d from the previous run\n", s.Cached, s.Resumed)
	}
	if s.Fallback > 0 {
		fmt.Printf("%s  %d lines kept in the source language\n", color.YellowString("Fallback:"), s.Fallback)
	}
	fmt.Printf("Elapsed:   %s (%.1f lines/s)\n", s.Elapsed.Round(time.Millisecond), s.LinesPerSecond)
}
