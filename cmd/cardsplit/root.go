package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cardsplit/cardsplit/internal/config"
	"github.com/cardsplit/cardsplit/internal/generation"
	"github.com/cardsplit/cardsplit/internal/platform/gemini"
	"github.com/cardsplit/cardsplit/internal/platform/logger"
	"github.com/cardsplit/cardsplit/internal/platform/openai"
	"github.com/cardsplit/cardsplit/internal/platform/sqlite"
	"github.com/cardsplit/cardsplit/internal/split"
	"github.com/cardsplit/cardsplit/internal/store"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cardsplit",
		Short:         "Split long flashcard answers into short question/answer cards",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("config", "", "path to a cardsplit.yaml config file")

	root.AddCommand(
		newRunCmd(),
		newCandidatesCmd(),
	)

	return root
}

// app holds the wired components every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *sqlite.Store
}

// newApp loads configuration, sets up logging, and opens the collection.
func newApp(cmd *cobra.Command) (*app, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to read config flag: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Setup(cfg.Log.Level, os.Stderr)

	st, err := sqlite.New(cfg.Collection.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %q: %w", cfg.Collection.Path, err)
	}

	log.Debug("collection opened",
		"path", cfg.Collection.Path,
		"provider", cfg.Backend.Provider,
		"model", cfg.Backend.ProviderSettings().Model)

	return &app{cfg: cfg, logger: log, store: st}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close collection", "error", err)
	}
}

// newBackend builds the configured generation backend. Both constructors
// resolve their API key up front, so a missing credential fails here
// rather than mid-batch.
func (a *app) newBackend(ctx context.Context) (generation.Generator, error) {
	switch a.cfg.Backend.Provider {
	case "openai":
		return openai.New(a.logger, a.cfg.Backend)
	case "gemini":
		return gemini.New(ctx, a.logger, a.cfg.Backend)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", generation.ErrInvalidConfig, a.cfg.Backend.Provider)
	}
}

// candidateFilter translates the split configuration into the store-side
// candidate pre-filter.
func (a *app) candidateFilter(limit int) store.SelectFilter {
	return store.SelectFilter{
		QuestionField:  a.cfg.Split.QuestionField,
		AnswerField:    a.cfg.Split.AnswerField,
		MaxAnswerChars: a.cfg.Split.MaxAnswerChars,
		ExcludeTags:    []string{a.cfg.Split.NewNoteTag, a.cfg.Split.SourceNoteTag},
		Limit:          limit,
	}
}

// printReport writes the human-facing run summary to stdout.
func printReport(cmd *cobra.Command, report *split.RunReport, dryRun bool) {
	out := cmd.OutOrStdout()

	if dryRun {
		fmt.Fprintf(out, "Dry run: %d notes would be split (%d skipped, %d failed).\n",
			report.Extracted, report.Skipped, report.Failed)
	} else {
		fmt.Fprintf(out, "Done: created %d notes from %d sources (%d skipped, %d failed).\n",
			report.Created, report.Committed, report.Skipped, report.Failed)
	}

	if report.Cancelled > 0 {
		fmt.Fprintf(out, "Interrupted: %d notes were not processed.\n", report.Cancelled)
	}

	kinds := make([]split.FailureKind, 0, len(report.Failures))
	for kind := range report.Failures {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	for _, kind := range kinds {
		fmt.Fprintf(out, "  %d × %s: %s\n", report.Failures[kind], kind, split.FailureReason(kind))
	}
}
