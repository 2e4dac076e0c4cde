package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cardsplit/cardsplit/internal/generation"
	"github.com/cardsplit/cardsplit/internal/split"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Split every eligible note in the collection",
		RunE:  runSplit,
	}

	cmd.Flags().Bool("dry-run", false, "extract card pairs but commit nothing")
	cmd.Flags().Int("limit", 0, "process at most N candidates (0 = no limit)")
	cmd.Flags().Bool("yes", false, "run without asking for confirmation")

	return cmd
}

func runSplit(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	limit, _ := cmd.Flags().GetInt("limit")
	yes, _ := cmd.Flags().GetBool("yes")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := a.newBackend(ctx)
	if err != nil {
		return err
	}

	prompts, err := generation.NewPromptBuilder(a.cfg.Split.PromptTemplatePath)
	if err != nil {
		return err
	}

	candidates, err := a.store.SelectCandidates(ctx, a.candidateFilter(limit))
	if err != nil {
		return fmt.Errorf("failed to select candidates: %w", err)
	}

	if len(candidates) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No notes need splitting.")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d notes with answers longer than %d characters.\n",
		len(candidates), a.cfg.Split.MaxAnswerChars)

	if !yes && !dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "Send them to %s (%s)? [y/N] ",
			backend.Name(), a.cfg.Backend.ProviderSettings().Model)

		var answer string
		fmt.Fscanln(cmd.InOrStdin(), &answer)
		if answer != "y" && answer != "Y" && answer != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	runner := split.NewRunner(
		a.store,
		backend,
		prompts,
		split.NewMaterializer(a.cfg.Split, a.cfg.Collection.DefaultDeck),
		split.Options{
			OutputLanguage: a.cfg.Split.OutputLanguage,
			MaxCards:       a.cfg.Split.MaxCards,
			Workers:        a.cfg.Runner.Workers,
			DryRun:         dryRun,
		},
		a.logger,
	)

	report := runner.Run(ctx, candidates)
	printReport(cmd, report, dryRun)

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d candidates failed", report.Failed, report.Total)
	}

	return nil
}
