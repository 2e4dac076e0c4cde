package main

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

func newCandidatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List the notes that would be split",
		RunE:  listCandidates,
	}

	cmd.Flags().Int("limit", 0, "list at most N candidates (0 = no limit)")

	return cmd
}

func listCandidates(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	candidates, err := a.store.SelectCandidates(cmd.Context(), a.candidateFilter(limit))
	if err != nil {
		return fmt.Errorf("failed to select candidates: %w", err)
	}

	if len(candidates) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No notes need splitting.")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, note := range candidates {
		question := truncate(note.Field(a.cfg.Split.QuestionField), 60)
		answerLen := utf8.RuneCountInString(note.Field(a.cfg.Split.AnswerField))

		fmt.Fprintf(out, "%s  deck=%q  answer_chars=%d  %s\n",
			note.ID, note.Deck, answerLen, question)
	}
	fmt.Fprintf(out, "%d candidates.\n", len(candidates))

	return nil
}

// truncate shortens s to at most n runes, appending an ellipsis when cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n]) + "..."
}
