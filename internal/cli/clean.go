package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mailsweep/internal/llm"
)

func newCleanCmd() *cobra.Command {
	var (
		folder     string
		limit      int
		daysBack   int
		backend    string
		confidence float64
		execute    bool
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Classify emails and delete confident junk",
		Long: `Fetches emails, classifies them, and deletes the ones classified JUNK with
confidence at or above the threshold. Runs dry by default; pass --execute to
actually delete.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger()

			dryRun := cfg.Run.DryRun
			if execute {
				dryRun = false
			}
			threshold := cfg.Run.ConfidenceThreshold
			if cmd.Flags().Changed("confidence") {
				threshold = confidence
			}

			classifier, err := newClassifier(cfg, backend, logger)
			if err != nil {
				return err
			}
			service, err := openService(cmd.Context(), cfg, dryRun, logger)
			if err != nil {
				return err
			}

			if limit <= 0 || limit > cfg.Run.MaxEmails {
				limit = cfg.Run.MaxEmails
			}
			emails, err := service.FetchEmails(cmd.Context(), folder, limit, daysBack)
			if err != nil {
				return err
			}
			if len(emails) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clean.")
				return nil
			}

			results := classifier.ClassifyBatch(cmd.Context(), emails)
			summarizeResults(cmd.OutOrStdout(), results)

			var junkIDs []string
			junk := make([]llm.Result, 0)
			for _, r := range results {
				if r.Category == llm.CategoryJunk && r.Confidence >= threshold {
					junkIDs = append(junkIDs, r.EmailID)
					junk = append(junk, r)
				}
			}
			if len(junkIDs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No junk above confidence %.2f.\n", threshold)
				return nil
			}

			printResults(cmd.OutOrStdout(), emails, junk)
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "\nDry run: %d emails would be deleted. Pass --execute to delete.\n", len(junkIDs))
				return nil
			}

			if !yes && !confirm(cmd, fmt.Sprintf("Delete %d emails?", len(junkIDs))) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}

			outcome := service.BulkDelete(cmd.Context(), junkIDs, false)
			reportOutcome(cmd, "Deleted", outcome)
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "inbox", "Folder to clean")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum emails to fetch (default: configured cap)")
	cmd.Flags().IntVar(&daysBack, "days", 0, "Only fetch emails from the last N days")
	cmd.Flags().StringVar(&backend, "llm", "", "Override the configured LLM backend")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "Override the configured confidence threshold")
	cmd.Flags().BoolVar(&execute, "execute", false, "Actually delete instead of dry-running")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")

	return cmd
}

func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func reportOutcome(cmd *cobra.Command, verb string, outcome map[string]bool) {
	succeeded := 0
	for _, ok := range outcome {
		if ok {
			succeeded++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d of %d emails.\n", verb, succeeded, len(outcome))
}
