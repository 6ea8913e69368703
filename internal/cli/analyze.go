package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mailsweep/internal/llm"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		folder   string
		limit    int
		daysBack int
		backend  string
		savePath string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Fetch and classify emails without acting on them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger()

			classifier, err := newClassifier(cfg, backend, logger)
			if err != nil {
				return err
			}
			service, err := openService(cmd.Context(), cfg, true, logger)
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
				fmt.Fprintln(cmd.OutOrStdout(), "No emails to classify.")
				return nil
			}
			logger.Info("classifying", "count", len(emails), "backend", classifier.BackendName())

			results := classifier.ClassifyBatch(cmd.Context(), emails)
			printResults(cmd.OutOrStdout(), emails, results)
			summarizeResults(cmd.OutOrStdout(), results)

			if savePath != "" {
				if err := llm.SaveResults(savePath, results); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Results saved to %s\n", savePath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "inbox", "Folder to fetch from")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum emails to fetch (default: configured cap)")
	cmd.Flags().IntVar(&daysBack, "days", 0, "Only fetch emails from the last N days")
	cmd.Flags().StringVar(&backend, "llm", "", "Override the configured LLM backend")
	cmd.Flags().StringVar(&savePath, "save", "", "Write classification results to a JSON file")

	return cmd
}
