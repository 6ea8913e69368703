package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mailsweep/internal/analyze"
)

func newReportCmd() *cobra.Command {
	var (
		folder   string
		limit    int
		daysBack int
		savePath string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run local analytics over fetched emails",
		Long: `Computes sender patterns, promotional heuristics, frequency buckets,
content categories, URL extraction, and bulk-delete candidates. Purely local;
no LLM calls.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger()

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

			report := analyze.NewReport(emails)
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}

			if savePath != "" {
				if err := os.WriteFile(savePath, data, 0o600); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report saved to %s\n", savePath)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "inbox", "Folder to fetch from")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum emails to fetch (default: configured cap)")
	cmd.Flags().IntVar(&daysBack, "days", 0, "Only fetch emails from the last N days")
	cmd.Flags().StringVar(&savePath, "save", "", "Write the report to a JSON file")

	return cmd
}
