package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"mailsweep/internal/analyze"
)

func newSenderCmd() *cobra.Command {
	var (
		folder   string
		limit    int
		daysBack int
		backend  string
		top      int
	)

	cmd := &cobra.Command{
		Use:   "sender [address]",
		Short: "Analyze senders with the LLM",
		Long: `Aggregates sender history locally, then asks the LLM to judge each sender.
With an address argument only that sender is analyzed; otherwise the most
frequent senders are.`,
		Args: cobra.MaximumNArgs(1),
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

			patterns := analyze.SenderPatterns(emails)

			var targets []string
			if len(args) == 1 {
				if _, ok := patterns[args[0]]; !ok {
					return fmt.Errorf("no emails from %q in the fetched set", args[0])
				}
				targets = []string{args[0]}
			} else {
				for addr := range patterns {
					targets = append(targets, addr)
				}
				sort.Slice(targets, func(i, j int) bool {
					if patterns[targets[i]].Count != patterns[targets[j]].Count {
						return patterns[targets[i]].Count > patterns[targets[j]].Count
					}
					return targets[i] < targets[j]
				})
				if len(targets) > top {
					targets = targets[:top]
				}
			}

			for _, addr := range targets {
				p := patterns[addr]
				analysis := classifier.AnalyzeSender(cmd.Context(), addr, p.Subjects, p.Count)
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d emails): %s (%.2f) rule=%s\n  %s\n",
					addr, p.Count, analysis.SenderCategory, analysis.Confidence,
					analysis.SuggestedRule, analysis.Reasoning)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "inbox", "Folder to fetch from")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum emails to fetch (default: configured cap)")
	cmd.Flags().IntVar(&daysBack, "days", 0, "Only fetch emails from the last N days")
	cmd.Flags().StringVar(&backend, "llm", "", "Override the configured LLM backend")
	cmd.Flags().IntVar(&top, "top", 5, "How many of the most frequent senders to analyze")

	return cmd
}
