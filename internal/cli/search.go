package cli

import (
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search emails and list the matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger()

			service, err := openServiceFunc(cmd.Context(), cfg, true, logger)
			if err != nil {
				return err
			}

			emails, err := service.SearchEmails(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			printEmails(cmd.OutOrStdout(), emails)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum results")
	return cmd
}
