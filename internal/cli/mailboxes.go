package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMailboxesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mailboxes",
		Short: "Folder and label operations",
	}
	cmd.AddCommand(newMailboxesListCmd())
	cmd.AddCommand(newMailboxesCreateCmd())
	return cmd
}

func newMailboxesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List folders or labels",
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

			folders, err := service.ListFolders(cmd.Context())
			if err != nil {
				return err
			}

			for _, name := range folders {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	return cmd
}

func newMailboxesCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a folder or label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger()

			service, err := openService(cmd.Context(), cfg, cfg.Run.DryRun, logger)
			if err != nil {
				return err
			}

			if !service.CreateFolder(cmd.Context(), args[0]) {
				return fmt.Errorf("could not create %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Folder created.")
			return nil
		},
	}
	return cmd
}
