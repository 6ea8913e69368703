package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mailsweep",
		Short:        "mailsweep cleans a secondary inbox with LLM-assisted classification",
		SilenceUsage: true,
	}

	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newCleanCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newSenderCmd())
	cmd.AddCommand(newMailboxesCmd())
	cmd.AddCommand(newBackendsCmd())
	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newConfigCmd())

	cmd.SetErr(os.Stderr)
	cmd.SetOut(os.Stdout)

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
