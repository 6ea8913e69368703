package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mailsweep/internal/config"
)

func newBackendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List LLM backends and their availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			available := make(map[string]bool)
			for _, name := range config.AvailableBackends(cfg) {
				available[name] = true
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "BACKEND\tAVAILABLE\tSELECTED")
			for _, name := range []string{"groq", "gemini", "openai", "anthropic"} {
				selected := ""
				if name == cfg.LLM.Backend {
					selected = "*"
				}
				fmt.Fprintf(tw, "%s\t%v\t%s\n", name, available[name], selected)
			}
			return tw.Flush()
		},
	}
	return cmd
}
