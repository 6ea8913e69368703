package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mailsweep/internal/secrets"
)

// secretKeys maps the user-facing names to keyring keys.
var secretKeys = map[string]string{
	"groq":          secrets.KeyGroqAPIKey,
	"google":        secrets.KeyGoogleAPIKey,
	"openai":        secrets.KeyOpenAIAPIKey,
	"anthropic":     secrets.KeyAnthropicAPIKey,
	"ms-secret":     secrets.KeyMicrosoftClientSecret,
	"imap-password": secrets.KeyIMAPPassword,
}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored secrets",
	}
	cmd.AddCommand(newAuthSetKeyCmd())
	return cmd
}

func newAuthSetKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-key <name>",
		Short: "Store a secret in the system keyring",
		Long: `Prompts for a secret and stores it in the keyring. Valid names:
groq, google, openai, anthropic, ms-secret, imap-password.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToLower(args[0])
			key, ok := secretKeys[name]
			if !ok {
				names := make([]string, 0, len(secretKeys))
				for n := range secretKeys {
					names = append(names, n)
				}
				sort.Strings(names)
				return fmt.Errorf("unknown secret %q (expected one of %s)", name, strings.Join(names, ", "))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Value for %s: ", name)
			value, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("read secret: %w", err)
			}
			if len(value) == 0 {
				return fmt.Errorf("empty secret")
			}

			if err := secrets.SetSecret(key, value); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Secret stored.")
			return nil
		},
	}
	return cmd
}
