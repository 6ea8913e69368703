package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"mailsweep/internal/config"
	"mailsweep/internal/secrets"
)

func newSetupCmd() *cobra.Command {
	var (
		provider string

		gmailCredentials string
		gmailToken       string
		gmailAddress     string

		msClientID   string
		msTenantID   string
		msTokenCache string

		imapHost     string
		imapPort     int
		imapTLS      bool
		imapStartTLS bool
		imapInsecure bool
		username     string

		llmBackend string

		dryRun              bool
		batchSize           int
		maxEmails           int
		confidenceThreshold float64
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Store configuration and test the provider and LLM",
		Long: `Writes the configuration file, then validates it, tests the provider
connection, and checks the LLM backend. Secrets (API keys, passwords) are not
accepted as flags; store them with "mailsweep auth set-key" instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("provider") {
				cfg.Provider = provider
			}

			if cmd.Flags().Changed("gmail-credentials") {
				cfg.Gmail.CredentialsFile = gmailCredentials
			}
			if cmd.Flags().Changed("gmail-token") {
				cfg.Gmail.TokenFile = gmailToken
			}
			if cmd.Flags().Changed("gmail-address") {
				cfg.Gmail.Address = gmailAddress
			}

			if cmd.Flags().Changed("ms-client-id") {
				cfg.Microsoft.ClientID = msClientID
			}
			if cmd.Flags().Changed("ms-tenant-id") {
				cfg.Microsoft.TenantID = msTenantID
			}
			if cmd.Flags().Changed("ms-token-cache") {
				cfg.Microsoft.TokenCacheFile = msTokenCache
			}

			if cmd.Flags().Changed("imap-host") {
				cfg.IMAP.Host = imapHost
			}
			if cmd.Flags().Changed("imap-port") {
				cfg.IMAP.Port = imapPort
			}
			if cmd.Flags().Changed("imap-tls") {
				cfg.IMAP.TLS = imapTLS
			}
			if cmd.Flags().Changed("imap-starttls") {
				cfg.IMAP.StartTLS = imapStartTLS
			}
			if cmd.Flags().Changed("imap-insecure") {
				cfg.IMAP.InsecureSkipVerify = imapInsecure
			}
			if cmd.Flags().Changed("username") {
				cfg.Auth.Username = username
			}

			if cmd.Flags().Changed("llm-backend") {
				cfg.LLM.Backend = llmBackend
			}

			if cmd.Flags().Changed("dry-run") {
				cfg.Run.DryRun = dryRun
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.Run.BatchSize = batchSize
			}
			if cmd.Flags().Changed("max-emails") {
				cfg.Run.MaxEmails = maxEmails
			}
			if cmd.Flags().Changed("confidence") {
				cfg.Run.ConfidenceThreshold = confidenceThreshold
			}

			path, err := config.Save(cfg)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", path)

			secrets.FillConfig(&cfg)
			return runSetupChecks(cmd.Context(), cfg, cmd.OutOrStdout(), newLogger())
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Mail provider (gmail, outlook, or imap)")

	cmd.Flags().StringVar(&gmailCredentials, "gmail-credentials", "", "Path to Gmail OAuth client credentials file")
	cmd.Flags().StringVar(&gmailToken, "gmail-token", "", "Path to Gmail token cache file")
	cmd.Flags().StringVar(&gmailAddress, "gmail-address", "", "Gmail address")

	cmd.Flags().StringVar(&msClientID, "ms-client-id", "", "Microsoft application (client) id")
	cmd.Flags().StringVar(&msTenantID, "ms-tenant-id", "", "Microsoft tenant id")
	cmd.Flags().StringVar(&msTokenCache, "ms-token-cache", "", "Path to Microsoft token cache file")

	cmd.Flags().StringVar(&imapHost, "imap-host", "", "IMAP host")
	cmd.Flags().IntVar(&imapPort, "imap-port", 0, "IMAP port")
	cmd.Flags().BoolVar(&imapTLS, "imap-tls", true, "Use IMAP TLS")
	cmd.Flags().BoolVar(&imapStartTLS, "imap-starttls", false, "Use IMAP STARTTLS")
	cmd.Flags().BoolVar(&imapInsecure, "imap-insecure", false, "Skip IMAP TLS verification")
	cmd.Flags().StringVar(&username, "username", "", "IMAP username")

	cmd.Flags().StringVar(&llmBackend, "llm-backend", "", "LLM backend (groq, gemini, openai, or anthropic)")

	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "Suppress all mutations, log what would happen")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Emails per classification batch")
	cmd.Flags().IntVar(&maxEmails, "max-emails", 0, "Per-run email cap")
	cmd.Flags().Float64Var(&confidenceThreshold, "confidence", 0, "Minimum confidence for automatic actions")

	return cmd
}

// runSetupChecks validates the saved configuration in three stages: provider
// config, a live provider connection, then the LLM backend. Failures print
// remediation guidance instead of returning an error, so the command still
// exits cleanly after a partial setup.
func runSetupChecks(ctx context.Context, cfg config.Config, out io.Writer, logger *log.Logger) error {
	if err := config.ValidateProvider(cfg); err != nil {
		fmt.Fprintf(out, "Provider configuration: %v\n", err)
		printProviderHints(out, cfg.Provider)
		return nil
	}
	fmt.Fprintf(out, "Provider configured: %s\n", cfg.Provider)

	svc, err := openServiceFunc(ctx, cfg, true, logger)
	if err == nil {
		err = svc.TestConnection(ctx)
	}
	if err != nil {
		fmt.Fprintf(out, "%s connection failed: %v\n", cfg.Provider, err)
		printProviderHints(out, cfg.Provider)
		return nil
	}
	fmt.Fprintf(out, "%s connection OK\n", cfg.Provider)

	if err := config.ValidateLLM(cfg); err != nil {
		fmt.Fprintf(out, "LLM configuration: %v\n", err)
		fmt.Fprintln(out, "Free backends:")
		fmt.Fprintln(out, `  groq:   get a key at https://console.groq.com, store it with "mailsweep auth set-key groq"`)
		fmt.Fprintln(out, `  gemini: get a key at https://makersuite.google.com, store it with "mailsweep auth set-key google"`)
		return nil
	}
	fmt.Fprintf(out, "LLM backend configured: %s (available: %s)\n",
		cfg.LLM.Backend, strings.Join(config.AvailableBackends(cfg), ", "))

	fmt.Fprintln(out, "Setup complete.")
	return nil
}

func printProviderHints(out io.Writer, provider string) {
	switch provider {
	case "gmail":
		fmt.Fprintln(out, "Gmail setup:")
		fmt.Fprintln(out, "  1. Create a project at https://console.cloud.google.com and enable the Gmail API")
		fmt.Fprintln(out, "  2. Download the OAuth client credentials file")
		fmt.Fprintln(out, `  3. Run "mailsweep setup --gmail-credentials <path> --gmail-address <addr>"`)
	case "outlook":
		fmt.Fprintln(out, "Outlook setup:")
		fmt.Fprintln(out, "  1. Create an Azure app registration with Mail.ReadWrite application permission")
		fmt.Fprintln(out, `  2. Run "mailsweep setup --ms-client-id <id> --ms-tenant-id <tenant>"`)
		fmt.Fprintln(out, `  3. Store the client secret with "mailsweep auth set-key ms-secret"`)
	case "imap":
		fmt.Fprintln(out, "IMAP setup:")
		fmt.Fprintln(out, `  1. Run "mailsweep setup --imap-host <host> --username <user>"`)
		fmt.Fprintln(out, `  2. Store the password with "mailsweep auth set-key imap-password"`)
	}
}
