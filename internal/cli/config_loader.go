package cli

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"mailsweep/internal/config"
	"mailsweep/internal/gmail"
	"mailsweep/internal/graph"
	"mailsweep/internal/imap"
	"mailsweep/internal/llm"
	"mailsweep/internal/mailbox"
	"mailsweep/internal/secrets"
)

func newLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Prefix:          config.AppName,
	})
}

// loadConfig loads file and environment configuration, then overlays secrets
// from the keyring onto any credential field still empty.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	secrets.FillConfig(&cfg)
	return cfg, nil
}

// openService validates the provider configuration and resolves the provider
// façade. dryRun wins over the configured value when true.
func openService(ctx context.Context, cfg config.Config, dryRun bool, logger *log.Logger) (*mailbox.Service, error) {
	if err := config.ValidateProvider(cfg); err != nil {
		return nil, err
	}

	factories := map[string]mailbox.ProviderFactory{
		"gmail": func() (mailbox.Provider, error) {
			return gmail.NewClient(ctx, cfg, logger)
		},
		"outlook": func() (mailbox.Provider, error) {
			return graph.NewClient(cfg, logger)
		},
		"imap": func() (mailbox.Provider, error) {
			return imap.NewService(cfg, logger), nil
		},
	}

	return mailbox.Open(cfg.Provider, dryRun, logger, factories)
}

// openServiceFunc is swapped out in tests to avoid network-backed providers.
var openServiceFunc = openService

// newClassifier validates LLM configuration and builds a classifier on the
// selected backend, or the override if given.
func newClassifier(cfg config.Config, backendOverride string, logger *log.Logger) (*llm.Classifier, error) {
	name := cfg.LLM.Backend
	if backendOverride != "" {
		name = backendOverride
	}
	withBackend := cfg
	withBackend.LLM.Backend = name
	if err := config.ValidateLLM(withBackend); err != nil {
		return nil, err
	}

	backend, err := llm.NewBackend(name, cfg.LLM)
	if err != nil {
		return nil, err
	}
	return llm.NewClassifier(backend, cfg.Run.BatchSize, logger), nil
}
