package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Provider is the narrow surface every mail backend implements. Mutating
// methods return an error for a failed call; the Service converts those into
// false results so one failure never aborts a bulk run.
type Provider interface {
	FetchEmails(ctx context.Context, folder string, limit int, daysBack int) ([]Email, error)
	SearchEmails(ctx context.Context, query string, limit int) ([]Email, error)
	Stats(ctx context.Context) (map[string]FolderStat, error)
	ListFolders(ctx context.Context) ([]string, error)

	DeleteEmail(ctx context.Context, id string, permanent bool) error
	MoveEmail(ctx context.Context, id string, dest string) error
	MarkRead(ctx context.Context, id string, read bool) error
	CreateFolder(ctx context.Context, name string) error

	TestConnection(ctx context.Context) error
}

// bulkDelay is the fixed pause between individual calls in a bulk loop, to
// stay under provider rate limits. Not adaptive: this is a batch tool.
const bulkDelay = 100 * time.Millisecond

// Service fronts a concrete Provider with the dry-run gate and bulk-action
// loops. The provider is resolved exactly once at construction; an unknown
// provider name is a configuration error, not a runtime condition.
type Service struct {
	provider Provider
	name     string
	dryRun   bool
	delay    time.Duration
	logger   *log.Logger
}

// NewService wraps an already-constructed provider. Use Open to resolve one
// from configuration.
func NewService(name string, provider Provider, dryRun bool, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		provider: provider,
		name:     name,
		dryRun:   dryRun,
		delay:    bulkDelay,
		logger:   logger,
	}
}

func (s *Service) ProviderName() string { return s.name }
func (s *Service) DryRun() bool         { return s.dryRun }

func (s *Service) TestConnection(ctx context.Context) error {
	return s.provider.TestConnection(ctx)
}

func (s *Service) FetchEmails(ctx context.Context, folder string, limit, daysBack int) ([]Email, error) {
	return s.provider.FetchEmails(ctx, folder, limit, daysBack)
}

func (s *Service) SearchEmails(ctx context.Context, query string, limit int) ([]Email, error) {
	return s.provider.SearchEmails(ctx, query, limit)
}

func (s *Service) Stats(ctx context.Context) (map[string]FolderStat, error) {
	return s.provider.Stats(ctx)
}

func (s *Service) ListFolders(ctx context.Context) ([]string, error) {
	return s.provider.ListFolders(ctx)
}

// DeleteEmail removes one message, to trash unless permanent is set. In
// dry-run mode the provider is never called and success is reported.
func (s *Service) DeleteEmail(ctx context.Context, id string, permanent bool) bool {
	if s.dryRun {
		verb := "move to trash"
		if permanent {
			verb = "permanently delete"
		}
		s.logger.Info("dry run: would "+verb, "id", id)
		return true
	}
	if err := s.provider.DeleteEmail(ctx, id, permanent); err != nil {
		s.logger.Warn("delete failed", "id", id, "err", err)
		return false
	}
	return true
}

func (s *Service) MoveEmail(ctx context.Context, id, dest string) bool {
	if s.dryRun {
		s.logger.Info("dry run: would move", "id", id, "dest", dest)
		return true
	}
	if err := s.provider.MoveEmail(ctx, id, dest); err != nil {
		s.logger.Warn("move failed", "id", id, "dest", dest, "err", err)
		return false
	}
	return true
}

func (s *Service) MarkRead(ctx context.Context, id string, read bool) bool {
	if s.dryRun {
		s.logger.Info("dry run: would mark", "id", id, "read", read)
		return true
	}
	if err := s.provider.MarkRead(ctx, id, read); err != nil {
		s.logger.Warn("mark read failed", "id", id, "err", err)
		return false
	}
	return true
}

// CreateFolder is idempotent: providers treat "already exists" as success.
func (s *Service) CreateFolder(ctx context.Context, name string) bool {
	if s.dryRun {
		s.logger.Info("dry run: would create folder", "name", name)
		return true
	}
	if err := s.provider.CreateFolder(ctx, name); err != nil {
		s.logger.Warn("create folder failed", "name", name, "err", err)
		return false
	}
	return true
}

// BulkDelete deletes each id in sequence with a fixed inter-call delay. The
// returned map always has one entry per input id, even if every call failed.
func (s *Service) BulkDelete(ctx context.Context, ids []string, permanent bool) map[string]bool {
	results := make(map[string]bool, len(ids))
	for i, id := range ids {
		results[id] = s.DeleteEmail(ctx, id, permanent)
		s.pause(i, len(ids))
	}
	return results
}

// BulkMove moves each id in sequence; same completeness contract as BulkDelete.
func (s *Service) BulkMove(ctx context.Context, ids []string, dest string) map[string]bool {
	results := make(map[string]bool, len(ids))
	for i, id := range ids {
		results[id] = s.MoveEmail(ctx, id, dest)
		s.pause(i, len(ids))
	}
	return results
}

func (s *Service) pause(i, total int) {
	if s.dryRun || s.delay <= 0 || i == total-1 {
		return
	}
	time.Sleep(s.delay)
}

// ProviderFactory builds a concrete Provider for a known provider name.
// Split out so Open stays testable without network-backed constructors.
type ProviderFactory func() (Provider, error)

// Open resolves the configured provider name against the registered
// factories. Unknown names fail immediately.
func Open(name string, dryRun bool, logger *log.Logger, factories map[string]ProviderFactory) (*Service, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	provider, err := factory()
	if err != nil {
		return nil, fmt.Errorf("init %s provider: %w", name, err)
	}
	return NewService(name, provider, dryRun, logger), nil
}
