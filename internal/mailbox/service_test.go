package mailbox

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	deleted  []string
	moved    []string
	marked   []string
	created  []string
	failIDs  map[string]bool
	connects int
}

func (f *fakeProvider) FetchEmails(ctx context.Context, folder string, limit, daysBack int) ([]Email, error) {
	return nil, nil
}

func (f *fakeProvider) SearchEmails(ctx context.Context, query string, limit int) ([]Email, error) {
	return nil, nil
}

func (f *fakeProvider) Stats(ctx context.Context) (map[string]FolderStat, error) {
	return nil, nil
}

func (f *fakeProvider) ListFolders(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeProvider) DeleteEmail(ctx context.Context, id string, permanent bool) error {
	f.deleted = append(f.deleted, id)
	if f.failIDs[id] {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeProvider) MoveEmail(ctx context.Context, id, dest string) error {
	f.moved = append(f.moved, id)
	if f.failIDs[id] {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeProvider) MarkRead(ctx context.Context, id string, read bool) error {
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeProvider) CreateFolder(ctx context.Context, name string) error {
	f.created = append(f.created, name)
	return nil
}

func (f *fakeProvider) TestConnection(ctx context.Context) error {
	f.connects++
	return nil
}

func newTestService(p Provider, dryRun bool) *Service {
	svc := NewService("fake", p, dryRun, nil)
	svc.delay = 0
	return svc
}

func TestOpenUnknownProvider(t *testing.T) {
	_, err := Open("exchange", false, nil, map[string]ProviderFactory{
		"fake": func() (Provider, error) { return &fakeProvider{}, nil },
	})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestTestConnectionDelegatesToProvider(t *testing.T) {
	fake := &fakeProvider{}
	svc := newTestService(fake, true)

	if err := svc.TestConnection(context.Background()); err != nil {
		t.Fatalf("test connection: %v", err)
	}
	if fake.connects != 1 {
		t.Fatalf("expected 1 connection test, got %d", fake.connects)
	}
}

func TestDryRunSuppressesMutations(t *testing.T) {
	fake := &fakeProvider{}
	svc := newTestService(fake, true)
	ctx := context.Background()

	if !svc.DeleteEmail(ctx, "a", false) {
		t.Fatal("dry-run delete should report success")
	}
	if !svc.MoveEmail(ctx, "a", "Archive") {
		t.Fatal("dry-run move should report success")
	}
	if !svc.MarkRead(ctx, "a", true) {
		t.Fatal("dry-run mark should report success")
	}
	if !svc.CreateFolder(ctx, "Archive") {
		t.Fatal("dry-run create should report success")
	}

	if len(fake.deleted)+len(fake.moved)+len(fake.marked)+len(fake.created) != 0 {
		t.Fatalf("provider was called in dry-run mode: %+v", fake)
	}
}

func TestBulkDeleteCompleteOnPartialFailure(t *testing.T) {
	fake := &fakeProvider{failIDs: map[string]bool{"b": true}}
	svc := newTestService(fake, false)

	results := svc.BulkDelete(context.Background(), []string{"a", "b", "c"}, false)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results["a"] || results["b"] || !results["c"] {
		t.Fatalf("unexpected results: %v", results)
	}
	if len(fake.deleted) != 3 {
		t.Fatalf("expected all 3 deletes attempted, got %d", len(fake.deleted))
	}
}

func TestBulkMoveAllFailuresStillComplete(t *testing.T) {
	fake := &fakeProvider{failIDs: map[string]bool{"a": true, "b": true}}
	svc := newTestService(fake, false)

	results := svc.BulkMove(context.Background(), []string{"a", "b"}, "Archive")

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for id, ok := range results {
		if ok {
			t.Fatalf("expected failure for %s", id)
		}
	}
}
