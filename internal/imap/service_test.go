package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emersion/go-imap"

	"mailsweep/internal/config"
)

type mockClient struct {
	listNames  []string
	searchUIDs []uint32
	statuses   map[string]*imap.MailboxStatus
	moveErr    error
	selectErr  error
	searchErr  error

	loggedOut   bool
	selected    string
	storedFlags []interface{}
	movedTo     string
	copiedTo    string
	expunged    bool
	created     []string
}

func (m *mockClient) Login(username, password string) error { return nil }
func (m *mockClient) Logout() error {
	m.loggedOut = true
	return nil
}
func (m *mockClient) StartTLS(config *tls.Config) error { return nil }
func (m *mockClient) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	if m.selectErr != nil {
		return nil, m.selectErr
	}
	m.selected = name
	return &imap.MailboxStatus{Name: name}, nil
}
func (m *mockClient) Status(name string, items []imap.StatusItem) (*imap.MailboxStatus, error) {
	if status, ok := m.statuses[name]; ok {
		return status, nil
	}
	return &imap.MailboxStatus{Name: name}, nil
}
func (m *mockClient) List(ref, name string, ch chan *imap.MailboxInfo) error {
	for _, mb := range m.listNames {
		ch <- &imap.MailboxInfo{Name: mb}
	}
	close(ch)
	return nil
}
func (m *mockClient) Create(name string) error {
	m.created = append(m.created, name)
	return nil
}
func (m *mockClient) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchUIDs, nil
}
func (m *mockClient) UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	for _, uid := range m.searchUIDs {
		ch <- &imap.Message{
			Uid:   uid,
			Flags: []string{imap.SeenFlag},
			Envelope: &imap.Envelope{
				Subject: "Weekly digest",
				Date:    time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
				From: []*imap.Address{
					{PersonalName: "News", MailboxName: "news", HostName: "example.com"},
				},
			},
		}
	}
	close(ch)
	return nil
}
func (m *mockClient) UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error {
	if flags, ok := value.([]interface{}); ok {
		m.storedFlags = append(m.storedFlags, flags...)
	}
	return nil
}
func (m *mockClient) UidMove(seqset *imap.SeqSet, mailbox string) error {
	if m.moveErr != nil {
		return m.moveErr
	}
	m.movedTo = mailbox
	return nil
}
func (m *mockClient) UidCopy(seqset *imap.SeqSet, mailbox string) error {
	m.copiedTo = mailbox
	return nil
}
func (m *mockClient) Expunge(ch chan uint32) error {
	m.expunged = true
	if ch != nil {
		close(ch)
	}
	return nil
}

func newTestService(mock *mockClient) *Service {
	svc := NewService(config.Config{}, log.New(io.Discard))
	svc.Connector = func(cfg config.Config) (Client, error) {
		return mock, nil
	}
	return svc
}

func TestFetchEmailsNormalizes(t *testing.T) {
	mock := &mockClient{searchUIDs: []uint32{7, 9}}
	svc := newTestService(mock)

	emails, err := svc.FetchEmails(context.Background(), "INBOX", 10, 30)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(emails) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(emails))
	}
	first := emails[0]
	if first.Sender.Address != "news@example.com" || first.Sender.Name != "News" {
		t.Fatalf("sender = %+v", first.Sender)
	}
	if !first.IsRead {
		t.Fatal("expected read flag from \\Seen")
	}
	if !strings.HasPrefix(first.ID, "INBOX:") {
		t.Fatalf("id = %q", first.ID)
	}
	if !mock.loggedOut {
		t.Fatal("expected logout")
	}
}

func TestFetchEmailsSelectFailureReturnsEmpty(t *testing.T) {
	mock := &mockClient{selectErr: errors.New("no such mailbox")}
	svc := newTestService(mock)

	emails, err := svc.FetchEmails(context.Background(), "Missing", 10, 30)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(emails) != 0 {
		t.Fatalf("expected no emails, got %d", len(emails))
	}
}

func TestFetchEmailsSearchFailureReturnsEmpty(t *testing.T) {
	mock := &mockClient{searchErr: errors.New("search rejected")}
	svc := newTestService(mock)

	emails, err := svc.FetchEmails(context.Background(), "INBOX", 10, 30)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(emails) != 0 {
		t.Fatalf("expected no emails, got %d", len(emails))
	}
}

func TestStatsUsesStatusCounts(t *testing.T) {
	mock := &mockClient{
		listNames: []string{"INBOX", "Junk"},
		statuses: map[string]*imap.MailboxStatus{
			"INBOX": {Name: "INBOX", Messages: 120, Unseen: 12},
			"Junk":  {Name: "Junk", Messages: 30000, Unseen: 29000},
		},
	}
	svc := newTestService(mock)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats["inbox"].Total != 120 || stats["inbox"].Unread != 12 {
		t.Fatalf("inbox stat = %+v", stats["inbox"])
	}
	if stats["junk"].TotalDisplay != "30k+" {
		t.Fatalf("junk display = %q", stats["junk"].TotalDisplay)
	}
}

func TestDeleteEmailPermanentFlagsAndExpunges(t *testing.T) {
	mock := &mockClient{}
	svc := newTestService(mock)

	if err := svc.DeleteEmail(context.Background(), "INBOX:42", true); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mock.selected != "INBOX" {
		t.Fatalf("selected = %q", mock.selected)
	}
	if len(mock.storedFlags) != 1 || mock.storedFlags[0] != imap.DeletedFlag {
		t.Fatalf("stored flags = %v", mock.storedFlags)
	}
	if !mock.expunged {
		t.Fatal("expected expunge")
	}
}

func TestDeleteEmailSoftMovesToTrash(t *testing.T) {
	mock := &mockClient{}
	svc := newTestService(mock)

	if err := svc.DeleteEmail(context.Background(), "INBOX:42", false); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mock.movedTo != "Trash" {
		t.Fatalf("movedTo = %q", mock.movedTo)
	}
	if mock.expunged {
		t.Fatal("soft delete should not expunge")
	}
}

func TestMoveEmailFallsBackToCopy(t *testing.T) {
	mock := &mockClient{moveErr: io.EOF}
	svc := newTestService(mock)

	if err := svc.MoveEmail(context.Background(), "INBOX:42", "Archive"); err != nil {
		t.Fatalf("move: %v", err)
	}
	if mock.copiedTo != "Archive" {
		t.Fatalf("copiedTo = %q", mock.copiedTo)
	}
	if !mock.expunged {
		t.Fatal("expected expunge after copy")
	}
}

func TestCreateFolderExistingIsSuccess(t *testing.T) {
	mock := &mockClient{statuses: map[string]*imap.MailboxStatus{
		"Archive": {Name: "Archive", Messages: 5},
	}}
	svc := newTestService(mock)

	if err := svc.CreateFolder(context.Background(), "Archive"); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestParseIDMalformed(t *testing.T) {
	if _, _, err := parseID("no-separator"); err == nil {
		t.Fatal("expected error")
	}
	if _, _, err := parseID("INBOX:notanumber"); err == nil {
		t.Fatal("expected error")
	}
	folder, uid, err := parseID("Sub:Folder:9")
	if err != nil || folder != "Sub:Folder" || uid != 9 {
		t.Fatalf("got %q %d %v", folder, uid, err)
	}
}
