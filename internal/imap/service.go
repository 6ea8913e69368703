package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"mailsweep/internal/config"
	"mailsweep/internal/mailbox"
)

// Client is the subset of the IMAP client the provider needs. Tests inject a
// mock through Service.Connector.
type Client interface {
	Login(username, password string) error
	Logout() error
	StartTLS(config *tls.Config) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Status(name string, items []imap.StatusItem) (*imap.MailboxStatus, error)
	List(ref, name string, ch chan *imap.MailboxInfo) error
	Create(name string) error
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error
	UidMove(seqset *imap.SeqSet, mailbox string) error
	UidCopy(seqset *imap.SeqSet, mailbox string) error
	Expunge(ch chan uint32) error
}

// Service implements the mailbox provider contract against a generic IMAP
// server. Message ids are "folder:uid" since uids are only meaningful within
// a selected mailbox.
type Service struct {
	cfg       config.Config
	logger    *log.Logger
	trash     string
	Connector func(cfg config.Config) (Client, error)
}

func NewService(cfg config.Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		cfg:       cfg,
		logger:    logger,
		trash:     "Trash",
		Connector: Connect,
	}
}

func Connect(cfg config.Config) (Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.IMAP.Host, cfg.IMAP.Port)
	var c *imapclient.Client
	var err error

	if cfg.IMAP.TLS {
		tlsConfig := &tls.Config{
			ServerName:         cfg.IMAP.Host,
			InsecureSkipVerify: cfg.IMAP.InsecureSkipVerify,
		}
		c, err = imapclient.DialTLS(addr, tlsConfig)
	} else {
		c, err = imapclient.Dial(addr)
		if err == nil && cfg.IMAP.StartTLS {
			tlsConfig := &tls.Config{
				ServerName:         cfg.IMAP.Host,
				InsecureSkipVerify: cfg.IMAP.InsecureSkipVerify,
			}
			if err := c.StartTLS(tlsConfig); err != nil {
				_ = c.Logout()
				return nil, err
			}
		}
	}
	if err != nil {
		return nil, err
	}

	if err := c.Login(cfg.Auth.Username, cfg.Auth.Password); err != nil {
		_ = c.Logout()
		return nil, err
	}

	return c, nil
}

func (s *Service) withClient(fn func(Client) error) error {
	connector := s.Connector
	if connector == nil {
		connector = Connect
	}
	client, err := connector(s.cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Logout()
	}()
	return fn(client)
}

func (s *Service) TestConnection(ctx context.Context) error {
	return s.withClient(func(c Client) error {
		_, err := c.Status("INBOX", []imap.StatusItem{imap.StatusMessages})
		return err
	})
}

// FetchEmails searches the folder for messages received within daysBack and
// fetches the newest limit of them, envelope and body included. Connection or
// search failures log a warning and return an empty list rather than an error.
func (s *Service) FetchEmails(ctx context.Context, folder string, limit, daysBack int) ([]mailbox.Email, error) {
	criteria := imap.NewSearchCriteria()
	if daysBack > 0 {
		criteria.Since = time.Now().AddDate(0, 0, -daysBack)
	}
	return s.fetchByCriteria(folder, criteria, limit)
}

func (s *Service) SearchEmails(ctx context.Context, query string, limit int) ([]mailbox.Email, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Text = []string{query}
	return s.fetchByCriteria("INBOX", criteria, limit)
}

func (s *Service) fetchByCriteria(folder string, criteria *imap.SearchCriteria, limit int) ([]mailbox.Email, error) {
	var emails []mailbox.Email
	err := s.withClient(func(c Client) error {
		if _, err := c.Select(folder, true); err != nil {
			return err
		}

		uids, err := c.UidSearch(criteria)
		if err != nil {
			return err
		}
		if len(uids) == 0 {
			return nil
		}
		sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
		if len(uids) > limit {
			uids = uids[len(uids)-limit:]
		}

		seqset := new(imap.SeqSet)
		seqset.AddNum(uids...)

		section := &imap.BodySectionName{Peek: true}
		items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, imap.FetchFlags, section.FetchItem()}
		ch := make(chan *imap.Message, len(uids))
		done := make(chan error, 1)
		go func() {
			done <- c.UidFetch(seqset, items, ch)
		}()
		for msg := range ch {
			if msg == nil || msg.Envelope == nil {
				continue
			}
			emails = append(emails, s.normalizeMessage(msg, section, folder))
		}
		return <-done
	})
	// Fetch failures degrade to whatever was already read, matching the other
	// providers: nothing read yet means an empty list, a mid-fetch error keeps
	// the accumulated messages.
	if err != nil {
		s.logger.Warn("fetch failed", "folder", folder, "returned", len(emails), "err", err)
	}

	// Newest first, matching the other providers.
	sort.Slice(emails, func(i, j int) bool { return emails[i].ReceivedAt.After(emails[j].ReceivedAt) })
	return emails, nil
}

func (s *Service) normalizeMessage(msg *imap.Message, section *imap.BodySectionName, folder string) mailbox.Email {
	email := mailbox.Email{
		ID:         fmt.Sprintf("%s:%d", folder, msg.Uid),
		Subject:    msg.Envelope.Subject,
		ReceivedAt: msg.Envelope.Date,
		Folder:     folder,
	}
	if email.ReceivedAt.IsZero() {
		email.ReceivedAt = time.Now()
	}
	if len(msg.Envelope.From) > 0 && msg.Envelope.From[0] != nil {
		addr := msg.Envelope.From[0]
		email.Sender = mailbox.Sender{
			Address: addr.MailboxName + "@" + addr.HostName,
			Name:    addr.PersonalName,
		}
	}
	for _, flag := range msg.Flags {
		if flag == imap.SeenFlag {
			email.IsRead = true
		}
	}

	if body := msg.GetBody(section); body != nil {
		text, attachments, err := extractBody(body)
		if err != nil {
			s.logger.Warn("could not parse message body", "id", email.ID, "err", err)
		}
		email.Body = text
		email.HasAttachments = attachments
	}
	email.BodyPreview = mailbox.Truncate(email.Body, mailbox.PreviewLimit)

	return email
}

// extractBody pulls the first text/plain part and reports whether any
// attachment parts exist.
func extractBody(r io.Reader) (string, bool, error) {
	reader, err := mail.CreateReader(r)
	if err != nil {
		return "", false, err
	}

	var text string
	var attachments bool
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return text, attachments, err
		}
		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := header.ContentType()
			if strings.HasPrefix(contentType, "text/plain") && text == "" {
				data, err := io.ReadAll(part.Body)
				if err != nil {
					return text, attachments, err
				}
				text = string(data)
			}
		case *mail.AttachmentHeader:
			attachments = true
		}
	}
	return text, attachments, nil
}

// Stats reports exact counts per mailbox via STATUS.
func (s *Service) Stats(ctx context.Context) (map[string]mailbox.FolderStat, error) {
	stats := make(map[string]mailbox.FolderStat)
	err := s.withClient(func(c Client) error {
		names, err := listMailboxes(c)
		if err != nil {
			return err
		}
		for _, name := range names {
			status, err := c.Status(name, []imap.StatusItem{imap.StatusMessages, imap.StatusUnseen})
			if err != nil {
				s.logger.Warn("mailbox status failed", "mailbox", name, "err", err)
				continue
			}
			stats[strings.ToLower(name)] = mailbox.NewFolderStat(int(status.Messages), int(status.Unseen))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) ListFolders(ctx context.Context) ([]string, error) {
	var names []string
	err := s.withClient(func(c Client) error {
		var err error
		names, err = listMailboxes(c)
		return err
	})
	return names, err
}

func listMailboxes(c Client) ([]string, error) {
	ch := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.List("", "*", ch)
	}()
	var names []string
	for mbox := range ch {
		names = append(names, mbox.Name)
	}
	return names, <-done
}

// DeleteEmail flags and expunges when permanent; otherwise it moves the
// message to Trash.
func (s *Service) DeleteEmail(ctx context.Context, id string, permanent bool) error {
	folder, uid, err := parseID(id)
	if err != nil {
		return err
	}
	if !permanent {
		return s.moveUID(folder, uid, s.trash)
	}
	return s.withClient(func(c Client) error {
		if _, err := c.Select(folder, false); err != nil {
			return err
		}
		seqset := new(imap.SeqSet)
		seqset.AddNum(uid)
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.UidStore(seqset, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
			return err
		}
		return expunge(c)
	})
}

func (s *Service) MoveEmail(ctx context.Context, id, dest string) error {
	folder, uid, err := parseID(id)
	if err != nil {
		return err
	}
	return s.moveUID(folder, uid, dest)
}

// moveUID prefers UID MOVE and falls back to copy-flag-expunge on servers
// without the MOVE extension.
func (s *Service) moveUID(folder string, uid uint32, dest string) error {
	return s.withClient(func(c Client) error {
		if _, err := c.Select(folder, false); err != nil {
			return err
		}
		seqset := new(imap.SeqSet)
		seqset.AddNum(uid)
		if err := c.UidMove(seqset, dest); err == nil {
			return nil
		}
		if err := c.UidCopy(seqset, dest); err != nil {
			return err
		}
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.UidStore(seqset, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
			return err
		}
		return expunge(c)
	})
}

func (s *Service) MarkRead(ctx context.Context, id string, read bool) error {
	folder, uid, err := parseID(id)
	if err != nil {
		return err
	}
	return s.withClient(func(c Client) error {
		if _, err := c.Select(folder, false); err != nil {
			return err
		}
		seqset := new(imap.SeqSet)
		seqset.AddNum(uid)
		op := imap.AddFlags
		if !read {
			op = imap.RemoveFlags
		}
		item := imap.FormatFlagsOp(imap.FlagsOp(op), true)
		return c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil)
	})
}

// CreateFolder creates a mailbox, treating an already-existing mailbox as
// success.
func (s *Service) CreateFolder(ctx context.Context, name string) error {
	return s.withClient(func(c Client) error {
		if _, err := c.Status(name, []imap.StatusItem{imap.StatusMessages}); err == nil {
			return nil
		}
		if err := c.Create(name); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "exists") {
				return nil
			}
			return err
		}
		return nil
	})
}

func expunge(c Client) error {
	ch := make(chan uint32)
	done := make(chan error, 1)
	go func() {
		done <- c.Expunge(ch)
	}()
	for range ch {
	}
	return <-done
}

func parseID(id string) (string, uint32, error) {
	sep := strings.LastIndex(id, ":")
	if sep == -1 {
		return "", 0, fmt.Errorf("malformed message id %q", id)
	}
	uid, err := strconv.ParseUint(id[sep+1:], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("malformed message id %q: %w", id, err)
	}
	return id[:sep], uint32(uid), nil
}
