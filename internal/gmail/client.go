package gmail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"mailsweep/internal/config"
	"mailsweep/internal/mailbox"
)

const user = "me"

// fetchDelay paces per-message detail fetches under the Gmail quota.
const fetchDelay = 100 * time.Millisecond

// Client implements the mailbox provider contract on top of the Gmail API.
type Client struct {
	srv    *gmailapi.Service
	logger *log.Logger
}

func NewClient(ctx context.Context, cfg config.Config, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	httpClient, err := oauthClient(ctx, cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile)
	if err != nil {
		return nil, err
	}
	srv, err := gmailapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Client{srv: srv, logger: logger}, nil
}

func (c *Client) TestConnection(ctx context.Context) error {
	profile, err := c.srv.Users.GetProfile(user).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail profile: %w", err)
	}
	c.logger.Info("connected to gmail", "address", profile.EmailAddress)
	return nil
}

// FetchEmails lists message ids matching the folder query, then fetches each
// message in full. A failed list call is fatal for the batch (empty result);
// a failed detail fetch skips only that message.
func (c *Client) FetchEmails(ctx context.Context, folder string, limit, daysBack int) ([]mailbox.Email, error) {
	query := "in:" + strings.ToLower(folder)
	if daysBack > 0 {
		cutoff := time.Now().AddDate(0, 0, -daysBack)
		query += " after:" + cutoff.Format("2006/01/02")
	}
	return c.fetchByQuery(ctx, query, folder, limit)
}

func (c *Client) SearchEmails(ctx context.Context, query string, limit int) ([]mailbox.Email, error) {
	return c.fetchByQuery(ctx, query, "", limit)
}

func (c *Client) fetchByQuery(ctx context.Context, query, folder string, limit int) ([]mailbox.Email, error) {
	var ids []string
	pageToken := ""
	for len(ids) < limit {
		call := c.srv.Users.Messages.List(user).Q(query).MaxResults(int64(limit - len(ids))).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			if len(ids) == 0 {
				c.logger.Warn("gmail list failed", "query", query, "err", err)
				return nil, nil
			}
			// Keep what we already have.
			c.logger.Warn("gmail list page failed, keeping partial results", "fetched", len(ids), "err", err)
			break
		}
		for _, m := range list.Messages {
			ids = append(ids, m.Id)
		}
		pageToken = list.NextPageToken
		if pageToken == "" || len(list.Messages) == 0 {
			break
		}
	}

	emails := make([]mailbox.Email, 0, len(ids))
	for i, id := range ids {
		msg, err := c.srv.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
		if err != nil {
			c.logger.Warn("gmail get message failed", "id", id, "err", err)
			continue
		}
		emails = append(emails, normalizeMessage(msg, folder))
		if i < len(ids)-1 {
			time.Sleep(fetchDelay)
		}
	}
	return emails, nil
}

// Stats reports estimated per-label counts for the system and category
// labels. Gmail only estimates counts over large collections, so the raw
// integers feed FolderStat's display formatting.
func (c *Client) Stats(ctx context.Context) (map[string]mailbox.FolderStat, error) {
	stats := make(map[string]mailbox.FolderStat)

	labels, err := c.statLabels(ctx)
	if err != nil {
		return nil, err
	}

	for _, label := range labels {
		total, err := c.estimateCount(ctx, []string{label.id})
		if err != nil {
			c.logger.Warn("gmail count failed", "label", label.name, "err", err)
			continue
		}
		unread, err := c.estimateCount(ctx, []string{label.id, "UNREAD"})
		if err != nil {
			unread = 0
		}
		stats[strings.ToLower(label.name)] = mailbox.NewFolderStat(total, unread)
	}

	return stats, nil
}

type statLabel struct {
	id   string
	name string
}

func (c *Client) statLabels(ctx context.Context) ([]statLabel, error) {
	list, err := c.srv.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list gmail labels: %w", err)
	}

	var labels []statLabel
	for _, label := range list.Labels {
		switch {
		case label.Id == "INBOX" || label.Id == "SPAM" || label.Id == "TRASH" ||
			label.Id == "SENT" || label.Id == "DRAFT":
			labels = append(labels, statLabel{id: label.Id, name: label.Name})
		case strings.HasPrefix(label.Id, "CATEGORY_"):
			labels = append(labels, statLabel{id: label.Id, name: label.Name})
		}
	}
	return labels, nil
}

func (c *Client) estimateCount(ctx context.Context, labelIDs []string) (int, error) {
	list, err := c.srv.Users.Messages.List(user).LabelIds(labelIDs...).MaxResults(1).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	return int(list.ResultSizeEstimate), nil
}

func (c *Client) ListFolders(ctx context.Context) ([]string, error) {
	list, err := c.srv.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list gmail labels: %w", err)
	}
	names := make([]string, 0, len(list.Labels))
	for _, label := range list.Labels {
		names = append(names, label.Name)
	}
	return names, nil
}

func (c *Client) DeleteEmail(ctx context.Context, id string, permanent bool) error {
	if permanent {
		if err := c.srv.Users.Messages.Delete(user, id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("delete message %s: %w", id, err)
		}
		return nil
	}
	if _, err := c.srv.Users.Messages.Trash(user, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("trash message %s: %w", id, err)
	}
	return nil
}

// MoveEmail adds the destination label and removes INBOX.
func (c *Client) MoveEmail(ctx context.Context, id, dest string) error {
	labelID, err := c.labelID(ctx, dest)
	if err != nil {
		return err
	}
	req := &gmailapi.ModifyMessageRequest{
		AddLabelIds:    []string{labelID},
		RemoveLabelIds: []string{"INBOX"},
	}
	if _, err := c.srv.Users.Messages.Modify(user, id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("move message %s: %w", id, err)
	}
	return nil
}

func (c *Client) MarkRead(ctx context.Context, id string, read bool) error {
	req := &gmailapi.ModifyMessageRequest{}
	if read {
		req.RemoveLabelIds = []string{"UNREAD"}
	} else {
		req.AddLabelIds = []string{"UNREAD"}
	}
	if _, err := c.srv.Users.Messages.Modify(user, id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("mark message %s: %w", id, err)
	}
	return nil
}

// CreateFolder creates a user label. An existing label of the same name is
// success, not an error.
func (c *Client) CreateFolder(ctx context.Context, name string) error {
	label := &gmailapi.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}
	_, err := c.srv.Users.Labels.Create(user, label).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 409 {
			return nil
		}
		return fmt.Errorf("create label %s: %w", name, err)
	}
	return nil
}

func (c *Client) labelID(ctx context.Context, name string) (string, error) {
	list, err := c.srv.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list gmail labels: %w", err)
	}
	for _, label := range list.Labels {
		if strings.EqualFold(label.Name, name) {
			return label.Id, nil
		}
	}
	return "", fmt.Errorf("label %q not found", name)
}
