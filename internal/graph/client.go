package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/k3a/html2text"

	"mailsweep/internal/config"
	"mailsweep/internal/mailbox"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// pageSize caps a single messages request; larger fetches page through
// @odata.nextLink.
const pageSize = 100

// Client implements the mailbox provider contract on top of the Microsoft
// Graph mail API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  tokenSource
	logger  *log.Logger
}

func NewClient(cfg config.Config, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}
	tokens := newClientCredentials(
		cfg.Microsoft.ClientID,
		cfg.Microsoft.ClientSecret,
		cfg.Microsoft.TenantID,
		cfg.Microsoft.TokenCacheFile,
		httpClient,
		logger,
	)
	return &Client{
		baseURL: defaultBaseURL,
		http:    httpClient,
		tokens:  tokens,
		logger:  logger,
	}, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("creating graph request: %w", err)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring graph token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.http.Do(req)
}

// getJSON issues a GET and decodes the response into out. Non-2xx responses
// are turned into errors carrying the Graph error code.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var ge graphError
	if err := json.Unmarshal(data, &ge); err == nil && ge.Error.Code != "" {
		return fmt.Errorf("graph returned %d: %s: %s", resp.StatusCode, ge.Error.Code, ge.Error.Message)
	}
	return fmt.Errorf("graph returned %d: %s", resp.StatusCode, string(data))
}

func (c *Client) TestConnection(ctx context.Context) error {
	var folder mailFolder
	if err := c.getJSON(ctx, c.baseURL+"/me/mailFolders/inbox", &folder); err != nil {
		return fmt.Errorf("graph inbox: %w", err)
	}
	c.logger.Info("connected to outlook", "inbox_total", folder.TotalItemCount)
	return nil
}

// FetchEmails pages through a folder's messages ordered newest first. A
// failure on the first page is fatal for the batch (empty result); a failure
// on a later page keeps the messages accumulated so far.
func (c *Client) FetchEmails(ctx context.Context, folder string, limit, daysBack int) ([]mailbox.Email, error) {
	params := url.Values{
		"$top":     {fmt.Sprintf("%d", min(limit, pageSize))},
		"$orderby": {"receivedDateTime desc"},
		"$select":  {"id,subject,from,receivedDateTime,bodyPreview,body,isRead,hasAttachments"},
	}
	if daysBack > 0 {
		cutoff := time.Now().AddDate(0, 0, -daysBack).UTC().Format(time.RFC3339)
		params.Set("$filter", fmt.Sprintf("receivedDateTime ge %s", cutoff))
	}

	first := fmt.Sprintf("%s/me/mailFolders/%s/messages?%s",
		c.baseURL, url.PathEscape(strings.ToLower(folder)), params.Encode())
	return c.fetchPages(ctx, first, folder, limit)
}

// SearchEmails uses Graph $search, which applies across subject, sender and
// body. Search results cannot be server-ordered, so they come back by
// relevance.
func (c *Client) SearchEmails(ctx context.Context, query string, limit int) ([]mailbox.Email, error) {
	params := url.Values{
		"$top":    {fmt.Sprintf("%d", min(limit, pageSize))},
		"$search": {fmt.Sprintf("%q", query)},
		"$select": {"id,subject,from,receivedDateTime,bodyPreview,body,isRead,hasAttachments"},
	}
	first := fmt.Sprintf("%s/me/messages?%s", c.baseURL, params.Encode())
	return c.fetchPages(ctx, first, "", limit)
}

func (c *Client) fetchPages(ctx context.Context, first, folder string, limit int) ([]mailbox.Email, error) {
	var emails []mailbox.Email
	next := first
	for next != "" && len(emails) < limit {
		var page messagePage
		if err := c.getJSON(ctx, next, &page); err != nil {
			if len(emails) == 0 {
				c.logger.Warn("graph list failed", "err", err)
				return nil, nil
			}
			// Keep what we already have.
			c.logger.Warn("graph list page failed, keeping partial results", "fetched", len(emails), "err", err)
			break
		}
		for _, msg := range page.Value {
			if len(emails) >= limit {
				break
			}
			emails = append(emails, normalizeMessage(msg, folder))
		}
		next = page.NextLink
	}
	return emails, nil
}

// Stats reports exact per-folder counts from the folder listing.
func (c *Client) Stats(ctx context.Context) (map[string]mailbox.FolderStat, error) {
	folders, err := c.listMailFolders(ctx)
	if err != nil {
		return nil, err
	}
	stats := make(map[string]mailbox.FolderStat, len(folders))
	for _, f := range folders {
		stats[strings.ToLower(f.DisplayName)] = mailbox.NewFolderStat(f.TotalItemCount, f.UnreadItemCount)
	}
	return stats, nil
}

func (c *Client) ListFolders(ctx context.Context) ([]string, error) {
	folders, err := c.listMailFolders(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(folders))
	for _, f := range folders {
		names = append(names, f.DisplayName)
	}
	return names, nil
}

func (c *Client) listMailFolders(ctx context.Context) ([]mailFolder, error) {
	var folders []mailFolder
	next := c.baseURL + "/me/mailFolders?$top=100"
	for next != "" {
		var page folderPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("list graph folders: %w", err)
		}
		folders = append(folders, page.Value...)
		next = page.NextLink
	}
	return folders, nil
}

// DeleteEmail soft-deletes by moving to Deleted Items; permanent issues a
// hard DELETE.
func (c *Client) DeleteEmail(ctx context.Context, id string, permanent bool) error {
	if permanent {
		resp, err := c.do(ctx, http.MethodDelete, c.baseURL+"/me/messages/"+url.PathEscape(id), nil)
		if err != nil {
			return fmt.Errorf("delete message %s: %w", id, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			return fmt.Errorf("delete message %s: %w", id, responseError(resp))
		}
		return nil
	}
	return c.MoveEmail(ctx, id, "deleteditems")
}

// MoveEmail moves a message into the destination folder. Well-known folder
// names (inbox, deleteditems, junkemail, archive) are passed through as ids;
// anything else is resolved against the folder listing by display name.
func (c *Client) MoveEmail(ctx context.Context, id, dest string) error {
	destID, err := c.folderID(ctx, dest)
	if err != nil {
		return err
	}
	body := map[string]string{"destinationId": destID}
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/me/messages/"+url.PathEscape(id)+"/move", body)
	if err != nil {
		return fmt.Errorf("move message %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("move message %s: %w", id, responseError(resp))
	}
	return nil
}

var wellKnownFolders = map[string]bool{
	"inbox":        true,
	"deleteditems": true,
	"junkemail":    true,
	"archive":      true,
	"drafts":       true,
	"sentitems":    true,
}

func (c *Client) folderID(ctx context.Context, name string) (string, error) {
	lower := strings.ToLower(name)
	if wellKnownFolders[lower] {
		return lower, nil
	}
	folders, err := c.listMailFolders(ctx)
	if err != nil {
		return "", err
	}
	for _, f := range folders {
		if strings.EqualFold(f.DisplayName, name) {
			return f.ID, nil
		}
	}
	return "", fmt.Errorf("folder %q not found", name)
}

func (c *Client) MarkRead(ctx context.Context, id string, read bool) error {
	body := map[string]bool{"isRead": read}
	resp, err := c.do(ctx, http.MethodPatch, c.baseURL+"/me/messages/"+url.PathEscape(id), body)
	if err != nil {
		return fmt.Errorf("mark message %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mark message %s: %w", id, responseError(resp))
	}
	return nil
}

// CreateFolder creates a top-level mail folder. An existing folder of the
// same name is success, not an error.
func (c *Client) CreateFolder(ctx context.Context, name string) error {
	body := map[string]string{"displayName": name}
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/me/mailFolders", body)
	if err != nil {
		return fmt.Errorf("create folder %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusCreated {
		return nil
	}
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	return fmt.Errorf("create folder %s: %w", name, responseError(resp))
}

// normalizeMessage converts a Graph message into the common record shape.
// HTML bodies are flattened to text so downstream analysis sees plain
// content regardless of provider.
func normalizeMessage(msg message, folder string) mailbox.Email {
	received, err := time.Parse(time.RFC3339, msg.ReceivedDateTime)
	if err != nil {
		received = time.Now()
	}

	body := msg.Body.Content
	if strings.EqualFold(msg.Body.ContentType, "html") {
		body = html2text.HTML2Text(body)
	}

	preview := msg.BodyPreview
	if preview == "" {
		preview = mailbox.Truncate(body, mailbox.PreviewLimit)
	}

	return mailbox.Email{
		ID:             msg.ID,
		Subject:        msg.Subject,
		Sender:         mailbox.Sender{Address: msg.From.EmailAddress.Address, Name: msg.From.EmailAddress.Name},
		ReceivedAt:     received,
		BodyPreview:    preview,
		Body:           body,
		IsRead:         msg.IsRead,
		HasAttachments: msg.HasAttachments,
		Folder:         folder,
	}
}
