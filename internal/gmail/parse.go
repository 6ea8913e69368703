package gmail

import (
	"encoding/base64"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"mailsweep/internal/mailbox"
)

// dateLayouts are tried in order against the Date header. Gmail passes the
// header through verbatim, so senders' formatting quirks all show up here.
var dateLayouts = []string{
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC1123,
	time.RFC822,
}

// parseDate normalizes a Date header to an instant, falling back to now for
// anything unparseable rather than failing the whole message.
func parseDate(value string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}

	// Strip a trailing "(TZ)" comment and retry.
	stripped := value
	if open := strings.LastIndex(stripped, " ("); open != -1 {
		if close := strings.LastIndex(stripped, ")"); close > open {
			stripped = strings.TrimSpace(stripped[:open] + stripped[close+1:])
		}
	}
	if stripped != value {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, stripped); err == nil {
				return t
			}
		}
	}

	return time.Now()
}

// plainTextBody walks the MIME tree depth-first and returns the first
// text/plain part, decoded from base64url. Empty when none is found.
func plainTextBody(payload *gmailapi.MessagePart) string {
	if payload == nil {
		return ""
	}
	if payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			return string(data)
		}
	}
	for _, part := range payload.Parts {
		mime := strings.ToLower(part.MimeType)
		if strings.HasPrefix(mime, "text/") || strings.HasPrefix(mime, "multipart/") {
			if body := plainTextBody(part); body != "" {
				return body
			}
		}
	}
	return ""
}

func hasAttachments(payload *gmailapi.MessagePart) bool {
	if payload == nil {
		return false
	}
	for _, part := range payload.Parts {
		if part.Filename != "" {
			return true
		}
		if hasAttachments(part) {
			return true
		}
	}
	return false
}

func hasLabel(msg *gmailapi.Message, label string) bool {
	for _, id := range msg.LabelIds {
		if id == label {
			return true
		}
	}
	return false
}

// normalizeMessage converts a full-format Gmail message into the common
// record shape.
func normalizeMessage(msg *gmailapi.Message, folder string) mailbox.Email {
	email := mailbox.Email{
		ID:     msg.Id,
		Folder: folder,
		IsRead: !hasLabel(msg, "UNREAD"),
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch header.Name {
			case "Subject":
				email.Subject = header.Value
			case "From":
				email.Sender = mailbox.ParseSender(header.Value)
			case "Date":
				email.ReceivedAt = parseDate(header.Value)
			}
		}
		email.Body = plainTextBody(msg.Payload)
		email.HasAttachments = hasAttachments(msg.Payload)
	}

	if email.ReceivedAt.IsZero() {
		email.ReceivedAt = time.Now()
	}
	email.BodyPreview = mailbox.Truncate(email.Body, mailbox.PreviewLimit)

	return email
}
