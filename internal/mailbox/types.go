package mailbox

import (
	"fmt"
	"strings"
	"time"
)

// PreviewLimit bounds BodyPreview length, counted in runes.
const PreviewLimit = 500

// Sender is a parsed From header.
type Sender struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// Email is the normalized representation of one message, independent of the
// provider that produced it. ID is opaque and provider-specific but stable
// across repeated fetches within one provider.
type Email struct {
	ID             string    `json:"id"`
	Subject        string    `json:"subject"`
	Sender         Sender    `json:"sender"`
	ReceivedAt     time.Time `json:"received_at"`
	BodyPreview    string    `json:"body_preview"`
	Body           string    `json:"body"`
	IsRead         bool      `json:"is_read"`
	HasAttachments bool      `json:"has_attachments"`
	Folder         string    `json:"folder"`
}

// FolderStat carries both raw counts and a display form. Providers that only
// estimate counts over large collections still fill the raw integers so
// callers can branch on real magnitude.
type FolderStat struct {
	Total         int
	Unread        int
	TotalDisplay  string
	UnreadDisplay string
}

func NewFolderStat(total, unread int) FolderStat {
	return FolderStat{
		Total:         total,
		Unread:        unread,
		TotalDisplay:  FormatCount(total),
		UnreadDisplay: FormatCount(unread),
	}
}

// FormatCount renders an estimated count for display. Estimates above 10000
// are shown as "Nk+" since provider estimates at that scale are unreliable.
func FormatCount(n int) string {
	if n > 10000 {
		return fmt.Sprintf("%dk+", n/1000)
	}
	return fmt.Sprintf("%d", n)
}

// ParseSender splits a raw From header into display name and address. Without
// angle brackets the whole string is taken as the address, even when it is not
// one; callers get the raw value rather than an error for malformed headers.
func ParseSender(raw string) Sender {
	raw = strings.TrimSpace(raw)

	if open := strings.Index(raw, "<"); open != -1 {
		if close := strings.Index(raw[open:], ">"); close != -1 {
			name := strings.TrimSpace(raw[:open])
			name = strings.Trim(name, `"`)
			addr := strings.TrimSpace(raw[open+1 : open+close])
			return Sender{Address: addr, Name: name}
		}
	}
	return Sender{Address: raw}
}

// Truncate bounds s to at most limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
