package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"mailsweep/internal/mailbox"
)

func TestPrintEmails(t *testing.T) {
	emails := []mailbox.Email{
		{
			ID:         "INBOX:42",
			Subject:    "Weekly digest",
			Sender:     mailbox.Sender{Address: "news@example.com", Name: "News"},
			ReceivedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:      "INBOX:43",
			Subject: "No date",
			Sender:  mailbox.Sender{Address: "other@example.com"},
		},
	}

	var out bytes.Buffer
	printEmails(&out, emails)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "ID") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "2025-03-01T10:00:00Z") || !strings.Contains(lines[1], "news@example.com") {
		t.Fatalf("row = %q", lines[1])
	}
	if strings.Contains(lines[2], "0001-") {
		t.Fatalf("zero time should render empty, got %q", lines[2])
	}
}
