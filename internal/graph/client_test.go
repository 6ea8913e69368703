package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func newTestClient(srv *httptest.Server) *Client {
	return &Client{
		baseURL: srv.URL,
		http:    srv.Client(),
		tokens:  staticToken("test-token"),
		logger:  log.New(io.Discard),
	}
}

func testMessage(id string) message {
	return message{
		ID:               id,
		Subject:          "Subject " + id,
		From:             recipient{EmailAddress: emailAddress{Name: "Sender", Address: "sender@example.com"}},
		ReceivedDateTime: "2025-03-01T12:00:00Z",
		BodyPreview:      "preview",
		Body:             itemBody{ContentType: "text", Content: "body"},
	}
}

func TestFetchEmailsPagesThroughNextLink(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header = %q", got)
		}
		page := messagePage{}
		if r.URL.Query().Get("page") == "2" {
			page.Value = []message{testMessage("m3")}
		} else {
			page.Value = []message{testMessage("m1"), testMessage("m2")}
			page.NextLink = srv.URL + "/me/mailFolders/inbox/messages?page=2"
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	emails, err := c.FetchEmails(context.Background(), "inbox", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(emails) != 3 {
		t.Fatalf("got %d emails, want 3", len(emails))
	}
	if emails[2].ID != "m3" {
		t.Fatalf("last id = %q", emails[2].ID)
	}
	if emails[0].Sender.Address != "sender@example.com" {
		t.Fatalf("sender = %+v", emails[0].Sender)
	}
}

func TestFetchEmailsFirstPageFailureReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":"InternalServerError","message":"boom"}}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	emails, err := c.FetchEmails(context.Background(), "inbox", 10, 0)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(emails) != 0 {
		t.Fatalf("got %d emails, want 0", len(emails))
	}
}

func TestFetchEmailsLaterPageFailureKeepsPartial(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(messagePage{
			Value:    []message{testMessage("m1")},
			NextLink: srv.URL + "/me/mailFolders/inbox/messages?page=2",
		})
	}))
	defer srv.Close()

	c := newTestClient(srv)
	emails, err := c.FetchEmails(context.Background(), "inbox", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(emails) != 1 || emails[0].ID != "m1" {
		t.Fatalf("emails = %+v", emails)
	}
}

func TestStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(folderPage{Value: []mailFolder{
			{ID: "f1", DisplayName: "Inbox", TotalItemCount: 1234, UnreadItemCount: 56},
			{ID: "f2", DisplayName: "Junk Email", TotalItemCount: 20000, UnreadItemCount: 19000},
		}})
	}))
	defer srv.Close()

	c := newTestClient(srv)
	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	inbox, ok := stats["inbox"]
	if !ok || inbox.Total != 1234 || inbox.Unread != 56 {
		t.Fatalf("inbox stat = %+v", inbox)
	}
	junk := stats["junk email"]
	if junk.TotalDisplay != "20k+" {
		t.Fatalf("junk display = %q", junk.TotalDisplay)
	}
}

func TestMoveEmailResolvesCustomFolder(t *testing.T) {
	var movedTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/move"):
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			movedTo = body["destinationId"]
			w.WriteHeader(http.StatusCreated)
		case strings.Contains(r.URL.Path, "/me/mailFolders"):
			json.NewEncoder(w).Encode(folderPage{Value: []mailFolder{
				{ID: "folder-xyz", DisplayName: "Unsubscribe Later"},
			}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	if err := c.MoveEmail(context.Background(), "m1", "Unsubscribe Later"); err != nil {
		t.Fatal(err)
	}
	if movedTo != "folder-xyz" {
		t.Fatalf("destinationId = %q", movedTo)
	}
}

func TestCreateFolderConflictIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"error":{"code":"ErrorFolderExists","message":"exists"}}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	if err := c.CreateFolder(context.Background(), "Existing"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestNormalizeMessageHTMLBody(t *testing.T) {
	msg := testMessage("m1")
	msg.Body = itemBody{ContentType: "html", Content: "<p>Hello <b>there</b></p>"}
	msg.BodyPreview = ""

	email := normalizeMessage(msg, "inbox")
	if !strings.Contains(email.Body, "Hello there") {
		t.Fatalf("body = %q", email.Body)
	}
	if email.BodyPreview == "" {
		t.Fatal("expected preview derived from body")
	}
	if email.ReceivedAt.Year() != 2025 {
		t.Fatalf("received = %v", email.ReceivedAt)
	}
}

func TestNormalizeMessageBadTimestampFallsBackToNow(t *testing.T) {
	msg := testMessage("m1")
	msg.ReceivedDateTime = "garbage"
	email := normalizeMessage(msg, "inbox")
	if email.ReceivedAt.IsZero() {
		t.Fatal("expected non-zero time")
	}
}
