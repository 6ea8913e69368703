package llm

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"mailsweep/internal/config"
	"mailsweep/internal/mailbox"
)

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		Backend:         "groq",
		GroqAPIKey:      "gk",
		GoogleAPIKey:    "gg",
		OpenAIAPIKey:    "oa",
		AnthropicAPIKey: "an",
	}
}

// fakeBackend replays canned responses, or an error when err is set.
type fakeBackend struct {
	name      string
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Call(ctx context.Context, prompt string, temperature float64) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("no canned response")
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func testEmail(id string) mailbox.Email {
	return mailbox.Email{
		ID:          id,
		Subject:     "20% off everything",
		Sender:      mailbox.Sender{Address: "promo@shop.example"},
		ReceivedAt:  time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		BodyPreview: "Huge savings this weekend only",
	}
}

func newTestClassifier(backend Backend, batchSize int) *Classifier {
	return NewClassifier(backend, batchSize, log.New(io.Discard))
}

func TestClassifyEmailExtractsJSONFromProse(t *testing.T) {
	backend := &fakeBackend{
		name: "anthropic",
		responses: []string{
			"Sure! Here is the classification:\n" +
				`{"category": "PROMOTIONAL", "confidence": 0.92, "reason": "retail sale blast", "suggested_action": "move_to_folder", "folder_suggestion": "Promotions"}` +
				"\nLet me know if you need anything else.",
		},
	}
	c := newTestClassifier(backend, 10)

	result := c.ClassifyEmail(context.Background(), testEmail("e1"))
	if result.Category != CategoryPromotional {
		t.Fatalf("category = %q", result.Category)
	}
	if result.Confidence != 0.92 {
		t.Fatalf("confidence = %v", result.Confidence)
	}
	if result.EmailID != "e1" || result.Backend != "anthropic" {
		t.Fatalf("result = %+v", result)
	}
	if result.FolderSuggestion != "Promotions" {
		t.Fatalf("folder = %q", result.FolderSuggestion)
	}
}

func TestClassifyEmailCallFailureFallsBack(t *testing.T) {
	backend := &fakeBackend{name: "groq", err: fmt.Errorf("rate limited")}
	c := newTestClassifier(backend, 10)

	result := c.ClassifyEmail(context.Background(), testEmail("e1"))
	if result.Category != CategoryUnknown {
		t.Fatalf("category = %q", result.Category)
	}
	if result.Confidence != 0.0 {
		t.Fatalf("confidence = %v", result.Confidence)
	}
	if result.SuggestedAction != ActionManualReview {
		t.Fatalf("action = %q", result.SuggestedAction)
	}
}

func TestClassifyEmailGarbageResponseFallsBack(t *testing.T) {
	backend := &fakeBackend{name: "groq", responses: []string{"I cannot classify this email."}}
	c := newTestClassifier(backend, 10)

	result := c.ClassifyEmail(context.Background(), testEmail("e1"))
	if result.Category != CategoryUnknown || result.SuggestedAction != ActionManualReview {
		t.Fatalf("result = %+v", result)
	}
}

func TestClassifyBatchGroqGoesOneAtATime(t *testing.T) {
	backend := &fakeBackend{
		name:      "groq",
		responses: []string{`{"category": "JUNK", "confidence": 0.9, "suggested_action": "delete"}`},
	}
	c := newTestClassifier(backend, 2)

	emails := []mailbox.Email{testEmail("e1"), testEmail("e2"), testEmail("e3")}
	results := c.ClassifyBatch(context.Background(), emails)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if backend.calls != 3 {
		t.Fatalf("backend called %d times, want 3", backend.calls)
	}
	for i, r := range results {
		if r.EmailID != emails[i].ID {
			t.Fatalf("result %d id = %q", i, r.EmailID)
		}
	}
}

func TestClassifyBatchAlignsByEmailID(t *testing.T) {
	// The model returns e2 before e1, skips e3, and invents e9.
	backend := &fakeBackend{
		name: "openai",
		responses: []string{`[
			{"email_id": "e2", "category": "JUNK", "confidence": 0.8, "reason": "spam"},
			{"email_id": "e1", "category": "IMPORTANT", "confidence": 0.95, "reason": "receipt"},
			{"email_id": "e9", "category": "JUNK", "confidence": 0.7, "reason": "phantom"}
		]`},
	}
	c := newTestClassifier(backend, 10)

	emails := []mailbox.Email{testEmail("e1"), testEmail("e2"), testEmail("e3")}
	results := c.ClassifyBatch(context.Background(), emails)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].EmailID != "e1" || results[0].Category != CategoryImportant {
		t.Fatalf("results[0] = %+v", results[0])
	}
	if results[1].EmailID != "e2" || results[1].Category != CategoryJunk {
		t.Fatalf("results[1] = %+v", results[1])
	}
	if results[2].EmailID != "e3" || results[2].Category != CategoryUnknown {
		t.Fatalf("results[2] = %+v", results[2])
	}
	if results[2].SuggestedAction != ActionManualReview {
		t.Fatalf("results[2] action = %q", results[2].SuggestedAction)
	}
}

func TestClassifyBatchMalformedArrayRetriesIndividually(t *testing.T) {
	backend := &fakeBackend{
		name: "gemini",
		responses: []string{
			"[ this is not json ]",
			`{"category": "PROMOTIONAL", "confidence": 0.85, "suggested_action": "move_to_folder"}`,
			`{"category": "JUNK", "confidence": 0.9, "suggested_action": "delete"}`,
		},
	}
	c := newTestClassifier(backend, 10)

	emails := []mailbox.Email{testEmail("e1"), testEmail("e2")}
	results := c.ClassifyBatch(context.Background(), emails)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Category != CategoryPromotional || results[1].Category != CategoryJunk {
		t.Fatalf("results = %+v", results)
	}
}

func TestClassifyBatchEveryCallFailingStillCountsOut(t *testing.T) {
	backend := &fakeBackend{name: "openai", err: fmt.Errorf("connection refused")}
	c := newTestClassifier(backend, 2)

	emails := []mailbox.Email{testEmail("e1"), testEmail("e2"), testEmail("e3"), testEmail("e4"), testEmail("e5")}
	results := c.ClassifyBatch(context.Background(), emails)
	if len(results) != len(emails) {
		t.Fatalf("got %d results, want %d", len(results), len(emails))
	}
	for i, r := range results {
		if r.EmailID != emails[i].ID || r.Category != CategoryUnknown {
			t.Fatalf("result %d = %+v", i, r)
		}
	}
}

func TestAnalyzeSenderFallsBackOnGarbage(t *testing.T) {
	backend := &fakeBackend{name: "groq", responses: []string{"no json here"}}
	c := newTestClassifier(backend, 10)

	analysis := c.AnalyzeSender(context.Background(), "promo@shop.example", []string{"Sale!", "Deals!"}, 12)
	if analysis.SenderCategory != CategoryUnknown || analysis.SuggestedRule != ActionManualReview {
		t.Fatalf("analysis = %+v", analysis)
	}
}

func TestNewBackendUnknownName(t *testing.T) {
	_, err := NewBackend("llama-at-home", testLLMConfig())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNewBackendMissingKey(t *testing.T) {
	cfg := testLLMConfig()
	cfg.AnthropicAPIKey = ""
	if _, err := NewBackend("anthropic", cfg); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewBackendKnownNames(t *testing.T) {
	cfg := testLLMConfig()
	for _, name := range []string{"groq", "gemini", "openai", "anthropic"} {
		backend, err := NewBackend(name, cfg)
		if err != nil {
			t.Fatalf("NewBackend(%q): %v", name, err)
		}
		if backend.Name() != name {
			t.Fatalf("Name() = %q, want %q", backend.Name(), name)
		}
	}
}
