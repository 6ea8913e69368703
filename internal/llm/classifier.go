package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"mailsweep/internal/mailbox"
)

// Classification categories.
const (
	CategoryJunk        = "JUNK"
	CategoryPromotional = "PROMOTIONAL"
	CategoryImportant   = "IMPORTANT"
	CategoryUnknown     = "UNKNOWN"
)

// Suggested actions.
const (
	ActionDelete       = "delete"
	ActionKeepInbox    = "keep_inbox"
	ActionMoveToFolder = "move_to_folder"
	ActionManualReview = "manual_review"
)

// Result is one email's classification. A Result is produced for every email
// submitted, falling back to UNKNOWN/manual_review when the model fails.
type Result struct {
	EmailID          string  `json:"email_id"`
	Category         string  `json:"category"`
	Confidence       float64 `json:"confidence"`
	Reason           string  `json:"reason"`
	SuggestedAction  string  `json:"suggested_action"`
	FolderSuggestion string  `json:"folder_suggestion,omitempty"`
	Backend          string  `json:"backend"`
}

// SenderAnalysis is the model's judgment of one sender.
type SenderAnalysis struct {
	SenderCategory string  `json:"sender_category"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	SuggestedRule  string  `json:"suggested_rule"`
	Backend        string  `json:"backend"`
}

// Classifier drives a backend through the classification prompts.
type Classifier struct {
	backend   Backend
	batchSize int
	logger    *log.Logger
}

func NewClassifier(backend Backend, batchSize int, logger *log.Logger) *Classifier {
	if batchSize <= 0 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Classifier{backend: backend, batchSize: batchSize, logger: logger}
}

// BackendName reports which backend this classifier drives.
func (c *Classifier) BackendName() string { return c.backend.Name() }

// ClassifyEmail classifies a single email. It never fails: any backend or
// parse error degrades to a manual-review fallback.
func (c *Classifier) ClassifyEmail(ctx context.Context, email mailbox.Email) Result {
	subject := email.Subject
	if subject == "" {
		subject = "No Subject"
	}
	prompt := fmt.Sprintf(classifyPrompt,
		subject,
		email.Sender.Address,
		mailbox.Truncate(email.BodyPreview, mailbox.PreviewLimit),
		email.ReceivedAt.Format(time.RFC3339),
	)

	response, err := c.backend.Call(ctx, prompt, defaultTemperature)
	if err != nil {
		c.logger.Warn("classification call failed", "id", email.ID, "err", err)
		return c.fallback(email.ID, "llm call failed")
	}

	raw, ok := extractObject(response)
	if !ok {
		return c.fallback(email.ID, "no JSON object in llm response")
	}
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return c.fallback(email.ID, "malformed JSON in llm response")
	}

	result.EmailID = email.ID
	result.Backend = c.backend.Name()
	if result.Category == "" {
		result.Category = CategoryUnknown
	}
	return result
}

// ClassifyBatch classifies emails in chunks. The returned slice always has
// one Result per input email, in input order. Groq's small model handles
// batch prompts poorly, so it is classified one email at a time.
func (c *Classifier) ClassifyBatch(ctx context.Context, emails []mailbox.Email) []Result {
	results := make([]Result, 0, len(emails))
	for start := 0; start < len(emails); start += c.batchSize {
		end := start + c.batchSize
		if end > len(emails) {
			end = len(emails)
		}
		chunk := emails[start:end]

		if c.backend.Name() == "groq" {
			for _, email := range chunk {
				results = append(results, c.ClassifyEmail(ctx, email))
			}
			continue
		}
		results = append(results, c.classifyChunk(ctx, chunk)...)
	}
	return results
}

// batchItem is the per-email payload embedded in the batch prompt.
type batchItem struct {
	ID           string `json:"id"`
	Subject      string `json:"subject"`
	Sender       string `json:"sender"`
	BodyPreview  string `json:"body_preview"`
	ReceivedDate string `json:"received_date"`
}

func (c *Classifier) classifyChunk(ctx context.Context, chunk []mailbox.Email) []Result {
	items := make([]batchItem, 0, len(chunk))
	for _, email := range chunk {
		subject := email.Subject
		if subject == "" {
			subject = "No Subject"
		}
		items = append(items, batchItem{
			ID:           email.ID,
			Subject:      mailbox.Truncate(subject, 100),
			Sender:       email.Sender.Address,
			BodyPreview:  mailbox.Truncate(email.BodyPreview, 200),
			ReceivedDate: email.ReceivedAt.Format(time.RFC3339),
		})
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return c.classifyIndividually(ctx, chunk)
	}

	response, err := c.backend.Call(ctx, fmt.Sprintf(batchClassifyPrompt, string(data)), defaultTemperature)
	if err != nil {
		c.logger.Warn("batch classification call failed, retrying individually", "err", err)
		return c.classifyIndividually(ctx, chunk)
	}

	raw, ok := extractArray(response)
	if !ok {
		return c.classifyIndividually(ctx, chunk)
	}
	var parsed []Result
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return c.classifyIndividually(ctx, chunk)
	}

	// Align the model's output with the input by email id. Entries the model
	// invented are dropped; emails it skipped get a fallback.
	byID := make(map[string]Result, len(parsed))
	for _, r := range parsed {
		byID[r.EmailID] = r
	}
	results := make([]Result, 0, len(chunk))
	for _, email := range chunk {
		r, ok := byID[email.ID]
		if !ok {
			results = append(results, c.fallback(email.ID, "missing from batch response"))
			continue
		}
		r.Backend = c.backend.Name()
		if r.Category == "" {
			r.Category = CategoryUnknown
		}
		results = append(results, r)
	}
	return results
}

func (c *Classifier) classifyIndividually(ctx context.Context, chunk []mailbox.Email) []Result {
	results := make([]Result, 0, len(chunk))
	for _, email := range chunk {
		results = append(results, c.ClassifyEmail(ctx, email))
	}
	return results
}

// AnalyzeSender asks the model to judge one sender from aggregate history.
func (c *Classifier) AnalyzeSender(ctx context.Context, sender string, sampleSubjects []string, count int) SenderAnalysis {
	domain := sender
	if at := strings.LastIndex(sender, "@"); at != -1 {
		domain = sender[at+1:]
	}
	if len(sampleSubjects) > 5 {
		sampleSubjects = sampleSubjects[:5]
	}

	prompt := fmt.Sprintf(senderAnalysisPrompt, sender, domain, count, strings.Join(sampleSubjects, "; "))
	response, err := c.backend.Call(ctx, prompt, defaultTemperature)
	if err == nil {
		if raw, ok := extractObject(response); ok {
			var analysis SenderAnalysis
			if err := json.Unmarshal([]byte(raw), &analysis); err == nil {
				analysis.Backend = c.backend.Name()
				return analysis
			}
		}
	} else {
		c.logger.Warn("sender analysis call failed", "sender", sender, "err", err)
	}

	return SenderAnalysis{
		SenderCategory: CategoryUnknown,
		Confidence:     0.0,
		Reasoning:      "failed to analyze sender",
		SuggestedRule:  ActionManualReview,
		Backend:        c.backend.Name(),
	}
}

func (c *Classifier) fallback(emailID, reason string) Result {
	return Result{
		EmailID:         emailID,
		Category:        CategoryUnknown,
		Confidence:      0.0,
		Reason:          reason,
		SuggestedAction: ActionManualReview,
		Backend:         c.backend.Name(),
	}
}

// SaveResults writes classification results to a JSON file.
func SaveResults(path string, results []Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("saving results: %w", err)
	}
	return nil
}

// extractObject returns the substring from the first '{' to the last '}'.
// Models habitually wrap JSON in prose, so everything around the braces is
// discarded.
func extractObject(s string) (string, bool) {
	open := strings.Index(s, "{")
	close := strings.LastIndex(s, "}")
	if open == -1 || close <= open {
		return "", false
	}
	return s[open : close+1], true
}

// extractArray returns the substring from the first '[' to the last ']'.
func extractArray(s string) (string, bool) {
	open := strings.Index(s, "[")
	close := strings.LastIndex(s, "]")
	if open == -1 || close <= open {
		return "", false
	}
	return s[open : close+1], true
}
