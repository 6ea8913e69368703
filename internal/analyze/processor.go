package analyze

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"mailsweep/internal/mailbox"
)

// Pure analytics over fetched emails. Nothing here touches the network; every
// function is a deterministic transformation of its inputs.

// UnknownDomain is the sentinel for addresses without a parseable domain.
const UnknownDomain = "Unknown"

// ExtractDomain returns the lowercased domain of an address, or the sentinel
// when no '@' is present.
func ExtractDomain(address string) string {
	at := strings.LastIndex(address, "@")
	if at == -1 || at == len(address)-1 {
		return UnknownDomain
	}
	return strings.ToLower(address[at+1:])
}

// SenderPattern aggregates what one sender has mailed.
type SenderPattern struct {
	Count     int       `json:"count"`
	Subjects  []string  `json:"subjects"`
	Domains   []string  `json:"domains"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// SenderPatterns groups emails by sender address.
func SenderPatterns(emails []mailbox.Email) map[string]SenderPattern {
	patterns := make(map[string]SenderPattern)
	for _, email := range emails {
		addr := email.Sender.Address
		p := patterns[addr]

		p.Count++
		subject := email.Subject
		if subject == "" {
			subject = "No Subject"
		}
		p.Subjects = append(p.Subjects, mailbox.Truncate(subject, 100))

		domain := ExtractDomain(addr)
		if !contains(p.Domains, domain) {
			p.Domains = append(p.Domains, domain)
		}

		if p.FirstSeen.IsZero() || email.ReceivedAt.Before(p.FirstSeen) {
			p.FirstSeen = email.ReceivedAt
		}
		if email.ReceivedAt.After(p.LastSeen) {
			p.LastSeen = email.ReceivedAt
		}

		patterns[addr] = p
	}
	return patterns
}

// saleKeywords trigger the sale-sender set when found in a subject or body
// preview.
var saleKeywords = []string{
	"sale", "discount", "offer", "deal", "promo", "special",
	"limited time", "save", "% off", "free shipping", "coupon",
}

// marketingIndicators mark a sending domain as marketing infrastructure.
var marketingIndicators = []string{"marketing", "promo", "newsletter", "email"}

// PromotionalPatterns holds the sender/domain sets flagged by the keyword
// heuristics. Each slice is deduplicated and sorted.
type PromotionalPatterns struct {
	SaleSenders        []string `json:"sale_keywords"`
	UnsubscribeSenders []string `json:"unsubscribe_senders"`
	NoReplySenders     []string `json:"no_reply_senders"`
	MarketingDomains   []string `json:"marketing_domains"`
}

// DetectPromotionalPatterns runs the case-insensitive substring heuristics
// over subject, body preview, and sender address.
func DetectPromotionalPatterns(emails []mailbox.Email) PromotionalPatterns {
	sale := make(map[string]bool)
	unsubscribe := make(map[string]bool)
	noReply := make(map[string]bool)
	marketing := make(map[string]bool)

	for _, email := range emails {
		subject := strings.ToLower(email.Subject)
		sender := strings.ToLower(email.Sender.Address)
		preview := strings.ToLower(email.BodyPreview)

		for _, keyword := range saleKeywords {
			if strings.Contains(subject, keyword) || strings.Contains(preview, keyword) {
				sale[sender] = true
				break
			}
		}

		if strings.Contains(preview, "unsubscribe") {
			unsubscribe[sender] = true
		}

		if strings.Contains(sender, "noreply") || strings.Contains(sender, "no-reply") {
			noReply[sender] = true
		}

		domain := ExtractDomain(email.Sender.Address)
		for _, indicator := range marketingIndicators {
			if strings.Contains(domain, indicator) {
				marketing[domain] = true
				break
			}
		}
	}

	return PromotionalPatterns{
		SaleSenders:        sortedKeys(sale),
		UnsubscribeSenders: sortedKeys(unsubscribe),
		NoReplySenders:     sortedKeys(noReply),
		MarketingDomains:   sortedKeys(marketing),
	}
}

// SenderFrequency counts one sender's emails per time bucket.
type SenderFrequency struct {
	Daily   map[string]int `json:"daily"`
	Weekly  map[string]int `json:"weekly"`
	Monthly map[string]int `json:"monthly"`
}

// Frequency buckets each sender's emails by day, ISO week, and month.
func Frequency(emails []mailbox.Email) map[string]SenderFrequency {
	out := make(map[string]SenderFrequency)
	for _, email := range emails {
		addr := email.Sender.Address
		f, ok := out[addr]
		if !ok {
			f = SenderFrequency{
				Daily:   make(map[string]int),
				Weekly:  make(map[string]int),
				Monthly: make(map[string]int),
			}
			out[addr] = f
		}

		t := email.ReceivedAt
		year, week := t.ISOWeek()
		f.Daily[t.Format("2006-01-02")]++
		f.Weekly[fmt.Sprintf("%d-W%02d", year, week)]++
		f.Monthly[t.Format("2006-01")]++
	}
	return out
}

var urlPattern = regexp.MustCompile(`https?://[a-zA-Z0-9$\-_@.&+!*(),%/?=#~:;]+`)

// URLAnalysis is the deduplicated URLs and host domains found in bodies.
type URLAnalysis struct {
	URLs    []string `json:"urls"`
	Domains []string `json:"domains"`
}

// ExtractURLs scans body text and previews for links.
func ExtractURLs(emails []mailbox.Email) URLAnalysis {
	urls := make(map[string]bool)
	domains := make(map[string]bool)

	for _, email := range emails {
		content := email.Body + " " + email.BodyPreview
		for _, raw := range urlPattern.FindAllString(content, -1) {
			urls[raw] = true
			parsed, err := url.Parse(raw)
			if err != nil || parsed.Host == "" {
				continue
			}
			domains[strings.ToLower(parsed.Host)] = true
		}
	}

	return URLAnalysis{
		URLs:    sortedKeys(urls),
		Domains: sortedKeys(domains),
	}
}

// contentCategories is checked in order; the first category whose keyword
// matches wins. Unmatched emails default to promotional, on the theory that
// a secondary inbox is mostly marketing.
var contentCategories = []struct {
	name     string
	keywords []string
}{
	{"newsletters", []string{"newsletter", "weekly update", "digest", "roundup"}},
	{"notifications", []string{"notification", "alert", "reminder", "update"}},
	{"receipts", []string{"receipt", "invoice", "payment", "order", "purchase"}},
	{"social", []string{"facebook", "twitter", "instagram", "linkedin", "social"}},
	{"security", []string{"security", "password", "login", "verify", "2fa", "verification"}},
	{"promotional", []string{"sale", "discount", "promo", "deal", "offer"}},
}

// CategorizeByContent assigns each email id to exactly one category.
func CategorizeByContent(emails []mailbox.Email) map[string][]string {
	categories := make(map[string][]string, len(contentCategories))
	for _, c := range contentCategories {
		categories[c.name] = []string{}
	}

	for _, email := range emails {
		content := strings.ToLower(email.Subject + " " + email.BodyPreview + " " + email.Sender.Address)

		matched := ""
		for _, c := range contentCategories {
			for _, keyword := range c.keywords {
				if strings.Contains(content, keyword) {
					matched = c.name
					break
				}
			}
			if matched != "" {
				break
			}
		}
		if matched == "" {
			matched = "promotional"
		}
		categories[matched] = append(categories[matched], email.ID)
	}
	return categories
}

// BulkDeleteCandidates returns sender → email ids for senders with at least
// minSenderCount emails older than daysOld days.
func BulkDeleteCandidates(emails []mailbox.Email, daysOld, minSenderCount int) map[string][]string {
	cutoff := time.Now().AddDate(0, 0, -daysOld)

	groups := make(map[string][]string)
	for _, email := range emails {
		if email.ReceivedAt.Before(cutoff) {
			groups[email.Sender.Address] = append(groups[email.Sender.Address], email.ID)
		}
	}

	candidates := make(map[string][]string)
	for sender, ids := range groups {
		if len(ids) >= minSenderCount {
			candidates[sender] = ids
		}
	}
	return candidates
}

// Report bundles every analysis over one email set.
type Report struct {
	TotalEmails          int                        `json:"total_emails"`
	SenderPatterns       map[string]SenderPattern   `json:"sender_patterns"`
	PromotionalPatterns  PromotionalPatterns        `json:"promotional_patterns"`
	Frequency            map[string]SenderFrequency `json:"frequency_analysis"`
	ContentCategories    map[string][]string        `json:"content_categories"`
	URLAnalysis          URLAnalysis                `json:"url_analysis"`
	BulkDeleteCandidates map[string][]string        `json:"bulk_delete_candidates"`
}

// NewReport runs every analysis with default thresholds.
func NewReport(emails []mailbox.Email) Report {
	return Report{
		TotalEmails:          len(emails),
		SenderPatterns:       SenderPatterns(emails),
		PromotionalPatterns:  DetectPromotionalPatterns(emails),
		Frequency:            Frequency(emails),
		ContentCategories:    CategorizeByContent(emails),
		URLAnalysis:          ExtractURLs(emails),
		BulkDeleteCandidates: BulkDeleteCandidates(emails, 30, 5),
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
