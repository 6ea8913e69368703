package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"mailsweep/internal/llm"
	"mailsweep/internal/mailbox"
)

func printEmails(out io.Writer, emails []mailbox.Email) {
	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tFROM\tSUBJECT")
	for _, email := range emails {
		date := ""
		if !email.ReceivedAt.IsZero() {
			date = email.ReceivedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", email.ID, date, email.Sender.Address, email.Subject)
	}
	_ = tw.Flush()
}

func printStats(out io.Writer, stats map[string]mailbox.FolderStat) {
	folders := make([]string, 0, len(stats))
	for name := range stats {
		folders = append(folders, name)
	}
	sort.Strings(folders)

	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "FOLDER\tTOTAL\tUNREAD")
	for _, name := range folders {
		stat := stats[name]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, stat.TotalDisplay, stat.UnreadDisplay)
	}
	_ = tw.Flush()
}

func printResults(out io.Writer, emails []mailbox.Email, results []llm.Result) {
	byID := make(map[string]mailbox.Email, len(emails))
	for _, email := range emails {
		byID[email.ID] = email
	}

	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tCONF\tACTION\tFROM\tSUBJECT")
	for _, r := range results {
		email := byID[r.EmailID]
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\n",
			r.Category, r.Confidence, r.SuggestedAction, email.Sender.Address, email.Subject)
	}
	_ = tw.Flush()
}

func summarizeResults(out io.Writer, results []llm.Result) {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Category]++
	}
	categories := []string{llm.CategoryJunk, llm.CategoryPromotional, llm.CategoryImportant, llm.CategoryUnknown}
	fmt.Fprintf(out, "\nClassified %d emails:", len(results))
	for _, c := range categories {
		if counts[c] > 0 {
			fmt.Fprintf(out, " %s=%d", c, counts[c])
		}
	}
	fmt.Fprintln(out)
}
