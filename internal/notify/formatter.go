package notify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/demyz/dou-jobs-feed/internal/store"
)

// shortDescriptionLimit bounds the plain-text summary in a notification
const shortDescriptionLimit = 220

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// FormatJobMessage renders the bounded rich-text summary sent for one
// posting: title, company, salary, truncated description, and link.
func FormatJobMessage(job *store.Job) string {
	companyPart := ""
	if job.Company.Name != "" {
		companyPart = fmt.Sprintf(" <i>%s.</i>", escapeHTML(job.Company.Name))
	}

	salaryPart := ""
	if job.Salary != nil && *job.Salary != "" {
		salaryPart = " " + escapeHTML(*job.Salary)
	}

	shortText := truncateText(stripHTML(job.Description), shortDescriptionLimit)

	return strings.TrimSpace(fmt.Sprintf(
		"<b>%s.%s%s</b>\n\n%s\n<a href=\"%s\">%s</a>",
		escapeHTML(job.Title), companyPart, salaryPart,
		escapeHTML(shortText), job.URL, job.URL,
	))
}

// escapeHTML escapes the characters Telegram's HTML parse mode reserves
func escapeHTML(text string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#039;",
	)
	return replacer.Replace(text)
}

// stripHTML drops tags and collapses whitespace down to single spaces
func stripHTML(html string) string {
	text := htmlTagPattern.ReplaceAllString(html, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// truncateText cuts text to maxLength runes with a trailing ellipsis
func truncateText(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return strings.TrimSpace(string(runes[:maxLength])) + "..."
}
