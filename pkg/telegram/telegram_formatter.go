package telegram

import (
	"fmt"
	"strings"
	"time"

	"golang-news-slate/pkg/utils"
)

// Severity grades an alert.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

func severityIcon(s Severity) string {
	switch s {
	case SeverityCritical:
		return "📛"
	case SeverityWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

// FormatAlertMessage renders an operator alert.
func FormatAlertMessage(at time.Time, severity Severity, title, detail string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s [%s] %s\n", severityIcon(severity), severity, escapeMarkdown(title)))
	sb.WriteString(utils.PrettyDate(at))
	if detail != "" {
		sb.WriteString("\n\n")
		sb.WriteString(escapeMarkdown(detail))
	}
	return sb.String()
}

// SlateLine is one row of the daily slate digest.
type SlateLine struct {
	PostNumber int
	LocalTime  string
	Category   string
	Status     string
	Headline   string
}

// FormatSlateDigest renders the day's slate after assignment.
func FormatSlateDigest(date string, lines []SlateLine) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗓 *Slate for %s*\n\n", date))
	for _, l := range lines {
		headline := l.Headline
		if headline == "" {
			headline = "-"
		}
		sb.WriteString(fmt.Sprintf("%d. %s %s [%s] %s\n",
			l.PostNumber, l.LocalTime, escapeMarkdown(l.Category), l.Status,
			escapeMarkdown(utils.TruncateAtWord(headline, 70, "…"))))
	}
	return sb.String()
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
