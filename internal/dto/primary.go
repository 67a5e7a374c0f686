package dto

import (
	"strings"
	"time"
)

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ToRaw resolves the alternate keys into a RawArticle. An unparseable date is left absent.
func (a PrimaryArticle) ToRaw() RawArticle {
	raw := RawArticle{
		Headline: firstNonEmpty(a.Headline, a.Title),
		URL:      firstNonEmpty(a.URL, a.Link),
		Source:   firstNonEmpty(a.Source, a.Publisher),
		Summary:  firstNonEmpty(a.Summary, a.Description),
	}
	published := strings.TrimSpace(firstNonEmpty(a.PublishedAt, a.Date))
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, published); err == nil {
			t = t.UTC()
			raw.PublishedAt = &t
			break
		}
	}
	return raw
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
