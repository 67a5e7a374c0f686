package composer

import (
	"regexp"

	"golang-news-slate/pkg/utils"
)

const (
	// MaxLength is the platform's character budget.
	MaxLength = 280
	// URLLength is the fixed weight of any link after the platform shortens it.
	URLLength = 23
)

var urlRe = regexp.MustCompile(`https?://\S+`)

// TweetLength counts characters the way the platform does: every URL weighs URLLength.
func TweetLength(text string) int {
	n, last := 0, 0
	for _, loc := range urlRe.FindAllStringIndex(text, -1) {
		n += utils.RuneLen(text[last:loc[0]]) + URLLength
		last = loc[1]
	}
	return n + utils.RuneLen(text[last:])
}
