package composer

import (
	"strings"
	"unicode"

	"golang-news-slate/internal/entity"
)

// Jaccard compares the word sets of two posts, ignoring links and case.
func Jaccard(a, b string) float64 {
	wa, wb := words(a), words(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 1
	}
	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

func words(text string) map[string]struct{} {
	text = strings.ToLower(urlRe.ReplaceAllString(text, " "))
	set := map[string]struct{}{}
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[w] = struct{}{}
	}
	return set
}

// DuplicateReport describes the duplicate check of a composition.
type DuplicateReport struct {
	Similarity  float64 `json:"similarity"`
	Duplicate   bool    `json:"duplicate"`
	Regenerated bool    `json:"regenerated"`
	// StillDuplicate is set when the regenerated draft was also too similar; it is published anyway.
	StillDuplicate bool `json:"still_duplicate"`
}

// MaxSimilarity returns the highest similarity of text against recent posts.
func MaxSimilarity(text string, recent []string) float64 {
	best := 0.0
	for _, r := range recent {
		if s := Jaccard(text, r); s > best {
			best = s
		}
	}
	return best
}

// ComposeUnique composes post and, if the draft is at least threshold-similar to a recent
// post, regenerates it once with the alternate voice. The second draft is returned even if
// it is still similar.
func (c *Composer) ComposeUnique(post entity.ScheduledPost, recent []string, threshold float64) (Composition, DuplicateReport, error) {
	comp, err := c.Compose(post, Options{})
	if err != nil {
		return Composition{}, DuplicateReport{}, err
	}

	report := DuplicateReport{Similarity: MaxSimilarity(comp.Text, recent)}
	if report.Similarity < threshold {
		return comp, report, nil
	}
	report.Duplicate = true

	alt, err := c.Compose(post, Options{Alternate: true})
	if err != nil {
		return Composition{}, report, err
	}
	report.Regenerated = true
	if sim := MaxSimilarity(alt.Text, recent); sim >= threshold {
		report.StillDuplicate = true
		report.Similarity = sim
	}
	return alt, report, nil
}
