package scoring

import "regexp"

// authorityTiers lists source names from most to least authoritative.
// Sources matching no tier score the floor.
var authorityTiers = []struct {
	points  int
	sources []string
}{
	{25, []string{
		"reuters", "associated press", "ap news", "bloomberg", "techcrunch",
		"the verge", "wired", "mit technology review", "technologyreview",
	}},
	{20, []string{
		"new york times", "nytimes", "washington post", "wall street journal", "wsj",
		"financial times", "bbc", "cnbc", "forbes", "ars technica", "venturebeat", "the economist",
	}},
	{15, []string{
		"zdnet", "engadget", "the information", "axios", "business insider", "fortune",
		"fast company", "the register", "ieee spectrum", "cnet", "semafor", "politico",
	}},
	{10, []string{
		"openai", "anthropic", "deepmind", "google ai", "google research", "microsoft",
		"meta ai", "nvidia", "hugging face", "aws", "ibm research", "arxiv",
	}},
}

const authorityFloor = 5

// authorityMatchers holds one whole-word matcher per tier, in tier order.
var authorityMatchers = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(authorityTiers))
	for i, tier := range authorityTiers {
		out[i] = wordSet(tier.sources...)
	}
	return out
}()

// Authority scores the publishing source, 5..25. Tier names match whole words
// only, so "aws" does not credit "Flaws Weekly".
func Authority(source string) int {
	for i, re := range authorityMatchers {
		if re.MatchString(source) {
			return authorityTiers[i].points
		}
	}
	return authorityFloor
}
