package scoring

import (
	"regexp"
	"strings"
)

// wordSet compiles a case-insensitive, whole-word alternation.
func wordSet(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

var (
	provocativeRe = wordSet(
		"shocking", "surprising", "controversial", "warning", "warns", "crisis", "threat",
		"danger", "dangerous", "alarming", "breakthrough", "game-changer", "disrupt",
		"disrupts", "unprecedented", "backlash", "fails", "failure", "ban", "bans", "lawsuit",
	)
	interrogativeStartRe = regexp.MustCompile(`(?i)^\s*(?:why|how|what|will|can|should|is|are|does|do|who|when)\b`)
	opinionRe            = wordSet(
		"must", "never", "always", "best", "worst", "critical", "essential", "need to",
		"should", "wrong", "right way", "mistake",
	)
	announcementRe = wordSet(
		"announces", "announced", "launches", "launched", "releases", "released", "unveils",
		"unveiled", "introduces", "study", "research", "report", "survey", "paper", "findings",
	)
	statisticRe = regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s?%|\$\s?\d|\b\d+(?:\.\d+)?\s?(?:million|billion|trillion|k)\b|\b\d+x\b|\b(?:million|billion|trillion)\b|\bpercent\b`)
	entityRe    = wordSet(
		"openai", "google", "microsoft", "meta", "apple", "amazon", "nvidia", "anthropic",
		"tesla", "ibm", "deepmind", "chatgpt", "gemini", "claude", "copilot", "xai", "mistral",
	)
	breakingRe = wordSet(
		"breaking", "just", "announces", "announced", "launches", "unveils", "today",
		"this week", "now available", "first",
	)
	b2bRe = wordSet(
		"enterprise", "enterprises", "business", "businesses", "b2b", "companies", "company",
		"organizations", "leaders", "executives", "ceo", "ceos", "cto", "industry", "workforce",
	)
)

// businessKeywords count individually toward engagement.
var businessKeywords = []*regexp.Regexp{
	wordSet("roi", "return on investment"),
	wordSet("revenue", "revenues"),
	wordSet("cost", "costs", "savings"),
	wordSet("efficiency", "efficient"),
	wordSet("productivity"),
	wordSet("enterprise", "enterprises"),
	wordSet("strategy", "strategic"),
	wordSet("investment", "investments", "invest"),
	wordSet("growth"),
	wordSet("profit", "profits", "margin", "margins"),
	wordSet("market", "markets"),
	wordSet("competitive", "competition"),
	wordSet("automation", "automate"),
	wordSet("customers", "customer"),
}
