package entity

import "time"

// BrandQuote is a fixed brand statement woven into quote posts.
type BrandQuote struct {
	ID          int      `json:"id"`
	Text        string   `json:"text"`
	Transitions []string `json:"transitions"`
}

var brandQuotes = []BrandQuote{
	{
		ID:          1,
		Text:        "Trust is the real infrastructure of AI. Without it, nothing else scales.",
		Transitions: []string{"As we like to say:", "Our take:", "This is why we keep repeating:"},
	},
	{
		ID:          2,
		Text:        "Safe AI is not slower AI. It is AI you can actually ship to customers.",
		Transitions: []string{"Which brings us back to a core belief:", "Our view:", "We keep coming back to this:"},
	},
	{
		ID:          3,
		Text:        "Every model decision is a business decision, so leaders need to own the risks as much as the upside.",
		Transitions: []string{"A reminder for every leadership team:", "Our take:", "As we see it:"},
	},
	{
		ID:          4,
		Text:        "Guardrails are a product feature. Teams that design them early move faster later.",
		Transitions: []string{"Lesson worth repeating:", "Our view:", "As we like to say:"},
	},
	{
		ID:          5,
		Text:        "The question is not whether AI will change your industry. It is whether you will change it responsibly.",
		Transitions: []string{"The bigger picture:", "We keep coming back to this:", "Our take:"},
	},
}

// BrandQuotes returns the rotation in id order.
func BrandQuotes() []BrandQuote {
	out := make([]BrandQuote, len(brandQuotes))
	copy(out, brandQuotes)
	return out
}

// QuoteForDate picks the quote of the day: (dayOfYear-1) mod 5, so 1 January is quote 1.
func QuoteForDate(date time.Time) BrandQuote {
	idx := (date.YearDay() - 1) % len(brandQuotes)
	return brandQuotes[idx]
}
