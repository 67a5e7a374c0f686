package composer

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"

	"golang-news-slate/internal/entity"
	"golang-news-slate/pkg/utils"
)

// Tone is the voice of a standard post.
type Tone string

const (
	ToneInsight     Tone = "insight"
	ToneQuestion    Tone = "question"
	ToneContrarian  Tone = "contrarian"
	ToneObservation Tone = "observation"
	ToneWitty       Tone = "witty"
	// ToneQuote marks quote posts, which carry a brand quote instead of a tone.
	ToneQuote Tone = "quote"
)

var tones = [5]Tone{ToneInsight, ToneQuestion, ToneContrarian, ToneObservation, ToneWitty}

// ToneFor cycles tones by post number modulo 5.
func ToneFor(postNumber int) Tone {
	return tones[postNumber%len(tones)]
}

// alternateTone is the tone used when a draft is regenerated.
func alternateTone(postNumber int) Tone {
	return tones[(postNumber+2)%len(tones)]
}

const (
	// SnippetLimit caps the quote excerpt before the ellipsis.
	SnippetLimit = 80
	// SafetyMargin is cut beyond the exact overflow when truncating a line.
	SafetyMargin = 5
	Ellipsis     = "…"

	headlineLimit = 140
	takeawayLimit = 140
)

var (
	ErrNoArticle = errors.New("post has no article")
	ErrNoQuote   = errors.New("quote post has no brand quote")
)

// Composition is the rendered post.
type Composition struct {
	Text       string   `json:"text"`
	Hashtags   []string `json:"hashtags"`
	Tone       Tone     `json:"tone"`
	Transition string   `json:"transition,omitempty"`
	Length     int      `json:"length"`
	Alternate  bool     `json:"alternate"`
}

// Options tweak a single composition.
type Options struct {
	// Alternate forces the alternate tone (standard) or a different transition and
	// context line (quote). Used after a duplicate was detected.
	Alternate bool
}

// Composer renders scheduled posts into platform text.
type Composer struct {
	strategicHashtag string

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a Composer. rng drives transition phrase choice; pass a seeded source in tests.
func New(strategicHashtag string, rng *rand.Rand) *Composer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Composer{strategicHashtag: strategicHashtag, rng: rng}
}

// Compose renders post as a standard or quote post depending on its slot.
func (c *Composer) Compose(post entity.ScheduledPost, opts Options) (Composition, error) {
	if post.Article == nil {
		return Composition{}, fmt.Errorf("%w: %s", ErrNoArticle, post.ID)
	}
	category, _ := entity.CategoryByID(post.Slot.CategoryID)

	if post.Slot.IncludeQuote {
		if post.Quote == nil {
			return Composition{}, fmt.Errorf("%w: %s", ErrNoQuote, post.ID)
		}
		return c.composeQuote(post, category, opts), nil
	}
	return c.composeStandard(post, category, opts), nil
}

func (c *Composer) composeStandard(post entity.ScheduledPost, category entity.Category, opts Options) Composition {
	a := post.Article
	tone := ToneFor(post.Slot.PostNumber)
	if opts.Alternate {
		tone = alternateTone(post.Slot.PostNumber)
	}

	lines := []string{hook(tone, a.Headline)}
	if takeaway := FirstSentence(a.Summary); takeaway != "" && !strings.EqualFold(takeaway, a.Headline) {
		lines = append(lines, utils.TruncateAtWord(takeaway, takeawayLimit, Ellipsis))
	}

	tags := firstN(category.Hashtags, 3)
	text, tags := fit(lines, a.URL, tags, func(t []string) []string { return firstN(t, 2) })
	return Composition{
		Text:      text,
		Hashtags:  tags,
		Tone:      tone,
		Length:    TweetLength(text),
		Alternate: opts.Alternate,
	}
}

func (c *Composer) composeQuote(post entity.ScheduledPost, category entity.Category, opts Options) Composition {
	a := post.Article
	quote := post.Quote

	transition := c.pickTransition(quote.Transitions, opts.Alternate)
	context := utils.TruncateAtWord(trimEndPunct(a.Headline), headlineLimit, Ellipsis) + ":"
	if opts.Alternate {
		context = "Today's read: " + context
	}
	quoteLine := fmt.Sprintf("%s \"%s\"", transition, QuoteSnippet(quote.Text))

	tags := firstN(category.Hashtags, 2)
	if c.strategicHashtag != "" && !utils.ContainsString(tags, c.strategicHashtag) {
		tags = append(tags, c.strategicHashtag)
	}
	text, tags := fit([]string{context, quoteLine}, a.URL, tags, func(t []string) []string {
		return []string{t[0], t[len(t)-1]}
	})
	return Composition{
		Text:       text,
		Hashtags:   tags,
		Tone:       ToneQuote,
		Transition: transition,
		Length:     TweetLength(text),
		Alternate:  opts.Alternate,
	}
}

func (c *Composer) pickTransition(options []string, alternate bool) string {
	if len(options) == 0 {
		return "As we like to say:"
	}
	c.mu.Lock()
	i := c.rng.IntN(len(options))
	c.mu.Unlock()
	if alternate && len(options) > 1 {
		// the first draft's pick is unknown here, so shift away from the fresh one
		i = (i + 1) % len(options)
	}
	return options[i]
}

func hook(tone Tone, headline string) string {
	h := utils.TruncateAtWord(headline, headlineLimit, Ellipsis)
	switch tone {
	case ToneQuestion:
		return trimEndPunct(h) + ". What does this mean for your team?"
	case ToneContrarian:
		return "Everyone will read the headline. The real story is underneath: " + h
	case ToneObservation:
		return "Noticed today: " + h
	case ToneWitty:
		return "Plot twist of the day: " + h
	default:
		return "Worth knowing: " + h
	}
}

// fit assembles the post and shrinks it until it fits MaxLength: first the hashtags are
// reduced, then the longest content line is cut at a word boundary by the overflow plus
// SafetyMargin, repeatedly.
func fit(lines []string, url string, tags []string, reduceTags func([]string) []string) (string, []string) {
	lines = append([]string(nil), lines...)
	text := assemble(lines, url, tags)
	if TweetLength(text) <= MaxLength {
		return text, tags
	}

	if len(tags) > 2 {
		tags = reduceTags(tags)
		text = assemble(lines, url, tags)
	}

	for TweetLength(text) > MaxLength {
		i := longest(lines)
		if i < 0 {
			break
		}
		overflow := TweetLength(text) - MaxLength
		target := utils.RuneLen(lines[i]) - overflow - SafetyMargin
		if target < 2 {
			lines = append(lines[:i], lines[i+1:]...)
		} else {
			lines[i] = utils.TruncateAtWord(lines[i], target, Ellipsis)
		}
		text = assemble(lines, url, tags)
	}

	if TweetLength(text) > MaxLength {
		tags = nil
		text = assemble(lines, url, tags)
	}
	return text, tags
}

func assemble(lines []string, url string, tags []string) string {
	parts := make([]string, 0, len(lines)+2)
	for _, l := range lines {
		if l != "" {
			parts = append(parts, l)
		}
	}
	parts = append(parts, url)
	if len(tags) > 0 {
		parts = append(parts, strings.Join(tags, " "))
	}
	return strings.Join(parts, "\n\n")
}

func longest(lines []string) int {
	idx, best := -1, 0
	for i, l := range lines {
		if n := utils.RuneLen(l); n > best {
			idx, best = i, n
		}
	}
	return idx
}

var sentenceEndRe = regexp.MustCompile(`[.!?](?:["')\]]*)(?:\s|$)`)

// FirstSentence returns text up to and including its first sentence terminator.
func FirstSentence(text string) string {
	text = strings.TrimSpace(text)
	if loc := sentenceEndRe.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[:loc[1]])
	}
	return text
}

// QuoteSnippet is the first sentence of a quote when it fits SnippetLimit, otherwise the
// sentence cut at a word boundary to SnippetLimit characters plus an ellipsis.
func QuoteSnippet(text string) string {
	first := FirstSentence(text)
	if utils.RuneLen(first) <= SnippetLimit {
		return first
	}
	return utils.TruncateAtWord(first, SnippetLimit+utils.RuneLen(Ellipsis), Ellipsis)
}

func trimEndPunct(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ".!?:;,")
}

func firstN(tags []string, n int) []string {
	if len(tags) < n {
		n = len(tags)
	}
	return append([]string(nil), tags[:n]...)
}
