package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang-news-slate/internal/entity"
)

// Completer sends a single prompt to a language model and returns its raw text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type aiEngagement struct {
	name   string
	client Completer
}

// NewAIEngagement adapts a model client into an EngagementScorer.
func NewAIEngagement(name string, client Completer) EngagementScorer {
	return &aiEngagement{name: name, client: client}
}

func (s *aiEngagement) Name() string { return s.name }

func (s *aiEngagement) ScoreEngagement(ctx context.Context, a entity.CandidateArticle) (float64, error) {
	reply, err := s.client.Complete(ctx, BuildEngagementPrompt(a))
	if err != nil {
		return 0, fmt.Errorf("failed to request engagement score: %w", err)
	}
	return ParseEngagementReply(reply)
}

// BuildEngagementPrompt asks for a single 0-25 number.
func BuildEngagementPrompt(a entity.CandidateArticle) string {
	return fmt.Sprintf(`You rate news for a B2B audience of technology and business leaders on social media.
Estimate how likely this article is to spark engagement (replies, reposts, likes).

Headline: %s
Source: %s
Summary: %s

Answer with JSON only: {"score": <number from 0 to 25>}`, a.Headline, a.Source, a.Summary)
}

var numberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParseEngagementReply accepts {"score": n}, a fenced JSON block, or a bare number.
func ParseEngagementReply(reply string) (float64, error) {
	raw := strings.TrimSpace(strings.Trim(strings.TrimSpace(reply), "`"))
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "json"))

	var payload struct {
		Score *float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err == nil && payload.Score != nil {
		return *payload.Score, nil
	}

	match := numberRe.FindString(raw)
	if match == "" {
		return 0, fmt.Errorf("no numeric engagement score in reply %q", reply)
	}
	return strconv.ParseFloat(match, 64)
}
