package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang-news-slate/internal/config"
	"golang-news-slate/pkg/logger"
	"golang-news-slate/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// geminiAIRepository is an implementation of AIRepository that uses the Google Gemini API.
type geminiAIRepository struct {
	cfg            config.Gemini
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

// NewGeminiAIRepository creates a new instance of geminiAIRepository.
func NewGeminiAIRepository(cfg config.Gemini, log *logger.Logger, genAiClient *genai.Client) AIRepository {
	secondsPerRequest := time.Minute / time.Duration(max(cfg.MaxRequestPerMinute, 1))
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &geminiAIRepository{
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.MaxTokenPerMinute),
		genAiClient:    genAiClient,
	}
}

func (r *geminiAIRepository) Name() string {
	return "gemini"
}

func (r *geminiAIRepository) Complete(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	tokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to count tokens: %w", err)
	}

	r.logger.Debug("Gemini token count",
		logger.IntField("total_tokens", int(tokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)

	if err := r.tokenLimiter.Wait(ctx, int(tokenResp.TotalTokens)); err != nil {
		return "", fmt.Errorf("failed to wait for token limit: %w", err)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for request limit: %w", err)
	}

	resp, err := r.genAiClient.Models.GenerateContent(ctx, r.cfg.Model, contents, nil)
	if err != nil {
		r.logger.Error("Failed to send request to Gemini API", logger.ErrorField(err), logger.StringField("model", r.cfg.Model))
		return "", fmt.Errorf("failed to send request to Gemini API: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("invalid response from Gemini API: no content found")
	}
	return text, nil
}
