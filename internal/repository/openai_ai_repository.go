package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang-news-slate/internal/config"
	"golang-news-slate/internal/dto"
	"golang-news-slate/pkg/logger"
	"golang-news-slate/pkg/ratelimit"

	"golang.org/x/time/rate"
)

type openaiAIRepository struct {
	client         *http.Client
	cfg            config.OpenAI
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
}

// NewOpenAIRepository creates an AIRepository backed by an OpenAI-compatible chat completions API.
func NewOpenAIRepository(cfg config.OpenAI, log *logger.Logger) AIRepository {
	secondsPerRequest := time.Minute / time.Duration(max(cfg.MaxRequestPerMinute, 1))

	return &openaiAIRepository{
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.MaxTokenPerMinute),
	}
}

func (r *openaiAIRepository) Name() string {
	return "openai"
}

func (r *openaiAIRepository) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := sendChatCompletion(ctx, r.client, r.requestLimiter, r.logger, r.cfg.BaseURL, r.cfg.APIKey, dto.OpenAIRequest{
		Model:    r.cfg.Model,
		Messages: []dto.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	if resp.Usage.TotalTokens > r.cfg.MaxTokenPerMinute/2 {
		r.logger.Warn("Token has exceeded 50% of the limit", logger.IntField("remaining", r.tokenLimiter.GetRemaining()))
	}
	if err := r.tokenLimiter.Wait(ctx, resp.Usage.TotalTokens); err != nil {
		r.logger.Error("failed to wait for token limit", logger.ErrorField(err))
		return "", fmt.Errorf("failed to wait for token limit: %w", err)
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Content) == 0 {
		return "", fmt.Errorf("no content found in OpenAI response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// sendChatCompletion posts one chat completions request. Rate limits, 5xx replies and timeouts
// are wrapped in ErrTransient.
func sendChatCompletion(ctx context.Context, client *http.Client, limiter *rate.Limiter, log *logger.Logger, url, apiKey string, payload dto.OpenAIRequest) (*dto.OpenAIResponse, error) {
	if err := limiter.Wait(ctx); err != nil {
		log.Error("failed to wait for request limit", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))

	log.Debug("Sending chat completion request", logger.StringField("url", url), logger.StringField("model", payload.Model))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send chat completion request: %w: %w", ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error("Received non-OK response from chat completions API",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("url", url),
			logger.StringField("model", payload.Model),
		)
		err := fmt.Errorf("received non-OK response: %d - %s", resp.StatusCode, string(body))
		if isTransientStatus(resp.StatusCode) {
			return nil, fmt.Errorf("%w: %w", ErrTransient, err)
		}
		return nil, err
	}

	var chatResp dto.OpenAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w: %w", ErrParse, err)
	}
	return &chatResp, nil
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= http.StatusInternalServerError
}
