package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"staffpulse/internal/config"
	"staffpulse/internal/infrastructure"
)

const (
	chatCompletionsPath = "/chat/completions"
	clientUserAgent     = "StaffPulse-Assistant-Client/1.0"

	// maxCachedAnswers bounds the answer cache; entries expire on the
	// configured TTL long before the bound matters in normal use.
	maxCachedAnswers = 512
)

const systemPrompt = "You are an analyst for a staffing company. " +
	"Answer questions using only the weekly report data provided below. " +
	"If the data does not contain the answer, say so.\n\nReport data:\n"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message    string  `json:"message"`
		Type       string  `json:"type"`
		RetryAfter float64 `json:"retry_after"`
	} `json:"error"`
}

// Client asks an OpenAI-compatible chat completion endpoint. Answers are
// cached per (report context, question) pair for the configured TTL.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	cache      *answerCache
	metrics    *infrastructure.BusinessMetrics
	logger     *slog.Logger
}

var _ Assistant = (*Client)(nil)

// NewClient creates a client from configuration. A nil metrics handle
// disables cache instrumentation. The caller owns Close.
func NewClient(cfg config.AssistantConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		httpClient: &http.Client{Timeout: timeout},
		cache:      newAnswerCache(cfg.CacheTTL, maxCachedAnswers),
		metrics:    metrics,
		logger:     logger,
	}
}

// Ask sends the question with the report context as grounding material and
// returns the first choice's content. HTTP 429 surfaces as *RateLimitError.
func (c *Client) Ask(ctx context.Context, reportContext, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question must not be empty")
	}

	key := answerKey(reportContext, question)
	if answer, ok := c.cache.Get(key); ok {
		if c.metrics != nil {
			c.metrics.AssistantCacheHits.Add(ctx, 1)
		}
		c.logger.Debug("Assistant cache hit", slog.String("key_prefix", key[:8]))
		return answer, nil
	}
	if c.metrics != nil {
		c.metrics.AssistantCacheMisses.Add(ctx, 1)
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt + reportContext},
			{Role: "user", Content: question},
		},
		MaxTokens: c.maxTokens,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to prepare request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+chatCompletionsPath, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", clientUserAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Assistant request failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return "", fmt.Errorf("assistant request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		rateErr := &RateLimitError{RetryAfter: retryAfterHint(resp, body)}
		c.logger.Warn("Assistant rate limited",
			slog.Duration("retry_after", rateErr.RetryAfter),
		)
		return "", rateErr
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Assistant returned error status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", truncate(string(body), 512)),
		)
		return "", fmt.Errorf("assistant returned status %d: %s", resp.StatusCode, apiErrorMessage(body))
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("assistant returned no choices")
	}

	answer := strings.TrimSpace(response.Choices[0].Message.Content)
	c.cache.Set(key, answer)

	c.logger.Debug("Assistant answered",
		slog.Duration("duration", time.Since(start)),
		slog.Int("answer_chars", len(answer)),
		slog.String("finish_reason", response.Choices[0].FinishReason),
	)

	return answer, nil
}

// Close stops the cache janitor.
func (c *Client) Close() {
	c.cache.Stop()
}

// retryAfterHint extracts the retry hint from a 429 response. The
// Retry-After header wins; some compatible endpoints put the value in the
// error body instead.
func retryAfterHint(resp *http.Response, body []byte) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := time.Until(at); d > 0 {
				return d
			}
		}
	}

	var apiErr chatErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.RetryAfter > 0 {
		return time.Duration(apiErr.Error.RetryAfter * float64(time.Second))
	}

	return 0
}

func apiErrorMessage(body []byte) string {
	var apiErr chatErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "no error detail"
	}
	return truncate(msg, 256)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
