package judge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/huangsam/prscore/internal/contract"
	"go.uber.org/zap"
)

// OpenAIConfig configures an OpenAI compatible chat completions endpoint.
type OpenAIConfig struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	MaxRetries      int
	InitialInterval time.Duration // First retry wait
	MaxInterval     time.Duration // Cap on a single retry wait
}

// DefaultOpenAIConfig returns the default endpoint settings.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		BaseURL:         contract.DefaultJudgeBaseURL,
		APIKey:          apiKey,
		Timeout:         contract.DefaultJudgeTimeout,
		MaxRetries:      contract.DefaultJudgeMaxRetries,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

// OpenAIService implements contract.CompletionService over HTTP.
type OpenAIService struct {
	client *resty.Client
	cfg    OpenAIConfig
	logger *zap.Logger
}

var _ contract.CompletionService = &OpenAIService{} // Compile-time check

// NewOpenAIService creates a completion service. Retries are handled here with
// exponential backoff rather than by resty.
func NewOpenAIService(cfg OpenAIConfig, logger *zap.Logger) *OpenAIService {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &OpenAIService{client: client, cfg: cfg, logger: logger}
}

// Complete sends one temperature 0, JSON only chat completion.
func (s *OpenAIService) Complete(ctx context.Context, req contract.CompletionRequest) (string, error) {
	body := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature:    0,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	var content string
	attempt := 0
	operation := func() error {
		attempt++
		var out chatResponse
		resp, err := s.client.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&out).
			SetError(&out).
			Post("/chat/completions")
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("completion request failed: %w", err)
		}

		if resp.IsError() {
			msg := strings.TrimSpace(resp.String())
			if out.Error != nil && out.Error.Message != "" {
				msg = out.Error.Message
			}
			statusErr := fmt.Errorf("completion API returned status %d: %s", resp.StatusCode(), msg)
			if isTransientStatus(resp.StatusCode()) {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		if out.Error != nil {
			return backoff.Permanent(fmt.Errorf("completion API error: %s", out.Error.Message))
		}
		if len(out.Choices) == 0 {
			return backoff.Permanent(errors.New("completion API returned no choices"))
		}
		content = out.Choices[0].Message.Content
		return nil
	}

	b := backoff.NewExponentialBackOff()
	if s.cfg.InitialInterval > 0 {
		b.InitialInterval = s.cfg.InitialInterval
	}
	if s.cfg.MaxInterval > 0 {
		b.MaxInterval = s.cfg.MaxInterval
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(s.cfg.MaxRetries, 0))), ctx)

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("retrying completion request",
			zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return "", err
	}

	s.logger.Debug("completion received", zap.String("model", req.Model), zap.Int("attempts", attempt), zap.Int("length", len(content)))
	return content, nil
}

// isTransientStatus reports whether a response status is worth retrying.
func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
