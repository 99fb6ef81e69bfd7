package judge

import (
	"context"
	"fmt"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
	"go.uber.org/zap"
)

// Client turns rendered prompts into validated judgments.
type Client struct {
	service contract.CompletionService
	model   string
	logger  *zap.Logger
}

var _ contract.Judge = &Client{} // Compile-time check

// NewClient wraps a completion service for one model.
func NewClient(service contract.CompletionService, model string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{service: service, model: model, logger: logger}
}

// Judge completes the prompt and validates the response. Validation failures
// wrap contract.ErrInvalidJudgment.
func (c *Client) Judge(ctx context.Context, systemPrompt, userPrompt string) (*schema.JudgmentResult, error) {
	text, err := c.service.Complete(ctx, contract.CompletionRequest{
		Model:        c.model,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete judgment: %w", err)
	}

	j, raw, err := ParseJudgment([]byte(text))
	if err != nil {
		c.logger.Warn("judgment failed validation", zap.String("model", c.model), zap.Error(err))
		return nil, err
	}
	return &schema.JudgmentResult{Judgment: *j, Raw: raw, Model: c.model}, nil
}
