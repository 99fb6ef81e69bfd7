package prompt

import (
	"unicode/utf8"

	"github.com/huangsam/prscore/internal/contract"
	tiktoken "github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// CharCounter estimates four characters per token.
type CharCounter struct{}

var _ contract.TokenCounter = CharCounter{} // Compile-time check

// Count implements contract.TokenCounter.
func (CharCounter) Count(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// Count implements contract.TokenCounter.
func (c tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// NewTokenCounter returns the model's BPE encoder, cl100k_base when the model is
// unknown, or a CharCounter when no encoding can be loaded.
func NewTokenCounter(model string, logger *zap.Logger) contract.TokenCounter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil || enc == nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil || enc == nil {
		if logger != nil {
			logger.Warn("token encoding unavailable, estimating by characters", zap.String("model", model), zap.Error(err))
		}
		return CharCounter{}
	}
	return tiktokenCounter{enc: enc}
}
