package judge

import (
	"context"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
	"github.com/stretchr/testify/mock"
)

// MockJudge is a mock implementation of Judge for testing.
type MockJudge struct {
	mock.Mock
}

var _ contract.Judge = &MockJudge{} // Compile-time check

// Judge implements the Judge interface.
func (m *MockJudge) Judge(ctx context.Context, systemPrompt, userPrompt string) (*schema.JudgmentResult, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	result, _ := args.Get(0).(*schema.JudgmentResult)
	return result, args.Error(1)
}

// MockCompletionService is a mock implementation of CompletionService for testing.
type MockCompletionService struct {
	mock.Mock
}

var _ contract.CompletionService = &MockCompletionService{} // Compile-time check

// Complete implements the CompletionService interface.
func (m *MockCompletionService) Complete(ctx context.Context, req contract.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
