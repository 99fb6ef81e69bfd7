package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(url string) OpenAIConfig {
	return OpenAIConfig{
		BaseURL:         url,
		APIKey:          "test-key",
		Timeout:         5 * time.Second,
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func writeCompletion(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	})
}

func TestOpenAIServiceComplete(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(t, w, validJudgment)
	}))
	defer server.Close()

	svc := NewOpenAIService(testConfig(server.URL), zap.NewNop())
	out, err := svc.Complete(context.Background(), contract.CompletionRequest{
		Model:        "gpt-4o-mini",
		SystemPrompt: "system",
		UserPrompt:   "user",
	})
	require.NoError(t, err)
	assert.JSONEq(t, validJudgment, out)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, float64(0), got.Temperature)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "system"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "user"}, got.Messages[1])
}

func TestOpenAIServiceSendsTemperatureZero(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		writeCompletion(t, w, "{}")
	}))
	defer server.Close()

	_, err := NewOpenAIService(testConfig(server.URL), nil).Complete(context.Background(), contract.CompletionRequest{Model: "m"})
	require.NoError(t, err)
	temp, ok := raw["temperature"]
	require.True(t, ok, "temperature must always be sent")
	assert.Equal(t, float64(0), temp)
}

func TestOpenAIServiceRetriesTransientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"rate limited", http.StatusTooManyRequests},
		{"server error", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if calls.Add(1) < 3 {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"requests"}}`))
					return
				}
				writeCompletion(t, w, "{}")
			}))
			defer server.Close()

			out, err := NewOpenAIService(testConfig(server.URL), nil).Complete(context.Background(), contract.CompletionRequest{Model: "m"})
			require.NoError(t, err)
			assert.Equal(t, "{}", out)
			assert.Equal(t, int32(3), calls.Load())
		})
	}
}

func TestOpenAIServiceGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewOpenAIService(testConfig(server.URL), nil).Complete(context.Background(), contract.CompletionRequest{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
}

func TestOpenAIServicePermanentErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		contains string
	}{
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
			},
			contains: "bad key",
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
			contains: "no choices",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			}))
			defer server.Close()

			_, err := NewOpenAIService(testConfig(server.URL), nil).Complete(context.Background(), contract.CompletionRequest{Model: "m"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Equal(t, int32(1), calls.Load(), "permanent errors are not retried")
		})
	}
}

func TestOpenAIServiceCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeCompletion(t, w, "{}")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOpenAIService(testConfig(server.URL), nil).Complete(ctx, contract.CompletionRequest{Model: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientJudge(t *testing.T) {
	svc := new(MockCompletionService)
	req := contract.CompletionRequest{Model: "gpt-4o-mini", SystemPrompt: "sys", UserPrompt: "usr"}
	svc.On("Complete", context.Background(), req).Return(validJudgment, nil).Once()

	c := NewClient(svc, "gpt-4o-mini", nil)
	result, err := c.Judge(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, "AUTH", result.Judgment.PrimaryComponentKey)
	assert.Equal(t, "gpt-4o-mini", result.Model)
	assert.False(t, result.Cached)
	assert.NotEmpty(t, result.Raw)
	svc.AssertExpectations(t)
}

func TestClientJudgeErrors(t *testing.T) {
	svc := new(MockCompletionService)
	svc.On("Complete", context.Background(), contract.CompletionRequest{Model: "m", SystemPrompt: "s", UserPrompt: "bad"}).Return(`{"severityKey":"P1"}`, nil)
	svc.On("Complete", context.Background(), contract.CompletionRequest{Model: "m", SystemPrompt: "s", UserPrompt: "down"}).Return("", assert.AnError)

	c := NewClient(svc, "m", nil)

	_, err := c.Judge(context.Background(), "s", "bad")
	assert.ErrorIs(t, err, contract.ErrInvalidJudgment)

	_, err = c.Judge(context.Background(), "s", "down")
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, contract.ErrInvalidJudgment)
}
