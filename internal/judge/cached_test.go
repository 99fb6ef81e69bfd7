package judge

import (
	"context"
	"testing"
	"time"

	"github.com/huangsam/prscore/internal/store"
	"github.com/huangsam/prscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func judgedResult(t *testing.T) *schema.JudgmentResult {
	t.Helper()
	j, raw, err := ParseJudgment([]byte(validJudgment))
	require.NoError(t, err)
	return &schema.JudgmentResult{Judgment: *j, Raw: raw, Model: "m"}
}

func TestCacheKey(t *testing.T) {
	base := CacheKey("m", "sys", "usr")
	assert.Len(t, base, 16)
	assert.Equal(t, base, CacheKey("m", "sys", "usr"))
	assert.NotEqual(t, base, CacheKey("m2", "sys", "usr"))
	assert.NotEqual(t, base, CacheKey("m", "sys", "usr2"))
	// Field boundaries are part of the key
	assert.NotEqual(t, CacheKey("m", "ab", "c"), CacheKey("m", "a", "bc"))
}

func TestCachedJudgeWithSQLiteCache(t *testing.T) {
	cache, err := store.NewCacheStore(store.JudgmentCacheTable, schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = cache.Close() }()

	next := new(MockJudge)
	next.On("Judge", mock.Anything, "sys", "usr").Return(judgedResult(t), nil).Once()

	cj := NewCachedJudge(next, cache, "m", nil)

	first, err := cj.Judge(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := cj.Judge(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Judgment, second.Judgment)
	assert.JSONEq(t, string(first.Raw), string(second.Raw))

	next.AssertExpectations(t)
}

func TestCachedJudgeStaleEntry(t *testing.T) {
	cache, err := store.NewCacheStore(store.JudgmentCacheTable, schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = cache.Close() }()

	result := judgedResult(t)
	key := CacheKey("m", "sys", "usr")
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, cache.Set(key, result.Raw, currentCacheVersion, old.Unix()))

	next := new(MockJudge)
	next.On("Judge", mock.Anything, "sys", "usr").Return(result, nil).Once()

	cj := NewCachedJudge(next, cache, "m", nil)
	cj.now = func() time.Time { return old.Add(cacheMaxAge + time.Hour) }

	got, err := cj.Judge(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.False(t, got.Cached)
	next.AssertExpectations(t)
}

func TestCachedJudgeVersionMismatchAndErrors(t *testing.T) {
	result := judgedResult(t)
	key := CacheKey("m", "sys", "usr")

	cache := new(store.MockCacheStore)
	cache.On("Get", key).Return([]byte(result.Raw), currentCacheVersion+1, time.Now().Unix(), nil)
	cache.On("Set", key, []byte(result.Raw), currentCacheVersion, mock.AnythingOfType("int64")).Return(assert.AnError)

	next := new(MockJudge)
	next.On("Judge", mock.Anything, "sys", "usr").Return(result, nil).Once()

	cj := NewCachedJudge(next, cache, "m", nil)
	got, err := cj.Judge(context.Background(), "sys", "usr")
	require.NoError(t, err, "cache write failures are not fatal")
	assert.False(t, got.Cached)

	cache.AssertExpectations(t)
	next.AssertExpectations(t)
}

func TestCachedJudgeDoesNotCacheFailures(t *testing.T) {
	cache, err := store.NewCacheStore(store.JudgmentCacheTable, schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = cache.Close() }()

	next := new(MockJudge)
	next.On("Judge", mock.Anything, "sys", "usr").Return(nil, assert.AnError).Twice()

	cj := NewCachedJudge(next, cache, "m", nil)
	for range 2 {
		_, err := cj.Judge(context.Background(), "sys", "usr")
		assert.ErrorIs(t, err, assert.AnError)
	}
	next.AssertExpectations(t)
}

func TestCachedJudgeWithoutCache(t *testing.T) {
	next := new(MockJudge)
	next.On("Judge", mock.Anything, "sys", "usr").Return(judgedResult(t), nil).Twice()

	cj := NewCachedJudge(next, nil, "m", nil)
	for range 2 {
		_, err := cj.Judge(context.Background(), "sys", "usr")
		require.NoError(t, err)
	}
	next.AssertExpectations(t)
}
