package judge

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
	"go.uber.org/zap"
)

// currentCacheVersion defines the version of the cached judgment payload
const currentCacheVersion = 1

// cacheMaxAge bounds how long a cached judgment is reused.
const cacheMaxAge = 30 * 24 * time.Hour

// CachedJudge answers repeated prompts from a cache store.
type CachedJudge struct {
	next   contract.Judge
	cache  contract.CacheStore
	model  string
	logger *zap.Logger
	now    func() time.Time
}

var _ contract.Judge = &CachedJudge{} // Compile-time check

// NewCachedJudge wraps next. A nil cache disables caching.
func NewCachedJudge(next contract.Judge, cache contract.CacheStore, model string, logger *zap.Logger) *CachedJudge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedJudge{next: next, cache: cache, model: model, logger: logger, now: time.Now}
}

// CacheKey hashes everything that determines a judgment.
func CacheKey(model, systemPrompt, userPrompt string) string {
	h := xxhash.New()
	_, _ = h.WriteString(model)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(systemPrompt)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(userPrompt)
	return fmt.Sprintf("%016x", h.Sum64())
}

// Judge implements contract.Judge.
func (c *CachedJudge) Judge(ctx context.Context, systemPrompt, userPrompt string) (*schema.JudgmentResult, error) {
	if c.cache == nil {
		return c.next.Judge(ctx, systemPrompt, userPrompt)
	}

	key := CacheKey(c.model, systemPrompt, userPrompt)
	if result := c.checkCacheHit(key); result != nil {
		c.logger.Debug("judgment cache hit", zap.String("key", key))
		return result, nil
	}

	result, err := c.next.Judge(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(key, result.Raw, currentCacheVersion, c.now().Unix()); err != nil {
		c.logger.Warn("failed to cache judgment", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

// checkCacheHit returns nil on a miss, a stale entry or an unreadable payload.
func (c *CachedJudge) checkCacheHit(key string) *schema.JudgmentResult {
	data, version, ts, err := c.cache.Get(key)
	if err != nil || version != currentCacheVersion {
		return nil
	}
	if c.now().Sub(time.Unix(ts, 0)) > cacheMaxAge {
		return nil
	}
	j, raw, err := ParseJudgment(data)
	if err != nil {
		c.logger.Warn("discarding unreadable cached judgment", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &schema.JudgmentResult{Judgment: *j, Raw: raw, Model: c.model, Cached: true}
}
