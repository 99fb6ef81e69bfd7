package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/huangsam/prscore/core"
	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/internal/github"
	"github.com/huangsam/prscore/internal/judge"
	"github.com/huangsam/prscore/internal/prompt"
	"github.com/huangsam/prscore/internal/store"
)

// pipeline bundles what an evaluation run needs. close releases every store it opened.
type pipeline struct {
	store        contract.Store
	cache        contract.CacheStore
	orchestrator *core.Orchestrator
}

func (p *pipeline) close() {
	if p.cache != nil {
		_ = p.cache.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}

// openStore opens the pipeline store for the validated config.
func openStore() (contract.Store, error) {
	s, err := store.NewStore(cfg.StoreBackend, cfg.StoreDBConnect)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return s, nil
}

// newSource creates the GitHub change source.
func newSource(ctx context.Context) (*github.Source, error) {
	return github.NewSource(ctx, github.Config{
		Token:   cfg.GitHubToken,
		BaseURL: cfg.GitHubBaseURL,
	}, logger)
}

// newJudge builds the judgment client chain: OpenAI transport, validating
// client and the judgment cache in front of both.
func newJudge() (contract.Judge, contract.CacheStore, error) {
	openaiCfg := judge.DefaultOpenAIConfig(cfg.JudgeAPIKey)
	openaiCfg.BaseURL = cfg.JudgeBaseURL
	openaiCfg.Timeout = cfg.JudgeTimeout
	openaiCfg.MaxRetries = cfg.JudgeMaxRetries

	service := judge.NewOpenAIService(openaiCfg, logger)
	client := judge.NewClient(service, cfg.JudgeModel, logger)

	cache, err := store.NewCacheStore(store.JudgmentCacheTable, cfg.CacheBackend, cfg.CacheDBConnect)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open judgment cache: %w", err)
	}
	return judge.NewCachedJudge(client, cache, cfg.JudgeModel, logger), cache, nil
}

// readTemplateOverride loads --prompt-template when set.
func readTemplateOverride() (string, error) {
	if cfg.PromptTemplateFile == "" {
		return "", nil
	}
	body, err := os.ReadFile(cfg.PromptTemplateFile)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template: %w", err)
	}
	return string(body), nil
}

// newPipeline opens the store and cache and wires an orchestrator over them.
func newPipeline(ctx context.Context) (*pipeline, error) {
	if err := cfg.ValidateForEvaluation(); err != nil {
		return nil, err
	}
	override, err := readTemplateOverride()
	if err != nil {
		return nil, err
	}

	p := &pipeline{}
	if p.store, err = openStore(); err != nil {
		return nil, err
	}
	j, cache, err := newJudge()
	if err != nil {
		p.close()
		return nil, err
	}
	p.cache = cache

	opts := core.DefaultOptions()
	opts.Workers = cfg.Workers
	opts.MaxItemFailures = cfg.MaxItemFailures
	opts.Model = cfg.JudgeModel
	opts.MaxPromptTokens = cfg.MaxPromptTokens
	opts.TemplateOverride = override
	opts.TokenCounter = prompt.NewTokenCounter(cfg.JudgeModel, logger)
	if cfg.CommentOnPR {
		source, err := newSource(ctx)
		if err != nil {
			p.close()
			return nil, err
		}
		opts.Commenter = source
		opts.CommentOnPR = true
	}

	p.orchestrator = core.NewOrchestrator(p.store, j, logger, opts)
	return p, nil
}

// runRequest builds the batch request from the validated config.
func runRequest() core.RunRequest {
	return core.RunRequest{
		OrganizationID: cfg.OrganizationID,
		RuleSetID:      cfg.RuleSetID,
		LookbackDays:   cfg.LookbackDays,
		RunType:        cfg.RunType,
	}
}
