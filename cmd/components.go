package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/smartfill/internal/autofill"
	"github.com/xkilldash9x/smartfill/internal/classify"
	"github.com/xkilldash9x/smartfill/internal/config"
	"github.com/xkilldash9x/smartfill/internal/dom"
	"github.com/xkilldash9x/smartfill/internal/llmclient"
	"github.com/xkilldash9x/smartfill/internal/observability"
	"github.com/xkilldash9x/smartfill/internal/profile"
	"github.com/xkilldash9x/smartfill/internal/resolver"
)

// newLLMClient is swapped in tests to avoid network access.
var newLLMClient = llmclient.NewClient

// newAgent wires the oracle, profile and classifier into an agent over doc.
func newAgent(ctx context.Context, cfg *config.Config, doc dom.Document, metrics *observability.Metrics, logger *zap.Logger) (*autofill.Agent, error) {
	prof, err := profile.Load(cfg.Profile().Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	logger.Debug("Profile loaded.", zap.String("path", prof.Path), zap.String("format", string(prof.Format)))

	base, err := newLLMClient(ctx, cfg.LLM(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	client, err := llmclient.NewInstrumented(base, metrics, cfg.LLM().APITimeout, logger)
	if err != nil {
		return nil, err
	}

	temperature := cfg.LLM().Temperature
	res := resolver.New(client, prof, resolver.Options{
		MaxOutputTokens: cfg.LLM().MaxTokens,
		Temperature:     &temperature,
	}, logger)

	return autofill.New(doc, res, logger,
		autofill.WithSettings(autofill.SettingsFromConfig(cfg.Autofill())),
		autofill.WithClassifier(classify.New(classify.KeywordsFromConfig(cfg.Classifier()))),
		autofill.WithMetrics(metrics),
	)
}
