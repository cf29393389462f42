package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/meysamhadeli/repoaudit/cache"
	"github.com/meysamhadeli/repoaudit/code_analyzer"
	contracts_analyzer "github.com/meysamhadeli/repoaudit/code_analyzer/contracts"
	"github.com/meysamhadeli/repoaudit/code_analyzer/models"
	"github.com/meysamhadeli/repoaudit/report"
	"github.com/meysamhadeli/repoaudit/source_acquirer"
	"github.com/meysamhadeli/repoaudit/token_management"
)

// Acquirer materialises a repository reference.
type Acquirer interface {
	Acquire(ctx context.Context, ref source_acquirer.RepositoryReference, cred source_acquirer.Credential) (*source_acquirer.Snapshot, error)
}

// Generator sends a payload to the text-generation collaborator.
type Generator interface {
	Generate(ctx context.Context, payload models.PromptPayload) (string, error)
}

// Result is the outcome of one audit.
type Result struct {
	Report          *report.AnalysisReport `json:"report"`
	Manifest        models.Manifest        `json:"manifest"`
	PayloadDigest   string                 `json:"payload_digest"`
	EstimatedTokens int                    `json:"estimated_tokens"`
	TemplateVersion string                 `json:"template_version"`
	Cached          bool                   `json:"cached"`
	Origin          string                 `json:"origin"`
	Revision        string                 `json:"revision,omitempty"`
}

// Preview is the outcome of a dry run: everything up to the prompt.
type Preview struct {
	Payload         models.PromptPayload `json:"-"`
	Manifest        models.Manifest      `json:"manifest"`
	PayloadDigest   string               `json:"payload_digest"`
	EstimatedTokens int                  `json:"estimated_tokens"`
	TemplateVersion string               `json:"template_version"`
	Origin          string               `json:"origin"`
	Revision        string               `json:"revision,omitempty"`
}

// Pipeline runs acquire, select, aggregate, assemble, generate and validate
// in that order.
type Pipeline struct {
	acquirer  Acquirer
	analyzer  contracts_analyzer.ICodeAnalyzer
	generator Generator
	cache     *cache.ReplyCache
	model     string
	logger    *slog.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithCache serves repeated payloads for model from the reply cache.
func WithCache(replyCache *cache.ReplyCache, model string) Option {
	return func(p *Pipeline) {
		p.cache = replyCache
		p.model = model
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New builds a pipeline. generator may be nil when only Preview is used.
func New(acquirer Acquirer, analyzer contracts_analyzer.ICodeAnalyzer, generator Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		acquirer:  acquirer,
		analyzer:  analyzer,
		generator: generator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run audits ref. The snapshot is released before Run returns, on success,
// failure and cancellation alike.
func (p *Pipeline) Run(ctx context.Context, ref source_acquirer.RepositoryReference, cred source_acquirer.Credential) (*Result, error) {
	if p.generator == nil {
		return nil, &StageError{Stage: StageGenerate, Err: errors.New("no generator configured")}
	}

	preview, err := p.Preview(ctx, ref, cred)
	if err != nil {
		return nil, err
	}

	raw, cached, err := p.generate(ctx, preview.Payload)
	if err != nil {
		return nil, &StageError{Stage: StageGenerate, Err: err}
	}

	analysis, err := report.Validate(raw)
	if err != nil {
		if cached {
			if err := p.cache.Delete(cache.Key(p.model, preview.Payload.Text())); err != nil {
				p.logger.Warn("failed to drop invalid cached reply", "error", err)
			}
		}
		return nil, &StageError{Stage: StageValidate, Err: err}
	}
	if !cached && p.cache != nil {
		if err := p.cache.Set(cache.Key(p.model, preview.Payload.Text()), p.model, raw); err != nil {
			p.logger.Warn("failed to cache reply", "error", err)
		}
	}

	p.logger.Info("audit finished",
		"origin", preview.Origin,
		"health_score", analysis.HealthScore,
		"complete", analysis.Complete,
		"cached", cached)

	return &Result{
		Report:          analysis,
		Manifest:        preview.Manifest,
		PayloadDigest:   preview.PayloadDigest,
		EstimatedTokens: preview.EstimatedTokens,
		TemplateVersion: preview.TemplateVersion,
		Cached:          cached,
		Origin:          preview.Origin,
		Revision:        preview.Revision,
	}, nil
}

// Preview runs every stage up to prompt assembly.
func (p *Pipeline) Preview(ctx context.Context, ref source_acquirer.RepositoryReference, cred source_acquirer.Credential) (*Preview, error) {
	snapshot, err := p.acquirer.Acquire(ctx, ref, cred)
	if err != nil {
		return nil, &StageError{Stage: StageAcquire, Err: err}
	}
	defer func() {
		if err := snapshot.Release(); err != nil {
			p.logger.Warn("failed to release snapshot", "root", snapshot.Root, "error", err)
		}
	}()

	doc, err := p.analyzer.GetProjectFiles(ctx, snapshot.Root)
	if err != nil {
		if errors.Is(err, code_analyzer.ErrSelection) {
			return nil, &StageError{Stage: StageSelect, Err: err}
		}
		return nil, &StageError{Stage: StageAggregate, Err: err}
	}

	payload, err := p.analyzer.GeneratePrompt(doc)
	if err != nil {
		return nil, &StageError{Stage: StageAssemble, Err: err}
	}

	estimated := token_management.EstimateTokens(len([]rune(payload.Text())))
	p.logger.Debug("prompt assembled",
		"digest", payload.Digest(),
		"version", payload.Version,
		"estimated_tokens", estimated,
		"budget_exhausted", doc.Manifest.BudgetExhausted)

	return &Preview{
		Payload:         payload,
		Manifest:        doc.Manifest,
		PayloadDigest:   payload.Digest(),
		EstimatedTokens: estimated,
		TemplateVersion: payload.Version,
		Origin:          snapshot.Origin,
		Revision:        snapshot.Revision,
	}, nil
}

func (p *Pipeline) generate(ctx context.Context, payload models.PromptPayload) (string, bool, error) {
	if p.cache == nil {
		raw, err := p.generator.Generate(ctx, payload)
		return raw, false, err
	}

	key := cache.Key(p.model, payload.Text())
	if raw, ok := p.cache.Get(key); ok {
		p.logger.Debug("reply served from cache", "digest", payload.Digest())
		return raw, true, nil
	}
	raw, err := p.generator.Generate(ctx, payload)
	return raw, false, err
}
