package code_analyzer

import (
	"context"
	"log/slog"

	"github.com/meysamhadeli/repoaudit/code_analyzer/contracts"
	"github.com/meysamhadeli/repoaudit/code_analyzer/models"
)

// CodeAnalyzer turns a checked-out repository into a prompt payload.
type CodeAnalyzer struct {
	selector   *Selector
	aggregator *Aggregator
	assembler  *PromptAssembler
}

// NewCodeAnalyzer wires the selector, aggregator and prompt assembler.
func NewCodeAnalyzer(selectorConfig models.SelectorConfig, aggregatorConfig models.AggregatorConfig, templateVersion string, logger *slog.Logger) (contracts.ICodeAnalyzer, error) {
	assembler, err := NewPromptAssembler(templateVersion)
	if err != nil {
		return nil, err
	}
	return &CodeAnalyzer{
		selector:   NewSelector(selectorConfig, logger),
		aggregator: NewAggregator(aggregatorConfig, logger),
		assembler:  assembler,
	}, nil
}

// GetProjectFiles walks rootDir and aggregates the selected files.
func (analyzer *CodeAnalyzer) GetProjectFiles(ctx context.Context, rootDir string) (*models.AggregatedDocument, error) {
	return analyzer.aggregator.Aggregate(ctx, analyzer.selector.Walk(rootDir))
}

// GeneratePrompt renders the document with the configured template.
func (analyzer *CodeAnalyzer) GeneratePrompt(doc *models.AggregatedDocument) (models.PromptPayload, error) {
	return analyzer.assembler.Assemble(doc)
}
