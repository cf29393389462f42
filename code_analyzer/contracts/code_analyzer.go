package contracts

import (
	"context"

	"github.com/meysamhadeli/repoaudit/code_analyzer/models"
)

type ICodeAnalyzer interface {
	GetProjectFiles(ctx context.Context, rootDir string) (*models.AggregatedDocument, error)
	GeneratePrompt(doc *models.AggregatedDocument) (models.PromptPayload, error)
}
