package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/meysamhadeli/repoaudit/code_analyzer/models"
	"github.com/meysamhadeli/repoaudit/providers/contracts"
)

// ErrEmptyReply is returned when the stream finishes without any content.
var ErrEmptyReply = errors.New("provider returned an empty reply")

// Generator issues a single request per payload and returns the raw reply.
// It never retries.
type Generator struct {
	provider contracts.IChatAIProvider
	logger   *slog.Logger
}

// NewGenerator wraps a chat provider.
func NewGenerator(provider contracts.IChatAIProvider, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{provider: provider, logger: logger}
}

// Generate sends the payload and collects the streamed reply.
func (g *Generator) Generate(ctx context.Context, payload models.PromptPayload) (string, error) {
	start := time.Now()
	var builder strings.Builder

	for response := range g.provider.ChatCompletionRequest(ctx, payload.User, payload.System) {
		if response.Err != nil {
			return "", fmt.Errorf("failed to get AI response: %w", response.Err)
		}
		if response.Done {
			break
		}
		builder.WriteString(response.Content)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	reply := builder.String()
	if strings.TrimSpace(reply) == "" {
		return "", ErrEmptyReply
	}

	g.logger.Debug("generation finished",
		"digest", payload.Digest(),
		"reply_chars", len(reply),
		"duration_ms", time.Since(start).Milliseconds())

	return reply, nil
}
