package code_analyzer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/meysamhadeli/repoaudit/code_analyzer/models"
)

// ErrSelection marks failures raised while walking the tree, as opposed to
// failures reading the selected files.
var ErrSelection = errors.New("file selection failed")

// Aggregator reads selected files into a budget-bounded document.
type Aggregator struct {
	budget   int
	maxFiles int
	logger   *slog.Logger
}

// NewAggregator builds an aggregator. The budget is counted in characters.
func NewAggregator(cfg models.AggregatorConfig, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		budget:   cfg.Budget,
		maxFiles: cfg.MaxFiles,
		logger:   logger,
	}
}

// Aggregate consumes a selection sequence in order. Files are added whole
// while they fit; the first one that does not fit is truncated to the
// remaining budget and every later file is recorded as omitted.
func (a *Aggregator) Aggregate(ctx context.Context, selections iter.Seq2[models.Selection, error]) (*models.AggregatedDocument, error) {
	doc := models.NewAggregatedDocument(a.budget)

	for sel, err := range selections {
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSelection, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !sel.Accepted() {
			doc.Skip(*sel.Warning)
			continue
		}

		relativePath := sel.Candidate.RelativePath
		if doc.Remaining() == 0 {
			doc.Omit(relativePath)
			continue
		}
		if a.maxFiles > 0 && len(doc.Records) >= a.maxFiles {
			doc.Manifest.FileLimitReached = true
			doc.Omit(relativePath)
			continue
		}

		content, invalid, err := readText(sel.Candidate.AbsolutePath)
		if err != nil {
			doc.Skip(models.Warning{Path: relativePath, Reason: models.SkipUnreadable, Detail: err.Error()})
			continue
		}
		if doc.Add(relativePath, content) && invalid > 0 {
			doc.Warn(models.Warning{
				Path:   relativePath,
				Reason: models.WarnInvalidUTF8,
				Detail: fmt.Sprintf("%d invalid byte sequences replaced", invalid),
			})
		}
	}

	a.logger.Debug("aggregation finished",
		"included", len(doc.Manifest.Included),
		"truncated", len(doc.Manifest.Truncated),
		"omitted", len(doc.Manifest.Omitted),
		"skipped", len(doc.Manifest.Skipped),
		"consumed", doc.Manifest.Consumed,
		"budget", doc.Manifest.Budget)

	return doc, nil
}

// readText reads a file as UTF-8. Invalid byte sequences are replaced with
// U+FFFD so that character counting and truncation stay well defined; the
// number of replaced sequences is returned alongside the text.
func readText(path string) (string, int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read file: %w", err)
	}
	if utf8.Valid(content) {
		return string(content), 0, nil
	}

	var b strings.Builder
	b.Grow(len(content))
	invalid := 0
	for len(content) > 0 {
		r, size := utf8.DecodeRune(content)
		if r == utf8.RuneError && size <= 1 {
			invalid++
		}
		b.WriteRune(r)
		content = content[size:]
	}
	return b.String(), invalid, nil
}
