package code_analyzer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/meysamhadeli/repoaudit/code_analyzer/models"
	"github.com/meysamhadeli/repoaudit/utils"
)

// binarySniffSize is how much of a file is inspected for binary content.
const binarySniffSize = 8 * 1024

// Selector decides which files of a snapshot are read.
type Selector struct {
	extensions       map[string]struct{}
	deniedDirs       map[string]struct{}
	maxFileSize      int64
	minFileSize      int64
	respectGitignore bool
	logger           *slog.Logger
}

// NewSelector builds a selector from an immutable selection policy.
func NewSelector(cfg models.SelectorConfig, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		extensions:       utils.NormalizeExtensions(cfg.AllowedExtensions),
		deniedDirs:       utils.NormalizeDirNames(cfg.DeniedDirs),
		maxFileSize:      cfg.MaxFileSize,
		minFileSize:      cfg.MinFileSize,
		respectGitignore: cfg.RespectGitignore,
		logger:           logger,
	}
}

// Walk lazily visits root in lexical path order. Every file and every pruned
// directory produces one Selection. The sequence can be ranged over again to
// re-walk the same tree. A non-nil error ends the sequence.
func (s *Selector) Walk(root string) iter.Seq2[models.Selection, error] {
	return func(yield func(models.Selection, error) bool) {
		var patterns []string
		if s.respectGitignore {
			var err error
			if patterns, err = utils.GetGitignorePatterns(root); err != nil {
				yield(models.Selection{}, err)
				return
			}
		}

		stopped := false
		emit := func(sel models.Selection) error {
			if !yield(sel, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if path == root {
				return walkErr
			}
			relativePath := toRelative(root, path)

			if walkErr != nil {
				if err := emit(skipped(relativePath, models.SkipUnreadable, walkErr.Error())); err != nil {
					return err
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if utils.IsDeniedDir(d.Name(), s.deniedDirs) {
					s.logger.Debug("pruning denied directory", "path", relativePath)
					if err := emit(skipped(relativePath, models.SkipDeniedDirectory, "")); err != nil {
						return err
					}
					return filepath.SkipDir
				}
				if len(patterns) > 0 && utils.IsGitIgnored(relativePath+"/", patterns) {
					if err := emit(skipped(relativePath, models.SkipGitignored, "")); err != nil {
						return err
					}
					return filepath.SkipDir
				}
				return nil
			}

			return emit(s.inspect(path, relativePath, d, patterns))
		})
		if err != nil && !stopped {
			yield(models.Selection{}, fmt.Errorf("failed to walk %s: %w", root, err))
		}
	}
}

// Candidates collects a full walk.
func (s *Selector) Candidates(root string) ([]models.FileCandidate, []models.Warning, error) {
	var (
		candidates []models.FileCandidate
		warnings   []models.Warning
	)
	for sel, err := range s.Walk(root) {
		if err != nil {
			return nil, nil, err
		}
		if sel.Accepted() {
			candidates = append(candidates, sel.Candidate)
		} else {
			warnings = append(warnings, *sel.Warning)
		}
	}
	return candidates, warnings, nil
}

func (s *Selector) inspect(path, relativePath string, d fs.DirEntry, patterns []string) models.Selection {
	candidate := models.FileCandidate{RelativePath: relativePath, AbsolutePath: path}

	// Symlinks are not followed so a snapshot cannot point outside itself.
	if !d.Type().IsRegular() {
		return reject(candidate, models.SkipNotRegular, "")
	}
	if len(patterns) > 0 && utils.IsGitIgnored(relativePath, patterns) {
		return reject(candidate, models.SkipGitignored, "")
	}
	if !utils.HasAllowedExtension(relativePath, s.extensions) {
		return reject(candidate, models.SkipExtension, "")
	}

	info, err := d.Info()
	if err != nil {
		return reject(candidate, models.SkipUnreadable, err.Error())
	}
	candidate.Size = info.Size()
	if s.maxFileSize > 0 && candidate.Size > s.maxFileSize {
		return reject(candidate, models.SkipTooLarge, fmt.Sprintf("%d bytes exceeds %d", candidate.Size, s.maxFileSize))
	}
	if candidate.Size < s.minFileSize {
		return reject(candidate, models.SkipTooSmall, fmt.Sprintf("%d bytes below %d", candidate.Size, s.minFileSize))
	}

	binary, err := isBinaryFile(path)
	if err != nil {
		return reject(candidate, models.SkipUnreadable, err.Error())
	}
	candidate.Binary = binary
	if binary {
		return reject(candidate, models.SkipBinary, "")
	}

	return models.Selection{Candidate: candidate}
}

// isBinaryFile sniffs the head of a file: any NUL byte, or a detected type
// outside the text/plain family, marks it binary.
func isBinaryFile(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	head := make([]byte, binarySniffSize)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return IsBinaryContent(head[:n]), nil
}

// IsBinaryContent applies the binary heuristic to a content prefix.
func IsBinaryContent(head []byte) bool {
	if len(head) == 0 {
		return false
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	for mtype := mimetype.Detect(head); mtype != nil; mtype = mtype.Parent() {
		if mtype.Is("text/plain") {
			return false
		}
	}
	return true
}

func toRelative(root, path string) string {
	relativePath, err := filepath.Rel(root, path)
	if err != nil {
		relativePath = path
	}
	return strings.ReplaceAll(filepath.ToSlash(relativePath), "\\", "/")
}

func skipped(relativePath string, reason models.SkipReason, detail string) models.Selection {
	return reject(models.FileCandidate{RelativePath: relativePath}, reason, detail)
}

func reject(candidate models.FileCandidate, reason models.SkipReason, detail string) models.Selection {
	return models.Selection{
		Candidate: candidate,
		Warning:   &models.Warning{Path: candidate.RelativePath, Reason: reason, Detail: detail},
	}
}
