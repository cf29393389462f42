package code_analyzer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/meysamhadeli/repoaudit/code_analyzer/models"
	"github.com/meysamhadeli/repoaudit/utils"
)

func writeFile(t testing.TB, root, relativePath string, content []byte) {
	path := filepath.Join(root, filepath.FromSlash(relativePath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func defaultSelectorConfig() models.SelectorConfig {
	return models.SelectorConfig{
		AllowedExtensions: utils.DefaultAllowedExtensions,
		DeniedDirs:        utils.DefaultDeniedDirs,
		MaxFileSize:       100 * 1024,
		RespectGitignore:  true,
	}
}

func candidatePaths(candidates []models.FileCandidate) []string {
	paths := make([]string, 0, len(candidates))
	for _, c := range candidates {
		paths = append(paths, c.RelativePath)
	}
	return paths
}

func reasons(warnings []models.Warning) map[string]models.SkipReason {
	result := make(map[string]models.SkipReason, len(warnings))
	for _, w := range warnings {
		result[w.Path] = w.Reason
	}
	return result
}

func TestSelector_AppliesPolicy(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", []byte("package main\n"))
	writeFile(t, root, "app/server.py", []byte("print('hi')\n"))
	writeFile(t, root, "README.md", []byte("# readme\n"))
	writeFile(t, root, "node_modules/lib/index.js", []byte("module.exports = {}\n"))
	writeFile(t, root, ".git/config", []byte("[core]\n"))
	writeFile(t, root, "huge.js", []byte(strings.Repeat("a", 200*1024)))
	writeFile(t, root, "image.c", []byte{0x7f, 'E', 'L', 'F', 0x00, 0x01, 0x02})

	selector := NewSelector(defaultSelectorConfig(), nil)
	candidates, warnings, err := selector.Candidates(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"app/server.py", "main.go"}, candidatePaths(candidates))

	skipped := reasons(warnings)
	assert.Equal(t, models.SkipExtension, skipped["README.md"])
	assert.Equal(t, models.SkipDeniedDirectory, skipped["node_modules"])
	assert.Equal(t, models.SkipDeniedDirectory, skipped[".git"])
	assert.Equal(t, models.SkipTooLarge, skipped["huge.js"])
	assert.Equal(t, models.SkipBinary, skipped["image.c"])
	assert.NotContains(t, skipped, "node_modules/lib/index.js")
}

func TestSelector_CandidateMetadata(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/util.go", []byte("package pkg\n"))

	candidates, _, err := NewSelector(defaultSelectorConfig(), nil).Candidates(root)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Equal(t, "pkg/util.go", candidates[0].RelativePath)
	assert.Equal(t, int64(len("package pkg\n")), candidates[0].Size)
	assert.False(t, candidates[0].Binary)
	assert.Equal(t, filepath.Join(root, "pkg", "util.go"), candidates[0].AbsolutePath)
}

func TestSelector_BinaryCandidateIsFlagged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "blob.js", []byte("abc\x00def"))

	var binary *models.Selection
	for sel, err := range NewSelector(defaultSelectorConfig(), nil).Walk(root) {
		require.NoError(t, err)
		if sel.Candidate.RelativePath == "blob.js" {
			binary = &sel
		}
	}
	require.NotNil(t, binary)
	assert.False(t, binary.Accepted())
	assert.True(t, binary.Candidate.Binary)
	assert.Equal(t, models.SkipBinary, binary.Warning.Reason)
}

func TestSelector_Gitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", []byte("# generated\ngen/\n*.min.js\n!keep.min.js\n"))
	writeFile(t, root, "gen/schema.go", []byte("package gen\n"))
	writeFile(t, root, "web/app.min.js", []byte("x()\n"))
	writeFile(t, root, "web/app.js", []byte("x()\n"))

	cfg := defaultSelectorConfig()
	candidates, warnings, err := NewSelector(cfg, nil).Candidates(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"web/app.js"}, candidatePaths(candidates))
	assert.Equal(t, models.SkipGitignored, reasons(warnings)["gen"])
	assert.Equal(t, models.SkipGitignored, reasons(warnings)["web/app.min.js"])

	cfg.RespectGitignore = false
	candidates, _, err = NewSelector(cfg, nil).Candidates(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"gen/schema.go", "web/app.js", "web/app.min.js"}, candidatePaths(candidates))
}

func TestSelector_MinFileSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "tiny.go", []byte("package a\n"))
	writeFile(t, root, "big.go", []byte("package a\n"+strings.Repeat("// filler\n", 50)))

	cfg := defaultSelectorConfig()
	cfg.MinFileSize = 300
	candidates, warnings, err := NewSelector(cfg, nil).Candidates(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"big.go"}, candidatePaths(candidates))
	assert.Equal(t, models.SkipTooSmall, reasons(warnings)["tiny.go"])
}

func TestSelector_ExtensionsAreCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Legacy.JAVA", []byte("class Legacy {}\n"))

	cfg := defaultSelectorConfig()
	cfg.AllowedExtensions = []string{"java"}
	candidates, _, err := NewSelector(cfg, nil).Candidates(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"Legacy.JAVA"}, candidatePaths(candidates))
}

func TestSelector_SymlinksAreNotFollowed(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, outside, "secret.go", []byte("package secret\n"))
	if err := os.Symlink(filepath.Join(outside, "secret.go"), filepath.Join(root, "link.go")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	candidates, warnings, err := NewSelector(defaultSelectorConfig(), nil).Candidates(root)
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Equal(t, models.SkipNotRegular, reasons(warnings)["link.go"])
}

func TestSelector_WalkStopsEarly(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.go", "b.go", "c.go"} {
		writeFile(t, root, name, []byte("package x\n"))
	}

	var seen []string
	for sel, err := range NewSelector(defaultSelectorConfig(), nil).Walk(root) {
		require.NoError(t, err)
		seen = append(seen, sel.Candidate.RelativePath)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a.go", "b.go"}, seen)
}

func TestSelector_MissingRoot(t *testing.T) {
	_, _, err := NewSelector(defaultSelectorConfig(), nil).Candidates(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestIsBinaryContent(t *testing.T) {
	assert.False(t, IsBinaryContent(nil))
	assert.False(t, IsBinaryContent([]byte("func main() {}\n")))
	assert.False(t, IsBinaryContent([]byte("héllo wörld, ünïcode\n")))
	assert.True(t, IsBinaryContent([]byte("text\x00more")))
	assert.True(t, IsBinaryContent([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")))
}

func TestSelector_DeterministicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		root, err := os.MkdirTemp("", "selector-prop")
		if err != nil {
			t.Fatal(err)
		}
		defer os.RemoveAll(root)

		names := rapid.SliceOfNDistinct(
			rapid.StringMatching(`[a-z]{1,6}(/[a-z]{1,6}){0,2}\.(go|py|md|js)`),
			1, 12, rapid.ID[string],
		).Draw(t, "names")
		for _, name := range names {
			path := filepath.Join(root, filepath.FromSlash(name))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				t.Fatal(err)
			}
			// A path may already exist as a directory created for another name.
			_ = os.WriteFile(path, []byte("x = 1\n"), 0o644)
		}

		selector := NewSelector(defaultSelectorConfig(), nil)
		first, firstWarnings, err := selector.Candidates(root)
		if err != nil {
			t.Fatal(err)
		}
		second, secondWarnings, err := selector.Candidates(root)
		if err != nil {
			t.Fatal(err)
		}

		if !assert.ObjectsAreEqual(first, second) || !assert.ObjectsAreEqual(firstWarnings, secondWarnings) {
			t.Fatalf("walks differ: %v vs %v", candidatePaths(first), candidatePaths(second))
		}
		paths := candidatePaths(first)
		for i := 1; i < len(paths); i++ {
			if !lexicallyBefore(paths[i-1], paths[i]) {
				t.Fatalf("out of order: %q before %q", paths[i-1], paths[i])
			}
		}
	})
}

// lexicallyBefore compares paths the way WalkDir orders them: component by
// component.
func lexicallyBefore(a, b string) bool {
	pa, pb := strings.Split(a, "/"), strings.Split(b, "/")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			return pa[i] < pb[i]
		}
	}
	return len(pa) < len(pb)
}
