package source_acquirer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/meysamhadeli/repoaudit/utils"
)

// RepositoryReference names the source to audit. LocalPath, when set, is
// used as is and never deleted.
type RepositoryReference struct {
	URL       string `json:"url"`
	Revision  string `json:"revision,omitempty"`
	LocalPath string `json:"-"`
}

// Cloner fetches url into dest.
type Cloner interface {
	Clone(ctx context.Context, url string, cred Credential, dest, revision string) error
}

type revisionResolver interface {
	HeadRevision(ctx context.Context, dir string) (string, error)
}

// Snapshot is a checked-out working tree. Release removes it if the acquirer
// created it; calling Release more than once is safe.
type Snapshot struct {
	Root     string
	Origin   string
	Revision string

	owned   bool
	once    sync.Once
	release func() error
	err     error
}

// Release deletes the snapshot directory when it is owned.
func (s *Snapshot) Release() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		if s.owned && s.release != nil {
			s.err = s.release()
		}
	})
	return s.err
}

// Owned reports whether Release deletes Root.
func (s *Snapshot) Owned() bool { return s.owned }

// Acquirer produces snapshots from repository references.
type Acquirer struct {
	// CloneTimeout bounds a single clone; zero means no limit beyond ctx.
	CloneTimeout time.Duration

	cloner  Cloner
	tempDir string
	logger  *slog.Logger
}

// NewAcquirer builds an acquirer. tempDir is the parent for clone
// directories; empty means os.TempDir.
func NewAcquirer(cloner Cloner, tempDir string, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{cloner: cloner, tempDir: tempDir, logger: logger}
}

var scpLike = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+:[^/].*$`)

// Acquire materialises ref. The credential is passed to the cloner and not
// kept anywhere else.
func (a *Acquirer) Acquire(ctx context.Context, ref RepositoryReference, cred Credential) (*Snapshot, error) {
	if ref.LocalPath != "" {
		return a.local(ref)
	}

	origin := utils.RedactURL(ref.URL)
	if err := ValidateURL(ref.URL); err != nil {
		return nil, &AcquisitionError{Kind: ErrInvalidReference, URL: origin, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &AcquisitionError{Kind: ErrNetwork, URL: origin, Err: err}
	}

	dir, err := os.MkdirTemp(a.tempDir, "repoaudit-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	a.logger.Debug("cloning repository", "url", origin, "revision", ref.Revision, "authenticated", !cred.Empty())
	cloneCtx := ctx
	if a.CloneTimeout > 0 {
		var cancel context.CancelFunc
		cloneCtx, cancel = context.WithTimeout(ctx, a.CloneTimeout)
		defer cancel()
	}
	if err := a.cloner.Clone(cloneCtx, ref.URL, cred, dir, ref.Revision); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			a.logger.Warn("failed to remove snapshot directory", "dir", dir, "error", rmErr)
		}
		var acqErr *AcquisitionError
		if errors.As(err, &acqErr) {
			return nil, err
		}
		return nil, &AcquisitionError{Kind: Classify(err), URL: origin, Err: err}
	}

	revision := ref.Revision
	if resolver, ok := a.cloner.(revisionResolver); ok {
		if head, err := resolver.HeadRevision(ctx, dir); err == nil {
			revision = head
		} else {
			a.logger.Debug("could not resolve checked out revision", "error", err)
		}
	}

	return &Snapshot{
		Root:     dir,
		Origin:   origin,
		Revision: revision,
		owned:    true,
		release:  func() error { return os.RemoveAll(dir) },
	}, nil
}

func (a *Acquirer) local(ref RepositoryReference) (*Snapshot, error) {
	root, err := filepath.Abs(ref.LocalPath)
	if err != nil {
		return nil, &AcquisitionError{Kind: ErrInvalidReference, URL: ref.LocalPath, Err: err}
	}
	// WalkDir does not descend into a symlinked root.
	if root, err = filepath.EvalSymlinks(root); err != nil {
		return nil, &AcquisitionError{Kind: ErrNotFound, URL: ref.LocalPath, Err: err}
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, &AcquisitionError{Kind: ErrNotFound, URL: ref.LocalPath, Err: err}
	}
	if !info.IsDir() {
		return nil, &AcquisitionError{Kind: ErrNotFound, URL: ref.LocalPath, Err: errors.New("not a directory")}
	}
	return &Snapshot{Root: root, Origin: root, Revision: ref.Revision}, nil
}

// ValidateURL accepts http(s), ssh, git and scp-like remote references.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("empty url")
	}
	if strings.HasPrefix(raw, "-") {
		return errors.New("url must not start with '-'")
	}
	if scpLike.MatchString(raw) {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https", "ssh", "git":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// Host returns the lowercase host of a remote reference, or "" if none.
func Host(raw string) string {
	if scpLike.MatchString(raw) {
		_, rest, _ := strings.Cut(raw, "@")
		host, _, _ := strings.Cut(rest, ":")
		return strings.ToLower(host)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

var (
	authMarkers = []string{
		"authentication failed",
		"could not read username",
		"could not read password",
		"permission denied",
		"invalid username or password",
		"terminal prompts disabled",
		"403",
		"401",
	}
	notFoundMarkers = []string{
		"repository not found",
		"not found",
		"does not appear to be a git repository",
		"could not find remote branch",
		"remote branch",
		"invalid reference",
		"reference is not a tree",
		"404",
	}
)

// Classify maps a clone failure to an acquisition kind using git's stderr.
// Anything unrecognised is reported as a network failure.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrNetwork
	}
	msg := strings.ToLower(err.Error())
	var gitErr *utils.GitError
	if errors.As(err, &gitErr) {
		msg = strings.ToLower(gitErr.Stderr)
	}
	for _, marker := range authMarkers {
		if strings.Contains(msg, marker) {
			return ErrAuth
		}
	}
	for _, marker := range notFoundMarkers {
		if strings.Contains(msg, marker) {
			return ErrNotFound
		}
	}
	return ErrNetwork
}

// GitCloner clones with the git binary.
type GitCloner struct {
	git *utils.GitOperations
}

// NewGitCloner returns a Cloner backed by git.
func NewGitCloner() *GitCloner {
	return &GitCloner{git: utils.NewGitOperations()}
}

func (c *GitCloner) Clone(ctx context.Context, url string, cred Credential, dest, revision string) error {
	return c.git.Clone(ctx, utils.CloneOptions{
		URL:         url,
		Revision:    revision,
		Destination: dest,
		Token:       cred.Secret(),
		Depth:       1,
	})
}

func (c *GitCloner) HeadRevision(ctx context.Context, dir string) (string, error) {
	return c.git.HeadRevision(ctx, dir)
}
