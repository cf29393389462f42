package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"slices"
	"strings"
)

// GitOperations wraps the git binary.
type GitOperations struct {
	binary string
	env    []string
}

// NewGitOperations creates a new GitOperations instance using git from PATH.
func NewGitOperations() *GitOperations {
	return &GitOperations{binary: "git", env: os.Environ()}
}

// CloneOptions describes a shallow clone.
type CloneOptions struct {
	URL         string
	Revision    string
	Destination string
	Token       string
	Depth       int
}

// GitError carries the failing subcommand and its scrubbed stderr.
type GitError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *GitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.Args, " "), e.Err, msg)
}

func (e *GitError) Unwrap() error { return e.Err }

// commitID matches revisions that name a commit rather than a branch or tag.
var commitID = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)

// Clone runs `git clone --depth N [--branch rev] url dest`. Revisions that
// look like commit hashes cannot be passed to --branch, so they are fetched
// into a fresh repository and checked out detached instead. The token is sent
// as an http.extraHeader through the environment so it never appears in the
// process arguments or in the cloned repository's config.
func (g *GitOperations) Clone(ctx context.Context, opts CloneOptions) error {
	depth := opts.Depth
	if depth <= 0 {
		depth = 1
	}
	if commitID.MatchString(opts.Revision) {
		return g.cloneCommit(ctx, opts, depth)
	}

	args := []string{"clone", "--quiet", "--single-branch", fmt.Sprintf("--depth=%d", depth)}
	if opts.Revision != "" {
		args = append(args, "--branch", opts.Revision)
	}
	args = append(args, "--", opts.URL, opts.Destination)
	return g.run(ctx, "", opts, []string{"clone", RedactURL(opts.URL)}, args...)
}

// cloneCommit checks out a single commit. A full hash is first fetched
// shallowly by id; servers that refuse to serve unadvertised objects, and
// abbreviated hashes, fall back to fetching every branch and tag.
func (g *GitOperations) cloneCommit(ctx context.Context, opts CloneOptions, depth int) error {
	dest := opts.Destination
	if err := g.run(ctx, "", opts, []string{"init"}, "init", "--quiet", "--", dest); err != nil {
		return err
	}

	fetchLabel := []string{"fetch", RedactURL(opts.URL)}
	if len(opts.Revision) == 40 {
		err := g.run(ctx, dest, opts, fetchLabel, "fetch", "--quiet", fmt.Sprintf("--depth=%d", depth), "--", opts.URL, opts.Revision)
		if err == nil {
			return g.run(ctx, dest, opts, []string{"checkout", opts.Revision}, "checkout", "--quiet", "--detach", "FETCH_HEAD")
		}
		if ctx.Err() != nil {
			return err
		}
	}

	if err := g.run(ctx, dest, opts, fetchLabel, "fetch", "--quiet", "--", opts.URL,
		"+refs/heads/*:refs/remotes/origin/*", "+refs/tags/*:refs/tags/*"); err != nil {
		return err
	}
	return g.run(ctx, dest, opts, []string{"checkout", opts.Revision}, "checkout", "--quiet", "--detach", opts.Revision+"^{commit}")
}

// run executes one git subcommand in dir. label replaces the arguments in
// errors so that URLs and tokens stay out of them.
func (g *GitOperations) run(ctx context.Context, dir string, opts CloneOptions, label []string, args ...string) error {
	cmd := exec.CommandContext(ctx, g.binary, args...)
	cmd.Dir = dir
	cmd.Env = append(slices.Clone(g.env), "GIT_TERMINAL_PROMPT=0", "GIT_ASKPASS=", "SSH_ASKPASS=")
	if opts.Token != "" {
		cmd.Env = append(cmd.Env, authHeaderEnv(opts.Token)...)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &GitError{
			Args:   label,
			Stderr: ScrubSecret(stderr.String(), opts.Token),
			Err:    err,
		}
	}
	return nil
}

// HeadRevision returns the commit hash checked out in dir.
func (g *GitOperations) HeadRevision(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, g.binary, "rev-parse", "HEAD")
	cmd.Dir = dir
	cmd.Env = g.env
	output, err := cmd.Output()
	if err != nil {
		return "", &GitError{Args: []string{"rev-parse", "HEAD"}, Err: err}
	}
	return strings.TrimSpace(string(output)), nil
}

func authHeaderEnv(token string) []string {
	return []string{
		"GIT_CONFIG_COUNT=1",
		"GIT_CONFIG_KEY_0=http.extraHeader",
		"GIT_CONFIG_VALUE_0=Authorization: Basic " + basicAuth(token),
	}
}

func basicAuth(token string) string {
	return base64.StdEncoding.EncodeToString([]byte("x-access-token:" + token))
}

// ScrubSecret removes every occurrence of token, and of its basic-auth
// encoding, from s.
func ScrubSecret(s, token string) string {
	if token == "" {
		return s
	}
	s = strings.ReplaceAll(s, basicAuth(token), "[redacted]")
	return strings.ReplaceAll(s, token, "[redacted]")
}

// RedactURL drops any userinfo from a URL so it can be logged.
func RedactURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	host, path, _ := strings.Cut(rest, "/")
	if at := strings.LastIndex(host, "@"); at >= 0 {
		host = "[redacted]@" + host[at+1:]
	}
	if path == "" && !strings.Contains(rest, "/") {
		return scheme + "://" + host
	}
	return scheme + "://" + host + "/" + path
}
