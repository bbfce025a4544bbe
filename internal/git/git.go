// Package git reads repository state for the workflows: branch status,
// uncommitted changes, divergence from the remote, and a commit message
// suggestion derived from what actually changed.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/capability"
)

// runGit executes git in the repository directory. A package variable so
// tests can substitute canned output instead of needing a real repo.
var runGit = func(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Change is one uncommitted path with its porcelain status code.
type Change struct {
	Path string
	Code string // Two-letter porcelain XY code, "??" for untracked
}

// Status aggregates the branch state the workflows report on.
type Status struct {
	Branch  string
	Ahead   int // Commits on the branch the remote base lacks
	Behind  int // Commits on the remote base the branch lacks
	Changes []Change
}

// Dirty reports whether uncommitted changes exist.
func (s Status) Dirty() bool {
	return len(s.Changes) > 0
}

// Client reads state from one repository.
type Client struct {
	repoDir string
	remote  string
	base    string
}

// New creates a git client for the repository at repoDir, comparing
// against remote/baseBranch for divergence.
func New(repoDir, remote, baseBranch string) *Client {
	if remote == "" {
		remote = "origin"
	}
	if baseBranch == "" {
		baseBranch = "main"
	}
	return &Client{repoDir: repoDir, remote: remote, base: baseBranch}
}

// Name implements capability.Capability.
func (c *Client) Name() string { return "git" }

// Kind implements capability.Capability.
func (c *Client) Kind() capability.Kind { return capability.KindGit }

// Ping verifies repoDir is inside a git work tree.
func (c *Client) Ping(ctx context.Context) error {
	_, err := runGit(ctx, c.repoDir, "rev-parse", "--git-dir")
	return err
}

// CurrentBranch returns the checked-out branch name, or "HEAD" when
// detached.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	out, err := runGit(ctx, c.repoDir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Changes lists uncommitted paths from porcelain status. Renames report
// the new path.
func (c *Client) Changes(ctx context.Context) ([]Change, error) {
	out, err := runGit(ctx, c.repoDir, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	var changes []Change
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		p := strings.TrimSpace(line[3:])
		if idx := strings.Index(p, " -> "); idx >= 0 {
			p = p[idx+4:]
		}
		p = strings.Trim(p, `"`)
		changes = append(changes, Change{Path: p, Code: code})
	}
	return changes, nil
}

// AheadBehind compares the branch against <remote>/<base>.
func (c *Client) AheadBehind(ctx context.Context) (ahead, behind int, err error) {
	ref := fmt.Sprintf("%s/%s...HEAD", c.remote, c.base)
	out, err := runGit(ctx, c.repoDir, "rev-list", "--left-right", "--count", ref)
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output %q", strings.TrimSpace(out))
	}
	behind, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parsing rev-list output %q: %w", out, err)
	}
	ahead, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parsing rev-list output %q: %w", out, err)
	}
	return ahead, behind, nil
}

// Status gathers branch, divergence and uncommitted changes in one call.
// Divergence errors (no upstream yet, offline remote) degrade to zero
// counts rather than failing the whole status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	branch, err := c.CurrentBranch(ctx)
	if err != nil {
		return Status{}, err
	}
	changes, err := c.Changes(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{Branch: branch, Changes: changes}
	if ahead, behind, err := c.AheadBehind(ctx); err == nil {
		st.Ahead, st.Behind = ahead, behind
	}
	return st, nil
}

// SuggestCommitMessage builds a conventional-commit style message from
// the uncommitted changes. The ticket, when given, lands in a trailing
// reference. Deterministic for a given working tree state.
func (c *Client) SuggestCommitMessage(ctx context.Context, ticket string) (string, error) {
	changes, err := c.Changes(ctx)
	if err != nil {
		return "", err
	}
	if len(changes) == 0 {
		return "", fmt.Errorf("working tree is clean, nothing to describe")
	}

	msg := fmt.Sprintf("%s%s: %s", commitType(changes), commitScope(changes), commitSubject(changes))
	if ticket != "" {
		msg += fmt.Sprintf("\n\nRefs: %s", ticket)
	}
	return msg, nil
}

func commitType(changes []Change) string {
	allTests, allDocs := true, true
	hasNew, hasDeleted := false, false
	for _, ch := range changes {
		p := strings.ToLower(ch.Path)
		if !strings.Contains(p, ".spec.") && !strings.Contains(p, ".test.") && !strings.Contains(p, "__tests__/") {
			allTests = false
		}
		if !strings.HasSuffix(p, ".md") {
			allDocs = false
		}
		if strings.Contains(ch.Code, "A") || ch.Code == "??" {
			hasNew = true
		}
		if strings.Contains(ch.Code, "D") {
			hasDeleted = true
		}
	}
	switch {
	case allTests:
		return "test"
	case allDocs:
		return "docs"
	case hasNew:
		return "feat"
	case hasDeleted:
		return "chore"
	default:
		return "fix"
	}
}

// commitScope is the shared first path segment, when one exists. "src"
// is skipped in favor of the segment below it.
func commitScope(changes []Change) string {
	scope := ""
	for _, ch := range changes {
		segs := strings.Split(path.Clean(ch.Path), "/")
		if len(segs) > 1 && segs[0] == "src" {
			segs = segs[1:]
		}
		s := ""
		if len(segs) > 1 {
			s = segs[0]
		}
		if scope == "" {
			scope = s
		} else if scope != s {
			return ""
		}
	}
	if scope == "" {
		return ""
	}
	return "(" + scope + ")"
}

func commitSubject(changes []Change) string {
	names := make([]string, 0, len(changes))
	for _, ch := range changes {
		names = append(names, path.Base(ch.Path))
	}
	sort.Strings(names)
	switch len(names) {
	case 1:
		return "update " + names[0]
	case 2:
		return fmt.Sprintf("update %s and %s", names[0], names[1])
	default:
		return fmt.Sprintf("update %s and %d more files", names[0], len(names)-1)
	}
}
