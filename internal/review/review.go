// Package review surfaces pending code-review feedback for the current
// branch, grouped by the kind of response each remark demands. Feedback is
// pulled from the GitHub CLI; classification is a replaceable heuristic.
package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/capability"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

const subsystem = "Review"

// Comment is one review remark pulled from the code host.
type Comment struct {
	Author string
	Body   string
	// Resolved comments carry no pending signal.
	Resolved bool
	// ChangesRequested pins the comment to the requested-changes bucket
	// regardless of its wording.
	ChangesRequested bool
}

// Signals groups pending review feedback by the response it demands.
type Signals struct {
	ActionItems      []string
	RequestedChanges []string
	Concerns         []string
	Suggestions      []string
}

// Total counts the pending signals across all buckets.
func (s Signals) Total() int {
	return len(s.ActionItems) + len(s.RequestedChanges) + len(s.Concerns) + len(s.Suggestions)
}

// Empty reports whether no review feedback is pending.
func (s Signals) Empty() bool { return s.Total() == 0 }

// Source lists the review feedback pending on the current branch.
type Source interface {
	PendingComments(ctx context.Context) ([]Comment, error)
	Ping(ctx context.Context) error
}

// runGH executes the GitHub CLI and captures its output. Extracted so tests
// can substitute canned responses.
var runGH = func(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("gh %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// GHSource reads pending review feedback through the GitHub CLI, which
// handles host discovery and authentication on its own.
type GHSource struct {
	dir        string
	repository string
}

// NewGHSource builds a source rooted at dir. repository is an optional
// owner/name override; when empty the CLI infers it from the origin remote.
func NewGHSource(dir, repository string) *GHSource {
	return &GHSource{dir: dir, repository: repository}
}

// PendingComments fetches the open pull request for the current branch and
// flattens its reviews and comments. A branch without a pull request yields
// no comments rather than an error.
func (s *GHSource) PendingComments(ctx context.Context) ([]Comment, error) {
	args := []string{"pr", "view", "--json", "reviews,comments"}
	if s.repository != "" {
		args = append(args, "-R", s.repository)
	}

	output, err := runGH(ctx, s.dir, args...)
	if err != nil {
		if strings.Contains(err.Error(), "no pull requests found") {
			logging.Debug(subsystem, "No open pull request for the current branch")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch pull request feedback: %w", err)
	}

	var payload struct {
		Comments []struct {
			Author struct {
				Login string `json:"login"`
			} `json:"author"`
			Body string `json:"body"`
		} `json:"comments"`
		Reviews []struct {
			Author struct {
				Login string `json:"login"`
			} `json:"author"`
			Body  string `json:"body"`
			State string `json:"state"`
		} `json:"reviews"`
	}
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode pull request feedback: %w", err)
	}

	var comments []Comment
	for _, r := range payload.Reviews {
		switch r.State {
		case "CHANGES_REQUESTED":
			body := r.Body
			if strings.TrimSpace(body) == "" {
				body = "requested changes without a summary"
			}
			comments = append(comments, Comment{Author: r.Author.Login, Body: body, ChangesRequested: true})
		case "COMMENTED":
			if strings.TrimSpace(r.Body) != "" {
				comments = append(comments, Comment{Author: r.Author.Login, Body: r.Body})
			}
		}
	}
	for _, c := range payload.Comments {
		comments = append(comments, Comment{Author: c.Author.Login, Body: c.Body})
	}
	return comments, nil
}

// Ping verifies the GitHub CLI is present and authenticated.
func (s *GHSource) Ping(ctx context.Context) error {
	if _, err := runGH(ctx, s.dir, "auth", "status"); err != nil {
		return fmt.Errorf("github cli unavailable: %w", err)
	}
	return nil
}

// Client is the code-review collaborator.
type Client struct {
	source     Source
	classifier Classifier
}

// New builds a review client. A nil classifier falls back to the keyword
// heuristic.
func New(source Source, classifier Classifier) *Client {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	return &Client{source: source, classifier: classifier}
}

// Name implements capability.Capability.
func (c *Client) Name() string { return "review" }

// Kind implements capability.Capability.
func (c *Client) Kind() capability.Kind { return capability.KindReview }

// Ping implements capability.Capability.
func (c *Client) Ping(ctx context.Context) error { return c.source.Ping(ctx) }

// PendingReviewSignals classifies every unresolved comment on the current
// branch's pull request into the four signal buckets. Noise is dropped.
func (c *Client) PendingReviewSignals(ctx context.Context) (Signals, error) {
	comments, err := c.source.PendingComments(ctx)
	if err != nil {
		return Signals{}, err
	}

	var signals Signals
	for _, comment := range comments {
		if comment.Resolved {
			continue
		}
		entry := comment.Body
		if comment.Author != "" {
			entry = comment.Author + ": " + comment.Body
		}

		category := c.classifier.Classify(comment.Body)
		if comment.ChangesRequested {
			category = CategoryRequestedChange
		}
		switch category {
		case CategoryRequestedChange:
			signals.RequestedChanges = append(signals.RequestedChanges, entry)
		case CategoryActionItem:
			signals.ActionItems = append(signals.ActionItems, entry)
		case CategoryConcern:
			signals.Concerns = append(signals.Concerns, entry)
		case CategorySuggestion:
			signals.Suggestions = append(signals.Suggestions, entry)
		}
	}

	if !signals.Empty() {
		logging.Info(subsystem, "Found %d pending review signal(s)", signals.Total())
	}
	return signals, nil
}

// ResolutionConfidence estimates, in [0,1], how likely the given follow-up
// notes are to have resolved the pending feedback.
func (c *Client) ResolutionConfidence(evidence []string) float64 {
	return c.classifier.Score(evidence)
}
