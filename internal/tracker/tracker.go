// Package tracker talks to a Jira-style issue tracker. It resolves the
// ticket referenced by the current git branch and surfaces concerns about
// that ticket (missing description, overdue, blocked, already resolved)
// for the workflow layer to report before a commit.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/capability"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/config"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

const subsystem = "Tracker"

// DefaultBranchPattern extracts a ticket key such as PROJ-123 from a branch
// name like feature/PROJ-123-add-login.
const DefaultBranchPattern = `([A-Z][A-Z0-9]+-\d+)`

const requestTimeout = 10 * time.Second

// timeNow is swapped in tests that need a fixed clock.
var timeNow = time.Now

// BranchSource yields the branch name ticket references are extracted from.
// The git collaborator satisfies this.
type BranchSource interface {
	CurrentBranch(ctx context.Context) (string, error)
}

// Client is an issue tracker client backed by the Jira v2 REST API.
type Client struct {
	settings config.TrackerSettings
	branchRe *regexp.Regexp
	branches BranchSource
	http     *retryablehttp.Client
}

// New builds a tracker client from settings. The branch source is consulted
// lazily, so a nil source is only an error for TicketForCurrentBranch.
func New(settings config.TrackerSettings, branches BranchSource) (*Client, error) {
	pattern := settings.BranchPattern
	if pattern == "" {
		pattern = DefaultBranchPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid branch pattern %q: %w", pattern, err)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = requestTimeout
	rc.Logger = nil

	return &Client{
		settings: settings,
		branchRe: re,
		branches: branches,
		http:     rc,
	}, nil
}

// Name implements capability.Capability.
func (c *Client) Name() string { return "tracker" }

// Kind implements capability.Capability.
func (c *Client) Kind() capability.Kind { return capability.KindTracker }

// Ping verifies the tracker is reachable and the credentials are accepted.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.get(ctx, "/rest/api/2/myself")
	if err != nil {
		return fmt.Errorf("tracker unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tracker responded with status %d", resp.StatusCode)
	}
	return nil
}

// TicketForCurrentBranch extracts the ticket key referenced by the current
// branch name. A branch without a reference yields an empty key and no
// error. When a project key is configured, references to other projects are
// ignored.
func (c *Client) TicketForCurrentBranch(ctx context.Context) (string, error) {
	if c.branches == nil {
		return "", fmt.Errorf("no branch source configured")
	}
	branch, err := c.branches.CurrentBranch(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read current branch: %w", err)
	}

	match := c.branchRe.FindStringSubmatch(branch)
	if match == nil {
		logging.Debug(subsystem, "Branch %s carries no ticket reference", branch)
		return "", nil
	}
	key := match[0]
	if len(match) > 1 {
		key = match[1]
	}

	if c.settings.ProjectKey != "" && !strings.HasPrefix(key, c.settings.ProjectKey+"-") {
		logging.Debug(subsystem, "Ignoring ticket %s outside project %s", key, c.settings.ProjectKey)
		return "", nil
	}
	return key, nil
}

// TicketIssues fetches a ticket and returns human-readable concerns about
// it. A missing ticket is itself a concern rather than an error so the
// workflow layer can report it alongside the others.
func (c *Client) TicketIssues(ctx context.Context, key string) ([]string, error) {
	if key == "" {
		return nil, fmt.Errorf("ticket key is required")
	}

	resp, err := c.get(ctx, "/rest/api/2/issue/"+key+"?fields=summary,description,duedate,status,issuelinks")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticket %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []string{fmt.Sprintf("ticket %s was not found in the tracker", key)}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tracker responded with status %d for %s: %s", resp.StatusCode, key, strings.TrimSpace(string(body)))
	}

	var payload issuePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode ticket %s: %w", key, err)
	}

	return payload.concerns(key), nil
}

// get issues an authenticated GET against the tracker API.
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	url := strings.TrimRight(c.settings.BaseURL, "/") + path
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	switch {
	case c.settings.Email != "" && c.settings.RequestSecret != "":
		req.SetBasicAuth(c.settings.Email, c.settings.RequestSecret)
	case c.settings.RequestSecret != "":
		req.Header.Set("Authorization", "Bearer "+c.settings.RequestSecret)
	}
	return c.http.Do(req)
}

type issuePayload struct {
	Key    string      `json:"key"`
	Fields issueFields `json:"fields"`
}

type issueFields struct {
	Summary     string      `json:"summary"`
	Description string      `json:"description"`
	DueDate     string      `json:"duedate"`
	Status      issueStatus `json:"status"`
	IssueLinks  []issueLink `json:"issuelinks"`
}

type issueStatus struct {
	Name     string `json:"name"`
	Category struct {
		Key string `json:"key"`
	} `json:"statusCategory"`
}

func (s issueStatus) done() bool { return s.Category.Key == "done" }

type issueLink struct {
	Type struct {
		Name   string `json:"name"`
		Inward string `json:"inward"`
	} `json:"type"`
	InwardIssue *struct {
		Key    string `json:"key"`
		Fields struct {
			Status issueStatus `json:"status"`
		} `json:"fields"`
	} `json:"inwardIssue"`
}

// concerns derives the list of problems worth reporting for a ticket.
func (p issuePayload) concerns(key string) []string {
	var out []string

	if p.Fields.Status.done() {
		out = append(out, fmt.Sprintf("ticket %s is already %s", key, p.Fields.Status.Name))
	}
	if strings.TrimSpace(p.Fields.Description) == "" {
		out = append(out, fmt.Sprintf("ticket %s has no description to validate the work against", key))
	}
	if p.Fields.DueDate != "" {
		due, err := time.Parse("2006-01-02", p.Fields.DueDate)
		if err == nil && due.Before(timeNow().Truncate(24*time.Hour)) {
			out = append(out, fmt.Sprintf("ticket %s was due %s", key, p.Fields.DueDate))
		}
	}
	for _, link := range p.Fields.IssueLinks {
		if link.InwardIssue == nil || !strings.EqualFold(link.Type.Inward, "is blocked by") {
			continue
		}
		if link.InwardIssue.Fields.Status.done() {
			continue
		}
		out = append(out, fmt.Sprintf("ticket %s is blocked by %s (%s)", key, link.InwardIssue.Key, link.InwardIssue.Fields.Status.Name))
	}

	if len(out) > 0 {
		logging.Info(subsystem, "Found %d concern(s) on ticket %s", len(out), key)
	}
	return out
}
