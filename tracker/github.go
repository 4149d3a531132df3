package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/randalmurphal/fixflow/git"
)

// GitHub implements Client for GitHub repositories.
type GitHub struct {
	client *github.Client
	token  string
	runner git.CommandRunner
}

// GitHubOption configures the GitHub client.
type GitHubOption func(*GitHub)

// WithRunner sets the command runner used for repository clones.
// This is primarily used for testing.
func WithRunner(runner git.CommandRunner) GitHubOption {
	return func(g *GitHub) {
		g.runner = runner
	}
}

// NewGitHub creates a GitHub tracker client from a personal access token
// or an App installation token.
func NewGitHub(token string, opts ...GitHubOption) (*GitHub, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)

	g := &GitHub{
		client: github.NewClient(tc),
		token:  token,
		runner: git.NewExecRunner(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// FetchIssue retrieves the issue's title, body, labels and author.
func (g *GitHub) FetchIssue(ctx context.Context, ref IssueRef) (*Issue, error) {
	issue, resp, err := g.client.Issues.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrIssueNotFound, ref)
		}
		return nil, fmt.Errorf("fetch issue %s: %w", ref, err)
	}

	result := &Issue{
		Ref:    ref,
		Title:  issue.GetTitle(),
		Body:   issue.GetBody(),
		Author: issue.GetUser().GetLogin(),
		URL:    issue.GetHTMLURL(),
	}
	for _, label := range issue.Labels {
		result.Labels = append(result.Labels, label.GetName())
	}
	return result, nil
}

// OpenPullRequest opens a pull request referencing the issue.
func (g *GitHub) OpenPullRequest(ctx context.Context, ref IssueRef, opts PROptions) (*PullRequest, error) {
	base := opts.BaseBranch
	if base == "" {
		base = "main"
	}

	newPR := &github.NewPullRequest{
		Title: github.String(opts.Title),
		Body:  github.String(opts.Body),
		Base:  github.String(base),
		Head:  github.String(opts.HeadBranch),
	}

	pr, resp, err := g.client.PullRequests.Create(ctx, ref.Owner, ref.Repo, newPR)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnprocessableEntity {
			if strings.Contains(err.Error(), "A pull request already exists") {
				return nil, ErrPRExists
			}
			if strings.Contains(err.Error(), "No commits between") {
				return nil, ErrNoChanges
			}
		}
		return nil, fmt.Errorf("create PR: %w", err)
	}

	// Link the PR back to the issue
	comment := fmt.Sprintf("Opened %s for this issue.", pr.GetHTMLURL())
	if _, _, err := g.client.Issues.CreateComment(ctx, ref.Owner, ref.Repo, ref.Number,
		&github.IssueComment{Body: github.String(comment)}); err != nil {
		// PR was created successfully; a missing comment is not fatal
		slog.Warn("failed to comment on issue", "issue", ref.String(), "error", err)
	}

	return &PullRequest{
		URL:    pr.GetHTMLURL(),
		Number: pr.GetNumber(),
	}, nil
}

// CloneRepository clones the repository over token-authenticated HTTPS.
func (g *GitHub) CloneRepository(ctx context.Context, ref IssueRef, destPath string) error {
	url := g.AuthenticatedRemoteURL(ref)
	if _, err := g.runner.Run("", "git", "clone", "--depth", "50", url, destPath); err != nil {
		return fmt.Errorf("clone %s: %w", ref.Slug(), err)
	}
	return nil
}

// AuthenticatedRemoteURL returns an HTTPS remote URL carrying the client's
// token, suitable for pushing the fix branch.
func (g *GitHub) AuthenticatedRemoteURL(ref IssueRef) string {
	return fmt.Sprintf("https://x-access-token:%s@github.com/%s/%s.git", g.token, ref.Owner, ref.Repo)
}

// ParseRepoFromURL extracts owner and repo from a git remote URL.
// Supports HTTPS and SSH forms.
func ParseRepoFromURL(remoteURL string) (owner, repo string, err error) {
	url := strings.TrimSuffix(remoteURL, ".git")

	switch {
	case strings.HasPrefix(url, "https://"), strings.HasPrefix(url, "http://"):
		url = strings.TrimPrefix(url, "https://")
		url = strings.TrimPrefix(url, "http://")
		parts := strings.Split(url, "/")
		if len(parts) < 3 {
			return "", "", fmt.Errorf("cannot parse remote URL: %s", remoteURL)
		}
		return parts[1], parts[2], nil

	case strings.HasPrefix(url, "git@"):
		// git@host:owner/repo
		_, path, ok := strings.Cut(url, ":")
		if !ok {
			return "", "", fmt.Errorf("cannot parse remote URL: %s", remoteURL)
		}
		parts := strings.Split(path, "/")
		if len(parts) < 2 {
			return "", "", fmt.Errorf("cannot parse remote URL: %s", remoteURL)
		}
		return parts[0], parts[1], nil

	default:
		return "", "", fmt.Errorf("cannot parse remote URL: %s", remoteURL)
	}
}
