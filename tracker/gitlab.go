package tracker

import (
	"context"
	"fmt"
	"net/http"

	"github.com/xanzy/go-gitlab"

	"github.com/randalmurphal/fixflow/git"
)

// GitLab implements Client for GitLab repositories. Merge requests play the
// role of pull requests; ref.Owner/ref.Repo map to the project path.
type GitLab struct {
	client  *gitlab.Client
	token   string
	baseURL string
	runner  git.CommandRunner
}

// GitLabOption configures the GitLab client.
type GitLabOption func(*GitLab)

// WithGitLabRunner sets the command runner used for repository clones.
func WithGitLabRunner(runner git.CommandRunner) GitLabOption {
	return func(g *GitLab) {
		g.runner = runner
	}
}

// NewGitLab creates a GitLab tracker client.
// baseURL is the instance URL; leave empty for gitlab.com.
func NewGitLab(token, baseURL string, opts ...GitLabOption) (*GitLab, error) {
	if token == "" {
		return nil, fmt.Errorf("GitLab token is required")
	}

	var client *gitlab.Client
	var err error
	if baseURL != "" {
		client, err = gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	} else {
		client, err = gitlab.NewClient(token)
		baseURL = "https://gitlab.com"
	}
	if err != nil {
		return nil, fmt.Errorf("create GitLab client: %w", err)
	}

	g := &GitLab{
		client:  client,
		token:   token,
		baseURL: baseURL,
		runner:  git.NewExecRunner(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// FetchIssue retrieves the issue from the project identified by the ref.
func (g *GitLab) FetchIssue(ctx context.Context, ref IssueRef) (*Issue, error) {
	issue, resp, err := g.client.Issues.GetIssue(ref.Slug(), ref.Number, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrIssueNotFound, ref)
		}
		return nil, fmt.Errorf("fetch issue %s: %w", ref, err)
	}

	result := &Issue{
		Ref:   ref,
		Title: issue.Title,
		Body:  issue.Description,
		URL:   issue.WebURL,
	}
	if issue.Author != nil {
		result.Author = issue.Author.Username
	}
	result.Labels = append(result.Labels, issue.Labels...)
	return result, nil
}

// OpenPullRequest opens a merge request referencing the issue.
func (g *GitLab) OpenPullRequest(ctx context.Context, ref IssueRef, opts PROptions) (*PullRequest, error) {
	target := opts.BaseBranch
	if target == "" {
		target = "main"
	}

	mr, _, err := g.client.MergeRequests.CreateMergeRequest(ref.Slug(), &gitlab.CreateMergeRequestOptions{
		Title:        gitlab.Ptr(opts.Title),
		Description:  gitlab.Ptr(fmt.Sprintf("%s\n\nCloses #%d", opts.Body, ref.Number)),
		SourceBranch: gitlab.Ptr(opts.HeadBranch),
		TargetBranch: gitlab.Ptr(target),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("create merge request: %w", err)
	}

	return &PullRequest{
		URL:    mr.WebURL,
		Number: mr.IID,
	}, nil
}

// CloneRepository clones the project over token-authenticated HTTPS.
func (g *GitLab) CloneRepository(ctx context.Context, ref IssueRef, destPath string) error {
	url := g.AuthenticatedRemoteURL(ref)
	if _, err := g.runner.Run("", "git", "clone", "--depth", "50", url, destPath); err != nil {
		return fmt.Errorf("clone %s: %w", ref.Slug(), err)
	}
	return nil
}

// AuthenticatedRemoteURL returns an HTTPS remote URL carrying the token.
func (g *GitLab) AuthenticatedRemoteURL(ref IssueRef) string {
	host := g.baseURL
	host = trimScheme(host)
	return fmt.Sprintf("https://oauth2:%s@%s/%s/%s.git", g.token, host, ref.Owner, ref.Repo)
}

func trimScheme(url string) string {
	for _, prefix := range []string{"https://", "http://"} {
		if len(url) > len(prefix) && url[:len(prefix)] == prefix {
			return url[len(prefix):]
		}
	}
	return url
}
