package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// IssueRef identifies an issue within a repository.
type IssueRef struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
}

// ParseIssueRef parses a reference of the form "owner/repo#number".
func ParseIssueRef(s string) (IssueRef, error) {
	slash := strings.Index(s, "/")
	hash := strings.LastIndex(s, "#")
	if slash <= 0 || hash <= slash+1 || hash == len(s)-1 {
		return IssueRef{}, fmt.Errorf("%w: %q (want owner/repo#number)", ErrBadIssueRef, s)
	}

	number, err := strconv.Atoi(s[hash+1:])
	if err != nil || number <= 0 {
		return IssueRef{}, fmt.Errorf("%w: %q (bad issue number)", ErrBadIssueRef, s)
	}

	return IssueRef{
		Owner:  s[:slash],
		Repo:   s[slash+1 : hash],
		Number: number,
	}, nil
}

// String returns the canonical "owner/repo#number" form.
func (r IssueRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// Slug returns "owner/repo".
func (r IssueRef) Slug() string {
	return r.Owner + "/" + r.Repo
}

// Issue is the raw issue data fetched from a tracker.
type Issue struct {
	Ref    IssueRef `json:"ref"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels,omitempty"`
	Author string   `json:"author,omitempty"`
	URL    string   `json:"url,omitempty"`
}

// PullRequest is the result of opening a pull request.
type PullRequest struct {
	URL    string `json:"url"`
	Number int    `json:"number"`
}

// PROptions describes the pull request to open.
type PROptions struct {
	Title      string
	Body       string
	HeadBranch string
	BaseBranch string
}

// Client is the issue-tracker contract the workflow depends on.
type Client interface {
	// FetchIssue retrieves the issue. Failure is fatal to a workflow run.
	FetchIssue(ctx context.Context, ref IssueRef) (*Issue, error)

	// OpenPullRequest opens a PR from opts.HeadBranch into opts.BaseBranch.
	OpenPullRequest(ctx context.Context, ref IssueRef, opts PROptions) (*PullRequest, error)

	// CloneRepository clones the issue's repository into destPath.
	CloneRepository(ctx context.Context, ref IssueRef, destPath string) error
}
