package tracker

import (
	"context"
	"fmt"
	"sync"
)

// Mock is an in-memory Client for tests.
type Mock struct {
	mu sync.Mutex

	// Issues maps ref strings to canned issues.
	Issues map[string]*Issue

	// FetchErr, PRErr and CloneErr force the corresponding call to fail.
	FetchErr error
	PRErr    error
	CloneErr error

	// OpenedPRs records every OpenPullRequest call.
	OpenedPRs []PROptions

	// Cloned records every CloneRepository destination.
	Cloned []string

	nextPR int
}

// NewMock creates an empty mock tracker.
func NewMock() *Mock {
	return &Mock{Issues: make(map[string]*Issue)}
}

// AddIssue registers a canned issue.
func (m *Mock) AddIssue(issue *Issue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Issues[issue.Ref.String()] = issue
}

// FetchIssue implements Client.
func (m *Mock) FetchIssue(_ context.Context, ref IssueRef) (*Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	issue, ok := m.Issues[ref.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIssueNotFound, ref)
	}
	return issue, nil
}

// OpenPullRequest implements Client.
func (m *Mock) OpenPullRequest(_ context.Context, ref IssueRef, opts PROptions) (*PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PRErr != nil {
		return nil, m.PRErr
	}
	m.OpenedPRs = append(m.OpenedPRs, opts)
	m.nextPR++
	return &PullRequest{
		URL:    fmt.Sprintf("https://example.test/%s/%s/pull/%d", ref.Owner, ref.Repo, m.nextPR),
		Number: m.nextPR,
	}, nil
}

// CloneRepository implements Client.
func (m *Mock) CloneRepository(_ context.Context, _ IssueRef, destPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CloneErr != nil {
		return m.CloneErr
	}
	m.Cloned = append(m.Cloned, destPath)
	return nil
}
