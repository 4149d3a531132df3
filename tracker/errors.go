package tracker

import "errors"

var (
	// ErrBadIssueRef indicates an issue reference could not be parsed.
	ErrBadIssueRef = errors.New("malformed issue reference")

	// ErrIssueNotFound indicates the issue does not exist.
	ErrIssueNotFound = errors.New("issue not found")

	// ErrPRExists indicates a PR already exists for the branch.
	ErrPRExists = errors.New("pull request already exists for this branch")

	// ErrNoChanges indicates there are no changes between branches.
	ErrNoChanges = errors.New("no changes between branches")
)
