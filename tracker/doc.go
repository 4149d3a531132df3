// Package tracker provides issue-tracker clients for the fix workflow.
//
// A Client fetches the issue being fixed, clones its repository, and opens
// the pull request that publishes a verified fix. GitHub and GitLab
// implementations are provided, plus a Mock for tests. GitHub supports both
// personal access tokens and GitHub App installation tokens.
package tracker
