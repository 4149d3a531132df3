// Package git provides the local repository operations the fix workflow
// needs to publish a verified fix: branch creation, staging, committing
// with an explicit author identity, and pushing to an authenticated URL.
//
// Command execution goes through the CommandRunner interface so tests can
// substitute MockRunner for real git invocations.
package git
