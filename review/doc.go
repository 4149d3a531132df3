// Package review gates generated fixes before they reach the sandbox.
//
// A reviewer examines the proposed change against the problem statement
// and either approves it or rejects it with actionable feedback. Review
// is deliberately conservative about its own failures: if the verdict
// cannot be obtained or parsed, the fix is approved and verification is
// left to catch real problems.
package review
