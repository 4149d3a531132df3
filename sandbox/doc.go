// Package sandbox provides an isolated workspace for applying candidate
// fixes and running a repository's test suite.
//
// The Local implementation copies the checkout into a scratch directory
// so failed attempts never dirty the real clone; Cleanup is idempotent
// and safe to defer unconditionally. Mock scripts test results for
// workflow tests.
package sandbox
