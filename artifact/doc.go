// Package artifact persists per-run records of a fix workflow: the issue
// analysis, each generated fix, review verdicts, and test output.
//
// Artifacts live under <baseDir>/runs/<runID>/ and large text artifacts
// are gzip-compressed transparently. A retention pass removes old runs.
package artifact
