// Package detect fingerprints a checked-out repository: language, runtime,
// package manager, and the commands needed to install dependencies and run
// tests.
//
// Detection is two-tier. Heuristic probes well-known manifest files and
// always produces a usable fingerprint. LLM asks a model to refine the
// heuristic result and silently falls back to it on any failure, so callers
// only ever see a merged always-succeeds detector.
package detect
