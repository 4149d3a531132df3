// Package fixflow orchestrates autonomous bug-fix runs: it takes an
// issue reference, analyzes the report, locates the responsible code,
// generates candidate fixes with an LLM, reviews and verifies them in a
// sandbox, and submits a pull request.
//
// The workflow is a small cyclic state machine. Steps share a value-typed
// State and are wired by a static edge table plus two routers: review
// rejection loops back to generation with feedback, and verification
// failure loops back with the failing test output, until the attempt
// ceiling is reached.
package fixflow
