// Package search locates code relevant to an issue.
//
// A QueryGenerator proposes search patterns (model-backed, with a
// deterministic keyword fallback) and an Engine executes them against the
// repository checkout, returning scored snippets. Finding nothing is a
// valid outcome, not an error.
package search
