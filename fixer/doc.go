// Package fixer generates candidate fixes for an analyzed issue.
//
// The model sees the analysis, the relevant snippets, reviewer feedback
// from the previous attempt, and summaries of earlier verification
// failures, and answers with complete replacement file contents. Unlike
// analysis and stack detection there is no heuristic floor here; if the
// model cannot produce a parseable fix the attempt fails.
package fixer
