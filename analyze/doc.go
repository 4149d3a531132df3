// Package analyze turns raw issue reports into structured analyses the
// rest of the pipeline can act on.
//
// Two tiers are provided: an LLM analyzer that asks a model to triage the
// report, and a heuristic analyzer that scrapes keywords and file paths
// out of the text. The LLM tier degrades to the heuristic one on any
// model failure, so analysis as a whole never fails the workflow.
package analyze
