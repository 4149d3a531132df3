// Package prompt loads and renders the prompt templates used by the
// AI-backed collaborators (issue analysis, query generation, fix
// generation, review).
//
// Templates are looked up in project override directories first and fall
// back to defaults embedded in the binary. A Builder is provided for
// assembling prompts programmatically, and ExtractJSON pulls a JSON
// payload out of a model response that may wrap it in code fences.
package prompt
