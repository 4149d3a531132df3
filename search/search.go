package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/randalmurphal/fixflow/git"
)

// Query is a single search pattern to run against the repository.
type Query struct {
	Pattern      string `json:"pattern"`
	FileType     string `json:"fileType,omitempty"` // extension filter, e.g. "go"
	ContextLines int    `json:"contextLines,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// Snippet is a region of a file that matched one or more queries.
type Snippet struct {
	File      string  `json:"file"`
	StartLine int     `json:"startLine"`
	EndLine   int     `json:"endLine"`
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
}

// Engine runs queries against a repository checkout.
type Engine interface {
	Search(ctx context.Context, repoPath string, queries []Query, maxSnippets int) ([]Snippet, error)
}

// Context window sizes, in lines around a match. Fallback queries match
// cruder patterns, so they carry a wider window to compensate.
const (
	defaultContextLines  = 6
	fallbackContextLines = 12
	maxContextLines      = 30
)

// Grep is an Engine backed by the grep binary, run through a
// git.CommandRunner so tests can script it.
type Grep struct {
	runner git.CommandRunner
}

// GrepOption configures a Grep engine.
type GrepOption func(*Grep)

// WithRunner sets a custom command runner.
func WithRunner(r git.CommandRunner) GrepOption {
	return func(g *Grep) {
		g.runner = r
	}
}

// NewGrep creates a grep-backed search engine.
func NewGrep(opts ...GrepOption) *Grep {
	g := &Grep{runner: &git.ExecRunner{}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Search implements Engine. Matches from all queries are merged per file,
// overlapping regions are coalesced, and snippets are scored by how many
// match lines they cover. An empty result is not an error.
func (g *Grep) Search(ctx context.Context, repoPath string, queries []Query, maxSnippets int) ([]Snippet, error) {
	if maxSnippets <= 0 {
		maxSnippets = 10
	}

	type region struct {
		start, end int
		hits       int
	}
	regions := make(map[string][]region)

	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(q.Pattern) == "" {
			continue
		}

		contextLines := q.ContextLines
		if contextLines <= 0 {
			contextLines = defaultContextLines
		}

		args := []string{"-rniE", "--exclude-dir=.git", "--exclude-dir=node_modules", "--exclude-dir=vendor"}
		if q.FileType != "" {
			args = append(args, "--include=*."+strings.TrimPrefix(q.FileType, "."))
		}
		args = append(args, "--", q.Pattern, ".")

		out, err := g.runner.Run(repoPath, "grep", args...)
		if err != nil {
			// grep exits 1 on no matches; anything it printed on stderr
			// (bad pattern, unreadable path) is worth skipping, not failing.
			continue
		}

		for _, line := range strings.Split(out, "\n") {
			file, lineNum, ok := parseGrepLine(line)
			if !ok {
				continue
			}
			regions[file] = append(regions[file], region{
				start: max(1, lineNum-contextLines),
				end:   lineNum + contextLines,
				hits:  1,
			})
		}
	}

	var snippets []Snippet
	for file, rs := range regions {
		sort.Slice(rs, func(i, j int) bool { return rs[i].start < rs[j].start })

		merged := rs[:1]
		for _, r := range rs[1:] {
			last := &merged[len(merged)-1]
			if r.start <= last.end+1 {
				if r.end > last.end {
					last.end = r.end
				}
				last.hits += r.hits
				continue
			}
			merged = append(merged, r)
		}

		for _, r := range merged {
			content, endLine, err := readLines(filepath.Join(repoPath, file), r.start, r.end)
			if err != nil {
				continue
			}
			snippets = append(snippets, Snippet{
				File:      file,
				StartLine: r.start,
				EndLine:   endLine,
				Content:   content,
				Score:     float64(r.hits),
			})
		}
	}

	sort.Slice(snippets, func(i, j int) bool {
		if snippets[i].Score != snippets[j].Score {
			return snippets[i].Score > snippets[j].Score
		}
		if snippets[i].File != snippets[j].File {
			return snippets[i].File < snippets[j].File
		}
		return snippets[i].StartLine < snippets[j].StartLine
	})
	if len(snippets) > maxSnippets {
		snippets = snippets[:maxSnippets]
	}
	return snippets, nil
}

// parseGrepLine splits "path:line:content" output. Paths are reported
// relative to the search root and normalized to drop the leading "./".
func parseGrepLine(line string) (file string, lineNum int, ok bool) {
	first := strings.Index(line, ":")
	if first <= 0 {
		return "", 0, false
	}
	second := strings.Index(line[first+1:], ":")
	if second <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(line[first+1 : first+1+second])
	if err != nil {
		return "", 0, false
	}
	return strings.TrimPrefix(line[:first], "./"), n, true
}

// readLines returns lines start..end (1-based, inclusive) of a file,
// clamped to the file's length.
func readLines(path string, start, end int) (string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}

	lines := strings.Split(string(data), "\n")
	if start > len(lines) {
		return "", 0, fmt.Errorf("start line %d past end of %s", start, path)
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n"), end, nil
}
