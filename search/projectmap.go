package search

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// mapSkipDirs are never descended into when building a project map.
var mapSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"target":       true,
	"__pycache__":  true,
}

// BuildProjectMap renders a two-level directory listing of the repository,
// the kind of orientation a human would get from `ls` before digging in.
// It is best-effort: unreadable directories are skipped silently.
func BuildProjectMap(repoPath string, maxEntries int) string {
	if maxEntries <= 0 {
		maxEntries = 200
	}

	var lines []string
	entries, err := os.ReadDir(repoPath)
	if err != nil {
		return ""
	}
	sortDirsFirst(entries)

	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || mapSkipDirs[name] {
			continue
		}
		if !e.IsDir() {
			lines = append(lines, name)
			continue
		}

		lines = append(lines, name+"/")
		children, err := os.ReadDir(filepath.Join(repoPath, name))
		if err != nil {
			continue
		}
		sortDirsFirst(children)
		for _, c := range children {
			cname := c.Name()
			if strings.HasPrefix(cname, ".") || mapSkipDirs[cname] {
				continue
			}
			if c.IsDir() {
				cname += "/"
			}
			lines = append(lines, "  "+cname)
			if len(lines) >= maxEntries {
				return strings.Join(lines, "\n")
			}
		}
		if len(lines) >= maxEntries {
			break
		}
	}
	return strings.Join(lines, "\n")
}

func sortDirsFirst(entries []os.DirEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})
}
