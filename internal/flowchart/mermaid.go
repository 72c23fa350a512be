// Package flowchart renders the file dependency edges of a knowledge model
// as a Mermaid diagram. It is a direct textual transcription: it reads
// DependencyEdges only and invents nothing.
package flowchart

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"codetour/internal/graph"
)

var groups = []struct {
	Key   string
	Title string
}{
	{Key: "source", Title: "Source"},
	{Key: "project", Title: "Project"},
	{Key: "tests", Title: "Tests"},
	{Key: "docs", Title: "Docs"},
}

// Render produces a deterministic Mermaid graph for the model's files and
// dependency edges. Nodes are grouped into subgraphs by path prefix.
func Render(m *graph.KnowledgeModel) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := nodeIDs(m)

	byGroup := make(map[string][]string)
	for _, f := range m.Files {
		g := fileGroup(f.Path)
		byGroup[g] = append(byGroup[g], f.Path)
	}

	for _, g := range groups {
		paths := byGroup[g.Key]
		if len(paths) == 0 {
			continue
		}
		sort.Strings(paths)
		sb.WriteString(fmt.Sprintf("subgraph %s\n", g.Title))
		for _, path := range paths {
			label := strings.ReplaceAll(path, `"`, "'")
			sb.WriteString(fmt.Sprintf("  %s[%q]\n", ids[path], label))
		}
		sb.WriteString("end\n")
	}

	for _, e := range m.DependencyEdges {
		sb.WriteString(fmt.Sprintf("%s --> %s\n", ids[e.From], ids[e.To]))
	}

	return sb.String()
}

// nodeIDs assigns a unique Mermaid ID per file path. Sanitization collapses
// distinct paths (a-b.py and a_b.py both become a_b_py), so colliding IDs get
// a counter suffix; assignment in sorted path order keeps the result stable.
func nodeIDs(m *graph.KnowledgeModel) map[string]string {
	paths := make([]string, 0, len(m.Files))
	for _, f := range m.Files {
		paths = append(paths, f.Path)
	}
	sort.Strings(paths)

	ids := make(map[string]string, len(paths))
	used := make(map[string]bool, len(paths))
	for _, path := range paths {
		id := sanitizeMermaidID(path)
		for n := 2; used[id]; n++ {
			id = fmt.Sprintf("%s_%d", sanitizeMermaidID(path), n)
		}
		used[id] = true
		ids[path] = id
	}
	return ids
}

func fileGroup(path string) string {
	switch {
	case strings.HasPrefix(path, "src/"):
		return "source"
	case strings.HasPrefix(path, "tests/") || strings.HasPrefix(path, "test/"):
		return "tests"
	case strings.HasPrefix(path, "docs/") || strings.HasPrefix(path, "doc/"):
		return "docs"
	default:
		return "project"
	}
}

var mermaidIDRe = regexp.MustCompile(`[^a-z0-9_]`)

func sanitizeMermaidID(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return "node"
	}
	v = mermaidIDRe.ReplaceAllString(strings.ReplaceAll(v, "-", "_"), "_")
	if v == "" {
		return "node"
	}
	if v[0] >= '0' && v[0] <= '9' {
		v = "n_" + v
	}
	return v
}
