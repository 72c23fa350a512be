package planner

import (
	"sort"

	"codetour/internal/graph"
)

// Reason tags attached to tour steps.
const (
	ReasonEntryPoint   = "entry point"
	ReasonDependency   = "dependency of "
	ReasonUnreferenced = "unreferenced"
	ReasonFallback     = "fallback entry point"
)

// Step is one ordered unit of the guided traversal. Every step references
// a file that exists in the model it was built from.
type Step struct {
	Index  int    `json:"index"`
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// TourPlan is the deterministic traversal order over one KnowledgeModel.
type TourPlan struct {
	EntryPoints []string `json:"entry_points"`
	Steps       []Step   `json:"steps"`
}

// BuildTourPlan computes entry points and a breadth-first traversal order
// covering every file exactly once. Re-running on an identical model yields
// an identical plan.
func BuildTourPlan(m *graph.KnowledgeModel) *TourPlan {
	plan := &TourPlan{}
	if len(m.Files) == 0 {
		return plan
	}

	incoming := make(map[string]int, len(m.Files))
	for _, f := range m.Files {
		incoming[f.Path] = 0
	}
	for _, e := range m.DependencyEdges {
		incoming[e.To]++
	}

	entryReason := make(map[string]string)
	for _, f := range m.Files {
		if incoming[f.Path] == 0 || f.ScriptEntry {
			plan.EntryPoints = append(plan.EntryPoints, f.Path)
			entryReason[f.Path] = ReasonEntryPoint
		}
	}
	sort.Strings(plan.EntryPoints)

	// Documented fallback: an entry-less graph (every file part of a cycle)
	// starts from the lexicographically smallest path. A min-scan rather
	// than Files[0] keeps this correct for models built elsewhere.
	if len(plan.EntryPoints) == 0 {
		smallest := m.Files[0].Path
		for _, f := range m.Files[1:] {
			if f.Path < smallest {
				smallest = f.Path
			}
		}
		plan.EntryPoints = []string{smallest}
		entryReason[smallest] = ReasonFallback
	}

	visited := make(map[string]bool, len(m.Files))
	reason := make(map[string]string, len(m.Files))

	frontier := make([]string, 0, len(plan.EntryPoints))
	for _, entry := range plan.EntryPoints {
		if visited[entry] {
			continue
		}
		visited[entry] = true
		reason[entry] = entryReason[entry]
		frontier = append(frontier, entry)
	}

	// BFS over dependency edges, ring by ring. The visited set makes cycles
	// terminate: a back-edge is simply not re-traversed, and the node closest
	// to an entry point wins. Each ring is sorted before it is emitted, so
	// ties within a distance ring break lexicographically by path even when
	// the tied nodes descend from different parents. A node discovered by
	// several parents in the same ring is attributed to the smallest parent.
	var order []string
	for len(frontier) > 0 {
		order = append(order, frontier...)

		parent := make(map[string]string)
		for _, current := range frontier {
			for _, next := range m.Dependencies(current) {
				if visited[next] {
					continue
				}
				if prev, ok := parent[next]; !ok || current < prev {
					parent[next] = current
				}
			}
		}

		frontier = frontier[:0]
		for next, from := range parent {
			visited[next] = true
			reason[next] = ReasonDependency + from
			frontier = append(frontier, next)
		}
		sort.Strings(frontier)
	}

	// Files unreachable from any entry point are appended in lexicographic
	// order so no file is silently omitted.
	var unreachable []string
	for _, f := range m.Files {
		if !visited[f.Path] {
			unreachable = append(unreachable, f.Path)
		}
	}
	sort.Strings(unreachable)
	for _, path := range unreachable {
		reason[path] = ReasonUnreferenced
		order = append(order, path)
	}

	for i, path := range order {
		plan.Steps = append(plan.Steps, Step{Index: i, File: path, Reason: reason[path]})
	}
	return plan
}
