package graph

import (
	"fmt"
	"sort"

	"codetour/internal/extractor"
	"codetour/internal/resolver"
)

// ConsistencyError signals a defect: an edge referencing a node that does
// not exist in the same model. A model that fails validation must never
// reach a consumer, so the job aborts instead of emitting it.
type ConsistencyError struct {
	Detail string
}

func (e *ConsistencyError) Error() string {
	return "inconsistent knowledge model: " + e.Detail
}

// Build assembles resolved facts into one immutable KnowledgeModel. The
// output is a pure function of the input: no timestamps, no environment
// values, and deterministic ordering in every list.
func Build(facts []*extractor.FileFacts, res *resolver.Resolution) (*KnowledgeModel, error) {
	m := &KnowledgeModel{SchemaVersion: SchemaVersion}

	fileSet := make(map[string]bool, len(facts))
	symbolSet := make(map[string]bool)

	for _, f := range facts {
		fileSet[f.Path] = true
		m.Files = append(m.Files, File{
			Path:        f.Path,
			Failed:      f.Failed,
			ScriptEntry: f.ScriptEntry,
			Imports:     res.ImportTargets(f.Path),
		})
		seen := make(map[string]bool, len(f.Symbols))
		for _, sym := range f.Symbols {
			if seen[sym.Name] {
				continue
			}
			seen[sym.Name] = true
			id := resolver.QualifiedName(f.Path, sym.Name)
			symbolSet[id] = true
			m.Symbols = append(m.Symbols, Symbol{
				ID:   id,
				File: f.Path,
				Name: sym.Name,
				Kind: sym.Kind,
				Line: sym.Line,
			})
		}
	}

	for _, edge := range res.CallEdges {
		m.CallEdges = append(m.CallEdges, CallEdge{
			From:      edge.SourceSymbol,
			To:        edge.TargetSymbol,
			File:      edge.SourceFile,
			Line:      edge.Line,
			Column:    edge.Column,
			Ambiguous: edge.Ambiguous,
		})
	}

	m.DependencyEdges = buildDependencyEdges(res)

	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Path < m.Files[j].Path })
	sort.Slice(m.Symbols, func(i, j int) bool { return m.Symbols[i].ID < m.Symbols[j].ID })
	sort.Slice(m.CallEdges, func(i, j int) bool {
		a, b := m.CallEdges[i], m.CallEdges[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.To < b.To
	})
	sort.Slice(m.DependencyEdges, func(i, j int) bool {
		a, b := m.DependencyEdges[i], m.DependencyEdges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})

	if err := validate(m, fileSet, symbolSet); err != nil {
		return nil, err
	}
	return m, nil
}

// buildDependencyEdges unions import resolutions with the file-level
// projection of call edges, deduplicated and without self-loops.
func buildDependencyEdges(res *resolver.Resolution) []DependencyEdge {
	type key struct{ from, to string }
	seen := make(map[key]bool)
	var edges []DependencyEdge

	add := func(from, to string) {
		if from == to || seen[key{from, to}] {
			return
		}
		seen[key{from, to}] = true
		edges = append(edges, DependencyEdge{From: from, To: to})
	}

	for _, imp := range res.Imports {
		add(imp.File, imp.Target)
	}
	for _, call := range res.CallEdges {
		add(call.SourceFile, call.TargetFile)
	}
	return edges
}

// validate enforces the closed-world invariant: every edge endpoint must
// exist in the same model.
func validate(m *KnowledgeModel, fileSet, symbolSet map[string]bool) error {
	for _, edge := range m.CallEdges {
		if !symbolSet[edge.From] {
			return &ConsistencyError{Detail: fmt.Sprintf("call edge source %q has no symbol node", edge.From)}
		}
		if !symbolSet[edge.To] {
			return &ConsistencyError{Detail: fmt.Sprintf("call edge target %q has no symbol node", edge.To)}
		}
	}
	for _, edge := range m.DependencyEdges {
		if !fileSet[edge.From] {
			return &ConsistencyError{Detail: fmt.Sprintf("dependency edge source %q has no file node", edge.From)}
		}
		if !fileSet[edge.To] {
			return &ConsistencyError{Detail: fmt.Sprintf("dependency edge target %q has no file node", edge.To)}
		}
	}
	for _, f := range m.Files {
		for _, target := range f.Imports {
			if !fileSet[target] {
				return &ConsistencyError{Detail: fmt.Sprintf("file %q imports unknown file %q", f.Path, target)}
			}
		}
	}
	return nil
}
