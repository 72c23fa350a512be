package graph

import (
	"sort"

	"codetour/internal/extractor"
)

// SchemaVersion stamps every KnowledgeModel so downstream consumers can
// detect incompatible documents.
const SchemaVersion = "1.0.0"

// File is a source file node. A file that failed extraction keeps its node
// (Failed set) but contributes no symbols or edges.
type File struct {
	Path        string   `json:"path"`
	Failed      bool     `json:"failed,omitempty"`
	ScriptEntry bool     `json:"script_entry,omitempty"`
	Imports     []string `json:"imports,omitempty"` // resolved target files, sorted
}

// Symbol is a function or class node. ID is the qualified name
// `<file>::<name>`, globally unique within a model.
type Symbol struct {
	ID   string               `json:"id"`
	File string               `json:"file"`
	Name string               `json:"name"`
	Kind extractor.SymbolKind `json:"kind"`
	Line int                  `json:"line"`
}

// CallEdge links a caller symbol to a callee symbol.
type CallEdge struct {
	From      string `json:"from"`
	To        string `json:"to"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	Ambiguous bool   `json:"ambiguous,omitempty"`
}

// DependencyEdge is a file-to-file relationship, the union of import
// resolutions and the file-level projection of call edges.
type DependencyEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// KnowledgeModel is the canonical graph for one analysis job. It is built
// once, validated, and read-only for every downstream consumer. All slices
// are deterministically ordered; serializing the same model twice yields
// byte-identical output.
type KnowledgeModel struct {
	SchemaVersion   string           `json:"schema_version"`
	Files           []File           `json:"files"`
	Symbols         []Symbol         `json:"symbols"`
	CallEdges       []CallEdge       `json:"call_edges"`
	DependencyEdges []DependencyEdge `json:"dependency_edges"`
}

// HasFile reports whether the model contains the given file node.
func (m *KnowledgeModel) HasFile(path string) bool {
	for _, f := range m.Files {
		if f.Path == path {
			return true
		}
	}
	return false
}

// HasSymbol reports whether the model contains the given symbol ID.
func (m *KnowledgeModel) HasSymbol(id string) bool {
	for _, s := range m.Symbols {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Dependencies returns the files the given file depends on, sorted.
func (m *KnowledgeModel) Dependencies(path string) []string {
	var out []string
	for _, e := range m.DependencyEdges {
		if e.From == path {
			out = append(out, e.To)
		}
	}
	sort.Strings(out)
	return out
}

// Dependents returns the files that depend on the given file, sorted.
func (m *KnowledgeModel) Dependents(path string) []string {
	var out []string
	for _, e := range m.DependencyEdges {
		if e.To == path {
			out = append(out, e.From)
		}
	}
	sort.Strings(out)
	return out
}
