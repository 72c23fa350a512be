// Package enrich adds natural-language annotations to a finished knowledge
// model. Annotations are strictly additive: they are keyed by existing
// file paths and symbol IDs and never introduce nodes or edges. The
// annotator is non-authoritative; extracted facts remain the source of truth.
package enrich

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"codetour/internal/graph"
)

// Annotator produces a short explanation for one model entity. Implementations
// must treat the snippet as the only available information.
type Annotator interface {
	Annotate(ctx context.Context, id string, snippet string) (string, error)
}

// Annotations is the enrichment output document. Every key references an
// entity that exists in the model it was derived from.
type Annotations struct {
	SchemaVersion string            `json:"schema_version"`
	Files         map[string]string `json:"files"`
	Symbols       map[string]string `json:"symbols"`
}

// Validate checks that every annotation key references a model entity.
func (a *Annotations) Validate(m *graph.KnowledgeModel) error {
	for path := range a.Files {
		if !m.HasFile(path) {
			return fmt.Errorf("annotation references unknown file %q", path)
		}
	}
	for id := range a.Symbols {
		if !m.HasSymbol(id) {
			return fmt.Errorf("annotation references unknown symbol %q", id)
		}
	}
	return nil
}

// Enricher walks a model and annotates its files and symbols. With a nil
// annotator, or whenever the annotator fails, it falls back to deterministic
// templates so enrichment can never change or block the core output.
type Enricher struct {
	annotator Annotator
}

func NewEnricher(annotator Annotator) *Enricher {
	return &Enricher{annotator: annotator}
}

// EnrichModel produces annotations for every file and symbol in the model.
// It never fails; annotator errors degrade to template text.
func (e *Enricher) EnrichModel(ctx context.Context, m *graph.KnowledgeModel) *Annotations {
	out := &Annotations{
		SchemaVersion: graph.SchemaVersion,
		Files:         make(map[string]string, len(m.Files)),
		Symbols:       make(map[string]string, len(m.Symbols)),
	}

	symbolsByFile := make(map[string][]string)
	for _, s := range m.Symbols {
		symbolsByFile[s.File] = append(symbolsByFile[s.File], s.Name)
	}
	calleesBySymbol := make(map[string][]string)
	for _, edge := range m.CallEdges {
		calleesBySymbol[edge.From] = append(calleesBySymbol[edge.From], edge.To)
	}

	for _, f := range m.Files {
		names := symbolsByFile[f.Path]
		sort.Strings(names)
		snippet := fileSnippet(f.Path, names)
		out.Files[f.Path] = e.annotate(ctx, f.Path, snippet, fallbackFile(f.Path))
	}

	for _, s := range m.Symbols {
		callees := calleesBySymbol[s.ID]
		sort.Strings(callees)
		snippet := symbolSnippet(s, callees)
		out.Symbols[s.ID] = e.annotate(ctx, s.ID, snippet, fallbackSymbol(s.Name, callees))
	}

	return out
}

func (e *Enricher) annotate(ctx context.Context, id, snippet, fallback string) string {
	if e.annotator == nil {
		return fallback
	}
	text, err := e.annotator.Annotate(ctx, id, snippet)
	if err != nil || strings.TrimSpace(text) == "" {
		return fallback
	}
	return strings.TrimSpace(text)
}

func fileSnippet(path string, functions []string) string {
	return fmt.Sprintf(
		"File path: %s\nDefined symbols: %s\n\nExplain the purpose of this file using ONLY this information. Do not infer runtime behavior. Keep it concise.",
		path, strings.Join(functions, ", "))
}

func symbolSnippet(s graph.Symbol, callees []string) string {
	return fmt.Sprintf(
		"%s name: %s\nDefined in file: %s\nCalls: %s\n\nExplain the role of this %s using ONLY this data. Do not guess runtime behavior. Keep it concise and factual.",
		s.Kind, s.Name, s.File, strings.Join(callees, ", "), s.Kind)
}

func fallbackFile(path string) string {
	return fmt.Sprintf("This file defines logic in `%s`.", path)
}

func fallbackSymbol(name string, callees []string) string {
	if len(callees) > 0 {
		return fmt.Sprintf("`%s` coordinates calls to %s.", name, strings.Join(callees, ", "))
	}
	return fmt.Sprintf("`%s` performs a self-contained operation.", name)
}
