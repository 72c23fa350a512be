package extractor

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// Extractor turns one source file into a FileFacts record using a
// language-specific driver. It operates strictly per-file and never sees
// the rest of the repository.
type Extractor struct {
	langExtractor LanguageExtractor
	langName      string
}

// NewExtractor creates a new extractor for a given language.
func NewExtractor(lang string) (*Extractor, error) {
	var langExt LanguageExtractor
	switch lang {
	case "python":
		langExt = &PythonExtractor{}
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
	return &Extractor{langExtractor: langExt, langName: lang}, nil
}

// Language returns the driver's language name.
func (e *Extractor) Language() string {
	return e.langName
}

// Extensions returns the file extensions the driver handles.
func (e *Extractor) Extensions() []string {
	return e.langExtractor.Extensions()
}

// ExtractFile parses source content and returns the facts for one file.
// It never fails: unreadable or syntactically invalid content yields a
// record with Failed set and no symbols, imports, or calls.
func (e *Extractor) ExtractFile(ctx context.Context, relPath string, sourceCode []byte) *FileFacts {
	facts := &FileFacts{Path: relPath}

	parser := sitter.NewParser()
	parser.SetLanguage(e.langExtractor.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, sourceCode)
	if err != nil || tree == nil {
		facts.Failed = true
		return facts
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		facts.Failed = true
		return facts
	}

	query, err := sitter.NewQuery([]byte(e.langExtractor.GetQuery()), e.langExtractor.GetLanguage())
	if err != nil {
		facts.Failed = true
		return facts
	}
	defer query.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, root)

	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			captureName := query.CaptureNameForId(c.Index)
			e.langExtractor.ExtractCapture(captureName, c.Node, sourceCode, facts)
		}
	}

	normalizeFacts(facts)
	return facts
}

// normalizeFacts sorts fact lists by source position so the record is
// independent of query match order.
func normalizeFacts(facts *FileFacts) {
	sort.SliceStable(facts.Symbols, func(i, j int) bool {
		if facts.Symbols[i].Line != facts.Symbols[j].Line {
			return facts.Symbols[i].Line < facts.Symbols[j].Line
		}
		return facts.Symbols[i].Name < facts.Symbols[j].Name
	})
	sort.SliceStable(facts.Imports, func(i, j int) bool {
		if facts.Imports[i].Line != facts.Imports[j].Line {
			return facts.Imports[i].Line < facts.Imports[j].Line
		}
		return facts.Imports[i].Module < facts.Imports[j].Module
	})
	sort.SliceStable(facts.Calls, func(i, j int) bool {
		if facts.Calls[i].Line != facts.Calls[j].Line {
			return facts.Calls[i].Line < facts.Calls[j].Line
		}
		if facts.Calls[i].Column != facts.Calls[j].Column {
			return facts.Calls[i].Column < facts.Calls[j].Column
		}
		return facts.Calls[i].Callee < facts.Calls[j].Callee
	})

	seen := make(map[string]bool, len(facts.Imports))
	deduped := facts.Imports[:0]
	for _, imp := range facts.Imports {
		if seen[imp.Module] {
			continue
		}
		seen[imp.Module] = true
		deduped = append(deduped, imp)
	}
	facts.Imports = deduped
}
