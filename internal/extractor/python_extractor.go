package extractor

import (
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonExtractor implements LanguageExtractor for Python.
type PythonExtractor struct{}

func (p *PythonExtractor) GetLanguage() *sitter.Language {
	return python.GetLanguage()
}

func (p *PythonExtractor) Extensions() []string {
	return []string{".py"}
}

func (p *PythonExtractor) GetQuery() string {
	return `
		(import_statement) @import
		(import_from_statement) @import_from
		(function_definition) @function
		(class_definition) @class
		(call) @call
		(if_statement) @guard
	`
}

func (p *PythonExtractor) ExtractCapture(captureName string, node *sitter.Node, sourceCode []byte, facts *FileFacts) {
	switch captureName {
	case "import":
		p.extractImport(node, sourceCode, facts)
	case "import_from":
		p.extractImportFrom(node, sourceCode, facts)
	case "function":
		p.extractDefinition(node, sourceCode, facts, SymbolFunction)
	case "class":
		p.extractDefinition(node, sourceCode, facts, SymbolClass)
	case "call":
		p.extractCall(node, sourceCode, facts)
	case "guard":
		p.extractGuard(node, sourceCode, facts)
	}
}

// extractImport handles `import a.b, c as d`.
func (p *PythonExtractor) extractImport(node *sitter.Node, sourceCode []byte, facts *FileFacts) {
	line := int(node.StartPoint().Row) + 1
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			facts.Imports = append(facts.Imports, Import{Module: child.Content(sourceCode), Line: line})
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				facts.Imports = append(facts.Imports, Import{Module: name.Content(sourceCode), Line: line})
			}
		}
	}
}

// extractImportFrom handles `from a.b import c` and `from .mod import c`.
// A purely relative reference (`from . import c`) carries no module name
// and is skipped; the resolver would have nothing to match it against.
func (p *PythonExtractor) extractImportFrom(node *sitter.Node, sourceCode []byte, facts *FileFacts) {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return
	}

	line := int(node.StartPoint().Row) + 1
	switch moduleNode.Type() {
	case "dotted_name":
		facts.Imports = append(facts.Imports, Import{Module: moduleNode.Content(sourceCode), Line: line})
	case "relative_import":
		for i := 0; i < int(moduleNode.NamedChildCount()); i++ {
			child := moduleNode.NamedChild(i)
			if child.Type() == "dotted_name" {
				facts.Imports = append(facts.Imports, Import{Module: child.Content(sourceCode), Line: line})
				return
			}
		}
	}
}

func (p *PythonExtractor) extractDefinition(node *sitter.Node, sourceCode []byte, facts *FileFacts, kind SymbolKind) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	facts.Symbols = append(facts.Symbols, Symbol{
		Name: nameNode.Content(sourceCode),
		Kind: kind,
		Line: int(node.StartPoint().Row) + 1,
	})
}

// extractCall records a call site attributed to its enclosing function.
// Module-level calls have no source symbol and are dropped.
func (p *PythonExtractor) extractCall(node *sitter.Node, sourceCode []byte, facts *FileFacts) {
	caller := enclosingFunctionName(node, sourceCode)
	if caller == "" {
		return
	}

	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}

	var callee string
	switch fnNode.Type() {
	case "identifier":
		callee = fnNode.Content(sourceCode)
	case "attribute":
		if attr := fnNode.ChildByFieldName("attribute"); attr != nil {
			callee = attr.Content(sourceCode)
		}
	}
	if callee == "" {
		return
	}

	facts.Calls = append(facts.Calls, CallSite{
		Caller: caller,
		Callee: callee,
		Line:   int(node.StartPoint().Row) + 1,
		Column: int(node.StartPoint().Column) + 1,
	})
}

var mainGuardRe = regexp.MustCompile(`__name__\s*==\s*['"]__main__['"]|['"]__main__['"]\s*==\s*__name__`)

// extractGuard marks the file as a script entry when a top-level
// `if __name__ == "__main__":` guard is present.
func (p *PythonExtractor) extractGuard(node *sitter.Node, sourceCode []byte, facts *FileFacts) {
	parent := node.Parent()
	if parent == nil || parent.Type() != "module" {
		return
	}
	cond := node.ChildByFieldName("condition")
	if cond == nil {
		return
	}
	if mainGuardRe.MatchString(cond.Content(sourceCode)) {
		facts.ScriptEntry = true
	}
}

// enclosingFunctionName walks up to the nearest function_definition and
// returns its simple name, or "" when the node sits at module or class level.
func enclosingFunctionName(node *sitter.Node, sourceCode []byte) string {
	current := node.Parent()
	for current != nil {
		if current.Type() == "function_definition" {
			if name := current.ChildByFieldName("name"); name != nil {
				return name.Content(sourceCode)
			}
			return ""
		}
		current = current.Parent()
	}
	return ""
}
