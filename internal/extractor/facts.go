package extractor

// SymbolKind classifies an extracted definition.
type SymbolKind string

const (
	SymbolFunction SymbolKind = "function"
	SymbolClass    SymbolKind = "class"
)

// Symbol is a single definition found in one file.
type Symbol struct {
	Name string     `json:"name"`
	Kind SymbolKind `json:"kind"`
	Line int        `json:"line"`
}

// Import is a textual module reference. It stays unresolved until the
// full file set is known.
type Import struct {
	Module string `json:"module"`
	Line   int    `json:"line"`
}

// CallSite is a raw, unresolved call expression. Caller is the simple name
// of the enclosing function; the location pins down a deterministic order
// for edges derived from it.
type CallSite struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// FileFacts holds everything extracted from a single source file.
// It is produced once per file and never mutated afterwards. A file that
// fails to parse still yields a FileFacts record with Failed set, so the
// file keeps its place in the dependency graph.
type FileFacts struct {
	Path        string     `json:"path"`
	Failed      bool       `json:"failed,omitempty"`
	ScriptEntry bool       `json:"script_entry,omitempty"`
	Symbols     []Symbol   `json:"symbols,omitempty"`
	Imports     []Import   `json:"imports,omitempty"`
	Calls       []CallSite `json:"calls,omitempty"`
}
