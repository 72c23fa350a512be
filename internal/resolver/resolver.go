package resolver

import (
	"sort"
	"strings"

	"codetour/internal/extractor"
)

// QualifiedName builds the globally unique symbol identifier `<file>::<name>`.
func QualifiedName(file, name string) string {
	return file + "::" + name
}

// ImportResolution ties a textual module reference in one file to a concrete
// file inside the repository. References that resolve outside the repository
// are dropped, never modeled as external nodes.
type ImportResolution struct {
	File   string `json:"file"`
	Module string `json:"module"`
	Target string `json:"target"`
}

// CallEdge is a resolved call from one symbol to another. Ambiguous is set
// when more than one candidate matched and the tie-break picked one.
type CallEdge struct {
	SourceFile   string `json:"source_file"`
	SourceSymbol string `json:"source_symbol"`
	TargetFile   string `json:"target_file"`
	TargetSymbol string `json:"target_symbol"`
	Callee       string `json:"callee"`
	Line         int    `json:"line"`
	Column       int    `json:"column"`
	Ambiguous    bool   `json:"ambiguous,omitempty"`
}

// Stats summarizes one resolution pass.
type Stats struct {
	ImportsAttempted int
	ImportsResolved  int
	CallsAttempted   int
	CallsResolved    int
	CallsAmbiguous   int
}

// Resolution is the resolver's complete output for one job. All slices are
// deterministically sorted; two runs over the same facts are byte-identical.
type Resolution struct {
	Imports   []ImportResolution
	CallEdges []CallEdge
	Stats     Stats
}

// ImportTargets returns the distinct files a given file imports, sorted.
func (r *Resolution) ImportTargets(file string) []string {
	seen := make(map[string]bool)
	var targets []string
	for _, imp := range r.Imports {
		if imp.File != file || seen[imp.Target] {
			continue
		}
		seen[imp.Target] = true
		targets = append(targets, imp.Target)
	}
	sort.Strings(targets)
	return targets
}

// Resolve merges per-file facts into a global symbol table and resolves
// imports and call sites. It requires the complete file set; partial input
// would change resolution results. Resolution never fails: a reference that
// cannot be matched simply produces no output entry.
func Resolve(facts []*extractor.FileFacts) *Resolution {
	idx := buildModuleIndex(facts)
	table := buildSymbolTable(facts)

	res := &Resolution{}

	// Imports first: call resolution consults the resolved import set.
	importTargets := make(map[string]map[string]bool, len(facts))
	for _, f := range facts {
		for _, imp := range f.Imports {
			res.Stats.ImportsAttempted++
			target := idx.resolve(imp.Module)
			if target == "" || target == f.Path {
				continue
			}
			res.Stats.ImportsResolved++
			res.Imports = append(res.Imports, ImportResolution{
				File:   f.Path,
				Module: imp.Module,
				Target: target,
			})
			if importTargets[f.Path] == nil {
				importTargets[f.Path] = make(map[string]bool)
			}
			importTargets[f.Path][target] = true
		}
	}

	for _, f := range facts {
		for _, call := range f.Calls {
			res.Stats.CallsAttempted++
			edge, ok := resolveCall(f, call, table, importTargets[f.Path])
			if !ok {
				continue
			}
			res.Stats.CallsResolved++
			if edge.Ambiguous {
				res.Stats.CallsAmbiguous++
			}
			res.CallEdges = append(res.CallEdges, edge)
		}
	}

	sort.Slice(res.Imports, func(i, j int) bool {
		a, b := res.Imports[i], res.Imports[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		return a.Target < b.Target
	})
	sort.Slice(res.CallEdges, func(i, j int) bool {
		a, b := res.CallEdges[i], res.CallEdges[j]
		if a.SourceFile != b.SourceFile {
			return a.SourceFile < b.SourceFile
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Callee < b.Callee
	})

	return res
}

// resolveCall finds the target for one call site. Candidates are restricted
// to symbols in the same file first, then to symbols in the files reachable
// via resolved imports. More than one candidate resolves to the
// lexicographically smallest qualified name, flagged ambiguous.
func resolveCall(f *extractor.FileFacts, call extractor.CallSite, table *symbolTable, imported map[string]bool) (CallEdge, bool) {
	candidates := table.lookup(call.Callee, func(file string) bool {
		return file == f.Path
	})
	if len(candidates) == 0 && len(imported) > 0 {
		candidates = table.lookup(call.Callee, func(file string) bool {
			return imported[file]
		})
	}
	if len(candidates) == 0 {
		return CallEdge{}, false
	}

	target := candidates[0]
	return CallEdge{
		SourceFile:   f.Path,
		SourceSymbol: QualifiedName(f.Path, call.Caller),
		TargetFile:   target.file,
		TargetSymbol: target.qualified,
		Callee:       call.Callee,
		Line:         call.Line,
		Column:       call.Column,
		Ambiguous:    len(candidates) > 1,
	}, true
}

type symbolRef struct {
	file      string
	qualified string
}

// symbolTable maps simple names to every symbol carrying that name.
// It exists only during resolution and is not part of the persisted model.
type symbolTable struct {
	byName map[string][]symbolRef
}

func buildSymbolTable(facts []*extractor.FileFacts) *symbolTable {
	t := &symbolTable{byName: make(map[string][]symbolRef)}
	for _, f := range facts {
		seen := make(map[string]bool, len(f.Symbols))
		for _, sym := range f.Symbols {
			if seen[sym.Name] {
				continue
			}
			seen[sym.Name] = true
			t.byName[sym.Name] = append(t.byName[sym.Name], symbolRef{
				file:      f.Path,
				qualified: QualifiedName(f.Path, sym.Name),
			})
		}
	}
	for name := range t.byName {
		refs := t.byName[name]
		sort.Slice(refs, func(i, j int) bool { return refs[i].qualified < refs[j].qualified })
	}
	return t
}

// lookup returns all symbols with the given simple name whose file passes
// the filter, sorted by qualified name.
func (t *symbolTable) lookup(name string, include func(file string) bool) []symbolRef {
	var out []symbolRef
	for _, ref := range t.byName[name] {
		if include(ref.file) {
			out = append(out, ref)
		}
	}
	return out
}

// moduleIndex maps dotted module names to candidate files. A file
// `utils/helper.py` is indexed as `utils.helper` and `helper`; a package
// marker `utils/__init__.py` is additionally indexed as `utils`.
type moduleIndex struct {
	exact  map[string][]string
	simple map[string][]string
}

func buildModuleIndex(facts []*extractor.FileFacts) *moduleIndex {
	idx := &moduleIndex{
		exact:  make(map[string][]string),
		simple: make(map[string][]string),
	}
	for _, f := range facts {
		dotted := modulePath(f.Path)
		if dotted == "" {
			continue
		}
		if strings.HasSuffix(dotted, ".__init__") || dotted == "__init__" {
			pkg := strings.TrimSuffix(strings.TrimSuffix(dotted, "__init__"), ".")
			if pkg != "" {
				idx.exact[pkg] = append(idx.exact[pkg], f.Path)
				idx.simple[lastComponent(pkg)] = append(idx.simple[lastComponent(pkg)], f.Path)
			}
			continue
		}
		idx.exact[dotted] = append(idx.exact[dotted], f.Path)
		idx.simple[lastComponent(dotted)] = append(idx.simple[lastComponent(dotted)], f.Path)
	}
	for m := range idx.exact {
		sort.Strings(idx.exact[m])
	}
	for m := range idx.simple {
		sort.Strings(idx.simple[m])
	}
	return idx
}

// resolve maps a module reference to a file, or "" when the reference lands
// outside the repository. Exact dotted matches win over simple-name matches;
// within a tier the lexicographically smallest path is chosen.
func (m *moduleIndex) resolve(module string) string {
	if files := m.exact[module]; len(files) > 0 {
		return files[0]
	}
	if files := m.simple[lastComponent(module)]; len(files) > 0 {
		return files[0]
	}
	return ""
}

func modulePath(file string) string {
	trimmed := strings.TrimSuffix(file, ".py")
	return strings.ReplaceAll(trimmed, "/", ".")
}

func lastComponent(module string) string {
	if i := strings.LastIndex(module, "."); i >= 0 {
		return module[i+1:]
	}
	return module
}
