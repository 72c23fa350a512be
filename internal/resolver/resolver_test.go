package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codetour/internal/extractor"
)

func scenarioFacts() []*extractor.FileFacts {
	return []*extractor.FileFacts{
		{
			Path:        "main.py",
			ScriptEntry: true,
			Symbols:     []extractor.Symbol{{Name: "run", Kind: extractor.SymbolFunction, Line: 4}},
			Imports:     []extractor.Import{{Module: "utils", Line: 1}},
			Calls:       []extractor.CallSite{{Caller: "run", Callee: "process", Line: 5, Column: 12}},
		},
		{
			Path:    "utils.py",
			Symbols: []extractor.Symbol{{Name: "process", Kind: extractor.SymbolFunction, Line: 4}},
			Imports: []extractor.Import{{Module: "helpers", Line: 1}},
			Calls:   []extractor.CallSite{{Caller: "process", Callee: "compute", Line: 5, Column: 12}},
		},
		{
			Path:    "helpers.py",
			Symbols: []extractor.Symbol{{Name: "compute", Kind: extractor.SymbolFunction, Line: 1}},
		},
	}
}

func TestResolve_CrossFileCalls(t *testing.T) {
	res := Resolve(scenarioFacts())

	t.Run("Imports", func(t *testing.T) {
		require.Len(t, res.Imports, 2)
		assert.Equal(t, ImportResolution{File: "main.py", Module: "utils", Target: "utils.py"}, res.Imports[0])
		assert.Equal(t, ImportResolution{File: "utils.py", Module: "helpers", Target: "helpers.py"}, res.Imports[1])
	})

	t.Run("Call edges", func(t *testing.T) {
		require.Len(t, res.CallEdges, 2)

		assert.Equal(t, "main.py::run", res.CallEdges[0].SourceSymbol)
		assert.Equal(t, "utils.py::process", res.CallEdges[0].TargetSymbol)
		assert.False(t, res.CallEdges[0].Ambiguous)

		assert.Equal(t, "utils.py::process", res.CallEdges[1].SourceSymbol)
		assert.Equal(t, "helpers.py::compute", res.CallEdges[1].TargetSymbol)
		assert.False(t, res.CallEdges[1].Ambiguous)
	})

	t.Run("Stats", func(t *testing.T) {
		assert.Equal(t, 2, res.Stats.ImportsAttempted)
		assert.Equal(t, 2, res.Stats.ImportsResolved)
		assert.Equal(t, 2, res.Stats.CallsResolved)
		assert.Equal(t, 0, res.Stats.CallsAmbiguous)
	})
}

func TestResolve_SameFileWinsOverImports(t *testing.T) {
	facts := []*extractor.FileFacts{
		{
			Path: "app.py",
			Symbols: []extractor.Symbol{
				{Name: "handler", Kind: extractor.SymbolFunction, Line: 1},
				{Name: "helper", Kind: extractor.SymbolFunction, Line: 5},
			},
			Imports: []extractor.Import{{Module: "lib", Line: 1}},
			Calls:   []extractor.CallSite{{Caller: "handler", Callee: "helper", Line: 2, Column: 5}},
		},
		{
			Path:    "lib.py",
			Symbols: []extractor.Symbol{{Name: "helper", Kind: extractor.SymbolFunction, Line: 1}},
		},
	}

	res := Resolve(facts)
	require.Len(t, res.CallEdges, 1)
	assert.Equal(t, "app.py::helper", res.CallEdges[0].TargetSymbol,
		"a same-file definition shadows imported candidates")
	assert.False(t, res.CallEdges[0].Ambiguous,
		"the same-file tier had exactly one candidate")
}

func TestResolve_AmbiguousCall(t *testing.T) {
	facts := []*extractor.FileFacts{
		{
			Path:    "alpha.py",
			Symbols: []extractor.Symbol{{Name: "run", Kind: extractor.SymbolFunction, Line: 1}},
		},
		{
			Path:    "beta.py",
			Symbols: []extractor.Symbol{{Name: "run", Kind: extractor.SymbolFunction, Line: 1}},
		},
		{
			Path:    "caller.py",
			Symbols: []extractor.Symbol{{Name: "main", Kind: extractor.SymbolFunction, Line: 3}},
			Imports: []extractor.Import{{Module: "alpha", Line: 1}, {Module: "beta", Line: 2}},
			Calls:   []extractor.CallSite{{Caller: "main", Callee: "run", Line: 4, Column: 5}},
		},
	}

	res := Resolve(facts)
	require.Len(t, res.CallEdges, 1, "an ambiguous call still resolves, it is not dropped")

	edge := res.CallEdges[0]
	assert.True(t, edge.Ambiguous)
	assert.Equal(t, "alpha.py::run", edge.TargetSymbol,
		"tie-break picks the lexicographically smallest qualified name")
}

func TestResolve_UnmatchedCallProducesNoEdge(t *testing.T) {
	facts := []*extractor.FileFacts{
		{
			Path:    "app.py",
			Symbols: []extractor.Symbol{{Name: "main", Kind: extractor.SymbolFunction, Line: 1}},
			Calls:   []extractor.CallSite{{Caller: "main", Callee: "print", Line: 2, Column: 5}},
		},
	}

	res := Resolve(facts)
	assert.Empty(t, res.CallEdges)
	assert.Equal(t, 1, res.Stats.CallsAttempted)
	assert.Equal(t, 0, res.Stats.CallsResolved)
}

func TestResolve_ExternalImportsDropped(t *testing.T) {
	facts := []*extractor.FileFacts{
		{
			Path:    "app.py",
			Imports: []extractor.Import{{Module: "os", Line: 1}, {Module: "numpy", Line: 2}},
		},
	}

	res := Resolve(facts)
	assert.Empty(t, res.Imports, "references outside the repository resolve to nothing")
}

func TestResolve_PackageIndexImport(t *testing.T) {
	facts := []*extractor.FileFacts{
		{Path: "utils/__init__.py"},
		{Path: "utils/helper.py", Symbols: []extractor.Symbol{{Name: "run", Kind: extractor.SymbolFunction, Line: 1}}},
		{Path: "app.py", Imports: []extractor.Import{{Module: "utils", Line: 1}, {Module: "utils.helper", Line: 2}}},
	}

	res := Resolve(facts)
	require.Len(t, res.Imports, 2)
	assert.Equal(t, "utils/__init__.py", res.Imports[0].Target)
	assert.Equal(t, "utils/helper.py", res.Imports[1].Target)
}

func TestResolve_IndependentOfInputOrder(t *testing.T) {
	forward := Resolve(scenarioFacts())

	reversed := scenarioFacts()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	backward := Resolve(reversed)

	assert.Equal(t, forward.Imports, backward.Imports)
	assert.Equal(t, forward.CallEdges, backward.CallEdges)
}
