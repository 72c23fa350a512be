package graph

import (
	"encoding/json"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codetour/internal/extractor"
	"codetour/internal/resolver"
)

func scenarioModel(t *testing.T) *KnowledgeModel {
	t.Helper()

	facts := []*extractor.FileFacts{
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

	m, err := Build(facts, resolver.Resolve(facts))
	require.NoError(t, err)
	return m
}

func TestBuild_ScenarioModel(t *testing.T) {
	m := scenarioModel(t)

	assert.Equal(t, SchemaVersion, m.SchemaVersion)

	t.Run("Files sorted by path", func(t *testing.T) {
		require.Len(t, m.Files, 3)
		assert.Equal(t, "helpers.py", m.Files[0].Path)
		assert.Equal(t, "main.py", m.Files[1].Path)
		assert.Equal(t, "utils.py", m.Files[2].Path)
		assert.True(t, m.Files[1].ScriptEntry)
	})

	t.Run("Dependency edges", func(t *testing.T) {
		require.Len(t, m.DependencyEdges, 2)
		assert.Equal(t, DependencyEdge{From: "main.py", To: "utils.py"}, m.DependencyEdges[0])
		assert.Equal(t, DependencyEdge{From: "utils.py", To: "helpers.py"}, m.DependencyEdges[1])
	})

	t.Run("Call edges", func(t *testing.T) {
		require.Len(t, m.CallEdges, 2)
		assert.Equal(t, "main.py::run", m.CallEdges[0].From)
		assert.Equal(t, "utils.py::process", m.CallEdges[0].To)
		assert.Equal(t, "utils.py::process", m.CallEdges[1].From)
		assert.Equal(t, "helpers.py::compute", m.CallEdges[1].To)
	})

	t.Run("Lookups", func(t *testing.T) {
		assert.True(t, m.HasFile("main.py"))
		assert.False(t, m.HasFile("missing.py"))
		assert.True(t, m.HasSymbol("utils.py::process"))
		assert.False(t, m.HasSymbol("utils.py::missing"))
		assert.Equal(t, []string{"utils.py"}, m.Dependencies("main.py"))
		assert.Equal(t, []string{"utils.py"}, m.Dependents("helpers.py"))
	})
}

func TestBuild_FailedFileKeepsNode(t *testing.T) {
	facts := []*extractor.FileFacts{
		{Path: "broken.py", Failed: true},
		{Path: "ok.py", Symbols: []extractor.Symbol{{Name: "f", Kind: extractor.SymbolFunction, Line: 1}}},
	}

	m, err := Build(facts, resolver.Resolve(facts))
	require.NoError(t, err)

	require.Len(t, m.Files, 2)
	assert.True(t, m.Files[0].Failed)
	assert.Empty(t, m.CallEdges)
	for _, s := range m.Symbols {
		assert.NotEqual(t, "broken.py", s.File, "a failed file contributes no symbols")
	}
}

func TestBuild_RejectsDanglingCallEdge(t *testing.T) {
	facts := []*extractor.FileFacts{
		{Path: "a.py", Symbols: []extractor.Symbol{{Name: "f", Kind: extractor.SymbolFunction, Line: 1}}},
	}
	res := &resolver.Resolution{
		CallEdges: []resolver.CallEdge{{
			SourceFile:   "a.py",
			SourceSymbol: "a.py::f",
			TargetFile:   "ghost.py",
			TargetSymbol: "ghost.py::g",
			Callee:       "g",
			Line:         1,
			Column:       1,
		}},
	}

	_, err := Build(facts, res)
	require.Error(t, err)

	var consistency *ConsistencyError
	assert.ErrorAs(t, err, &consistency)
}

func TestBuild_DeterministicSerialization(t *testing.T) {
	first, err := json.MarshalIndent(scenarioModel(t), "", "  ")
	require.NoError(t, err)
	second, err := json.MarshalIndent(scenarioModel(t), "", "  ")
	require.NoError(t, err)

	assert.Equal(t, first, second, "two builds over the same facts serialize byte-identically")
}

func TestModel_ValidatesAgainstJSONSchema(t *testing.T) {
	_, currentFile, _, ok := runtime.Caller(0)
	require.True(t, ok)
	schemaPath := filepath.Join(filepath.Dir(currentFile), "..", "..", "docs", "graph_document.schema.json")

	sch, err := jsonschema.Compile(schemaPath)
	require.NoError(t, err)

	data, err := json.Marshal(scenarioModel(t))
	require.NoError(t, err)

	var doc interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.NoError(t, sch.Validate(doc))
}
