package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor_ExtractFile(t *testing.T) {
	source, err := os.ReadFile(filepath.Join("testdata", "sample.py"))
	require.NoError(t, err)

	ext, err := NewExtractor("python")
	require.NoError(t, err)

	facts := ext.ExtractFile(context.Background(), "sample.py", source)
	require.NotNil(t, facts)
	require.False(t, facts.Failed)

	t.Run("Path", func(t *testing.T) {
		assert.Equal(t, "sample.py", facts.Path)
	})

	t.Run("Imports", func(t *testing.T) {
		require.Len(t, facts.Imports, 3)
		assert.Equal(t, Import{Module: "os", Line: 3}, facts.Imports[0])
		assert.Equal(t, Import{Module: "helpers", Line: 4}, facts.Imports[1])
		assert.Equal(t, Import{Module: "utils", Line: 5}, facts.Imports[2])
	})

	t.Run("Symbols", func(t *testing.T) {
		require.Len(t, facts.Symbols, 4)
		assert.Equal(t, Symbol{Name: "top", Kind: SymbolFunction, Line: 8}, facts.Symbols[0])
		assert.Equal(t, Symbol{Name: "format_value", Kind: SymbolFunction, Line: 13}, facts.Symbols[1])
		assert.Equal(t, Symbol{Name: "Greeter", Kind: SymbolClass, Line: 17}, facts.Symbols[2])
		assert.Equal(t, Symbol{Name: "greet", Kind: SymbolFunction, Line: 18}, facts.Symbols[3])
	})

	t.Run("Calls", func(t *testing.T) {
		require.Len(t, facts.Calls, 6)

		type callKey struct {
			Caller string
			Callee string
			Line   int
		}
		var got []callKey
		for _, c := range facts.Calls {
			got = append(got, callKey{Caller: c.Caller, Callee: c.Callee, Line: c.Line})
			assert.Positive(t, c.Column)
		}

		assert.Equal(t, []callKey{
			{Caller: "top", Callee: "compute", Line: 9},
			{Caller: "top", Callee: "format_value", Line: 10},
			{Caller: "format_value", Callee: "str", Line: 14},
			{Caller: "greet", Callee: "format_value", Line: 19},
			{Caller: "greet", Callee: "top", Line: 20},
			{Caller: "greet", Callee: "len", Line: 20},
		}, got)
	})

	t.Run("Script entry", func(t *testing.T) {
		assert.True(t, facts.ScriptEntry, "top-level __main__ guard should mark the file")
	})
}

func TestExtractor_ModuleLevelCallsDropped(t *testing.T) {
	ext, err := NewExtractor("python")
	require.NoError(t, err)

	src := []byte("def ping():\n    return 1\n\n\nping()\n")
	facts := ext.ExtractFile(context.Background(), "mod.py", src)
	require.False(t, facts.Failed)
	assert.Empty(t, facts.Calls, "calls outside any function carry no source symbol")
}

func TestExtractor_InvalidFile(t *testing.T) {
	source, err := os.ReadFile(filepath.Join("testdata", "broken.py"))
	require.NoError(t, err)

	ext, err := NewExtractor("python")
	require.NoError(t, err)

	facts := ext.ExtractFile(context.Background(), "broken.py", source)
	require.NotNil(t, facts, "a broken file still yields a fact record")
	assert.True(t, facts.Failed)
	assert.Empty(t, facts.Symbols)
	assert.Empty(t, facts.Imports)
	assert.Empty(t, facts.Calls)
}

func TestExtractor_UnsupportedLanguage(t *testing.T) {
	_, err := NewExtractor("cobol")
	assert.Error(t, err)
}

func TestExtractor_RelativeImport(t *testing.T) {
	ext, err := NewExtractor("python")
	require.NoError(t, err)

	src := []byte("from .helper import run\nfrom . import sibling\n")
	facts := ext.ExtractFile(context.Background(), "pkg/mod.py", src)
	require.False(t, facts.Failed)

	require.Len(t, facts.Imports, 1, "purely relative imports carry no module name")
	assert.Equal(t, "helper", facts.Imports[0].Module)
}
