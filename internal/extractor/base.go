package extractor

import sitter "github.com/smacker/go-tree-sitter"

// LanguageExtractor defines the interface that each language driver must implement.
// Adding a language means adding a driver, not touching the resolver.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	GetQuery() string
	Extensions() []string
	ExtractCapture(captureName string, node *sitter.Node, sourceCode []byte, facts *FileFacts)
}
