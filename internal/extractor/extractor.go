package extractor

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
)

// Extractor reads entity headers from VHDL files. With a Tree-sitter VHDL
// language set it locates entity declarations in the syntax tree; without
// one it falls back to pattern matching over the source.
type Extractor struct {
	parser *sitter.Parser
	lang   *sitter.Language
}

// FileFacts contains the entities declared in a single VHDL file
type FileFacts struct {
	File          string
	Entities      []Entity
	Architectures []Architecture
}

// Entity is a VHDL entity header
type Entity struct {
	Name     string
	Line     int
	Generics []Generic
	Ports    []Port
}

// Architecture represents a VHDL architecture body
type Architecture struct {
	Name       string
	EntityName string
	Line       int
}

// Generic is one entity generic
type Generic struct {
	Name    string
	Type    string
	Default string
}

// Port is one entity port. Left and Right hold the range of a vector type
// as written; both are empty for scalars.
type Port struct {
	Name      string
	Direction string // in, out, inout, buffer
	Type      string
	Left      string
	Right     string
	Default   string
}

// New creates an Extractor that uses the pattern fallback until SetLanguage
// is called.
func New() *Extractor {
	return &Extractor{parser: sitter.NewParser()}
}

// SetLanguage sets the Tree-sitter language (VHDL)
func (e *Extractor) SetLanguage(lang *sitter.Language) {
	e.lang = lang
	e.parser.SetLanguage(lang)
}

// Extract parses a VHDL file and extracts its entity headers
func (e *Extractor) Extract(filePath string) (FileFacts, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return FileFacts{File: filePath}, fmt.Errorf("reading file: %w", err)
	}
	return e.ExtractSource(context.Background(), filePath, content)
}

// ExtractSource extracts entity headers from VHDL source held in memory.
func (e *Extractor) ExtractSource(ctx context.Context, filePath string, content []byte) (FileFacts, error) {
	if e.lang == nil {
		return extractSimple(filePath, content), nil
	}

	tree, err := e.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return FileFacts{File: filePath}, fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()

	facts := FileFacts{File: filePath}
	e.walkTree(tree.RootNode(), content, &facts)
	return facts, nil
}

// walkTree collects entity declarations and architecture bodies. The entity
// header itself is read from the node's source text, which keeps the
// extraction independent of how a grammar names generic and port clauses.
func (e *Extractor) walkTree(node *sitter.Node, source []byte, facts *FileFacts) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "entity_declaration":
		line := int(node.StartPoint().Row) + 1
		for _, ent := range parseEntities(node.Content(source)) {
			ent.Line += line - 1
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				ent.Name = nameNode.Content(source)
			}
			facts.Entities = append(facts.Entities, ent)
		}
		return

	case "architecture_body":
		arch := Architecture{Line: int(node.StartPoint().Row) + 1}
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			arch.Name = nameNode.Content(source)
		}
		if entityNode := node.ChildByFieldName("entity"); entityNode != nil {
			arch.EntityName = entityNode.Content(source)
		}
		facts.Architectures = append(facts.Architectures, arch)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		e.walkTree(node.Child(i), source, facts)
	}
}

// extractSimple is the pattern based fallback used when no grammar is loaded
func extractSimple(filePath string, content []byte) FileFacts {
	text := stripComments(string(content))
	facts := FileFacts{File: filePath, Entities: parseEntities(text)}
	for _, m := range archPattern.FindAllStringSubmatchIndex(text, -1) {
		facts.Architectures = append(facts.Architectures, Architecture{
			Name:       text[m[2]:m[3]],
			EntityName: text[m[4]:m[5]],
			Line:       lineOf(text, m[0]),
		})
	}
	return facts
}
