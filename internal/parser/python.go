package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"codeindex/internal/errors"
)

// maxDocstringLen caps stored docstrings so one giant module comment
// cannot bloat symbol rows or the full-text index.
const maxDocstringLen = 500

// pyDecisionNodes are the node types that add a branch to cyclomatic
// complexity. Boolean operators are counted separately via their
// "and"/"or" tokens.
var pyDecisionNodes = map[string]bool{
	"if_statement":    true,
	"elif_clause":     true,
	"for_statement":   true,
	"while_statement": true,
	"except_clause":   true,
}

// Python parses Python source files with tree-sitter.
type Python struct {
	parser *sitter.Parser
}

// NewPython creates a Python parser.
func NewPython() *Python {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Python{parser: p}
}

// Language returns "python".
func (p *Python) Language() string {
	return "python"
}

// Extensions returns the extensions this parser claims.
func (p *Python) Extensions() []string {
	return []string{".py"}
}

// Parse extracts symbols, calls, refs, and imports from Python source.
// Malformed source sets Result.ParseError; extraction still returns
// whatever the tree contains.
func (p *Python) Parse(ctx context.Context, source []byte, relPath string) (*Result, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, errors.Wrap(errors.ParseFailed, "parsing "+relPath, err)
	}

	res := &Result{}
	root := tree.RootNode()
	if root.HasError() {
		res.ParseError = "syntax error"
	}
	p.walk(root, source, res, NoParent)
	return res, nil
}

// walk visits every node, extracting what it recognizes. Definitions
// recurse with themselves as the new parent; calls and attributes are
// recorded and still descended into, so nested expressions are seen too.
func (p *Python) walk(node *sitter.Node, source []byte, res *Result, parent int) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "import_statement":
		p.extractImport(node, source, res)
	case "import_from_statement":
		p.extractImportFrom(node, source, res)
	case "class_definition":
		local := p.extractClass(node, source, res, parent)
		for i := uint32(0); i < node.ChildCount(); i++ {
			p.walk(node.Child(int(i)), source, res, local)
		}
		return
	case "function_definition", "async_function_definition":
		local := p.extractFunction(node, source, res, parent)
		for i := uint32(0); i < node.ChildCount(); i++ {
			p.walk(node.Child(int(i)), source, res, local)
		}
		return
	case "call":
		p.extractCall(node, source, res, parent)
	case "attribute":
		p.extractRef(node, source, res, parent)
	}

	for i := uint32(0); i < node.ChildCount(); i++ {
		p.walk(node.Child(int(i)), source, res, parent)
	}
}

func (p *Python) extractImport(node *sitter.Node, source []byte, res *Result) {
	line := int(node.StartPoint().Row) + 1
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child == nil {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			res.Imports = append(res.Imports, Import{
				Module: nodeText(child, source),
				Line:   line,
			})
		case "aliased_import":
			imp := Import{Line: line}
			if name := child.ChildByFieldName("name"); name != nil {
				imp.Module = nodeText(name, source)
			}
			if alias := child.ChildByFieldName("alias"); alias != nil {
				imp.Alias = nodeText(alias, source)
			}
			res.Imports = append(res.Imports, imp)
		}
	}
}

func (p *Python) extractImportFrom(node *sitter.Node, source []byte, res *Result) {
	line := int(node.StartPoint().Row) + 1
	module := ""
	var names []Import

	// Children before the "import" keyword name the module; children
	// after it name what is imported.
	seenImport := false
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child == nil {
			continue
		}
		switch child.Type() {
		case "import":
			seenImport = true
		case "relative_import":
			module = nodeText(child, source)
		case "dotted_name", "identifier":
			if seenImport {
				names = append(names, Import{Name: nodeText(child, source)})
			} else {
				module = nodeText(child, source)
			}
		case "aliased_import":
			imp := Import{}
			if name := child.ChildByFieldName("name"); name != nil {
				imp.Name = nodeText(name, source)
			}
			if alias := child.ChildByFieldName("alias"); alias != nil {
				imp.Alias = nodeText(alias, source)
			}
			names = append(names, imp)
		}
	}

	if len(names) == 0 {
		// Wildcard or bare relative import.
		res.Imports = append(res.Imports, Import{Module: module, IsFrom: true, Line: line})
		return
	}
	for _, imp := range names {
		imp.Module = module
		imp.IsFrom = true
		imp.Line = line
		res.Imports = append(res.Imports, imp)
	}
}

func (p *Python) extractClass(node *sitter.Node, source []byte, res *Result, parent int) int {
	sym := Symbol{
		LocalID:     len(res.Symbols),
		ParentLocal: parent,
		Kind:        "class",
		LineStart:   int(node.StartPoint().Row) + 1,
		LineEnd:     int(node.EndPoint().Row) + 1,
		Docstring:   docstringOf(node, source),
	}

	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier":
			if sym.Name == "" {
				sym.Name = nodeText(child, source)
			}
		case "argument_list":
			for j := uint32(0); j < child.ChildCount(); j++ {
				arg := child.Child(int(j))
				if arg == nil {
					continue
				}
				switch arg.Type() {
				case "(", ")", ",":
				default:
					sym.Bases = append(sym.Bases, nodeText(arg, source))
				}
			}
		}
	}

	sym.Decorators = decoratorsOf(node, source)
	res.Symbols = append(res.Symbols, sym)
	return sym.LocalID
}

func (p *Python) extractFunction(node *sitter.Node, source []byte, res *Result, parent int) int {
	kind := "function"
	if parent != NoParent && res.Symbols[parent].Kind == "class" {
		kind = "method"
	}

	sym := Symbol{
		LocalID:     len(res.Symbols),
		ParentLocal: parent,
		Kind:        kind,
		LineStart:   int(node.StartPoint().Row) + 1,
		LineEnd:     int(node.EndPoint().Row) + 1,
		Docstring:   docstringOf(node, source),
		Complexity:  complexityOf(node),
		IsAsync:     node.Type() == "async_function_definition",
	}

	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child == nil {
			continue
		}
		switch child.Type() {
		case "async":
			sym.IsAsync = true
		case "identifier":
			if sym.Name == "" {
				sym.Name = nodeText(child, source)
			}
		case "parameters":
			sym.Params = extractParams(child, source)
		case "type":
			sym.ReturnType = nodeText(child, source)
		}
	}

	sym.Decorators = decoratorsOf(node, source)
	res.Symbols = append(res.Symbols, sym)
	return sym.LocalID
}

func extractParams(node *sitter.Node, source []byte) []Param {
	var params []Param
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child == nil {
			continue
		}
		if p, ok := parseParam(child, source); ok && p.Name != "self" && p.Name != "cls" {
			params = append(params, p)
		}
	}
	return params
}

func parseParam(node *sitter.Node, source []byte) (Param, bool) {
	switch node.Type() {
	case "identifier":
		return Param{Name: nodeText(node, source)}, true

	case "typed_parameter":
		p := Param{}
		for i := uint32(0); i < node.ChildCount(); i++ {
			child := node.Child(int(i))
			if child == nil {
				continue
			}
			switch child.Type() {
			case "identifier":
				p.Name = nodeText(child, source)
			case "type":
				p.Type = nodeText(child, source)
			}
		}
		return p, p.Name != ""

	case "default_parameter", "typed_default_parameter":
		p := Param{}
		if name := node.ChildByFieldName("name"); name != nil {
			p.Name = nodeText(name, source)
		}
		if typ := node.ChildByFieldName("type"); typ != nil {
			p.Type = nodeText(typ, source)
		}
		if value := node.ChildByFieldName("value"); value != nil {
			p.Default = nodeText(value, source)
		}
		return p, p.Name != ""

	case "list_splat_pattern":
		if name := firstIdentifier(node, source); name != "" {
			return Param{Name: "*" + name}, true
		}

	case "dictionary_splat_pattern":
		if name := firstIdentifier(node, source); name != "" {
			return Param{Name: "**" + name}, true
		}
	}
	return Param{}, false
}

func firstIdentifier(node *sitter.Node, source []byte) string {
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child != nil && child.Type() == "identifier" {
			return nodeText(child, source)
		}
	}
	return ""
}

func (p *Python) extractCall(node *sitter.Node, source []byte, res *Result, parent int) {
	funcNode := node.ChildByFieldName("function")
	if funcNode == nil {
		return
	}
	callee := nodeText(funcNode, source)
	line := int(node.StartPoint().Row) + 1

	res.Calls = append(res.Calls, Call{
		CallerLocal: parent,
		CalleeExpr:  callee,
		Line:        line,
	})

	// Signal wiring: obj.signal.connect(self.handler) means handler gets
	// invoked, so record a call to the connected attribute as well.
	if !strings.HasSuffix(callee, ".connect") {
		return
	}
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	for i := uint32(0); i < args.ChildCount(); i++ {
		arg := args.Child(int(i))
		if arg == nil || arg.Type() != "attribute" {
			continue
		}
		argText := nodeText(arg, source)
		if strings.HasPrefix(argText, "self.") {
			res.Calls = append(res.Calls, Call{
				CallerLocal: parent,
				CalleeExpr:  argText,
				Line:        line,
			})
		}
	}
}

// extractRef records self.X and self.X.Y attribute chains as read refs.
// The walker also descends into the attribute's children, so a chain like
// self.a.b yields refs for both the outer and the inner attribute.
func (p *Python) extractRef(node *sitter.Node, source []byte, res *Result, parent int) {
	parts := strings.Split(nodeText(node, source), ".")
	if len(parts) < 2 || parts[0] != "self" {
		return
	}

	ref := Ref{
		SymbolLocal: parent,
		Kind:        "read",
		Line:        int(node.StartPoint().Row) + 1,
	}
	if len(parts) == 2 {
		ref.Target = "self"
		ref.Name = parts[1]
	} else {
		ref.Target = "self." + parts[1]
		ref.Name = parts[2]
	}
	res.Refs = append(res.Refs, ref)
}

// decoratorsOf collects decorator siblings preceding a definition, in
// source order. Decorated definitions wrap the decorators and the
// definition as siblings under one node.
func decoratorsOf(node *sitter.Node, source []byte) []string {
	var decorators []string
	for prev := node.PrevNamedSibling(); prev != nil && prev.Type() == "decorator"; prev = prev.PrevNamedSibling() {
		text := strings.TrimSpace(strings.TrimPrefix(nodeText(prev, source), "@"))
		decorators = append([]string{text}, decorators...)
	}
	return decorators
}

// docstringOf returns the first string expression of a definition's block,
// quotes stripped, capped at maxDocstringLen.
func docstringOf(node *sitter.Node, source []byte) string {
	var body *sitter.Node
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child != nil && child.Type() == "block" {
			body = child
			break
		}
	}
	if body == nil || body.ChildCount() == 0 {
		return ""
	}

	first := body.Child(0)
	if first == nil || first.Type() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	str := first.Child(0)
	if str == nil || str.Type() != "string" {
		return ""
	}

	text := nodeText(str, source)
	for _, q := range []string{`"""`, "'''", `"`, "'"} {
		if len(text) >= 2*len(q) && strings.HasPrefix(text, q) && strings.HasSuffix(text, q) {
			doc := strings.TrimSpace(text[len(q) : len(text)-len(q)])
			if len(doc) > maxDocstringLen {
				doc = doc[:maxDocstringLen]
			}
			return doc
		}
	}
	return ""
}

// complexityOf computes cyclomatic complexity: one plus every branch point
// in the subtree, including nested definitions.
func complexityOf(node *sitter.Node) int {
	complexity := 1
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		for i := uint32(0); i < n.ChildCount(); i++ {
			child := n.Child(int(i))
			if child == nil {
				continue
			}
			t := child.Type()
			if pyDecisionNodes[t] || t == "and" || t == "or" {
				complexity++
			}
			walk(child)
		}
	}
	walk(node)
	return complexity
}

func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
