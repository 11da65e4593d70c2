package scope

import (
	"unicode"
	"unicode/utf8"

	"explicitexports/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var functionKinds = map[string]bool{
	"function_declaration":           true,
	"generator_function_declaration": true,
	"function_expression":            true,
	"function":                       true,
	"generator_function":             true,
	"arrow_function":                 true,
	"method_definition":              true,
	"class_static_block":             true,
}

var classKinds = map[string]bool{
	"class_declaration":          true,
	"abstract_class_declaration": true,
	"class":                      true,
}

var blockKinds = map[string]bool{
	"statement_block":  true,
	"for_statement":    true,
	"for_in_statement": true,
	"catch_clause":     true,
	"switch_body":      true,
}

var patternKinds = map[string]bool{
	"object_pattern":            true,
	"array_pattern":             true,
	"pair_pattern":              true,
	"rest_pattern":              true,
	"assignment_pattern":        true,
	"object_assignment_pattern": true,
}

var jsxElementKinds = map[string]bool{
	"jsx_opening_element":      true,
	"jsx_closing_element":      true,
	"jsx_self_closing_element": true,
}

// Type names only refer to bindings that also live in the type namespace.
var typeBindingKinds = map[DeclKind]bool{
	DeclClass:     true,
	DeclEnum:      true,
	DeclImport:    true,
	DeclNamespace: true,
}

type analyzer struct {
	prog   *parser.Program
	root   *Scope
	scopes map[uintptr]*Scope
	decls  map[uintptr]bool
}

// Analyze builds the scope tree of prog and attaches every resolvable
// reference and mutation site to its binding. It returns the program scope.
func Analyze(prog *parser.Program) *Scope {
	root := prog.Root()
	a := &analyzer{
		prog:   prog,
		root:   newScope(ScopeProgram, root, nil),
		scopes: make(map[uintptr]*Scope),
		decls:  make(map[uintptr]bool),
	}
	a.scopes[root.Id()] = a.root
	a.declareWalk(root, a.root)
	a.collectWalk(root, a.root)
	return a.root
}

func (a *analyzer) openScope(node *sitter.Node, cur *Scope) *Scope {
	kind := node.Kind()
	var s *Scope
	switch {
	case functionKinds[kind]:
		s = newScope(ScopeFunction, node, cur)
	case classKinds[kind]:
		s = newScope(ScopeClass, node, cur)
	case blockKinds[kind]:
		if kind == "statement_block" {
			if parent := node.Parent(); parent != nil && functionKinds[parent.Kind()] {
				return cur
			}
		}
		s = newScope(ScopeBlock, node, cur)
	default:
		return cur
	}
	a.scopes[node.Id()] = s
	return s
}

func (a *analyzer) declareWalk(node *sitter.Node, cur *Scope) {
	if node == nil {
		return
	}
	outer := cur
	if node.Kind() != "program" {
		cur = a.openScope(node, cur)
	}

	switch node.Kind() {
	case "function_declaration", "generator_function_declaration", "function_signature":
		a.bindName(parser.Field(node, "name"), outer, DeclFunction)
	case "function_expression", "function", "generator_function":
		a.bindName(parser.Field(node, "name"), ownOrOuter(node, cur, outer), DeclFunction)
	case "class_declaration", "abstract_class_declaration":
		a.bindName(parser.Field(node, "name"), outer, DeclClass)
	case "class":
		a.bindName(parser.Field(node, "name"), ownOrOuter(node, cur, outer), DeclClass)
	case "enum_declaration":
		a.bindName(parser.Field(node, "name"), cur, DeclEnum)
	case "internal_module", "module":
		a.bindName(parser.Field(node, "name"), cur, DeclNamespace)
	case "interface_declaration", "type_alias_declaration", "type_parameter":
		a.markDecl(parser.Field(node, "name"))
	case "variable_declarator":
		a.declareDeclarator(node, cur)
	case "formal_parameters":
		if parent := node.Parent(); parent != nil && functionKinds[parent.Kind()] {
			a.bindChildren(node, cur, DeclParam)
		} else {
			a.bindChildren(node, nil, DeclParam)
		}
	case "arrow_function":
		a.bindPattern(parser.Field(node, "parameter"), cur, DeclParam)
	case "catch_clause":
		a.bindPattern(parser.Field(node, "parameter"), cur, DeclCatch)
	case "for_in_statement":
		a.declareLoopHead(node, cur)
	case "import_statement":
		a.declareImport(node)
		return
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		a.declareWalk(node.Child(i), cur)
	}
}

func (a *analyzer) declareDeclarator(node *sitter.Node, cur *Scope) {
	parent := node.Parent()
	if parent == nil {
		return
	}
	target := cur
	kind := DeclVar
	switch parent.Kind() {
	case "lexical_declaration":
		kind = DeclLet
		if a.prog.Text(parser.Field(parent, "kind")) == "const" || parser.HasToken(parent, "const") {
			kind = DeclConst
		}
	case "variable_declaration":
		target = cur.functionScope()
	default:
		return
	}
	a.bindPattern(parser.Field(node, "name"), target, kind)
}

func (a *analyzer) declareLoopHead(node *sitter.Node, cur *Scope) {
	kindNode := parser.Field(node, "kind")
	if kindNode == nil {
		return
	}
	left := parser.Field(node, "left")
	switch a.prog.Text(kindNode) {
	case "var":
		a.bindPattern(left, cur.functionScope(), DeclVar)
	case "const":
		a.bindPattern(left, cur, DeclConst)
	default:
		a.bindPattern(left, cur, DeclLet)
	}
}

func (a *analyzer) declareImport(node *sitter.Node) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Kind() {
		case "import_specifier":
			local := parser.Field(n, "alias")
			if local == nil {
				local = parser.Field(n, "name")
			}
			if local != nil && local.Kind() == "identifier" {
				a.bindName(local, a.root, DeclImport)
			}
			return
		case "identifier":
			a.bindName(n, a.root, DeclImport)
			return
		case "string":
			return
		}
		for _, child := range parser.NamedChildren(n) {
			walk(child)
		}
	}
	for _, child := range parser.NamedChildren(node) {
		walk(child)
	}
}

func (a *analyzer) bindChildren(node *sitter.Node, s *Scope, kind DeclKind) {
	for _, child := range parser.NamedChildren(node) {
		a.bindPattern(child, s, kind)
	}
}

// bindPattern declares every identifier bound by a declaration pattern. A nil
// scope only marks the identifiers as declaration sites.
func (a *analyzer) bindPattern(node *sitter.Node, s *Scope, kind DeclKind) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		if s == nil {
			a.markDecl(node)
			return
		}
		a.bindName(node, s, kind)
	case "object_pattern", "array_pattern", "rest_pattern":
		a.bindChildren(node, s, kind)
	case "pair_pattern":
		a.bindPattern(parser.Field(node, "value"), s, kind)
	case "assignment_pattern", "object_assignment_pattern":
		a.bindPattern(parser.Field(node, "left"), s, kind)
	case "required_parameter", "optional_parameter":
		a.bindPattern(parser.Field(node, "pattern"), s, kind)
	}
}

func (a *analyzer) bindName(node *sitter.Node, s *Scope, kind DeclKind) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "identifier", "type_identifier", "shorthand_property_identifier_pattern":
	default:
		return
	}
	a.markDecl(node)
	s.declare(a.prog.Text(node), kind, node)
}

func (a *analyzer) markDecl(node *sitter.Node) {
	if node != nil {
		a.decls[node.Id()] = true
	}
}

func (a *analyzer) collectWalk(node *sitter.Node, cur *Scope) {
	if node == nil {
		return
	}
	if s, ok := a.scopes[node.Id()]; ok {
		cur = s
	}

	switch node.Kind() {
	case "import_statement":
		return
	case "export_statement":
		// Re-exports name bindings of another module.
		if parser.Field(node, "source") != nil {
			return
		}
	case "identifier":
		if kind, ok := a.classifyIdentifier(node); ok {
			a.reference(node, cur, kind)
		}
	case "shorthand_property_identifier":
		a.reference(node, cur, KindShorthand)
	case "shorthand_property_identifier_pattern":
		if !a.decls[node.Id()] {
			a.reference(node, cur, KindPatternTarget)
		}
	case "type_identifier":
		if !a.decls[node.Id()] {
			a.reference(node, cur, KindTypeName)
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		a.collectWalk(node.Child(i), cur)
	}
}

func (a *analyzer) classifyIdentifier(node *sitter.Node) (SiteKind, bool) {
	if a.decls[node.Id()] {
		return 0, false
	}
	// (x) = 1 writes x; classify against the first non-parenthesis ancestor.
	child, parent := node, node.Parent()
	for parent != nil && parent.Kind() == "parenthesized_expression" {
		child, parent = parent, parent.Parent()
	}
	if parent == nil {
		return KindIdentifier, true
	}

	switch kind := parent.Kind(); {
	case kind == "jsx_namespace_name":
		return 0, false
	case kind == "export_specifier":
		if parser.IsField(parent, child, "alias") {
			return 0, false
		}
	case jsxElementKinds[kind]:
		if parser.IsField(parent, child, "name") {
			if isIntrinsicTag(a.prog.Text(node)) {
				return 0, false
			}
			return KindJSXTag, true
		}
	case kind == "member_expression":
		if parser.IsField(parent, child, "object") && inJSXTagName(parent) {
			return KindJSXTag, true
		}
	case kind == "assignment_expression" || kind == "augmented_assignment_expression":
		if parser.IsField(parent, child, "left") {
			return KindAssignTarget, true
		}
	case kind == "update_expression":
		if parser.IsField(parent, child, "argument") {
			return KindUpdateTarget, true
		}
	case kind == "for_in_statement":
		if parser.IsField(parent, child, "left") && parser.Field(parent, "kind") == nil {
			return KindLoopTarget, true
		}
	case patternKinds[kind]:
		if (kind == "assignment_pattern" || kind == "object_assignment_pattern") && parser.IsField(parent, child, "right") {
			return KindIdentifier, true
		}
		return KindPatternTarget, true
	}
	return KindIdentifier, true
}

func (a *analyzer) reference(node *sitter.Node, cur *Scope, kind SiteKind) {
	name := a.prog.Text(node)
	b, ok := cur.Lookup(name)
	if !ok {
		return
	}
	if kind == KindTypeName && !typeBindingKinds[b.Kind] {
		return
	}
	site := ReferenceSite{
		Node:     node,
		Name:     name,
		Kind:     kind,
		Location: a.prog.Location(node),
	}
	if kind.IsMutation() {
		b.Mutations = append(b.Mutations, site)
		return
	}
	b.References = append(b.References, site)
}

// ownOrOuter picks the scope a function or class expression name binds in.
// `export default function f() {}` may surface as an expression, but f is
// still a module binding.
func ownOrOuter(node *sitter.Node, own, outer *Scope) *Scope {
	if parent := node.Parent(); parent != nil && parent.Kind() == "export_statement" && parser.IsField(parent, node, "value") {
		return outer
	}
	return own
}

// inJSXTagName reports whether member is (part of) the dotted name of a JSX tag.
func inJSXTagName(member *sitter.Node) bool {
	cur := member
	for {
		parent := cur.Parent()
		if parent == nil {
			return false
		}
		switch {
		case parent.Kind() == "member_expression" && parser.IsField(parent, cur, "object"):
			cur = parent
		case jsxElementKinds[parent.Kind()]:
			return parser.IsField(parent, cur, "name")
		default:
			return false
		}
	}
}

// isIntrinsicTag reports whether a JSX tag name denotes a host element
// rather than a component binding.
func isIntrinsicTag(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return r == utf8.RuneError || unicode.IsLower(r)
}
