// Package scope resolves lexical bindings in a parsed ECMAScript module and
// records every syntactic site that reads or assigns each binding.
package scope

import (
	"sort"

	"explicitexports/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// SiteKind tags the syntactic shape of a reference site.
type SiteKind int

const (
	// KindIdentifier is a plain identifier read.
	KindIdentifier SiteKind = iota
	// KindJSXTag is a component name in a JSX opening, closing or self-closing tag.
	KindJSXTag
	// KindShorthand is an object literal shorthand property such as {a}.
	KindShorthand
	// KindTypeName is a class or enum name used in a type position.
	KindTypeName
	// KindAssignTarget is the bare left side of = or a compound assignment.
	KindAssignTarget
	// KindUpdateTarget is the operand of ++ or --.
	KindUpdateTarget
	// KindPatternTarget is an identifier inside a destructuring assignment target.
	KindPatternTarget
	// KindLoopTarget is the bare left side of for (x in/of ...).
	KindLoopTarget
)

var siteKindNames = map[SiteKind]string{
	KindIdentifier:    "identifier",
	KindJSXTag:        "jsx identifier",
	KindShorthand:     "shorthand property",
	KindTypeName:      "type name",
	KindAssignTarget:  "assignment expression",
	KindUpdateTarget:  "update expression",
	KindPatternTarget: "destructuring assignment",
	KindLoopTarget:    "for-in/of target",
}

func (k SiteKind) String() string {
	if name, ok := siteKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsMutation reports whether the site writes the binding.
func (k SiteKind) IsMutation() bool {
	switch k {
	case KindAssignTarget, KindUpdateTarget, KindPatternTarget, KindLoopTarget:
		return true
	}
	return false
}

// ReferenceSite is one occurrence of a bound name. Node is the identifier node.
type ReferenceSite struct {
	Node     *sitter.Node
	Name     string
	Kind     SiteKind
	Location parser.Location
}

type DeclKind string

const (
	DeclVar       DeclKind = "var"
	DeclLet       DeclKind = "let"
	DeclConst     DeclKind = "const"
	DeclFunction  DeclKind = "function"
	DeclClass     DeclKind = "class"
	DeclParam     DeclKind = "param"
	DeclImport    DeclKind = "import"
	DeclCatch     DeclKind = "catch"
	DeclEnum      DeclKind = "enum"
	DeclNamespace DeclKind = "namespace"
)

// Binding is a declared name together with all of its occurrences.
type Binding struct {
	Name        string
	Kind        DeclKind
	Declaration *sitter.Node
	References  []ReferenceSite
	Mutations   []ReferenceSite
}

// Sites returns a snapshot of the binding's reads followed by its writes.
// Callers may mutate the tree while iterating the snapshot.
func (b *Binding) Sites() []ReferenceSite {
	if b == nil {
		return nil
	}
	out := make([]ReferenceSite, 0, len(b.References)+len(b.Mutations))
	out = append(out, b.References...)
	out = append(out, b.Mutations...)
	return out
}

type Kind int

const (
	ScopeProgram Kind = iota
	ScopeFunction
	ScopeClass
	ScopeBlock
)

type Scope struct {
	Kind     Kind
	Node     *sitter.Node
	Parent   *Scope
	Children []*Scope

	bindings map[string]*Binding
}

func newScope(kind Kind, node *sitter.Node, parent *Scope) *Scope {
	s := &Scope{
		Kind:     kind,
		Node:     node,
		Parent:   parent,
		bindings: make(map[string]*Binding),
	}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Binding returns the binding declared directly in s.
func (s *Scope) Binding(name string) (*Binding, bool) {
	b, ok := s.bindings[name]
	return b, ok
}

// Lookup resolves name from s outward.
func (s *Scope) Lookup(name string) (*Binding, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if b, ok := cur.bindings[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// Resolve returns the references and then the mutations of the binding
// declared in s under name. Unknown names resolve to nothing.
func (s *Scope) Resolve(name string) []ReferenceSite {
	b, ok := s.Binding(name)
	if !ok {
		return nil
	}
	return b.Sites()
}

// Names returns the names declared directly in s, sorted.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.bindings))
	for name := range s.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// functionScope returns the nearest enclosing scope that hoists var declarations.
func (s *Scope) functionScope() *Scope {
	cur := s
	for cur.Kind != ScopeFunction && cur.Kind != ScopeProgram && cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

func (s *Scope) declare(name string, kind DeclKind, node *sitter.Node) *Binding {
	if b, ok := s.bindings[name]; ok {
		return b
	}
	b := &Binding{Name: name, Kind: kind, Declaration: node}
	s.bindings[name] = b
	return b
}
