package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Program is one parsed source file: the syntax tree plus the bytes it was
// parsed from. Node byte offsets index into Source.
type Program struct {
	Path     string
	Language string
	JSX      bool
	Source   []byte

	tree *sitter.Tree
}

func (p *Program) Root() *sitter.Node {
	return p.tree.RootNode()
}

func (p *Program) Close() {
	if p.tree != nil {
		p.tree.Close()
		p.tree = nil
	}
}

func (p *Program) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(p.Source[node.StartByte():node.EndByte()])
}

func (p *Program) Location(node *sitter.Node) Location {
	if node == nil {
		return Location{File: p.Path}
	}
	return Location{
		File:   p.Path,
		Line:   int(node.StartPosition().Row) + 1,
		Column: int(node.StartPosition().Column) + 1,
	}
}

// Field returns the child stored under field name, or nil.
func Field(node *sitter.Node, name string) *sitter.Node {
	if node == nil {
		return nil
	}
	return node.ChildByFieldName(name)
}

// SameNode reports whether a and b denote the same syntax node.
func SameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Id() == b.Id()
}

// IsField reports whether child is stored under field name in parent.
func IsField(parent, child *sitter.Node, name string) bool {
	return SameNode(Field(parent, name), child)
}

// NamedChildren returns the named children of node in source order.
func NamedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if child := node.NamedChild(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// HasToken reports whether node has a direct anonymous child with the given kind,
// such as the "default" keyword of an export statement.
func HasToken(node *sitter.Node, kind string) bool {
	if node == nil {
		return false
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && !child.IsNamed() && child.Kind() == kind {
			return true
		}
	}
	return false
}

// FindAncestor walks from node's parent outward and returns the first
// ancestor accepted by match.
func FindAncestor(node *sitter.Node, match func(*sitter.Node) bool) *sitter.Node {
	if node == nil {
		return nil
	}
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		if match(cur) {
			return cur
		}
	}
	return nil
}
