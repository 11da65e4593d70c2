// Package exports discovers the bindings a module exports and the name each
// one is exported under.
package exports

import (
	"log/slog"

	"explicitexports/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type Mode string

const (
	ModeDefault Mode = "default"
	ModeNamed   Mode = "named"
)

// Descriptor is the resolved (local name, exported name, mode) triple of one
// exported binding.
type Descriptor struct {
	LocalName    string
	ExportedName string
	Mode         Mode
	Location     parser.Location
}

// NewDescriptor builds a descriptor; an empty exported name means the binding
// is exported under its local name.
func NewDescriptor(local, exported string, loc parser.Location) Descriptor {
	if exported == "" {
		exported = local
	}
	mode := ModeNamed
	if exported == "default" {
		mode = ModeDefault
	}
	return Descriptor{LocalName: local, ExportedName: exported, Mode: mode, Location: loc}
}

// Target is the export namespace property references are redirected to.
func (d Descriptor) Target() string {
	if d.Mode == ModeDefault {
		return "default"
	}
	return d.ExportedName
}

type SkipReason string

const (
	SkipAnonymousDefault  SkipReason = "default declaration is anonymous"
	SkipDefaultExpression SkipReason = "default declaration not function or class"
	SkipReexport          SkipReason = "re-export from another module"
	SkipExportStar        SkipReason = "export star"
	SkipModuleString      SkipReason = "module string names are not supported"
	SkipTypeOnly          SkipReason = "type-only export"
	SkipAmbient           SkipReason = "ambient declaration"
	SkipEmpty             SkipReason = "empty named export declaration"
	SkipUnsupported       SkipReason = "named declaration is not a function, class, or variable declaration"
	SkipOccluded          SkipReason = "occluded by a later specifier"
	SkipClaimed           SkipReason = "binding already exported by an earlier statement"
)

type Skip struct {
	Reason   SkipReason
	Name     string
	Location parser.Location
}

// Statement groups the descriptors contributed by one export statement, in
// processing order.
type Statement struct {
	Node        *sitter.Node
	Location    parser.Location
	Descriptors []Descriptor
}

type Discovery struct {
	Statements []Statement
	Skips      []Skip
}

// Descriptors flattens the discovery in processing order.
func (d Discovery) Descriptors() []Descriptor {
	var out []Descriptor
	for _, st := range d.Statements {
		out = append(out, st.Descriptors...)
	}
	return out
}

type discoverer struct {
	prog   *parser.Program
	logger *slog.Logger
	skips  []Skip
}

// Discover visits the top-level export statements of prog in source order.
func Discover(prog *parser.Program, logger *slog.Logger) Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	d := &discoverer{prog: prog, logger: logger.With("component", "exports")}

	var statements []Statement
	for _, node := range parser.NamedChildren(prog.Root()) {
		if node.Kind() != "export_statement" {
			continue
		}
		var descriptors []Descriptor
		if parser.HasToken(node, "default") {
			descriptors = d.defaultExport(node)
		} else {
			descriptors = d.namedExport(node)
		}
		if len(descriptors) == 0 {
			continue
		}
		statements = append(statements, Statement{
			Node:        node,
			Location:    prog.Location(node),
			Descriptors: descriptors,
		})
	}
	return Discovery{Statements: statements, Skips: d.skips}
}

func (d *discoverer) skip(reason SkipReason, name string, node *sitter.Node) {
	d.skips = append(d.skips, Skip{Reason: reason, Name: name, Location: d.prog.Location(node)})
}

func (d *discoverer) defaultExport(node *sitter.Node) []Descriptor {
	dbg := d.logger.With("mode", ModeDefault)
	dbg.Debug("encountered default export declaration", "location", d.prog.Location(node))

	target := parser.Field(node, "declaration")
	if target == nil {
		target = parser.Field(node, "value")
	}
	if target == nil {
		d.skip(SkipDefaultExpression, "", node)
		return nil
	}

	switch target.Kind() {
	case "function_declaration", "generator_function_declaration", "class_declaration", "abstract_class_declaration",
		"function_expression", "function", "generator_function", "class":
		id := parser.Field(target, "name")
		if id == nil {
			dbg.Debug("default declaration is anonymous, ignored")
			d.skip(SkipAnonymousDefault, "", target)
			return nil
		}
		return []Descriptor{NewDescriptor(d.prog.Text(id), "default", d.prog.Location(id))}
	default:
		dbg.Debug("default declaration not function or class, ignored", "kind", target.Kind())
		d.skip(SkipDefaultExpression, "", target)
		return nil
	}
}

func (d *discoverer) namedExport(node *sitter.Node) []Descriptor {
	dbg := d.logger.With("mode", ModeNamed)

	if parser.Field(node, "source") != nil {
		if parser.HasToken(node, "*") || hasNamedChild(node, "namespace_export") {
			d.skip(SkipExportStar, "", node)
		} else {
			d.skip(SkipReexport, "", node)
		}
		return nil
	}
	if parser.HasToken(node, "type") {
		d.skip(SkipTypeOnly, "", node)
		return nil
	}

	declaration := parser.Field(node, "declaration")
	var specifiers []*sitter.Node
	for _, child := range parser.NamedChildren(node) {
		if child.Kind() == "export_clause" {
			specifiers = exportSpecifiers(child)
		}
	}

	if declaration == nil && len(specifiers) == 0 {
		dbg.Debug("ignored empty named export declaration")
		d.skip(SkipEmpty, "", node)
		return nil
	}

	dbg.Debug("encountered named export node", "location", d.prog.Location(node))

	var out []Descriptor
	if declaration != nil {
		out = append(out, d.declarationNames(declaration)...)
	}

	if len(specifiers) > 0 {
		dbg.Debug("processing specifiers", "count", len(specifiers))
	}
	for _, spec := range specifiers {
		if desc, ok := d.specifier(spec); ok {
			out = append(out, desc)
		}
	}
	return d.occlude(out)
}

func (d *discoverer) declarationNames(declaration *sitter.Node) []Descriptor {
	switch declaration.Kind() {
	case "function_declaration", "generator_function_declaration", "function_signature",
		"class_declaration", "abstract_class_declaration", "enum_declaration", "internal_module", "module":
		id := parser.Field(declaration, "name")
		if id == nil || id.Kind() == "string" || id.Kind() == "nested_identifier" {
			d.skip(SkipUnsupported, "", declaration)
			return nil
		}
		return []Descriptor{NewDescriptor(d.prog.Text(id), "", d.prog.Location(id))}
	case "lexical_declaration", "variable_declaration":
		var out []Descriptor
		for _, declarator := range parser.NamedChildren(declaration) {
			if declarator.Kind() != "variable_declarator" {
				continue
			}
			for _, id := range patternIdentifiers(parser.Field(declarator, "name")) {
				out = append(out, NewDescriptor(d.prog.Text(id), "", d.prog.Location(id)))
			}
		}
		return out
	case "interface_declaration", "type_alias_declaration":
		d.skip(SkipTypeOnly, "", declaration)
		return nil
	case "ambient_declaration":
		d.skip(SkipAmbient, "", declaration)
		return nil
	default:
		d.logger.Debug("named declaration is not a function, class, or variable declaration; ignored", "kind", declaration.Kind())
		d.skip(SkipUnsupported, "", declaration)
		return nil
	}
}

func (d *discoverer) specifier(spec *sitter.Node) (Descriptor, bool) {
	local := parser.Field(spec, "name")
	exported := parser.Field(spec, "alias")
	if exported == nil {
		exported = local
	}
	if local == nil {
		return Descriptor{}, false
	}
	if parser.HasToken(spec, "type") {
		d.skip(SkipTypeOnly, d.prog.Text(local), spec)
		return Descriptor{}, false
	}
	if local.Kind() == "string" || exported.Kind() == "string" {
		d.logger.Debug("ignored export specifier because module string names are not supported", "specifier", d.prog.Text(spec))
		d.skip(SkipModuleString, d.prog.Text(local), spec)
		return Descriptor{}, false
	}

	localName := d.prog.Text(local)
	exportedName := d.prog.Text(exported)
	d.logger.Debug("encountered specifier", "local", localName, "exported", exportedName)
	return NewDescriptor(localName, exportedName, d.prog.Location(local)), true
}

// occlude keeps, for each local name, only the last descriptor of one statement.
func (d *discoverer) occlude(in []Descriptor) []Descriptor {
	last := make(map[string]int, len(in))
	for i, desc := range in {
		last[desc.LocalName] = i
	}
	out := make([]Descriptor, 0, len(last))
	for i, desc := range in {
		if last[desc.LocalName] != i {
			d.skips = append(d.skips, Skip{Reason: SkipOccluded, Name: desc.LocalName, Location: desc.Location})
			continue
		}
		out = append(out, desc)
	}
	return out
}

func hasNamedChild(node *sitter.Node, kind string) bool {
	for _, child := range parser.NamedChildren(node) {
		if child.Kind() == kind {
			return true
		}
	}
	return false
}

func exportSpecifiers(clause *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, child := range parser.NamedChildren(clause) {
		if child.Kind() == "export_specifier" {
			out = append(out, child)
		}
	}
	return out
}

// patternIdentifiers returns the identifiers bound by a declarator name in
// source order. Object and array destructuring is expanded at any depth.
func patternIdentifiers(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []*sitter.Node{node}
	case "object_pattern", "array_pattern", "rest_pattern":
		var out []*sitter.Node
		for _, child := range parser.NamedChildren(node) {
			out = append(out, patternIdentifiers(child)...)
		}
		return out
	case "pair_pattern":
		return patternIdentifiers(parser.Field(node, "value"))
	case "assignment_pattern", "object_assignment_pattern":
		return patternIdentifiers(parser.Field(node, "left"))
	}
	return nil
}
