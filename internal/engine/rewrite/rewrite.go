// Package rewrite redirects references to exported bindings through the
// module's export namespace.
package rewrite

import (
	"fmt"
	"log/slog"
	"strings"

	"explicitexports/internal/engine/exports"
	"explicitexports/internal/engine/parser"
	"explicitexports/internal/engine/scope"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Namespace is the export object rewritten references are rooted at.
const Namespace = "module.exports"

type Action string

const (
	ActionRewrite Action = "rewrite"
	ActionSkip    Action = "skip"
)

type Reason string

const (
	ReasonIdentifier      Reason = "identifier"
	ReasonJSXIdentifier   Reason = "JSX identifier"
	ReasonAssignment      Reason = "assignment expression"
	ReasonExportSpecifier Reason = "part of an export specifier"
	ReasonTypeReference   Reason = "TypeScript type reference"
	ReasonAssignDisabled  Reason = "assignment rewriting disabled"
	ReasonShorthand       Reason = "object shorthand property"
	ReasonDestructuring   Reason = "destructuring assignment target"
	ReasonLoopTarget      Reason = "for-in/of loop target"
	ReasonUnsupported     Reason = "unsupported type"
	ReasonConflict        Reason = "conflicting edit"
)

// Decision records what happened to one reference site.
type Decision struct {
	Descriptor  exports.Descriptor
	Site        scope.ReferenceSite
	Ordinal     int
	Action      Action
	Reason      Reason
	Replacement string
}

// ID names the decision the way debug output does, e.g. "ref-fn1-2".
func (d Decision) ID() string {
	return fmt.Sprintf("ref-%s-%d", d.Descriptor.ExportedName, d.Ordinal)
}

type Options struct {
	// TransformAssignExpr enables rewriting assignment and update targets.
	TransformAssignExpr bool
}

type Rewriter struct {
	buf    *Buffer
	opts   Options
	logger *slog.Logger
}

func New(src []byte, opts Options, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rewriter{
		buf:    NewBuffer(src),
		opts:   opts,
		logger: logger.With("component", "rewrite"),
	}
}

// MemberPath is the export namespace access for desc.
func MemberPath(desc exports.Descriptor) string {
	return Namespace + "." + desc.Target()
}

// Rewrite decides every site of desc in order and schedules the edits for the
// eligible ones. sites must be collected before the call.
func (r *Rewriter) Rewrite(desc exports.Descriptor, sites []scope.ReferenceSite) []Decision {
	dbg := r.logger.With("mode", desc.Mode, "local", desc.LocalName)
	if len(sites) == 0 {
		dbg.Debug("no references to update")
		return nil
	}
	if desc.ExportedName != desc.LocalName {
		dbg.Debug("potentially updating references", "count", len(sites), "exported", desc.ExportedName)
	} else {
		dbg.Debug("potentially updating references", "count", len(sites))
	}

	decisions := make([]Decision, 0, len(sites))
	for i, site := range sites {
		d := r.decide(desc, site)
		d.Ordinal = i + 1
		if d.Action == ActionRewrite {
			if err := r.buf.Replace(int(site.Node.StartByte()), int(site.Node.EndByte()), d.Replacement); err != nil {
				r.logger.Warn("reference skipped", "ref", d.ID(), "error", err)
				d.Action, d.Reason, d.Replacement = ActionSkip, ReasonConflict, ""
			}
		}
		if d.Action == ActionRewrite {
			dbg.Debug("transforming reference", "ref", d.ID(), "type", d.Reason, "location", site.Location)
		} else {
			dbg.Debug("reference skipped", "ref", d.ID(), "reason", d.Reason, "location", site.Location)
		}
		decisions = append(decisions, d)
	}
	return decisions
}

func (r *Rewriter) decide(desc exports.Descriptor, site scope.ReferenceSite) Decision {
	d := Decision{Descriptor: desc, Site: site, Action: ActionSkip}

	if hasAncestor(site, isExportSpecifier) {
		d.Reason = ReasonExportSpecifier
		return d
	}
	if hasAncestor(site, isTypeContext) {
		d.Reason = ReasonTypeReference
		return d
	}

	switch site.Kind {
	case scope.KindJSXTag:
		d.Reason = ReasonJSXIdentifier
	case scope.KindIdentifier:
		d.Reason = ReasonIdentifier
	case scope.KindAssignTarget, scope.KindUpdateTarget:
		if !r.opts.TransformAssignExpr {
			d.Reason = ReasonAssignDisabled
			return d
		}
		d.Reason = ReasonAssignment
	case scope.KindTypeName:
		d.Reason = ReasonTypeReference
		return d
	case scope.KindShorthand:
		d.Reason = ReasonShorthand
		return d
	case scope.KindPatternTarget:
		d.Reason = ReasonDestructuring
		return d
	case scope.KindLoopTarget:
		d.Reason = ReasonLoopTarget
		return d
	default:
		d.Reason = ReasonUnsupported
		return d
	}

	d.Action = ActionRewrite
	d.Replacement = MemberPath(desc)
	return d
}

// Output returns the source with every scheduled rewrite applied.
func (r *Rewriter) Output() []byte {
	return r.buf.Bytes()
}

// Edits reports how many rewrites are scheduled.
func (r *Rewriter) Edits() int {
	return r.buf.Len()
}

func hasAncestor(site scope.ReferenceSite, match func(*sitter.Node) bool) bool {
	return parser.FindAncestor(site.Node, match) != nil
}

func isExportSpecifier(n *sitter.Node) bool {
	switch n.Kind() {
	case "export_specifier", "namespace_export":
		return true
	}
	return false
}

var typeContextKinds = map[string]bool{
	"type_annotation":           true,
	"opting_type_annotation":    true,
	"omitting_type_annotation":  true,
	"adding_type_annotation":    true,
	"type_query":                true,
	"type_arguments":            true,
	"type_parameters":           true,
	"type_predicate":            true,
	"type_predicate_annotation": true,
	"asserts":                   true,
	"asserts_annotation":        true,
	"implements_clause":         true,
	"extends_type_clause":       true,
	"type_alias_declaration":    true,
	"interface_declaration":     true,
	"index_type_query":          true,
	"nested_type_identifier":    true,
}

func isTypeContext(n *sitter.Node) bool {
	kind := n.Kind()
	return typeContextKinds[kind] || strings.HasSuffix(kind, "_type")
}
