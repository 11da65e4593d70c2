package parser

import (
	stderrors "errors"
	"testing"

	"explicitexports/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	loader, err := NewGrammarLoader()
	if err != nil {
		t.Fatal(err)
	}
	return NewParser(loader)
}

func TestParse_DetectsLanguage(t *testing.T) {
	p := newTestParser(t)

	cases := map[string]string{
		"a.js":  "javascript",
		"a.MJS": "javascript",
		"a.jsx": "javascript",
		"a.ts":  "typescript",
		"a.cts": "typescript",
		"a.tsx": "tsx",
	}
	for path, want := range cases {
		prog, err := p.Parse(path, []byte("export const a = 1;\n"))
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if prog.Language != want {
			t.Errorf("%s: expected %s, got %s", path, want, prog.Language)
		}
		if prog.Root().Kind() != "program" {
			t.Errorf("%s: expected program root, got %s", path, prog.Root().Kind())
		}
		prog.Close()
	}
}

func TestParse_UnsupportedExtension(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("main.go", []byte("package main\n"))
	if !errors.IsCode(err, errors.CodeNotSupported) {
		t.Fatalf("expected NOT_SUPPORTED, got %v", err)
	}
	if p.IsSupportedPath("main.go") {
		t.Fatal("expected main.go to be unsupported")
	}
}

func TestParse_SyntaxErrorPosition(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("bad.ts", []byte("const ok = 1;\nexport const = ;\n"))
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}

	var domainErr *errors.DomainError
	if !stderrors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T", err)
	}
	if domainErr.Context[errors.CtxLanguage] != "typescript" {
		t.Errorf("unexpected language context %v", domainErr.Context)
	}
	if pos, _ := domainErr.Context[errors.CtxPosition].(string); len(pos) < 2 || pos[:2] != "2:" {
		t.Errorf("expected error on line 2, got %q", pos)
	}

	p.AllowSyntaxErrors(true)
	prog, err := p.Parse("bad.ts", []byte("const ok = 1;\nexport const = ;\n"))
	if err != nil {
		t.Fatalf("expected recovered tree, got %v", err)
	}
	prog.Close()
}

func TestProgram_TextAndLocation(t *testing.T) {
	p := newTestParser(t)
	prog, err := p.Parse("a.js", []byte("let x = 1;\nexport default x;\n"))
	if err != nil {
		t.Fatal(err)
	}
	defer prog.Close()

	stmt := NamedChildren(prog.Root())[1]
	if stmt.Kind() != "export_statement" {
		t.Fatalf("expected export_statement, got %s", stmt.Kind())
	}
	if !HasToken(stmt, "default") {
		t.Fatal("expected default token")
	}
	value := Field(stmt, "value")
	if got := prog.Text(value); got != "x" {
		t.Fatalf("expected value x, got %q", got)
	}
	if got := prog.Location(value).String(); got != "a.js:2:16" {
		t.Fatalf("unexpected location %s", got)
	}
	if !IsField(stmt, value, "value") {
		t.Fatal("expected value field")
	}
	if FindAncestor(value, func(n *sitter.Node) bool { return n.Kind() == "program" }) == nil {
		t.Fatal("expected program ancestor")
	}
}
