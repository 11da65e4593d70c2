package transform

import (
	"context"
	"strings"
	"testing"

	"explicitexports/internal/core/errors"
	"explicitexports/internal/engine/exports"
	"explicitexports/internal/engine/parser"
	"explicitexports/internal/engine/rewrite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransformer(t *testing.T, opts Options) *Transformer {
	t.Helper()
	loader, err := parser.NewGrammarLoader()
	require.NoError(t, err)
	return NewTransformer(loader, opts, nil)
}

func TestTransform(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		opts   Options
		input  string
		output string
	}{
		{
			name:   "default precedence",
			path:   "a.js",
			input:  "export default function f() { return 1; }\nf();\nconst g = () => f() + 1;\n",
			output: "export default function f() { return 1; }\nmodule.exports.default();\nconst g = () => module.exports.default() + 1;\n",
		},
		{
			name:   "default class",
			path:   "a.js",
			input:  "export default class Store {}\nconst s = new Store();\n",
			output: "export default class Store {}\nconst s = new module.exports.default();\n",
		},
		{
			name:   "alias precedence",
			path:   "a.js",
			input:  "const a = 1;\nexport { a as b };\nconsole.log(a);\n",
			output: "const a = 1;\nexport { a as b };\nconsole.log(module.exports.b);\n",
		},
		{
			name:   "alias to default",
			path:   "a.js",
			input:  "function run() {}\nexport { run as default };\nrun();\n",
			output: "function run() {}\nexport { run as default };\nmodule.exports.default();\n",
		},
		{
			name:   "last specifier wins",
			path:   "a.js",
			input:  "const a = 1;\nexport { a as b, a as c };\na;\n",
			output: "const a = 1;\nexport { a as b, a as c };\nmodule.exports.c;\n",
		},
		{
			name:   "first statement claims binding",
			path:   "a.js",
			input:  "const a = 1;\nexport { a };\nexport { a as b };\na;\n",
			output: "const a = 1;\nexport { a };\nexport { a as b };\nmodule.exports.a;\n",
		},
		{
			name:   "assignment untouched when disabled",
			path:   "a.js",
			input:  "export let x = 1;\nx = 5;\nx += 2;\n",
			output: "export let x = 1;\nx = 5;\nx += 2;\n",
		},
		{
			name:   "assignment rewritten when enabled",
			path:   "a.js",
			opts:   Options{TransformAssignExpr: true},
			input:  "export let x = 1;\nx = 5;\nx += x;\n",
			output: "export let x = 1;\nmodule.exports.x = 5;\nmodule.exports.x += module.exports.x;\n",
		},
		{
			name:   "parenthesized targets untouched when disabled",
			path:   "a.js",
			input:  "export let x = 1;\n(x) = 5;\n(x)++;\nx = 6;\n",
			output: "export let x = 1;\n(x) = 5;\n(x)++;\nx = 6;\n",
		},
		{
			name:   "parenthesized targets rewritten when enabled",
			path:   "a.js",
			opts:   Options{TransformAssignExpr: true},
			input:  "export let x = 1;\n(x) = 5;\n(x)++;\nx = 6;\n",
			output: "export let x = 1;\n(module.exports.x) = 5;\n(module.exports.x)++;\nmodule.exports.x = 6;\n",
		},
		{
			name:   "parenthesized read rewritten",
			path:   "a.js",
			input:  "export const a = 1;\nconst b = (a) + 1;\n",
			output: "export const a = 1;\nconst b = (module.exports.a) + 1;\n",
		},
		{
			name:   "update rewritten when enabled",
			path:   "a.js",
			opts:   Options{TransformAssignExpr: true},
			input:  "export let n = 0;\nn++;\n--n;\n",
			output: "export let n = 0;\nmodule.exports.n++;\n--module.exports.n;\n",
		},
		{
			name:   "jsx tags",
			path:   "a.jsx",
			input:  "export function Comp() { return null; }\nconst el = <Comp title=\"t\">hi</Comp>;\nconst other = <Comp />;\nconst div = <div />;\n",
			output: "export function Comp() { return null; }\nconst el = <module.exports.Comp title=\"t\">hi</module.exports.Comp>;\nconst other = <module.exports.Comp />;\nconst div = <div />;\n",
		},
		{
			name:   "jsx default",
			path:   "a.tsx",
			input:  "export default function App() { return null; }\nconst el = <App />;\n",
			output: "export default function App() { return null; }\nconst el = <module.exports.default />;\n",
		},
		{
			name:   "no references",
			path:   "a.js",
			input:  "export const unused = 1;\nconst other = 2;\n",
			output: "export const unused = 1;\nconst other = 2;\n",
		},
		{
			name:   "shadowed bindings",
			path:   "a.js",
			input:  "export function f() {}\nfunction g(f) { return f; }\nfunction h() { const f = 1; return f; }\nf();\n",
			output: "export function f() {}\nfunction g(f) { return f; }\nfunction h() { const f = 1; return f; }\nmodule.exports.f();\n",
		},
		{
			name:   "destructured declaration",
			path:   "a.js",
			input:  "export const { a, b: [c] } = obj;\nconsole.log(a, c);\n",
			output: "export const { a, b: [c] } = obj;\nconsole.log(module.exports.a, module.exports.c);\n",
		},
		{
			name:   "shorthand property untouched",
			path:   "a.js",
			input:  "export const a = 1;\nconst o = { a };\n",
			output: "export const a = 1;\nconst o = { a };\n",
		},
		{
			name:   "re-export skipped",
			path:   "a.js",
			input:  "export { a } from \"./a\";\nexport * from \"./b\";\nconst a = 1;\na;\n",
			output: "export { a } from \"./a\";\nexport * from \"./b\";\nconst a = 1;\na;\n",
		},
		{
			name:   "type references untouched",
			path:   "a.ts",
			input:  "export class Foo {}\nlet v: Foo = new Foo();\nfunction g(x: Foo): Foo { return x; }\n",
			output: "export class Foo {}\nlet v: Foo = new module.exports.Foo();\nfunction g(x: Foo): Foo { return x; }\n",
		},
		{
			name:   "property names untouched",
			path:   "a.js",
			input:  "export function fn1() {}\nmodule.exports.fn1();\nconst o = { fn1: 1 };\no.fn1;\nfn1();\n",
			output: "export function fn1() {}\nmodule.exports.fn1();\nconst o = { fn1: 1 };\no.fn1;\nmodule.exports.fn1();\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTransformer(t, tt.opts)
			res, err := tr.Transform(context.Background(), tt.path, []byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.output, string(res.Output))
			assert.Equal(t, tt.input != tt.output, res.Changed)
		})
	}
}

func TestTransformLeavesExplicitReferencesAlone(t *testing.T) {
	input := `function internalfn1() {
  module.exports.fn1();
  void Promise.all(
    [1, 2, 3].map((_) => [module.exports.fn2]).map((a) => a[0]())
  );
}

export function fn1() {
  global.console.log('hello, world!');
}

export async function fn2() {
  module.exports.fn1();
  internalfn1();
}

export async function fn3() {
  const f = module.exports.fn1;
  await fn2(); // ! XXX
  f();
  internalfn1();
}

internalfn1();
void module.exports.fn3();
`
	tr := newTransformer(t, Options{})
	res, err := tr.Transform(context.Background(), "code.ts", []byte(input))
	require.NoError(t, err)

	want := strings.Replace(input, "await fn2();", "await module.exports.fn2();", 1)
	assert.Equal(t, want, string(res.Output))
	assert.Equal(t, 1, res.Rewritten)
	require.Len(t, res.Descriptors, 3)
	assert.Equal(t, "fn1", res.Descriptors[0].LocalName)
	assert.Equal(t, exports.ModeNamed, res.Descriptors[0].Mode)
}

func TestTransformIdempotent(t *testing.T) {
	inputs := map[string]string{
		"a.js":  "export default function f() {}\nf();\nconst a = 1;\nexport { a as b };\na = a + 1;\n",
		"b.jsx": "export function Comp() { return <Comp />; }\n",
		"c.ts":  "export enum Color { Red }\nconst c: Color = Color.Red;\n",
	}
	for _, assign := range []bool{false, true} {
		for path, input := range inputs {
			tr := newTransformer(t, Options{TransformAssignExpr: assign})

			first, err := tr.Transform(context.Background(), path, []byte(input))
			require.NoError(t, err)
			require.True(t, first.Changed, path)

			second, err := tr.Transform(context.Background(), path, first.Output)
			require.NoError(t, err)
			assert.False(t, second.Changed, path)
			assert.Equal(t, string(first.Output), string(second.Output), path)
		}
	}
}

func TestTransformDecisions(t *testing.T) {
	tr := newTransformer(t, Options{})
	res, err := tr.Transform(context.Background(), "a.js", []byte("const a = 1;\nexport { a as b };\nconsole.log(a);\na = 2;\n"))
	require.NoError(t, err)

	require.Len(t, res.Decisions, 3)
	assert.Equal(t, "ref-b-1", res.Decisions[0].ID())
	assert.Equal(t, rewrite.ActionSkip, res.Decisions[0].Action)
	assert.Equal(t, rewrite.ReasonExportSpecifier, res.Decisions[0].Reason)

	assert.Equal(t, "ref-b-2", res.Decisions[1].ID())
	assert.Equal(t, rewrite.ActionRewrite, res.Decisions[1].Action)
	assert.Equal(t, "module.exports.b", res.Decisions[1].Replacement)
	assert.Equal(t, 3, res.Decisions[1].Site.Location.Line)

	assert.Equal(t, rewrite.ReasonAssignDisabled, res.Decisions[2].Reason)
	assert.Equal(t, 1, res.Rewritten)
	assert.Equal(t, 2, res.Skipped)
}

func TestTransformReportsSkips(t *testing.T) {
	tr := newTransformer(t, Options{})
	src := "export default 42;\nexport default function () {}\nexport * as ns from \"./x\";\nexport {};\n"
	res, err := tr.Transform(context.Background(), "a.js", []byte(src))
	require.NoError(t, err)
	assert.False(t, res.Changed)

	var reasons []exports.SkipReason
	for _, s := range res.Skips {
		reasons = append(reasons, s.Reason)
	}
	assert.Equal(t, []exports.SkipReason{
		exports.SkipDefaultExpression,
		exports.SkipAnonymousDefault,
		exports.SkipExportStar,
		exports.SkipEmpty,
	}, reasons)
}

func TestTransformSyntaxError(t *testing.T) {
	src := []byte("export const = ;\n")

	tr := newTransformer(t, Options{})
	_, err := tr.Transform(context.Background(), "broken.js", src)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
	assert.Contains(t, err.Error(), "path=broken.js")

	tolerant := newTransformer(t, Options{AllowSyntaxErrors: true})
	_, err = tolerant.Transform(context.Background(), "broken.js", src)
	assert.NoError(t, err)
}

func TestTransformUnsupportedLanguage(t *testing.T) {
	tr := newTransformer(t, Options{})
	_, err := tr.Transform(context.Background(), "main.py", []byte("x = 1\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
}

func TestTransformReportsClaimedBinding(t *testing.T) {
	tr := newTransformer(t, Options{})
	res, err := tr.Transform(context.Background(), "a.js", []byte("const a = 1;\nexport { a };\nexport { a as b };\n"))
	require.NoError(t, err)

	require.Len(t, res.Descriptors, 1)
	assert.Equal(t, "a", res.Descriptors[0].ExportedName)
	require.Len(t, res.Skips, 1)
	assert.Equal(t, exports.SkipClaimed, res.Skips[0].Reason)
	assert.Equal(t, 3, res.Skips[0].Location.Line)
}
