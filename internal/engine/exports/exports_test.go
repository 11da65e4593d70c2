package exports

import (
	"testing"

	"explicitexports/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discover(t *testing.T, path, src string) Discovery {
	t.Helper()
	loader, err := parser.NewGrammarLoader()
	require.NoError(t, err)
	prog, err := parser.NewParser(loader).Parse(path, []byte(src))
	require.NoError(t, err)
	t.Cleanup(prog.Close)
	return Discover(prog, nil)
}

type triple struct {
	local, exported string
	mode            Mode
}

func triples(ds []Descriptor) []triple {
	out := make([]triple, 0, len(ds))
	for _, d := range ds {
		out = append(out, triple{d.LocalName, d.ExportedName, d.Mode})
	}
	return out
}

func reasons(skips []Skip) []SkipReason {
	out := make([]SkipReason, 0, len(skips))
	for _, s := range skips {
		out = append(out, s.Reason)
	}
	return out
}

func TestNewDescriptor(t *testing.T) {
	d := NewDescriptor("a", "", parser.Location{})
	assert.Equal(t, "a", d.ExportedName)
	assert.Equal(t, ModeNamed, d.Mode)
	assert.Equal(t, "a", d.Target())

	d = NewDescriptor("f", "default", parser.Location{})
	assert.Equal(t, ModeDefault, d.Mode)
	assert.Equal(t, "default", d.Target())
}

func TestDiscoverDeclarations(t *testing.T) {
	d := discover(t, "a.js", `export function f() {}
export function* gen() {}
export class C {}
export const a = 1, { b, c: [d] } = o;
export var v;
export default function g() {}
`)
	assert.Equal(t, []triple{
		{"f", "f", ModeNamed},
		{"gen", "gen", ModeNamed},
		{"C", "C", ModeNamed},
		{"a", "a", ModeNamed},
		{"b", "b", ModeNamed},
		{"d", "d", ModeNamed},
		{"v", "v", ModeNamed},
		{"g", "default", ModeDefault},
	}, triples(d.Descriptors()))
	assert.Len(t, d.Statements, 6)
	assert.Empty(t, d.Skips)
}

func TestDiscoverSpecifiers(t *testing.T) {
	d := discover(t, "a.js", `const a = 1, b = 2, c = 3;
export { a, b as bee, c as default };
`)
	require.Len(t, d.Statements, 1)
	assert.Equal(t, []triple{
		{"a", "a", ModeNamed},
		{"b", "bee", ModeNamed},
		{"c", "default", ModeDefault},
	}, triples(d.Statements[0].Descriptors))
	assert.Equal(t, 2, d.Statements[0].Location.Line)
}

func TestDiscoverOcclusion(t *testing.T) {
	d := discover(t, "a.js", "const a = 1, b = 2;\nexport { a as x, b, a as y };\n")
	assert.Equal(t, []triple{
		{"b", "b", ModeNamed},
		{"a", "y", ModeNamed},
	}, triples(d.Descriptors()))
	assert.Equal(t, []SkipReason{SkipOccluded}, reasons(d.Skips))
	assert.Equal(t, "a", d.Skips[0].Name)
}

func TestDiscoverSkips(t *testing.T) {
	d := discover(t, "a.js", `export default 1 + 2;
export default class {}
export { a } from "./a";
export * from "./b";
export * as ns from "./c";
export {};
export { x as "string name" };
`)
	assert.Empty(t, d.Descriptors())
	assert.Equal(t, []SkipReason{
		SkipDefaultExpression,
		SkipAnonymousDefault,
		SkipReexport,
		SkipExportStar,
		SkipExportStar,
		SkipEmpty,
		SkipModuleString,
	}, reasons(d.Skips))
}

func TestDiscoverTypeScript(t *testing.T) {
	d := discover(t, "a.ts", `export enum Color { Red }
export namespace NS { export const inner = 1; }
export abstract class Base {}
export interface Shape {}
export type Alias = string;
export type { Shape as S };
export declare const ambient: number;
const value = 1;
export { type Alias as A2, value };
`)
	assert.Equal(t, []triple{
		{"Color", "Color", ModeNamed},
		{"NS", "NS", ModeNamed},
		{"Base", "Base", ModeNamed},
		{"value", "value", ModeNamed},
	}, triples(d.Descriptors()))
	assert.Equal(t, []SkipReason{
		SkipTypeOnly,
		SkipTypeOnly,
		SkipTypeOnly,
		SkipAmbient,
		SkipTypeOnly,
	}, reasons(d.Skips))
}

func TestDiscoverIgnoresNestedExports(t *testing.T) {
	d := discover(t, "a.ts", "namespace N { export const inner = 1; }\n")
	assert.Empty(t, d.Statements)
}

func TestDiscoverNestedDestructuring(t *testing.T) {
	d := discover(t, "a.js", "export const { a: { b }, c = 1, ...rest } = o, [[x], ...[y]] = p;\n")
	assert.Equal(t, []triple{
		{"b", "b", ModeNamed},
		{"c", "c", ModeNamed},
		{"rest", "rest", ModeNamed},
		{"x", "x", ModeNamed},
		{"y", "y", ModeNamed},
	}, triples(d.Descriptors()))
}
