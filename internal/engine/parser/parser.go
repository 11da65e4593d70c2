package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"explicitexports/internal/core/errors"
	"explicitexports/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type Parser struct {
	loader            *GrammarLoader
	extensions        map[string]string
	jsx               map[string]bool
	allowSyntaxErrors bool
}

func NewParser(loader *GrammarLoader) *Parser {
	p := &Parser{
		loader:     loader,
		extensions: make(map[string]string),
		jsx:        make(map[string]bool),
	}
	for lang, spec := range loader.LanguageRegistry() {
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			p.extensions[strings.ToLower(ext)] = lang
		}
		p.jsx[lang] = spec.JSX
	}
	return p
}

// AllowSyntaxErrors makes Parse return partially recovered trees instead of
// rejecting files that contain syntax errors.
func (p *Parser) AllowSyntaxErrors(allow bool) {
	p.allowSyntaxErrors = allow
}

// Parse produces a Program for one source file. The caller owns the result
// and must Close it.
func (p *Parser) Parse(path string, content []byte) (*Program, error) {
	lang := p.detectLanguage(path)
	if lang == "" {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path)
	}

	grammar := p.loader.Language(lang)
	if grammar == nil {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("grammar not loaded: %s", lang))
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(grammar); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "set language")
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeInternal, "parse failed")
	}

	prog := &Program{
		Path:     path,
		Language: lang,
		JSX:      p.jsx[lang],
		Source:   content,
		tree:     tree,
	}

	root := tree.RootNode()
	if root.HasError() && !p.allowSyntaxErrors {
		loc := prog.Location(firstErrorNode(root))
		prog.Close()
		err := errors.New(errors.CodeValidationError, "syntax error")
		err = errors.AddContext(err, errors.CtxPath, path)
		err = errors.AddContext(err, errors.CtxLanguage, lang)
		return nil, errors.AddContext(err, errors.CtxPosition, fmt.Sprintf("%d:%d", loc.Line, loc.Column))
	}
	return prog, nil
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return node
}

func (p *Parser) detectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := p.extensions[ext]; ok {
		return lang
	}
	return ""
}

func (p *Parser) IsSupportedPath(filePath string) bool {
	return p.GetLanguage(filePath) != ""
}

func (p *Parser) GetLanguage(path string) string {
	return p.detectLanguage(path)
}

func (p *Parser) SupportedExtensions() []string {
	return util.SortedStringKeys(p.extensions)
}
