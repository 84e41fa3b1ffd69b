// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scopescript

import (
	"fmt"

	jscope "go.jscope.net"
	"go.jscope.net/names"
)

// Parse builds the scope tree of a script. The returned script scope
// is ready for Analyze. A non-nil error is an ErrorList.
func Parse(path, src string, f *names.Factory) (*jscope.DeclarationScope, error) {
	return parse(path, src, f, false)
}

// ParseModule builds the scope tree of a module nested in a fresh
// script scope; the script scope is returned.
func ParseModule(path, src string, f *names.Factory) (*jscope.DeclarationScope, error) {
	return parse(path, src, f, true)
}

func parse(path, src string, f *names.Factory, module bool) (*jscope.DeclarationScope, error) {
	toks, errs := scan(path, src)
	p := &parser{path: path, toks: toks, f: f, errs: errs}

	script := jscope.NewScriptScope()
	script.SetStartPosition(0)
	script.SetEndPosition(len(src))

	top := script
	if module {
		top = jscope.NewModuleScope(script, f)
		top.SetStartPosition(0)
		top.SetEndPosition(len(src))
	}
	p.scope = &top.Scope
	p.parseDirectives()
	for p.tok().kind != tokEOF {
		p.parseStatement()
	}
	p.hoistSloppyBlockFunctions(top)
	if decl := top.CheckConflictingVarDeclarations(); decl != nil {
		p.errorAt(decl.Position(), "identifier %q has already been declared", decl.Proxy().Name())
	}

	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return script, nil
}

type parser struct {
	path string
	toks []token
	pos  int
	f    *names.Factory

	scope *jscope.Scope

	errs ErrorList
}

func (p *parser) tok() token     { return p.toks[p.pos] }
func (p *parser) at(i int) token { return p.toks[p.pos+i] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) got(kind tokenKind) bool {
	if p.tok().kind == kind {
		p.advance()
		return true
	}
	return false
}

func (p *parser) gotIdent(text string) bool {
	if p.tok().kind == tokIdent && p.tok().text == text {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind, what string) token {
	t := p.tok()
	if t.kind != kind {
		p.errorf(t, "expected %s, got %q", what, t.text)
		return t
	}
	return p.advance()
}

func (p *parser) errorf(t token, format string, args ...interface{}) {
	p.errs = append(p.errs, Error{p.path, t.line, t.col, fmt.Sprintf(format, args...)})
}

func (p *parser) errorAt(off int, format string, args ...interface{}) {
	line, col := 1, 1
	for _, t := range p.toks {
		if t.off >= off {
			line, col = t.line, t.col
			break
		}
	}
	p.errs = append(p.errs, Error{p.path, line, col, fmt.Sprintf(format, args...)})
}

// parseDirectives consumes a directive prologue: leading string
// expression statements. "use strict" and "use asm" flip the current
// scope's flags.
func (p *parser) parseDirectives() {
	for p.tok().kind == tokString {
		switch p.tok().text {
		case "use strict":
			p.scope.SetLanguageMode(jscope.Strict)
		case "use asm":
			if p.scope.IsFunctionScope() {
				p.scope.AsDeclarationScope().SetAsmModule()
			}
		}
		p.advance()
		p.got(tokSemi)
	}
}

func (p *parser) parseStatement() {
	t := p.tok()
	switch {
	case t.kind == tokLbrace:
		p.parseBlock()
	case t.kind == tokSemi:
		p.advance()
	case t.kind == tokIdent:
		switch t.text {
		case "var":
			p.advance()
			p.parseVariableDeclarations(jscope.Var)
		case "let":
			p.advance()
			p.parseVariableDeclarations(jscope.Let)
		case "const":
			p.advance()
			p.parseVariableDeclarations(jscope.Const)
		case "function":
			p.parseFunctionDeclaration(jscope.NormalFunction)
		case "async":
			if p.at(1).kind == tokIdent && p.at(1).text == "function" {
				p.advance()
				p.parseFunctionDeclaration(jscope.AsyncFunction)
				return
			}
			p.parseExpressionStatement()
		case "with":
			p.parseWithStatement()
		case "try":
			p.parseTryStatement()
		case "return":
			p.advance()
			if p.tok().kind != tokSemi && p.tok().kind != tokRbrace && p.tok().kind != tokEOF {
				p.parseExpression()
			}
			p.got(tokSemi)
		case "import":
			p.parseImport()
		case "export":
			p.parseExport()
		default:
			p.parseExpressionStatement()
		}
	default:
		p.parseExpressionStatement()
	}
}

func (p *parser) parseBlock() {
	lbrace := p.expect(tokLbrace, "'{'")
	outer := p.scope
	block := jscope.NewScope(outer, jscope.BlockScope)
	block.SetStartPosition(lbrace.off)
	p.scope = block
	for p.tok().kind != tokRbrace && p.tok().kind != tokEOF {
		p.parseStatement()
	}
	rbrace := p.expect(tokRbrace, "'}'")
	block.SetEndPosition(rbrace.off + 1)
	p.scope = outer
	block.FinalizeBlockScope()
}

func (p *parser) parseVariableDeclarations(mode jscope.VariableMode) {
	initFlag := jscope.CreatedInitialized
	if mode.IsLexical() {
		initFlag = jscope.NeedsInitialization
	}
	for {
		name := p.expect(tokIdent, "identifier")
		proxy := jscope.NewVariableProxy(p.f.Get(name.text), name.off)
		if p.got(tokAssign) {
			proxy.SetIsAssigned()
			p.parseAssignment()
		}
		decl := jscope.NewVariableDeclaration(proxy, p.scope, name.off)
		if _, _, ok := p.scope.DeclareVariable(decl, mode, initFlag, false); !ok {
			p.errorf(name, "identifier %q has already been declared", name.text)
		}
		if !p.got(tokComma) {
			break
		}
	}
	p.got(tokSemi)
}

func (p *parser) parseFunctionDeclaration(kind jscope.FunctionKind) {
	fnTok := p.expect(tokIdent, "'function'")
	if p.got(tokStar) {
		kind |= jscope.GeneratorFunction
	}
	name := p.expect(tokIdent, "function name")
	nm := p.f.Get(name.text)

	// Function declarations bind like var in a declaration scope and
	// lexically in blocks and modules.
	mode := jscope.Var
	if !p.scope.IsDeclarationScope() || p.scope.IsModuleScope() {
		mode = jscope.Let
	}
	proxy := jscope.NewVariableProxy(nm, name.off)
	decl := jscope.NewFunctionDeclaration(proxy, p.scope, kind, name.off)
	if _, _, ok := p.scope.DeclareVariable(decl, mode, jscope.CreatedInitialized, false); !ok {
		p.errorf(name, "identifier %q has already been declared", name.text)
	}
	if p.scope.LanguageMode() == jscope.Sloppy && !p.scope.IsDeclarationScope() {
		p.scope.GetDeclarationScope().DeclareSloppyBlockFunction(
			nm, jscope.NewSloppyBlockFunction(p.scope, name.off))
	}

	p.parseFunctionRest(kind, fnTok.off, nil, nm)
}

// parseFunctionRest parses the parameter list and body into a fresh
// function scope. A non-nil selfName declares the self-binding of a
// named function expression; scopeName only labels printed trees.
func (p *parser) parseFunctionRest(kind jscope.FunctionKind, startOff int, selfName, scopeName *names.Name) {
	outer := p.scope
	fn := jscope.NewDeclarationScope(outer, jscope.FunctionScope, kind)
	fn.SetStartPosition(startOff)
	if scopeName != nil {
		fn.SetScopeName(scopeName)
	}
	p.scope = &fn.Scope
	if !kind.IsArrow() {
		fn.DeclareThis(p.f)
		fn.DeclareDefaultFunctionVariables(p.f)
	}

	p.expect(tokLparen, "'('")
	p.parseParameters(fn)
	p.expect(tokRparen, "')'")

	if kind.IsArrow() && p.tok().kind != tokLbrace {
		// Expression-bodied arrow.
		p.parseAssignment()
		fn.SetEndPosition(p.tok().off)
	} else {
		p.expect(tokLbrace, "'{'")
		p.parseDirectives()
		// The self-binding's mode depends on the language mode, which
		// the directive prologue has now settled.
		if selfName != nil {
			fn.DeclareFunctionVar(selfName)
		}
		for p.tok().kind != tokRbrace && p.tok().kind != tokEOF {
			p.parseStatement()
		}
		rbrace := p.expect(tokRbrace, "'}'")
		fn.SetEndPosition(rbrace.off + 1)
	}

	if fn.LanguageMode() == jscope.Sloppy {
		p.hoistSloppyBlockFunctions(fn)
	}
	if decl := fn.CheckConflictingVarDeclarations(); decl != nil {
		p.errorAt(decl.Position(), "identifier %q has already been declared", decl.Proxy().Name())
	}
	p.scope = outer
}

func (p *parser) parseParameters(fn *jscope.DeclarationScope) {
	for p.tok().kind == tokIdent || p.tok().kind == tokEllipsis {
		isRest := p.got(tokEllipsis)
		name := p.expect(tokIdent, "parameter name")
		isOptional := false
		if p.tok().kind == tokAssign {
			p.advance()
			isOptional = true
			p.parseAssignment()
		}
		if isRest || isOptional {
			fn.SetHasNonSimpleParameters()
		}
		_, isDuplicate := fn.DeclareParameter(p.f.Get(name.text), jscope.Var, isOptional, isRest, p.f)
		if isDuplicate && (fn.LanguageMode() == jscope.Strict || !fn.HasSimpleParameters()) {
			p.errorf(name, "duplicate parameter name %q", name.text)
		}
		if !p.got(tokComma) {
			break
		}
	}
}

func (p *parser) parseWithStatement() {
	withTok := p.advance()
	p.expect(tokLparen, "'('")
	p.parseExpression() // the object, evaluated outside the with scope
	p.expect(tokRparen, "')'")
	outer := p.scope
	ws := jscope.NewScope(outer, jscope.WithScope)
	ws.SetStartPosition(withTok.off)
	p.scope = ws
	p.parseStatement()
	ws.SetEndPosition(p.tok().off)
	p.scope = outer
}

func (p *parser) parseTryStatement() {
	p.advance()
	p.parseBlock()
	if !p.gotIdent("catch") {
		p.errorf(p.tok(), "expected 'catch'")
		return
	}
	p.expect(tokLparen, "'('")
	name := p.expect(tokIdent, "catch parameter")
	rparen := p.expect(tokRparen, "')'")
	outer := p.scope
	cs := jscope.NewScope(outer, jscope.CatchScope)
	cs.SetStartPosition(name.off)
	cs.DeclareLocal(p.f.Get(name.text), jscope.Var, jscope.CreatedInitialized, jscope.NormalVariable, jscope.NotAssigned)
	p.scope = cs
	p.parseBlock()
	cs.SetEndPosition(p.prevEnd(rparen))
	p.scope = outer
}

func (p *parser) prevEnd(fallback token) int {
	if p.pos > 0 {
		t := p.toks[p.pos-1]
		return t.off + len(t.text)
	}
	return fallback.off
}

func (p *parser) parseImport() {
	if p.scope.IsModuleScope() {
		p.parseImportInModule()
		return
	}
	p.errorf(p.tok(), "import outside module")
	p.advance()
	p.skipToSemi()
}

func (p *parser) parseImportInModule() {
	p.advance() // import
	local := p.expect(tokIdent, "imported name")
	importName := local
	if p.gotIdent("as") {
		importName, local = local, p.expect(tokIdent, "local name")
	}
	if !p.gotIdent("from") {
		p.errorf(p.tok(), "expected 'from'")
	}
	request := p.expect(tokString, "module specifier")
	p.got(tokSemi)

	d := p.scope.AsModuleScope()
	d.DeclareLocal(p.f.Get(local.text), jscope.Const, jscope.NeedsInitialization, jscope.NormalVariable, jscope.NotAssigned)
	d.Module().AddRegularImport(p.f.Get(local.text), p.f.Get(importName.text), request.text)
}

func (p *parser) parseExport() {
	if !p.scope.IsModuleScope() {
		p.errorf(p.tok(), "export outside module")
		p.advance()
		p.skipToSemi()
		return
	}
	p.advance() // export
	d := p.scope.AsModuleScope()
	t := p.tok()
	exported := func(name string) {
		nm := p.f.Get(name)
		d.Module().AddRegularExport(nm, nm)
	}
	switch {
	case t.kind == tokIdent && (t.text == "var" || t.text == "let" || t.text == "const"):
		name := p.at(1)
		p.parseStatement()
		if name.kind == tokIdent {
			exported(name.text)
		}
	case t.kind == tokIdent && t.text == "function":
		name := p.at(1)
		if name.kind == tokStar {
			name = p.at(2)
		}
		p.parseStatement()
		if name.kind == tokIdent {
			exported(name.text)
		}
	default:
		p.errorf(t, "expected declaration after 'export'")
		p.skipToSemi()
	}
}

func (p *parser) skipToSemi() {
	for p.tok().kind != tokSemi && p.tok().kind != tokEOF {
		p.advance()
	}
	p.got(tokSemi)
}

func (p *parser) parseExpressionStatement() {
	p.parseExpression()
	p.got(tokSemi)
}

func (p *parser) parseExpression() {
	p.parseAssignment()
	for p.got(tokComma) {
		p.parseAssignment()
	}
}

// parseAssignment parses one assignment-level expression, recording
// identifier uses on the current scope.
func (p *parser) parseAssignment() {
	if p.atArrowFunction() {
		p.parseArrowFunction()
		return
	}
	t := p.tok()
	if t.kind == tokIdent && !isKeyword(t.text) && p.at(1).kind == tokAssign {
		p.advance()
		p.advance()
		proxy := p.scope.NewUnresolved(p.f.Get(t.text), t.off)
		proxy.SetIsAssigned()
		p.parseAssignment()
		return
	}
	p.parseBinary()
}

func (p *parser) parseBinary() {
	p.parseOperand()
	for p.tok().kind == tokOp || p.tok().kind == tokStar || p.tok().kind == tokDot {
		if p.got(tokDot) {
			// Property access: the property name is not a variable use.
			p.expect(tokIdent, "property name")
			continue
		}
		p.advance()
		p.parseOperand()
	}
}

func (p *parser) parseOperand() {
	t := p.tok()
	switch t.kind {
	case tokNumber, tokString:
		p.advance()
	case tokLparen:
		p.advance()
		p.parseExpression()
		p.expect(tokRparen, "')'")
	case tokIdent:
		switch t.text {
		case "function":
			p.parseFunctionExpression(jscope.NormalFunction)
			return
		case "async":
			if p.at(1).kind == tokIdent && p.at(1).text == "function" {
				p.advance()
				p.parseFunctionExpression(jscope.AsyncFunction)
				return
			}
		}
		p.advance()
		if t.text == "this" {
			p.scope.NewUnresolved(p.f.This, t.off)
		} else {
			p.scope.NewUnresolved(p.f.Get(t.text), t.off)
		}
		if p.tok().kind == tokLparen {
			if t.text == "eval" {
				// A direct eval call can introduce bindings here.
				p.scope.RecordEvalCall()
			}
			p.advance()
			if p.tok().kind != tokRparen {
				p.parseExpression()
			}
			p.expect(tokRparen, "')'")
		}
	default:
		p.errorf(t, "unexpected token %q in expression", t.text)
		p.advance()
	}
}

func (p *parser) parseFunctionExpression(kind jscope.FunctionKind) {
	fnTok := p.advance() // function
	if p.got(tokStar) {
		kind |= jscope.GeneratorFunction
	}
	var selfName *names.Name
	if p.tok().kind == tokIdent {
		selfName = p.f.Get(p.advance().text)
	}
	p.parseFunctionRest(kind, fnTok.off, selfName, selfName)
}

// atArrowFunction reports whether the upcoming tokens are an arrow
// function head: `ident =>` or `( idents... ) =>`.
func (p *parser) atArrowFunction() bool {
	t := p.tok()
	if t.kind == tokIdent && !isKeyword(t.text) && p.at(1).kind == tokArrow {
		return true
	}
	if t.kind != tokLparen {
		return false
	}
	depth := 0
	for i := 0; ; i++ {
		switch p.at(i).kind {
		case tokLparen:
			depth++
		case tokRparen:
			depth--
			if depth == 0 {
				return p.at(i+1).kind == tokArrow
			}
		case tokEOF, tokLbrace, tokSemi:
			return false
		}
	}
}

func (p *parser) parseArrowFunction() {
	start := p.tok()
	outer := p.scope
	fn := jscope.NewDeclarationScope(outer, jscope.FunctionScope, jscope.ArrowFunction)
	fn.SetStartPosition(start.off)
	p.scope = &fn.Scope

	if start.kind == tokIdent {
		name := p.advance()
		fn.DeclareParameter(p.f.Get(name.text), jscope.Var, false, false, p.f)
	} else {
		p.expect(tokLparen, "'('")
		p.parseParameters(fn)
		p.expect(tokRparen, "')'")
	}
	p.expect(tokArrow, "'=>'")

	if p.tok().kind == tokLbrace {
		p.advance()
		p.parseDirectives()
		for p.tok().kind != tokRbrace && p.tok().kind != tokEOF {
			p.parseStatement()
		}
		rbrace := p.expect(tokRbrace, "'}'")
		fn.SetEndPosition(rbrace.off + 1)
	} else {
		p.parseAssignment()
		fn.SetEndPosition(p.tok().off)
	}

	if fn.LanguageMode() == jscope.Sloppy {
		p.hoistSloppyBlockFunctions(fn)
	}
	if decl := fn.CheckConflictingVarDeclarations(); decl != nil {
		p.errorAt(decl.Position(), "identifier %q has already been declared", decl.Proxy().Name())
	}
	p.scope = outer
}

// hoistSloppyBlockFunctions introduces a var binding in d for each
// block-level function statement whose name does not collide with a
// lexical binding between its block and d.
func (p *parser) hoistSloppyBlockFunctions(d *jscope.DeclarationScope) {
	m := d.SloppyBlockFunctionMap()
	for _, name := range m.Names() {
		conflict := false
		for fn := m.Lookup(name); fn != nil; fn = fn.Next() {
			for s := fn.Scope(); ; s = s.Outer() {
				if v := s.LookupLocal(name); v != nil && v.Mode().IsLexical() && s != fn.Scope() {
					conflict = true
				}
				if s == &d.Scope {
					break
				}
			}
		}
		if conflict {
			continue
		}
		fn := m.Lookup(name)
		proxy := jscope.NewVariableProxy(name, fn.Position())
		decl := jscope.NewVariableDeclaration(proxy, &d.Scope, fn.Position())
		d.DeclareVariable(decl, jscope.Var, jscope.CreatedInitialized, false)
	}
}

func isKeyword(s string) bool {
	switch s {
	case "var", "let", "const", "function", "return", "with", "try",
		"catch", "import", "export", "from", "async":
		return true
	}
	return false
}
