// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jscope

import (
	"go.jscope.net/names"
	"go.jscope.net/scopeinfo"
)

// A DeclarationScope is a scope that can host var declarations:
// script, function, module, eval, and block scopes produced by sloppy
// var hoisting. It extends Scope with parameters, the distinguished
// bindings (this, arguments, new.target, the function self-binding),
// and the bookkeeping for sloppy-mode block-level functions.
type DeclarationScope struct {
	Scope

	functionKind FunctionKind

	params []*Variable
	// arity counts the leading parameters that are neither optional
	// nor rest.
	arity                 int
	hasRest               bool
	hasArgumentsParameter bool
	hasSimpleParameters   bool

	asmModule   bool
	asmFunction bool

	usesSuperProperty     bool
	forceEagerCompilation bool

	receiver     *Variable
	newTarget    *Variable
	function     *Variable // named function expression self-binding
	arguments    *Variable
	thisFunction *Variable

	sloppyBlockFunctions SloppyBlockFunctionMap

	// module is non-nil exactly for module scopes.
	module *ModuleDescriptor
}

func (d *DeclarationScope) initDeclScope(kind FunctionKind) {
	d.decl = d
	d.functionKind = kind
	d.hasSimpleParameters = true
}

// NewScriptScope returns the root scope of a script.
func NewScriptScope() *DeclarationScope {
	d := &DeclarationScope{}
	d.initScope(ScriptScope)
	d.initDeclScope(NormalFunction)
	return d
}

// NewDeclarationScope returns a function, eval, module, or
// var-hoisting block scope nested in outer.
func NewDeclarationScope(outer *Scope, typ ScopeType, kind FunctionKind) *DeclarationScope {
	if typ == ScriptScope {
		panic("jscope: nested script scope")
	}
	d := &DeclarationScope{}
	d.initScope(typ)
	d.initDeclScope(kind)
	d.languageMode = outer.languageMode
	d.forceContextAllocation =
		typ != FunctionScope && outer.forceContextAllocation
	outer.AddInnerScope(&d.Scope)
	d.asmFunction = outer.IsAsmModule()
	return d
}

// NewDeclarationScopeFromInfo rebuilds a declaration scope from a
// serialized descriptor.
func NewDeclarationScopeFromInfo(typ ScopeType, info *scopeinfo.ScopeInfo) *DeclarationScope {
	d := &DeclarationScope{}
	d.initFromInfo(typ, info)
	d.initDeclScope(FunctionKind(info.FunctionKind))
	d.hasSimpleParameters = info.HasSimpleParams
	d.asmModule = info.AsmModule
	d.asmFunction = info.AsmFunction
	return d
}

// NewModuleScope returns a module scope nested in the script scope.
// Modules are always strict and declare their own receiver.
func NewModuleScope(script *DeclarationScope, f *names.Factory) *DeclarationScope {
	if !script.IsScriptScope() {
		panic("jscope: module scope outside script scope")
	}
	d := NewDeclarationScope(&script.Scope, ModuleScope, NormalFunction)
	d.module = &ModuleDescriptor{}
	d.SetLanguageMode(Strict)
	d.DeclareThis(f)
	return d
}

func (d *DeclarationScope) FunctionKind() FunctionKind { return d.functionKind }

// IsArrowScope reports whether the scope belongs to an arrow function.
func (d *DeclarationScope) IsArrowScope() bool {
	return d.IsFunctionScope() && d.functionKind.IsArrow()
}

func (d *DeclarationScope) HasSimpleParameters() bool { return d.hasSimpleParameters }

// SetHasNonSimpleParameters records a parameter list with defaults,
// destructuring, or a rest parameter.
func (d *DeclarationScope) SetHasNonSimpleParameters() {
	if !d.IsFunctionScope() {
		panic("jscope: parameters on non-function scope")
	}
	d.hasSimpleParameters = false
}

func (d *DeclarationScope) AsmModule() bool { return d.asmModule }

// SetAsmModule marks a function scope that validated as an asm.js
// module.
func (d *DeclarationScope) SetAsmModule() { d.asmModule = true }

func (d *DeclarationScope) AsmFunction() bool { return d.asmFunction }
func (d *DeclarationScope) setAsmFunction()   { d.asmFunction = true }

func (d *DeclarationScope) UsesSuperProperty() bool { return d.usesSuperProperty }

// RecordSuperPropertyUsage notes a super.x access inside the scope.
func (d *DeclarationScope) RecordSuperPropertyUsage() { d.usesSuperProperty = true }

// ForceEagerCompilation disables lazy compilation for the scope.
func (d *DeclarationScope) ForceEagerCompilation() { d.forceEagerCompilation = true }

// AllowsLazyCompilation reports whether the function may be compiled
// on first call rather than eagerly.
func (d *DeclarationScope) AllowsLazyCompilation() bool {
	return !d.forceEagerCompilation
}

// AllowsLazyCompilationWithoutContext additionally requires that no
// enclosing scope needs a context.
func (d *DeclarationScope) AllowsLazyCompilationWithoutContext() bool {
	if d.forceEagerCompilation {
		return false
	}
	for scope := d.outer; scope != nil; scope = scope.outer {
		if scope.NeedsContext() {
			return false
		}
	}
	return true
}

// HasThisDeclaration reports whether the scope declares its own
// receiver: non-arrow functions and modules do.
func (d *DeclarationScope) HasThisDeclaration() bool {
	return (d.IsFunctionScope() && !d.IsArrowScope()) || d.IsModuleScope()
}

func (d *DeclarationScope) Receiver() *Variable     { return d.receiver }
func (d *DeclarationScope) NewTargetVar() *Variable { return d.newTarget }
func (d *DeclarationScope) FunctionVar() *Variable  { return d.function }
func (d *DeclarationScope) Arguments() *Variable    { return d.arguments }
func (d *DeclarationScope) ThisFunctionVar() *Variable {
	return d.thisFunction
}

func (d *DeclarationScope) NumParameters() int        { return len(d.params) }
func (d *DeclarationScope) Parameter(i int) *Variable { return d.params[i] }
func (d *DeclarationScope) Arity() int                { return d.arity }
func (d *DeclarationScope) HasRest() bool             { return d.hasRest }

// RestParameter returns the rest parameter, or nil.
func (d *DeclarationScope) RestParameter() *Variable {
	if !d.hasRest {
		return nil
	}
	return d.params[len(d.params)-1]
}

// Module returns the module descriptor; nil unless this is a module
// scope.
func (d *DeclarationScope) Module() *ModuleDescriptor { return d.module }

// DeclareThis adds the receiver binding. Subclass constructors get a
// CONST receiver that needs initialization (by the super call); every
// other receiver is created initialized.
func (d *DeclarationScope) DeclareThis(f *names.Factory) {
	if d.alreadyResolved {
		panic("jscope: declaration after resolution")
	}
	if !d.HasThisDeclaration() {
		panic("jscope: scope has no this declaration")
	}
	mode, init := Var, CreatedInitialized
	if d.functionKind.IsSubclassConstructor() {
		mode, init = Const, NeedsInitialization
	}
	d.receiver = d.declare(&d.Scope, f.This, mode, ThisVariable, init, NotAssigned)
}

// DeclareDefaultFunctionVariables declares the bindings every
// non-arrow function has whether or not they are mentioned:
// arguments, new.target, and, for methods and accessors, the
// [[HomeObject]]-carrying function itself. Unused ones are dropped
// again during allocation.
func (d *DeclarationScope) DeclareDefaultFunctionVariables(f *names.Factory) {
	if !d.IsFunctionScope() || d.IsArrowScope() {
		panic("jscope: default function variables on non-function scope")
	}
	d.arguments = d.declare(&d.Scope, f.Arguments, Var, ArgumentsVariable, CreatedInitialized, NotAssigned)
	d.newTarget = d.declare(&d.Scope, f.NewTarget, Const, NormalVariable, CreatedInitialized, NotAssigned)
	if d.functionKind.IsConciseMethod() || d.functionKind.IsClassConstructor() ||
		d.functionKind.IsAccessor() {
		d.thisFunction = d.declare(&d.Scope, f.ThisFunction, Const, NormalVariable, CreatedInitialized, NotAssigned)
	}
}

// DeclareFunctionVar declares the self-binding of a named function
// expression. The binding shadows parameters but lives outside the
// variable map; lookups consult it separately.
func (d *DeclarationScope) DeclareFunctionVar(name *names.Name) *Variable {
	if !d.IsFunctionScope() {
		panic("jscope: function var on non-function scope")
	}
	if d.function != nil {
		panic("jscope: function var declared twice")
	}
	mode := ConstLegacy
	if d.languageMode == Strict {
		mode = Const
	}
	d.function = newVariable(&d.Scope, name, mode, NormalVariable, CreatedInitialized, NotAssigned)
	return d.function
}

// LookupFunctionVar returns the function self-binding if its name
// matches, materializing it from the serialized descriptor when the
// scope has one.
func (d *DeclarationScope) LookupFunctionVar(name *names.Name) *Variable {
	if d.function != nil && d.function.name == name {
		return d.function
	}
	if d.scopeInfo != nil {
		index, mode := d.scopeInfo.FunctionContextSlotIndex(name.String())
		if index < 0 {
			return nil
		}
		v := d.DeclareFunctionVar(name)
		if uint8(v.mode) != mode {
			panic("jscope: function var mode mismatch with scope info")
		}
		v.AllocateTo(ContextLocation, index)
		return v
	}
	return nil
}

// DeclareParameter declares a formal parameter. A TEMPORARY mode
// produces a fresh unnamed local for a destructured parameter.
// isDuplicate reports whether an earlier parameter has the same name.
func (d *DeclarationScope) DeclareParameter(name *names.Name, mode VariableMode, isOptional, isRest bool, f *names.Factory) (v *Variable, isDuplicate bool) {
	if d.alreadyResolved {
		panic("jscope: declaration after resolution")
	}
	if !d.IsFunctionScope() {
		panic("jscope: parameter on non-function scope")
	}
	if d.hasRest {
		panic("jscope: parameter after rest parameter")
	}
	if isOptional && isRest {
		panic("jscope: optional rest parameter")
	}
	if mode == Temporary {
		v = d.NewTemporary(name)
	} else {
		v = d.declare(&d.Scope, name, mode, NormalVariable, CreatedInitialized, NotAssigned)
		isDuplicate = d.IsDeclaredParameter(name)
	}
	if !isOptional && !isRest && d.arity == len(d.params) {
		d.arity++
	}
	d.hasRest = isRest
	d.params = append(d.params, v)
	if name == f.Arguments {
		d.hasArgumentsParameter = true
	}
	return v, isDuplicate
}

// IsDeclaredParameter reports whether name is already bound to a
// parameter.
func (d *DeclarationScope) IsDeclaredParameter(name *names.Name) bool {
	v := d.variables.Lookup(name)
	if v == nil {
		return false
	}
	for _, p := range d.params {
		if p == v {
			return true
		}
	}
	return false
}

// DeclareDynamicGlobal declares a global-object property at script
// scope for a reference that bound to nothing.
func (d *DeclarationScope) DeclareDynamicGlobal(name *names.Name, kind VariableKind) *Variable {
	if !d.IsScriptScope() {
		panic("jscope: dynamic global outside script scope")
	}
	v, _ := d.variables.Declare(&d.Scope, name, DynamicGlobal, kind, CreatedInitialized, NotAssigned)
	return v
}

// SetScriptScopeInfo installs the descriptor of a deserialized script
// context onto the existing script scope, so that script scopes do
// not nest.
func (d *DeclarationScope) SetScriptScopeInfo(info *scopeinfo.ScopeInfo) {
	if !d.IsScriptScope() {
		panic("jscope: script scope info on non-script scope")
	}
	if d.scopeInfo != nil {
		panic("jscope: script scope info set twice")
	}
	d.scopeInfo = info
}

// DeclareVariable is the parser's entry point for var, let, const, and
// function declarations. Var declarations hoist to the nearest
// declaration scope. The results are the binding (nil if declaration
// failed), whether the declaration is a permitted sloppy-mode
// block-level function redefinition, and whether it is legal at all.
func (s *Scope) DeclareVariable(declaration Declaration, mode VariableMode, init InitializationFlag, allowHarmonyRestrictiveGenerators bool) (v *Variable, sloppyModeBlockScopeFunctionRedefinition, ok bool) {
	if !mode.IsDeclared() || mode == ConstLegacy {
		panic("jscope: DeclareVariable with mode " + mode.String())
	}
	if s.alreadyResolved {
		panic("jscope: declaration after resolution")
	}
	if mode == Var && !s.IsDeclarationScope() {
		return s.GetDeclarationScope().DeclareVariable(
			declaration, mode, init, allowHarmonyRestrictiveGenerators)
	}
	if s.IsCatchScope() || s.IsWithScope() {
		panic("jscope: declaration in " + s.scopeType.String() + " scope")
	}
	if !s.IsDeclarationScope() && !(mode.IsLexical() && s.IsBlockScope()) {
		panic("jscope: declaration in non-declaration scope")
	}

	proxy := declaration.Proxy()
	name := proxy.Name()
	fdecl, isFunctionDeclaration := declaration.(*FunctionDeclaration)

	if s.IsEvalScope() && s.languageMode == Sloppy && mode == Var {
		// A var binding in a sloppy direct eval pollutes the enclosing
		// scope dynamically; pin the binding to a runtime lookup.
		v = newVariable(s, name, mode, NormalVariable, init, NotAssigned)
		v.AllocateTo(LookupLocation, -1)
	} else {
		v = s.LookupLocal(name)
		if v == nil {
			kind := NormalVariable
			if isFunctionDeclaration {
				kind = FunctionVariable
			}
			v = s.DeclareLocal(name, mode, init, kind, NotAssigned)
		} else if mode.IsLexical() || v.mode.IsLexical() {
			// Duplicate function declarations in sloppy blocks are
			// permitted for web compatibility: the name shows up in the
			// enclosing declaration scope's hoist map.
			duplicateAllowed := false
			if s.languageMode == Sloppy && isFunctionDeclaration && v.IsFunction() {
				kind := fdecl.Kind()
				duplicateAllowed =
					s.GetDeclarationScope().sloppyBlockFunctions.Lookup(name) != nil &&
						!kind.IsAsync() &&
						!(allowHarmonyRestrictiveGenerators && kind.IsGenerator())
			}
			if !duplicateAllowed {
				return nil, false, false
			}
			sloppyModeBlockScopeFunctionRedefinition = true
		} else if mode == Var {
			v.SetMaybeAssigned()
		}
	}

	// Every declaration gets a node, even repeated ones; conflict
	// checking walks this list.
	s.decls = append(s.decls, declaration)
	proxy.BindTo(v)
	return v, sloppyModeBlockScopeFunctionRedefinition, true
}

// CheckConflictingVarDeclarations returns the first declaration whose
// name collides with a lexical binding on the way out to the
// declaration scope, or nil. This catches the hoisting conflict in
//
//	function () { let x; { var x } }
func (s *Scope) CheckConflictingVarDeclarations() Declaration {
	for _, decl := range s.decls {
		mode := decl.Proxy().Var().Mode()
		if mode.IsLexical() && !s.IsBlockScope() {
			continue
		}
		// Lexical/lexical conflicts in the same scope were rejected at
		// declaration time; start lexical checks one scope out.
		current := decl.Scope()
		if mode.IsLexical() {
			current = current.outer
		}
		for {
			other := current.variables.Lookup(decl.Proxy().Name())
			if other != nil && other.Mode().IsLexical() {
				return decl
			}
			previous := current
			current = current.outer
			if previous.IsDeclarationScope() {
				break
			}
		}
	}
	return nil
}

// CheckLexDeclarationsConflictingWith returns the declaration of the
// first name in nameList that is lexically bound in this block scope,
// or nil. Used before hoisting var bindings into a surrounding scope.
func (s *Scope) CheckLexDeclarationsConflictingWith(nameList []*names.Name) Declaration {
	if !s.IsBlockScope() {
		panic("jscope: lexical conflict check on non-block scope")
	}
	for _, name := range nameList {
		v := s.LookupLocal(name)
		if v == nil {
			continue
		}
		if !v.Mode().IsLexical() {
			panic("jscope: non-lexical binding in block scope map")
		}
		for _, decl := range s.decls {
			if decl.Proxy().Name() == name {
				return decl
			}
		}
		panic("jscope: lexical binding without declaration")
	}
	return nil
}

// A SloppyBlockFunction is a block-level function statement in sloppy
// mode, a candidate for hoisting into the enclosing declaration
// scope. Candidates with the same name chain through next.
type SloppyBlockFunction struct {
	scope *Scope // the block the statement appeared in
	pos   int
	next  *SloppyBlockFunction
}

// NewSloppyBlockFunction records a hoist candidate declared in scope
// at pos.
func NewSloppyBlockFunction(scope *Scope, pos int) *SloppyBlockFunction {
	return &SloppyBlockFunction{scope: scope, pos: pos}
}

func (f *SloppyBlockFunction) Scope() *Scope              { return f.scope }
func (f *SloppyBlockFunction) Position() int              { return f.pos }
func (f *SloppyBlockFunction) Next() *SloppyBlockFunction { return f.next }

// A SloppyBlockFunctionMap maps names to their hoist candidates,
// preserving first-declaration order for deterministic hoisting.
type SloppyBlockFunctionMap struct {
	m     map[*names.Name]*SloppyBlockFunction
	order []*names.Name
}

// Declare prepends a hoist candidate for name.
func (m *SloppyBlockFunctionMap) Declare(name *names.Name, f *SloppyBlockFunction) {
	if m.m == nil {
		m.m = make(map[*names.Name]*SloppyBlockFunction)
	}
	if _, ok := m.m[name]; !ok {
		m.order = append(m.order, name)
	}
	f.next = m.m[name]
	m.m[name] = f
}

// Lookup returns the most recent hoist candidate for name, or nil.
func (m *SloppyBlockFunctionMap) Lookup(name *names.Name) *SloppyBlockFunction {
	return m.m[name]
}

// Names returns the declared names in first-declaration order.
func (m *SloppyBlockFunctionMap) Names() []*names.Name { return m.order }

// SloppyBlockFunctionMap returns the scope's hoist map.
func (d *DeclarationScope) SloppyBlockFunctionMap() *SloppyBlockFunctionMap {
	return &d.sloppyBlockFunctions
}

// DeclareSloppyBlockFunction records a block-level function statement
// for later hoisting.
func (d *DeclarationScope) DeclareSloppyBlockFunction(name *names.Name, f *SloppyBlockFunction) {
	d.sloppyBlockFunctions.Declare(name, f)
}

// A ModuleEntry describes one regular import or export of a module.
type ModuleEntry struct {
	LocalName     *names.Name
	ImportName    *names.Name // imports only
	ExportName    *names.Name // exports only
	ModuleRequest string      // imports only
}

// A ModuleDescriptor enumerates a module's regular imports and
// exports. Star imports/exports and re-exports do not bind locals and
// are not represented.
type ModuleDescriptor struct {
	imports []*ModuleEntry
	exports []*ModuleEntry
}

// AddRegularImport records `import localName as importName from
// request`.
func (m *ModuleDescriptor) AddRegularImport(localName, importName *names.Name, request string) {
	m.imports = append(m.imports, &ModuleEntry{
		LocalName:     localName,
		ImportName:    importName,
		ModuleRequest: request,
	})
}

// AddRegularExport records `export localName as exportName`.
func (m *ModuleDescriptor) AddRegularExport(localName, exportName *names.Name) {
	m.exports = append(m.exports, &ModuleEntry{
		LocalName:  localName,
		ExportName: exportName,
	})
}

func (m *ModuleDescriptor) RegularImports() []*ModuleEntry { return m.imports }
func (m *ModuleDescriptor) RegularExports() []*ModuleEntry { return m.exports }
