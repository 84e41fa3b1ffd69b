// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jscope

import (
	"fmt"

	"go.jscope.net/names"
	"go.jscope.net/scopeinfo"
)

// MinContextSlots is the number of reserved slots at the start of
// every context; see scopeinfo.MinContextSlots.
const MinContextSlots = scopeinfo.MinContextSlots

// ScopeType identifies the construct a scope belongs to.
type ScopeType uint8

const (
	ScriptScope   ScopeType = iota // top-level script
	FunctionScope                  // function body and parameters
	ModuleScope                    // module body
	BlockScope                     // braced block with lexical declarations
	CatchScope                     // catch clause binding
	WithScope                      // with statement object environment
	EvalScope                      // direct eval body
)

var scopeTypeNames = [...]string{
	ScriptScope:   "script",
	FunctionScope: "function",
	ModuleScope:   "module",
	BlockScope:    "block",
	CatchScope:    "catch",
	WithScope:     "with",
	EvalScope:     "eval",
}

func (t ScopeType) String() string { return scopeTypeNames[t] }

// A Scope is a node in the scope tree. It owns the variables declared
// in it, the list of declarations for conflict checking, and the
// not-yet-resolved references that occurred in it.
//
// Scopes are built by the parser (or the deserializer, for the outer
// chain), mutated during analysis, and frozen once allocation
// completes.
type Scope struct {
	scopeType ScopeType

	// Tree links. inner is the most recently added child; children
	// chain through sibling.
	outer   *Scope
	inner   *Scope
	sibling *Scope

	// decl points at the DeclarationScope extension; nil for scopes
	// that cannot host var declarations.
	decl *DeclarationScope

	variables  VariableMap
	locals     []*Variable
	decls      []Declaration
	unresolved *VariableProxy

	// scopeInfo backs a scope rebuilt from a previous compilation;
	// lookups may materialize variables from it on demand.
	scopeInfo *scopeinfo.ScopeInfo

	scopeName *names.Name // for printing only

	startPos, endPos int

	numStackSlots int
	numHeapSlots  int

	languageMode           LanguageMode
	callsEval              bool
	innerCallsEval         bool
	forceContextAllocation bool
	hidden                 bool
	debugEvaluate          bool
	alreadyResolved        bool
}

func (s *Scope) initScope(typ ScopeType) {
	s.scopeType = typ
	s.startPos = NoPosition
	s.endPos = NoPosition
	s.numHeapSlots = MinContextSlots
}

// newRootScope returns an unparented script or with scope; the latter
// is only ever produced by the deserializer.
func newRootScope(typ ScopeType) *Scope {
	if typ != ScriptScope && typ != WithScope {
		panic("jscope: root scope must be script or with")
	}
	s := &Scope{}
	s.initScope(typ)
	if typ == WithScope {
		s.alreadyResolved = true
	}
	return s
}

// NewScope returns a new scope nested in outer. It inherits outer's
// language mode, and, unless it is a function scope, outer's forced
// context allocation.
func NewScope(outer *Scope, typ ScopeType) *Scope {
	if typ == ScriptScope {
		panic("jscope: nested script scope")
	}
	s := &Scope{}
	s.initScope(typ)
	s.languageMode = outer.languageMode
	s.forceContextAllocation =
		typ != FunctionScope && outer.forceContextAllocation
	outer.AddInnerScope(s)
	return s
}

// NewScopeFromInfo rebuilds a scope from a serialized descriptor. The
// result is already resolved; lookups consult the descriptor.
func NewScopeFromInfo(typ ScopeType, info *scopeinfo.ScopeInfo) *Scope {
	s := &Scope{}
	s.initFromInfo(typ, info)
	return s
}

func (s *Scope) initFromInfo(typ ScopeType, info *scopeinfo.ScopeInfo) {
	s.initScope(typ)
	s.alreadyResolved = true
	s.scopeInfo = info
	if info.CallsEval {
		s.RecordEvalCall()
	}
	s.languageMode = LanguageMode(info.LanguageMode)
	if info.ContextLength < MinContextSlots {
		panic("jscope: scope info without context")
	}
	s.numHeapSlots = info.ContextLength
}

// NewCatchScope rebuilds a deserialized catch scope: the catch binding
// is declared immediately and pinned to the first context slot.
func NewCatchScope(name *names.Name) *Scope {
	s := &Scope{}
	s.initScope(CatchScope)
	s.alreadyResolved = true
	v := s.declare(s, name, Var, NormalVariable, CreatedInitialized, NotAssigned)
	s.allocateHeapSlot(v)
	return s
}

func (s *Scope) Type() ScopeType      { return s.scopeType }
func (s *Scope) Outer() *Scope        { return s.outer }
func (s *Scope) Inner() *Scope        { return s.inner }
func (s *Scope) Sibling() *Scope      { return s.sibling }
func (s *Scope) Decls() []Declaration { return s.decls }
func (s *Scope) Locals() []*Variable  { return s.locals }

func (s *Scope) IsScriptScope() bool   { return s.scopeType == ScriptScope }
func (s *Scope) IsFunctionScope() bool { return s.scopeType == FunctionScope }
func (s *Scope) IsModuleScope() bool   { return s.scopeType == ModuleScope }
func (s *Scope) IsBlockScope() bool    { return s.scopeType == BlockScope }
func (s *Scope) IsCatchScope() bool    { return s.scopeType == CatchScope }
func (s *Scope) IsWithScope() bool     { return s.scopeType == WithScope }
func (s *Scope) IsEvalScope() bool     { return s.scopeType == EvalScope }

// IsDeclarationScope reports whether the scope can host var
// declarations.
func (s *Scope) IsDeclarationScope() bool { return s.decl != nil }

// AsDeclarationScope returns the scope's DeclarationScope extension.
// It panics if the scope is not a declaration scope.
func (s *Scope) AsDeclarationScope() *DeclarationScope {
	if s.decl == nil {
		panic("jscope: not a declaration scope")
	}
	return s.decl
}

// AsModuleScope returns the scope's DeclarationScope extension, whose
// module descriptor is non-nil. It panics if the scope is not a
// module scope.
func (s *Scope) AsModuleScope() *DeclarationScope {
	if !s.IsModuleScope() {
		panic("jscope: not a module scope")
	}
	return s.decl
}

func (s *Scope) LanguageMode() LanguageMode     { return s.languageMode }
func (s *Scope) SetLanguageMode(m LanguageMode) { s.languageMode = m }

// RecordEvalCall notes a direct call to eval inside this scope. The
// eval code can reach every binding visible here, so this scope and
// every enclosing one must allocate conservatively.
func (s *Scope) RecordEvalCall() {
	s.callsEval = true
	for scope := s; scope != nil; scope = scope.outer {
		scope.innerCallsEval = true
	}
}

func (s *Scope) CallsEval() bool           { return s.callsEval }
func (s *Scope) InnerScopeCallsEval() bool { return s.innerCallsEval }

// CallsSloppyEval reports whether the scope makes a direct eval call
// in sloppy mode, which can introduce bindings into the enclosing
// declaration scope.
func (s *Scope) CallsSloppyEval() bool {
	return s.callsEval && s.languageMode == Sloppy
}

// ForceContextAllocation requires every variable in the scope to be
// context-allocated.
func (s *Scope) ForceContextAllocation() { s.forceContextAllocation = true }

func (s *Scope) HasForcedContextAllocation() bool { return s.forceContextAllocation }

func (s *Scope) IsHidden() bool { return s.hidden }
func (s *Scope) SetIsHidden()   { s.hidden = true }

func (s *Scope) IsDebugEvaluateScope() bool { return s.debugEvaluate }
func (s *Scope) SetIsDebugEvaluateScope()   { s.debugEvaluate = true }

func (s *Scope) StartPosition() int       { return s.startPos }
func (s *Scope) SetStartPosition(pos int) { s.startPos = pos }
func (s *Scope) EndPosition() int         { return s.endPos }
func (s *Scope) SetEndPosition(pos int)   { s.endPos = pos }

func (s *Scope) NumStackSlots() int { return s.numStackSlots }
func (s *Scope) NumHeapSlots() int  { return s.numHeapSlots }

// ScopeInfo returns the scope's serialized descriptor, if any.
func (s *Scope) ScopeInfo() *scopeinfo.ScopeInfo { return s.scopeInfo }

// SetScopeName names the scope for printing.
func (s *Scope) SetScopeName(name *names.Name) { s.scopeName = name }

// NeedsContext reports whether the scope requires a heap-allocated
// context at run time. Valid after allocation.
func (s *Scope) NeedsContext() bool { return s.numHeapSlots > 0 }

// needsScopeInfo reports whether later compilation stages will want a
// descriptor for this scope.
func (s *Scope) needsScopeInfo() bool {
	return s.NeedsContext() || s.IsScriptScope() || s.IsFunctionScope() ||
		s.IsEvalScope() || s.IsModuleScope()
}

// AddInnerScope prepends inner to the scope's child list.
func (s *Scope) AddInnerScope(inner *Scope) {
	inner.sibling = s.inner
	s.inner = inner
	inner.outer = s
}

// RemoveInnerScope unlinks inner from the scope's child list.
func (s *Scope) RemoveInnerScope(inner *Scope) bool {
	if inner == s.inner {
		s.inner = s.inner.sibling
		return true
	}
	for scope := s.inner; scope != nil; scope = scope.sibling {
		if scope.sibling == inner {
			scope.sibling = scope.sibling.sibling
			return true
		}
	}
	return false
}

// ReplaceOuterScope relinks the scope under a new parent. Legal only
// before resolution of either side.
func (s *Scope) ReplaceOuterScope(outer *Scope) {
	if outer == nil || s.outer == nil {
		panic("jscope: replacing missing outer scope")
	}
	if s.alreadyResolved || outer.alreadyResolved || s.outer.alreadyResolved {
		panic("jscope: replacing outer scope after resolution")
	}
	s.outer.RemoveInnerScope(s)
	outer.AddInnerScope(s)
}

// declare adds a binding to the map, tracking newly created variables
// in locals so they participate in slot allocation.
func (s *Scope) declare(owner *Scope, name *names.Name, mode VariableMode, kind VariableKind, initFlag InitializationFlag, maybeAssigned MaybeAssignedFlag) *Variable {
	v, added := s.variables.Declare(owner, name, mode, kind, initFlag, maybeAssigned)
	if added {
		s.locals = append(s.locals, v)
	}
	return v
}

// DeclareLocal declares a VAR, LET, or CONST binding in this scope.
// Dynamic variables are introduced during resolution and temporaries
// via NewTemporary.
func (s *Scope) DeclareLocal(name *names.Name, mode VariableMode, initFlag InitializationFlag, kind VariableKind, maybeAssigned MaybeAssignedFlag) *Variable {
	if s.alreadyResolved {
		panic("jscope: declaration after resolution")
	}
	if !mode.IsDeclared() {
		panic("jscope: DeclareLocal with undeclarable mode " + mode.String())
	}
	return s.declare(s, name, mode, kind, initFlag, maybeAssigned)
}

// addLocal registers a variable for slot allocation in this scope.
func (s *Scope) addLocal(v *Variable) {
	if s.alreadyResolved {
		panic("jscope: local added after resolution")
	}
	s.locals = append(s.locals, v)
}

// NewTemporary creates an anonymous stack-allocated variable in the
// enclosing closure scope.
func (s *Scope) NewTemporary(name *names.Name) *Variable {
	scope := s.GetClosureScope()
	v := newVariable(&scope.Scope, name, Temporary, NormalVariable, CreatedInitialized, NotAssigned)
	scope.addLocal(v)
	return v
}

// AddUnresolved prepends a reference to the scope's unresolved list.
func (s *Scope) AddUnresolved(proxy *VariableProxy) {
	if s.alreadyResolved {
		panic("jscope: unresolved reference added after resolution")
	}
	if proxy.IsResolved() {
		panic("jscope: adding resolved proxy")
	}
	proxy.nextUnresolved = s.unresolved
	s.unresolved = proxy
}

// NewUnresolved creates a reference to name at pos and adds it to the
// unresolved list.
func (s *Scope) NewUnresolved(name *names.Name, pos int) *VariableProxy {
	proxy := NewVariableProxy(name, pos)
	s.AddUnresolved(proxy)
	return proxy
}

// RemoveUnresolved unlinks a reference from the unresolved list. It
// returns false if the proxy is not on the list, so a second call for
// the same proxy is a no-op.
func (s *Scope) RemoveUnresolved(proxy *VariableProxy) bool {
	if s.unresolved == proxy {
		s.unresolved = proxy.nextUnresolved
		proxy.nextUnresolved = nil
		return true
	}
	for current := s.unresolved; current != nil; current = current.nextUnresolved {
		if current.nextUnresolved == proxy {
			current.nextUnresolved = proxy.nextUnresolved
			proxy.nextUnresolved = nil
			return true
		}
	}
	return false
}

// Unresolved returns the head of the unresolved reference list.
func (s *Scope) Unresolved() *VariableProxy { return s.unresolved }

// LookupLocal returns the binding of name in this scope alone,
// materializing it from the serialized descriptor if the scope has
// one.
func (s *Scope) LookupLocal(name *names.Name) *Variable {
	if v := s.variables.Lookup(name); v != nil {
		return v
	}
	if s.scopeInfo != nil {
		return s.lookupInScopeInfo(name)
	}
	return nil
}

// Lookup walks the scope chain for name without resolution side
// effects.
func (s *Scope) Lookup(name *names.Name) *Variable {
	for scope := s; scope != nil; scope = scope.outer {
		if v := scope.LookupLocal(name); v != nil {
			return v
		}
	}
	return nil
}

// FinalizeBlockScope is called when a block scope is complete. An
// empty block that keeps no state is dissolved: its children and
// unresolved references move to the outer scope, and nil is returned.
// Otherwise the scope survives and receives itself back.
func (s *Scope) FinalizeBlockScope() *Scope {
	if !s.IsBlockScope() {
		panic("jscope: finalizing non-block scope")
	}
	if s.variables.Len() > 0 ||
		(s.IsDeclarationScope() && s.CallsSloppyEval()) {
		return s
	}

	s.outer.RemoveInnerScope(s)

	// Reparent inner scopes.
	if s.inner != nil {
		scope := s.inner
		scope.outer = s.outer
		for scope.sibling != nil {
			scope = scope.sibling
			scope.outer = s.outer
		}
		scope.sibling = s.outer.inner
		s.outer.inner = s.inner
		s.inner = nil
	}

	// Move unresolved references.
	if s.unresolved != nil {
		if s.outer.unresolved != nil {
			last := s.unresolved
			for last.nextUnresolved != nil {
				last = last.nextUnresolved
			}
			last.nextUnresolved = s.outer.unresolved
		}
		s.outer.unresolved = s.unresolved
		s.unresolved = nil
	}

	s.PropagateUsageFlagsToScope(s.outer)
	// The dissolved block needs no context.
	s.numHeapSlots = 0
	return nil
}

// PropagateUsageFlagsToScope carries eval usage over to another scope
// describing the same code.
func (s *Scope) PropagateUsageFlagsToScope(other *Scope) {
	if s.alreadyResolved || other.alreadyResolved {
		panic("jscope: propagating usage flags after resolution")
	}
	if s.callsEval {
		other.RecordEvalCall()
	}
}

// GetDeclarationScope returns the nearest enclosing scope (or this
// scope) that can host var declarations.
func (s *Scope) GetDeclarationScope() *DeclarationScope {
	scope := s
	for !scope.IsDeclarationScope() {
		scope = scope.outer
	}
	return scope.AsDeclarationScope()
}

// GetClosureScope returns the nearest enclosing declaration scope that
// is not a block scope.
func (s *Scope) GetClosureScope() *DeclarationScope {
	scope := s
	for !scope.IsDeclarationScope() || scope.IsBlockScope() {
		scope = scope.outer
	}
	return scope.AsDeclarationScope()
}

// GetReceiverScope returns the scope that owns the applicable "this":
// the nearest non-arrow function scope, or the script scope.
func (s *Scope) GetReceiverScope() *DeclarationScope {
	scope := s
	for !scope.IsScriptScope() &&
		(!scope.IsFunctionScope() || scope.AsDeclarationScope().IsArrowScope()) {
		scope = scope.outer
	}
	return scope.AsDeclarationScope()
}

// ContextChainLength counts the contexts between this scope and an
// ancestor scope.
func (s *Scope) ContextChainLength(to *Scope) int {
	n := 0
	for scope := s; scope != to; scope = scope.outer {
		if scope == nil {
			panic("jscope: scope not on chain")
		}
		if scope.NeedsContext() {
			n++
		}
	}
	return n
}

// ContextChainLengthUntilOutermostSloppyEval returns the number of
// contexts up to and including the outermost scope that makes a sloppy
// eval call, or zero if there is none.
func (s *Scope) ContextChainLengthUntilOutermostSloppyEval() int {
	result := 0
	length := 0
	for scope := s; scope != nil; scope = scope.outer {
		if !scope.NeedsContext() {
			continue
		}
		length++
		if scope.CallsSloppyEval() {
			result = length
		}
	}
	return result
}

// MaxNestedContextChainLength returns the depth of the deepest context
// chain rooted at this scope.
func (s *Scope) MaxNestedContextChainLength() int {
	max := 0
	for scope := s.inner; scope != nil; scope = scope.sibling {
		if n := scope.MaxNestedContextChainLength(); n > max {
			max = n
		}
	}
	if s.NeedsContext() {
		max++
	}
	return max
}

// HasSimpleParameters reports whether the enclosing closure has only
// simple formal parameters (or is not a function at all).
func (s *Scope) HasSimpleParameters() bool {
	scope := s.GetClosureScope()
	return !scope.IsFunctionScope() || scope.hasSimpleParameters
}

// IsAsmModule reports whether the scope is a function scope marked
// "use asm".
func (s *Scope) IsAsmModule() bool {
	return s.IsFunctionScope() && s.AsDeclarationScope().asmModule
}

// IsAsmFunction reports whether the scope is a function scope nested
// in an asm module.
func (s *Scope) IsAsmFunction() bool {
	return s.IsFunctionScope() && s.AsDeclarationScope().asmFunction
}

// AllowsLazyParsing reports whether a function at this point may be
// pre-parsed: inside a block scope, declarations may still be pending,
// so parsing must be eager.
func (s *Scope) AllowsLazyParsing() bool {
	for scope := s; scope != nil; scope = scope.outer {
		if scope.IsBlockScope() {
			return false
		}
	}
	return true
}

// StackLocalCount returns the number of stack slots excluding the
// function self-binding.
func (s *Scope) StackLocalCount() int {
	var function *Variable
	if s.IsFunctionScope() {
		function = s.AsDeclarationScope().function
	}
	n := s.numStackSlots
	if function != nil && function.IsStackLocal() {
		n--
	}
	return n
}

// ContextLocalCount returns the number of allocated context slots
// excluding the reserved slots and the function self-binding.
func (s *Scope) ContextLocalCount() int {
	if s.numHeapSlots == 0 {
		return 0
	}
	var function *Variable
	if s.IsFunctionScope() {
		function = s.AsDeclarationScope().function
	}
	n := s.numHeapSlots - MinContextSlots
	if function != nil && function.IsContextSlot() {
		n--
	}
	return n
}

// checkScopePositions verifies that every non-hidden leaf scope has
// real source positions.
func (s *Scope) checkScopePositions() {
	if !s.hidden && s.inner == nil {
		if s.startPos == NoPosition || s.endPos == NoPosition {
			panic(fmt.Sprintf("jscope: %s scope without source positions", s.scopeType))
		}
	}
	for scope := s.inner; scope != nil; scope = scope.sibling {
		scope.checkScopePositions()
	}
}
