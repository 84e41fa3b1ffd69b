// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jscope

import (
	"sort"

	"go.jscope.net/scopeinfo"
)

// mustAllocate decides whether a variable needs storage at all.
// A visibly named variable reachable by an eval call, or living in a
// catch or script scope, counts as used even if nothing in the tree
// mentions it.
func (s *Scope) mustAllocate(v *Variable) bool {
	if v.location == ModuleLocation {
		panic("jscope: module variable in slot allocation")
	}
	if (v.IsThis() || !v.name.IsEmpty()) &&
		(s.innerCallsEval || s.IsCatchScope() || s.IsScriptScope()) {
		v.SetIsUsed()
		if s.innerCallsEval {
			v.SetMaybeAssigned()
		}
	}
	if v.forcedContext && !v.used {
		panic("jscope: forced context allocation on unused variable")
	}
	// Global object properties live on the global object; no slot.
	return !v.IsGlobalObjectProperty() && v.used
}

// mustAllocateInContext decides between a heap slot and a stack slot
// for a variable that needs one.
func (s *Scope) mustAllocateInContext(v *Variable) bool {
	if s.forceContextAllocation {
		return true
	}
	if v.mode == Temporary {
		return false
	}
	if s.IsCatchScope() {
		return true
	}
	if s.IsScriptScope() && v.mode.IsLexical() {
		return true
	}
	return v.forcedContext || s.innerCallsEval
}

// allocateStackSlot places v in the enclosing frame. Block-scoped
// stack locals share the frame of the closure scope.
func (s *Scope) allocateStackSlot(v *Variable) {
	if s.IsBlockScope() {
		s.outer.GetDeclarationScope().allocateStackSlot(v)
	} else {
		v.AllocateTo(LocalLocation, s.numStackSlots)
		s.numStackSlots++
	}
}

func (s *Scope) allocateHeapSlot(v *Variable) {
	v.AllocateTo(ContextLocation, s.numHeapSlots)
	s.numHeapSlots++
}

// allocateParameterLocals assigns parameter or context slots to the
// formal parameters of a function scope.
func (d *DeclarationScope) allocateParameterLocals() {
	if !d.IsFunctionScope() {
		panic("jscope: parameter allocation on non-function scope")
	}

	usesSloppyArguments := false
	if d.arguments != nil {
		if d.mustAllocate(d.arguments) && !d.hasArgumentsParameter {
			// The arguments object aliases the formal parameters in
			// sloppy mode with simple parameters, so the parameters
			// must live in the context where the aliasing can see
			// them. A parameter named "arguments" shadows the object
			// and disables all of this.
			usesSloppyArguments =
				d.languageMode == Sloppy && d.hasSimpleParameters
		} else {
			// Unused: the code generator need not build the arguments
			// object at all.
			d.arguments = nil
		}
	} else if !d.IsArrowScope() {
		panic("jscope: non-arrow function without arguments binding")
	}

	// A duplicated parameter name must end up with the highest index
	// when stack-allocated, so iterate high index to low; AllocateTo
	// is first-writer-wins via the IsUnallocated checks below.
	for i := len(d.params) - 1; i >= 0; i-- {
		v := d.params[i]
		if v.Scope() != &d.Scope {
			panic("jscope: parameter owned by another scope")
		}
		if usesSloppyArguments {
			v.SetIsUsed()
			v.ForceContextAllocation()
		}
		d.allocateParameter(v, i)
	}
}

func (d *DeclarationScope) allocateParameter(v *Variable, index int) {
	if !d.mustAllocate(v) {
		return
	}
	if d.mustAllocateInContext(v) {
		if v.IsUnallocated() {
			d.allocateHeapSlot(v)
		} else if !v.IsContextSlot() {
			panic("jscope: parameter allocated outside context")
		}
	} else {
		if v.IsUnallocated() {
			v.AllocateTo(ParameterLocation, index)
		} else if !v.IsParameter() {
			panic("jscope: parameter allocated outside parameter slots")
		}
	}
}

// allocateReceiver gives "this" the parameter index -1.
func (d *DeclarationScope) allocateReceiver() {
	if !d.HasThisDeclaration() {
		return
	}
	if d.receiver == nil {
		panic("jscope: receiver never declared")
	}
	if d.receiver.Scope() != &d.Scope {
		panic("jscope: receiver owned by another scope")
	}
	d.allocateParameter(d.receiver, -1)
}

func (s *Scope) allocateNonParameterLocal(v *Variable) {
	if v.Scope() != s {
		panic("jscope: local owned by another scope")
	}
	if v.IsUnallocated() && s.mustAllocate(v) {
		if s.mustAllocateInContext(v) {
			s.allocateHeapSlot(v)
		} else {
			s.allocateStackSlot(v)
		}
	}
}

func (s *Scope) allocateNonParameterLocalsAndDeclaredGlobals() {
	for _, v := range s.locals {
		s.allocateNonParameterLocal(v)
	}
	if s.IsDeclarationScope() {
		s.AsDeclarationScope().allocateLocals()
	}
}

// allocateLocals finishes a declaration scope: the function
// self-binding is allocated last so that, when context-allocated, it
// occupies the last slot of the serialized layout, and the default
// bindings nothing used are dropped.
func (d *DeclarationScope) allocateLocals() {
	if d.function != nil {
		d.allocateNonParameterLocal(d.function)
	}

	if rest := d.RestParameter(); rest != nil && d.mustAllocate(rest) && rest.IsUnallocated() {
		panic("jscope: rest parameter missed by parameter allocation")
	}

	if d.newTarget != nil && !d.mustAllocate(d.newTarget) {
		d.newTarget = nil
	}
	if d.thisFunction != nil && !d.mustAllocate(d.thisFunction) {
		d.thisFunction = nil
	}
}

// allocateModuleVariables places every regular import and export in
// the module's storage: exports get dense indices in declaration
// order, and all imports share the index -1, which the code generator
// treats as "resolve through the import bindings".
func (d *DeclarationScope) allocateModuleVariables() {
	for _, entry := range d.module.RegularImports() {
		v := d.LookupLocal(entry.LocalName)
		if v == nil {
			panic("jscope: import without local binding")
		}
		v.AllocateTo(ModuleLocation, -1)
	}
	for i, entry := range d.module.RegularExports() {
		v := d.LookupLocal(entry.LocalName)
		if v == nil {
			panic("jscope: export without local binding")
		}
		v.AllocateTo(ModuleLocation, i)
	}
}

// allocateVariablesRecursively assigns storage post-order: children
// first, so every child's slot counts are final before the parent's.
func (s *Scope) allocateVariablesRecursively() {
	if s.alreadyResolved {
		panic("jscope: allocating an already analyzed scope")
	}
	if s.numStackSlots != 0 {
		panic("jscope: stack slots allocated twice")
	}

	for scope := s.inner; scope != nil; scope = scope.sibling {
		scope.allocateVariablesRecursively()
	}

	if s.numHeapSlots != MinContextSlots {
		panic("jscope: heap slots allocated twice")
	}

	// Parameters must come first so their context slots precede the
	// locals'.
	if s.IsDeclarationScope() {
		d := s.AsDeclarationScope()
		if s.IsModuleScope() {
			d.allocateModuleVariables()
		} else if s.IsFunctionScope() {
			d.allocateParameterLocals()
		}
		d.allocateReceiver()
	}
	s.allocateNonParameterLocalsAndDeclaredGlobals()

	// Even with no allocated locals, a with scope, a module scope, and
	// any scope a sloppy eval call can pour bindings into must carry a
	// context at run time.
	mustHaveContext := s.IsWithScope() || s.IsModuleScope() ||
		((s.IsFunctionScope() || s.IsEvalScope()) && s.CallsSloppyEval()) ||
		(s.IsBlockScope() && s.IsDeclarationScope() && s.CallsSloppyEval())

	if s.numHeapSlots == MinContextSlots && !mustHaveContext {
		s.numHeapSlots = 0
	}

	if s.numHeapSlots != 0 && s.numHeapSlots < MinContextSlots {
		panic("jscope: short context")
	}
}

// allocateScopeInfosRecursively emits descriptors pre-order for every
// scope later stages may revisit; a debugger compilation descriptors
// everything.
func (s *Scope) allocateScopeInfosRecursively(forDebugger bool) {
	if s.scopeInfo != nil {
		panic("jscope: scope info emitted twice")
	}
	if forDebugger || s.needsScopeInfo() {
		s.scopeInfo = s.makeScopeInfo()
	}
	for scope := s.inner; scope != nil; scope = scope.sibling {
		scope.allocateScopeInfosRecursively(forDebugger)
	}
}

// makeScopeInfo serializes the scope into a descriptor.
func (s *Scope) makeScopeInfo() *scopeinfo.ScopeInfo {
	si := &scopeinfo.ScopeInfo{
		ScopeType:          uint8(s.scopeType),
		LanguageMode:       uint8(s.languageMode),
		CallsEval:          s.callsEval,
		IsDeclarationScope: s.IsDeclarationScope(),
		ContextLength:      s.numHeapSlots,
		ReceiverSlot:       -1,
		FunctionSlot:       -1,
		HasSimpleParams:    true,
	}
	if s.IsDeclarationScope() {
		d := s.AsDeclarationScope()
		si.FunctionKind = uint16(d.functionKind)
		si.AsmModule = d.asmModule
		si.AsmFunction = d.asmFunction
		si.HasSimpleParams = d.hasSimpleParameters
		if d.receiver != nil && d.receiver.IsContextSlot() {
			si.ReceiverSlot = d.receiver.index
		}
		if d.function != nil && d.function.IsContextSlot() {
			si.FunctionName = d.function.name.String()
			si.FunctionSlot = d.function.index
			si.FunctionMode = uint8(d.function.mode)
		}
	}

	var contextLocals []*Variable
	var stackLocals []*Variable
	for _, v := range s.variables.Variables() {
		switch {
		case v.IsContextSlot():
			contextLocals = append(contextLocals, v)
		case v.IsStackLocal():
			stackLocals = append(stackLocals, v)
		}
	}
	sort.SliceStable(contextLocals, func(i, j int) bool {
		return contextLocals[i].index < contextLocals[j].index
	})
	sort.SliceStable(stackLocals, func(i, j int) bool {
		return stackLocals[i].index < stackLocals[j].index
	})
	for _, v := range contextLocals {
		si.ContextLocals = append(si.ContextLocals, scopeinfo.Local{
			Name:          v.name.String(),
			Mode:          uint8(v.mode),
			Kind:          uint8(v.kind),
			InitFlag:      uint8(v.initFlag),
			MaybeAssigned: uint8(v.maybeAssigned),
			Index:         v.index,
		})
	}
	for _, v := range stackLocals {
		si.StackLocalNames = append(si.StackLocalNames, v.name.String())
	}
	return si
}
