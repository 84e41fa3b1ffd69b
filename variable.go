// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jscope

import (
	"fmt"

	"go.jscope.net/names"
)

// VariableMode is the declaration mode of a binding. The order of the
// constants is significant: IsDynamic and IsDeclared test ranges.
type VariableMode uint8

const (
	Var VariableMode = iota
	ConstLegacy
	Let
	Const
	Temporary
	Dynamic       // always require dynamic lookup
	DynamicGlobal // requires dynamic lookup, but know that the variable is global unless shadowed by an eval-introduced binding
	DynamicLocal  // requires dynamic lookup, but know that the variable is local and where it is unless shadowed by an eval-introduced binding
)

var variableModeNames = [...]string{
	Var:           "VAR",
	ConstLegacy:   "CONST_LEGACY",
	Let:           "LET",
	Const:         "CONST",
	Temporary:     "TEMPORARY",
	Dynamic:       "DYNAMIC",
	DynamicGlobal: "DYNAMIC_GLOBAL",
	DynamicLocal:  "DYNAMIC_LOCAL",
}

func (m VariableMode) String() string { return variableModeNames[m] }

// IsDynamic reports whether the mode requires a runtime lookup.
func (m VariableMode) IsDynamic() bool { return m >= Dynamic }

// IsDeclared reports whether the mode can be introduced by a source
// declaration, as opposed to temporaries and dynamic placeholders.
func (m VariableMode) IsDeclared() bool { return m >= Var && m <= Const }

// IsLexical reports whether the binding is block-scoped.
func (m VariableMode) IsLexical() bool { return m == Let || m == Const }

// VariableKind classifies the few bindings the analyzer treats
// specially.
type VariableKind uint8

const (
	NormalVariable VariableKind = iota
	FunctionVariable
	ThisVariable
	ArgumentsVariable
)

// InitializationFlag records whether a binding needs a hole check
// before first use.
type InitializationFlag uint8

const (
	NeedsInitialization InitializationFlag = iota
	CreatedInitialized
)

// MaybeAssignedFlag records whether a binding is possibly written to
// after initialization.
type MaybeAssignedFlag uint8

const (
	NotAssigned MaybeAssignedFlag = iota
	MaybeAssigned
)

// VariableLocation is the storage class chosen by the allocator.
type VariableLocation uint8

const (
	// UnallocatedLocation means the allocator has not run, or the
	// variable needs no storage (a global object property).
	UnallocatedLocation VariableLocation = iota

	// ParameterLocation is a parameter slot; the index is the 0-based
	// parameter position, with -1 reserved for the receiver.
	ParameterLocation

	// LocalLocation is a stack slot in the activation record.
	LocalLocation

	// ContextLocation is a heap slot in the scope's context.
	ContextLocation

	// GlobalLocation is a slot in the script context table.
	GlobalLocation

	// LookupLocation requires a dynamic lookup at run time.
	LookupLocation

	// ModuleLocation is a module binding: a slot in the module's export
	// table, or index -1 for a regular import.
	ModuleLocation
)

var variableLocationNames = [...]string{
	UnallocatedLocation: "unallocated",
	ParameterLocation:   "parameter",
	LocalLocation:       "local",
	ContextLocation:     "context",
	GlobalLocation:      "global",
	LookupLocation:      "lookup",
	ModuleLocation:      "module",
}

func (l VariableLocation) String() string { return variableLocationNames[l] }

// A Variable is a named binding owned by a scope. Its mode never
// changes after construction, and its location is written exactly once
// by AllocateTo, except that dynamic variables are pinned to a lookup
// location on creation.
type Variable struct {
	scope *Scope // owning scope; nil for dynamic non-locals
	name  *names.Name
	mode  VariableMode
	kind  VariableKind

	location VariableLocation
	index    int

	initFlag      InitializationFlag
	maybeAssigned MaybeAssignedFlag

	used          bool
	forcedContext bool

	// If mode is DynamicLocal, the binding that would be found were it
	// not potentially shadowed by a sloppy eval-introduced binding.
	localIfNotShadowed *Variable
}

func newVariable(scope *Scope, name *names.Name, mode VariableMode, kind VariableKind, initFlag InitializationFlag, maybeAssigned MaybeAssignedFlag) *Variable {
	v := &Variable{
		scope:         scope,
		name:          name,
		mode:          mode,
		kind:          kind,
		location:      UnallocatedLocation,
		index:         -1,
		initFlag:      initFlag,
		maybeAssigned: maybeAssigned,
	}
	// Dynamic bindings never receive a slot; they are lookups from the
	// moment they exist.
	if mode.IsDynamic() {
		v.location = LookupLocation
	}
	return v
}

func (v *Variable) Scope() *Scope                      { return v.scope }
func (v *Variable) Name() *names.Name                  { return v.name }
func (v *Variable) Mode() VariableMode                 { return v.mode }
func (v *Variable) Kind() VariableKind                 { return v.kind }
func (v *Variable) Location() VariableLocation         { return v.location }
func (v *Variable) Index() int                         { return v.index }
func (v *Variable) Initialization() InitializationFlag { return v.initFlag }
func (v *Variable) MaybeAssigned() MaybeAssignedFlag   { return v.maybeAssigned }
func (v *Variable) IsUsed() bool                       { return v.used }
func (v *Variable) HasForcedContextAllocation() bool   { return v.forcedContext }
func (v *Variable) LocalIfNotShadowed() *Variable      { return v.localIfNotShadowed }

func (v *Variable) SetIsUsed()        { v.used = true }
func (v *Variable) SetMaybeAssigned() { v.maybeAssigned = MaybeAssigned }

// ForceContextAllocation requires the variable to live in a heap slot
// even if nothing in its own scope captures it.
func (v *Variable) ForceContextAllocation() {
	v.forcedContext = true
}

func (v *Variable) setLocalIfNotShadowed(local *Variable) {
	v.localIfNotShadowed = local
}

// setScope rebinds the variable to a new owner. Only the re-parent
// operation may do this, and only once.
func (v *Variable) setScope(s *Scope) { v.scope = s }

func (v *Variable) IsUnallocated() bool { return v.location == UnallocatedLocation }
func (v *Variable) IsParameter() bool   { return v.location == ParameterLocation }
func (v *Variable) IsStackLocal() bool  { return v.location == LocalLocation }
func (v *Variable) IsStackAllocated() bool {
	return v.IsParameter() || v.IsStackLocal()
}
func (v *Variable) IsContextSlot() bool { return v.location == ContextLocation }
func (v *Variable) IsGlobalSlot() bool  { return v.location == GlobalLocation }
func (v *Variable) IsLookupSlot() bool  { return v.location == LookupLocation }

func (v *Variable) IsDynamic() bool   { return v.mode.IsDynamic() }
func (v *Variable) IsThis() bool      { return v.kind == ThisVariable }
func (v *Variable) IsFunction() bool  { return v.kind == FunctionVariable }
func (v *Variable) IsArguments() bool { return v.kind == ArgumentsVariable }

// IsGlobalObjectProperty reports whether the binding lives as a
// property on the global object and therefore needs no slot.
func (v *Variable) IsGlobalObjectProperty() bool {
	if v.mode == DynamicGlobal {
		return true
	}
	return v.mode == Var && v.scope != nil && v.scope.IsScriptScope()
}

// AllocateTo assigns the variable its storage. A variable's location
// is written at most once.
func (v *Variable) AllocateTo(location VariableLocation, index int) {
	if !v.IsUnallocated() && !(v.location == location && v.index == index) {
		panic(fmt.Sprintf("jscope: variable %q allocated twice", v.name))
	}
	v.location = location
	v.index = index
}

func (v *Variable) String() string {
	if v.name.IsEmpty() {
		return fmt.Sprintf(".%p", v)
	}
	return v.name.String()
}
