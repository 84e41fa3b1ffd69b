// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jscope

import (
	"go.jscope.net/names"
)

// This file defines the slice of the syntax tree the analyzer
// consumes: variable references and declaration nodes. The parser owns
// the full tree; the analyzer only ever sees these.

// NoPosition is the source offset of synthetic nodes and hidden
// scopes.
const NoPosition = -1

// A VariableProxy is a reference to a variable by name. The parser
// creates one per occurrence; resolution binds it to a Variable.
// Unresolved proxies of a scope form an intrusive singly-linked list
// through nextUnresolved.
type VariableProxy struct {
	name     *names.Name
	pos      int
	assigned bool

	v              *Variable // nil until bound
	nextUnresolved *VariableProxy
}

// NewVariableProxy returns an unresolved reference to name at pos.
func NewVariableProxy(name *names.Name, pos int) *VariableProxy {
	return &VariableProxy{name: name, pos: pos}
}

func (p *VariableProxy) Name() *names.Name { return p.name }
func (p *VariableProxy) Position() int     { return p.pos }

// IsAssigned reports whether the reference is an assignment target.
func (p *VariableProxy) IsAssigned() bool { return p.assigned }

// SetIsAssigned marks the reference as an assignment target.
func (p *VariableProxy) SetIsAssigned() { p.assigned = true }

// IsResolved reports whether the proxy has been bound.
func (p *VariableProxy) IsResolved() bool { return p.v != nil }

// Var returns the bound variable, or nil if unresolved.
func (p *VariableProxy) Var() *Variable { return p.v }

// NextUnresolved returns the next proxy on the owning scope's
// unresolved list.
func (p *VariableProxy) NextUnresolved() *VariableProxy { return p.nextUnresolved }

// BindTo resolves the proxy to v and marks v used.
func (p *VariableProxy) BindTo(v *Variable) {
	if p.v != nil {
		panic("jscope: proxy already bound")
	}
	if p.name != v.name {
		panic("jscope: binding proxy to differently named variable")
	}
	p.v = v
	v.SetIsUsed()
}

// copyUnresolved clones the proxy for migration into another analysis;
// the clone is unbound and unlinked.
func (p *VariableProxy) copyUnresolved() *VariableProxy {
	c := &VariableProxy{name: p.name, pos: p.pos, assigned: p.assigned}
	return c
}

// A Declaration is the analyzer's view of a declaration node:
// the declared name (as a proxy) and the scope the declaration
// appeared in syntactically.
type Declaration interface {
	Proxy() *VariableProxy
	Scope() *Scope
	Position() int
}

// A VariableDeclaration declares a var, let, or const binding.
type VariableDeclaration struct {
	proxy *VariableProxy
	scope *Scope
	pos   int
}

// NewVariableDeclaration returns a declaration of proxy appearing in
// scope at pos.
func NewVariableDeclaration(proxy *VariableProxy, scope *Scope, pos int) *VariableDeclaration {
	return &VariableDeclaration{proxy: proxy, scope: scope, pos: pos}
}

func (d *VariableDeclaration) Proxy() *VariableProxy { return d.proxy }
func (d *VariableDeclaration) Scope() *Scope         { return d.scope }
func (d *VariableDeclaration) Position() int         { return d.pos }

// A FunctionDeclaration declares a function binding. The kind is
// needed to decide whether a sloppy-mode block-level redeclaration is
// permitted.
type FunctionDeclaration struct {
	proxy *VariableProxy
	scope *Scope
	pos   int
	kind  FunctionKind
}

// NewFunctionDeclaration returns a function declaration of proxy
// appearing in scope at pos.
func NewFunctionDeclaration(proxy *VariableProxy, scope *Scope, kind FunctionKind, pos int) *FunctionDeclaration {
	return &FunctionDeclaration{proxy: proxy, scope: scope, pos: pos, kind: kind}
}

func (d *FunctionDeclaration) Proxy() *VariableProxy { return d.proxy }
func (d *FunctionDeclaration) Scope() *Scope         { return d.scope }
func (d *FunctionDeclaration) Position() int         { return d.pos }
func (d *FunctionDeclaration) Kind() FunctionKind    { return d.kind }
