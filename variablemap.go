// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jscope

import (
	"go.jscope.net/names"
)

// A VariableMap maps interned names to the Variables of one scope.
// Keys are unique per map and compare by pointer identity. Iteration
// follows insertion order so that printing and allocation are
// deterministic.
//
// The table is open-addressed with linear probing, in the manner of a
// hashtable specialized to its key type rather than a generic map.
type VariableMap struct {
	table []*mapEntry // len is a power of two; nil means free
	order []*mapEntry // insertion order; removed entries are nil
	count int         // live entries
}

type mapEntry struct {
	v     *Variable
	name  *names.Name
	order int // index into order
}

// deletedEntry marks a vacated slot so probe chains stay intact.
var deletedEntry = &mapEntry{}

const minTableSize = 8

func (m *VariableMap) init() {
	if m.table == nil {
		m.table = make([]*mapEntry, minTableSize)
	}
}

// Len returns the number of variables in the map.
func (m *VariableMap) Len() int { return m.count }

// Lookup returns the variable bound to name, or nil.
func (m *VariableMap) Lookup(name *names.Name) *Variable {
	if e := m.lookupEntry(name); e != nil {
		return e.v
	}
	return nil
}

func (m *VariableMap) lookupEntry(name *names.Name) *mapEntry {
	if m.table == nil {
		return nil
	}
	mask := uint32(len(m.table) - 1)
	for i := name.Hash() & mask; ; i = (i + 1) & mask {
		e := m.table[i]
		if e == nil {
			return nil
		}
		if e != deletedEntry && e.name == name {
			return e
		}
	}
}

// Declare returns the variable bound to name, creating it with the
// given attributes if the name is absent.
func (m *VariableMap) Declare(scope *Scope, name *names.Name, mode VariableMode, kind VariableKind, initFlag InitializationFlag, maybeAssigned MaybeAssignedFlag) (v *Variable, added bool) {
	if e := m.lookupEntry(name); e != nil {
		return e.v, false
	}
	v = newVariable(scope, name, mode, kind, initFlag, maybeAssigned)
	m.insert(v)
	return v, true
}

// Add inserts a variable whose name must be absent from the map.
func (m *VariableMap) Add(v *Variable) {
	if m.lookupEntry(v.name) != nil {
		panic("jscope: duplicate name in variable map")
	}
	m.insert(v)
}

// Remove deletes the variable, which must be present under its name.
// It is used when re-parenting moves a var binding into a new closure
// scope.
func (m *VariableMap) Remove(v *Variable) {
	mask := uint32(len(m.table) - 1)
	for i := v.name.Hash() & mask; ; i = (i + 1) & mask {
		e := m.table[i]
		if e == nil {
			panic("jscope: removing absent variable")
		}
		if e != deletedEntry && e.name == v.name {
			m.table[i] = deletedEntry
			m.order[e.order] = nil
			m.count--
			return
		}
	}
}

func (m *VariableMap) insert(v *Variable) {
	m.init()
	if (m.count+1)*4 >= len(m.table)*3 {
		m.grow()
	}
	e := &mapEntry{v: v, name: v.name, order: len(m.order)}
	m.order = append(m.order, e)
	m.insertEntry(e)
	m.count++
}

func (m *VariableMap) insertEntry(e *mapEntry) {
	mask := uint32(len(m.table) - 1)
	for i := e.name.Hash() & mask; ; i = (i + 1) & mask {
		if m.table[i] == nil || m.table[i] == deletedEntry {
			m.table[i] = e
			return
		}
	}
}

func (m *VariableMap) grow() {
	old := m.table
	m.table = make([]*mapEntry, 2*len(old))
	for _, e := range old {
		if e != nil && e != deletedEntry {
			m.insertEntry(e)
		}
	}
}

// Variables returns the live variables in insertion order.
func (m *VariableMap) Variables() []*Variable {
	vars := make([]*Variable, 0, m.count)
	for _, e := range m.order {
		if e != nil {
			vars = append(vars, e.v)
		}
	}
	return vars
}
