// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package names provides interned identifiers for scope analysis.
//
// A Name is an opaque handle with a precomputed hash. Two names are
// equal if and only if they are the same pointer, so a Factory must be
// shared by every component that wants its identifiers to compare
// equal. Names outlive any scope tree that refers to them.
package names // import "go.jscope.net/names"

// A Name is an interned identifier.
type Name struct {
	str  string
	hash uint32
}

// String returns the identifier's spelling.
func (n *Name) String() string { return n.str }

// Hash returns the precomputed hash of the identifier.
func (n *Name) Hash() uint32 { return n.hash }

// IsEmpty reports whether the identifier is the empty string,
// used for unnamed temporaries.
func (n *Name) IsEmpty() bool { return n.str == "" }

// A Factory interns identifiers and holds the canonical instances of
// the names the analyzer itself introduces.
type Factory struct {
	names map[string]*Name

	This         *Name // "this"
	Arguments    *Name // "arguments"
	NewTarget    *Name // "new.target"
	ThisFunction *Name // ".this_function"
	Empty        *Name // ""
}

// NewFactory returns an empty Factory with the predeclared names
// already interned.
func NewFactory() *Factory {
	f := &Factory{names: make(map[string]*Name)}
	f.This = f.Get("this")
	f.Arguments = f.Get("arguments")
	f.NewTarget = f.Get("new.target")
	f.ThisFunction = f.Get(".this_function")
	f.Empty = f.Get("")
	return f
}

// Get returns the canonical Name for s, interning it on first use.
func (f *Factory) Get(s string) *Name {
	if n, ok := f.names[s]; ok {
		return n
	}
	n := &Name{str: s, hash: hashString(s)}
	f.names[s] = n
	return n
}

// hashString is the 32-bit FNV-1a hash of s.
func hashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
