// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jscope analyzes the lexical scopes of a JavaScript-family
// program. Given the scope-relevant slice of a syntax tree, it builds
// a tree of scopes, declares the variables each scope owns, resolves
// every free reference to a binding in an enclosing scope or to a
// dynamic or global fallback, and assigns each variable its storage:
// a parameter slot, a stack slot, a heap ("context") slot, a module
// slot, a dynamic lookup, or a global object property.
//
// # Building
//
// The parser drives scope construction as it reads the source: it
// creates scopes with NewScope, NewDeclarationScope and NewModuleScope,
// declares bindings with the Declare* methods, records references with
// NewUnresolved/AddUnresolved, and finalizes block scopes when it
// reaches their closing brace. Arrow-function lookahead is handled
// with NewSnapshot and Reparent. When a function is re-entered after
// lazy parsing, DeserializeScopeChain rebuilds its outer scopes from
// the runtime context chain and previously serialized descriptors.
//
// # Analyzing
//
// Analyze runs resolution and allocation over a finished tree, in a
// fixed order: usage flags propagate upward, references resolve along
// the scope chain, storage is assigned child scopes first, and each
// scope that later stages may revisit is serialized to a
// scopeinfo.ScopeInfo. Everything is single-threaded; a scope tree
// belongs to one analysis.
//
// Resolution is conservative where the language demands it: a direct
// sloppy-mode eval call turns the bindings it can see into dynamic
// lookups, a with scope makes every reference through it dynamic, and
// variables captured by an inner function move to context slots.
//
// After Analyze returns, the tree is frozen; the code generator reads
// variable locations, slot counts and descriptors from it.
package jscope // import "go.jscope.net"
