// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jscope

// A Snapshot freezes a point in scope building, so that everything
// added to a scope afterwards can later be re-parented under a
// function scope that turned out to enclose it. The parser needs this
// for arrow functions: by the time `(a, b) => ...` is recognized as a
// function head, its pieces were already built into the outer scope.
type Snapshot struct {
	outer         *Scope
	topInner      *Scope
	topUnresolved *VariableProxy
	topLocal      int
	topDecl       int
}

// NewSnapshot captures the current extent of scope.
func NewSnapshot(scope *Scope) *Snapshot {
	closure := scope.GetClosureScope()
	return &Snapshot{
		outer:         scope,
		topInner:      scope.inner,
		topUnresolved: scope.unresolved,
		topLocal:      len(closure.locals),
		topDecl:       len(closure.decls),
	}
}

// Reparent moves everything built since the snapshot under newParent,
// which must be the most recently added inner scope of the
// snapshotted scope and still empty: inner scopes, unresolved
// references, and post-snapshot locals of the enclosing closure (which
// can only be temporaries or vars). The closure's locals and
// declarations are truncated back to the snapshot.
func (sn *Snapshot) Reparent(newParent *DeclarationScope) {
	if sn.outer.inner != &newParent.Scope {
		panic("jscope: reparent target is not the newest inner scope")
	}
	if newParent.outer != sn.outer {
		panic("jscope: reparent target under a different outer scope")
	}
	if newParent.GetClosureScope() != newParent {
		panic("jscope: reparent target is not a closure scope")
	}
	if newParent.inner != nil || newParent.unresolved != nil || len(newParent.locals) != 0 {
		panic("jscope: reparent target is not empty")
	}

	inner := newParent.sibling
	if inner != sn.topInner {
		for ; inner.sibling != sn.topInner; inner = inner.sibling {
			inner.outer = &newParent.Scope
		}
		inner.outer = &newParent.Scope

		newParent.inner = newParent.sibling
		inner.sibling = nil
		// Keep newParent itself linked under outer: splice the moved
		// scopes out of the sibling chain, not the inner list head.
		newParent.sibling = sn.topInner
	}

	if sn.outer.unresolved != sn.topUnresolved {
		last := sn.outer.unresolved
		for last.nextUnresolved != sn.topUnresolved {
			last = last.nextUnresolved
		}
		last.nextUnresolved = nil
		newParent.unresolved = sn.outer.unresolved
		sn.outer.unresolved = sn.topUnresolved
	}

	outerClosure := sn.outer.GetClosureScope()
	for i := sn.topLocal; i < len(outerClosure.locals); i++ {
		local := outerClosure.locals[i]
		if local.mode != Temporary && local.mode != Var {
			panic("jscope: reparenting a lexical local")
		}
		if local.Scope() != &local.Scope().GetClosureScope().Scope {
			panic("jscope: reparenting a block-scoped local")
		}
		if local.Scope() == &newParent.Scope {
			panic("jscope: local already owned by reparent target")
		}
		local.setScope(&newParent.Scope)
		newParent.addLocal(local)
		if local.mode == Var {
			outerClosure.variables.Remove(local)
			newParent.variables.Add(local)
		}
	}
	outerClosure.locals = outerClosure.locals[:sn.topLocal]
	outerClosure.decls = outerClosure.decls[:sn.topDecl]
}
