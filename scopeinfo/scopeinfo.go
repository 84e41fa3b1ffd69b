// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scopeinfo defines the serialized descriptor of an analyzed
// scope, the part of a compilation artifact later stages read to find
// variables again: when lazily compiling an inner function, or when
// evaluating in a paused frame under the debugger.
//
// The descriptor is deliberately flat. Enum-valued fields carry the
// numeric values of the analyzer's enums (jscope.VariableMode and
// friends); those values are part of the wire format.
package scopeinfo // import "go.jscope.net/scopeinfo"

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// MinContextSlots is the number of reserved slots at the start of
// every context. Context-allocated variables receive indices starting
// here.
const MinContextSlots = 4

// A Local describes one context-allocated variable.
type Local struct {
	Name          string
	Mode          uint8 // jscope.VariableMode
	Kind          uint8 // jscope.VariableKind
	InitFlag      uint8 // jscope.InitializationFlag
	MaybeAssigned uint8 // jscope.MaybeAssignedFlag
	Index         int   // context slot index
}

// A ScopeInfo is the serialized descriptor of one scope.
type ScopeInfo struct {
	ScopeType    uint8  // jscope.ScopeType
	LanguageMode uint8  // jscope.LanguageMode
	FunctionKind uint16 // jscope.FunctionKind

	CallsEval          bool
	IsDeclarationScope bool
	AsmModule          bool
	AsmFunction        bool
	HasSimpleParams    bool

	// ContextLength is the scope's total context size including the
	// reserved slots; zero if the scope needs no context.
	ContextLength int

	// ContextLocals lists the context-allocated variables, in slot
	// order.
	ContextLocals []Local

	// StackLocalNames lists the stack-allocated variables by name, in
	// slot order.
	StackLocalNames []string

	// ReceiverSlot is the context slot holding "this", or -1.
	ReceiverSlot int

	// FunctionName, FunctionSlot and FunctionMode describe the named
	// function expression self-binding when it is context-allocated;
	// FunctionSlot is -1 and FunctionName empty otherwise.
	FunctionName string
	FunctionSlot int
	FunctionMode uint8
}

// ContextLocalCount returns the number of context-allocated variables.
func (si *ScopeInfo) ContextLocalCount() int { return len(si.ContextLocals) }

func (si *ScopeInfo) ContextLocalName(i int) string { return si.ContextLocals[i].Name }
func (si *ScopeInfo) ContextLocalMode(i int) uint8  { return si.ContextLocals[i].Mode }
func (si *ScopeInfo) ContextLocalKind(i int) uint8  { return si.ContextLocals[i].Kind }
func (si *ScopeInfo) ContextLocalInitFlag(i int) uint8 {
	return si.ContextLocals[i].InitFlag
}
func (si *ScopeInfo) ContextLocalMaybeAssigned(i int) uint8 {
	return si.ContextLocals[i].MaybeAssigned
}

// ContextSlotIndex returns the slot of the context local called name,
// or -1. The remaining results are meaningful only on success.
func (si *ScopeInfo) ContextSlotIndex(name string) (index int, mode, initFlag, maybeAssigned uint8) {
	for _, l := range si.ContextLocals {
		if l.Name == name {
			return l.Index, l.Mode, l.InitFlag, l.MaybeAssigned
		}
	}
	return -1, 0, 0, 0
}

// StackSlotIndex returns the stack slot of the local called name, or
// -1.
func (si *ScopeInfo) StackSlotIndex(name string) int {
	for i, n := range si.StackLocalNames {
		if n == name {
			return i
		}
	}
	return -1
}

// ReceiverContextSlotIndex returns the context slot of "this", or -1.
func (si *ScopeInfo) ReceiverContextSlotIndex() int { return si.ReceiverSlot }

// HasFunctionName reports whether the scope carries a context-allocated
// function self-binding.
func (si *ScopeInfo) HasFunctionName() bool { return si.FunctionSlot >= 0 }

// FunctionContextSlotIndex returns the slot of the function
// self-binding if its name is name, along with its mode; -1 otherwise.
func (si *ScopeInfo) FunctionContextSlotIndex(name string) (index int, mode uint8) {
	if si.HasFunctionName() && si.FunctionName == name {
		return si.FunctionSlot, si.FunctionMode
	}
	return -1, 0
}

// Wire format: a flat protowire message. Field numbers are fixed; new
// fields may be appended but existing numbers never change meaning.
const (
	fieldScopeType     = 1
	fieldLanguageMode  = 2
	fieldFunctionKind  = 3
	fieldFlags         = 4
	fieldContextLength = 5
	fieldContextLocal  = 6
	fieldStackLocal    = 7
	fieldReceiverSlot  = 8
	fieldFunctionName  = 9
	fieldFunctionSlot  = 10
	fieldFunctionMode  = 11
)

const (
	flagCallsEval = 1 << iota
	flagIsDeclarationScope
	flagAsmModule
	flagAsmFunction
	flagHasSimpleParams
)

const (
	localFieldName          = 1
	localFieldMode          = 2
	localFieldKind          = 3
	localFieldInit          = 4
	localFieldMaybeAssigned = 5
	localFieldIndex         = 6
)

// zigzag lets the -1 sentinels ride the unsigned varint encoding.
func zigzag(v int) uint64   { return protowire.EncodeZigZag(int64(v)) }
func unzigzag(u uint64) int { return int(protowire.DecodeZigZag(u)) }

// Encode appends the descriptor's wire encoding to b and returns the
// result.
func (si *ScopeInfo) Encode(b []byte) []byte {
	b = protowire.AppendTag(b, fieldScopeType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(si.ScopeType))
	b = protowire.AppendTag(b, fieldLanguageMode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(si.LanguageMode))
	b = protowire.AppendTag(b, fieldFunctionKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(si.FunctionKind))

	var flags uint64
	if si.CallsEval {
		flags |= flagCallsEval
	}
	if si.IsDeclarationScope {
		flags |= flagIsDeclarationScope
	}
	if si.AsmModule {
		flags |= flagAsmModule
	}
	if si.AsmFunction {
		flags |= flagAsmFunction
	}
	if si.HasSimpleParams {
		flags |= flagHasSimpleParams
	}
	b = protowire.AppendTag(b, fieldFlags, protowire.VarintType)
	b = protowire.AppendVarint(b, flags)

	b = protowire.AppendTag(b, fieldContextLength, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(si.ContextLength))

	for _, l := range si.ContextLocals {
		b = protowire.AppendTag(b, fieldContextLocal, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeLocal(l))
	}
	for _, n := range si.StackLocalNames {
		b = protowire.AppendTag(b, fieldStackLocal, protowire.BytesType)
		b = protowire.AppendString(b, n)
	}

	b = protowire.AppendTag(b, fieldReceiverSlot, protowire.VarintType)
	b = protowire.AppendVarint(b, zigzag(si.ReceiverSlot))
	b = protowire.AppendTag(b, fieldFunctionName, protowire.BytesType)
	b = protowire.AppendString(b, si.FunctionName)
	b = protowire.AppendTag(b, fieldFunctionSlot, protowire.VarintType)
	b = protowire.AppendVarint(b, zigzag(si.FunctionSlot))
	b = protowire.AppendTag(b, fieldFunctionMode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(si.FunctionMode))
	return b
}

func encodeLocal(l Local) []byte {
	var b []byte
	b = protowire.AppendTag(b, localFieldName, protowire.BytesType)
	b = protowire.AppendString(b, l.Name)
	b = protowire.AppendTag(b, localFieldMode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(l.Mode))
	b = protowire.AppendTag(b, localFieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(l.Kind))
	b = protowire.AppendTag(b, localFieldInit, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(l.InitFlag))
	b = protowire.AppendTag(b, localFieldMaybeAssigned, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(l.MaybeAssigned))
	b = protowire.AppendTag(b, localFieldIndex, protowire.VarintType)
	b = protowire.AppendVarint(b, zigzag(l.Index))
	return b
}

// Decode parses a descriptor from its wire encoding.
func Decode(b []byte) (*ScopeInfo, error) {
	si := &ScopeInfo{ReceiverSlot: -1, FunctionSlot: -1}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case fieldScopeType:
				si.ScopeType = uint8(v)
			case fieldLanguageMode:
				si.LanguageMode = uint8(v)
			case fieldFunctionKind:
				si.FunctionKind = uint16(v)
			case fieldFlags:
				si.CallsEval = v&flagCallsEval != 0
				si.IsDeclarationScope = v&flagIsDeclarationScope != 0
				si.AsmModule = v&flagAsmModule != 0
				si.AsmFunction = v&flagAsmFunction != 0
				si.HasSimpleParams = v&flagHasSimpleParams != 0
			case fieldContextLength:
				si.ContextLength = int(v)
			case fieldReceiverSlot:
				si.ReceiverSlot = unzigzag(v)
			case fieldFunctionSlot:
				si.FunctionSlot = unzigzag(v)
			case fieldFunctionMode:
				si.FunctionMode = uint8(v)
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case fieldContextLocal:
				l, err := decodeLocal(v)
				if err != nil {
					return nil, err
				}
				si.ContextLocals = append(si.ContextLocals, l)
			case fieldStackLocal:
				si.StackLocalNames = append(si.StackLocalNames, string(v))
			case fieldFunctionName:
				si.FunctionName = string(v)
			}
		default:
			return nil, fmt.Errorf("scopeinfo: unexpected wire type %d", typ)
		}
	}
	return si, nil
}

func decodeLocal(b []byte) (Local, error) {
	var l Local
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return l, protowire.ParseError(n)
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return l, protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case localFieldMode:
				l.Mode = uint8(v)
			case localFieldKind:
				l.Kind = uint8(v)
			case localFieldInit:
				l.InitFlag = uint8(v)
			case localFieldMaybeAssigned:
				l.MaybeAssigned = uint8(v)
			case localFieldIndex:
				l.Index = unzigzag(v)
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return l, protowire.ParseError(n)
			}
			b = b[n:]
			if num == localFieldName {
				l.Name = string(v)
			}
		default:
			return l, fmt.Errorf("scopeinfo: unexpected wire type %d", typ)
		}
	}
	return l, nil
}
