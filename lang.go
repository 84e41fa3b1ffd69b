// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jscope

// LanguageMode distinguishes sloppy from strict code.
// A scope inherits the mode of its outer scope and may be
// promoted to strict by a directive prologue.
type LanguageMode uint8

const (
	Sloppy LanguageMode = iota
	Strict
)

var languageModeNames = [...]string{
	Sloppy: "sloppy",
	Strict: "strict",
}

func (m LanguageMode) String() string { return languageModeNames[m] }

// FunctionKind describes the syntactic flavor of a function.
// Kinds combine: an async generator method is AsyncFunction |
// GeneratorFunction | ConciseMethod.
type FunctionKind uint16

const (
	NormalFunction      FunctionKind = 0
	ArrowFunction       FunctionKind = 1 << (iota - 1) // 1
	GeneratorFunction                                  // 2
	ConciseMethod                                      // 4
	AccessorFunction                                   // 8
	AsyncFunction                                      // 16
	BaseConstructor                                    // 32
	SubclassConstructor                                // 64
	DefaultConstructor                                 // 128
)

func (k FunctionKind) IsArrow() bool     { return k&ArrowFunction != 0 }
func (k FunctionKind) IsGenerator() bool { return k&GeneratorFunction != 0 }
func (k FunctionKind) IsConciseMethod() bool {
	return k&ConciseMethod != 0
}
func (k FunctionKind) IsAccessor() bool { return k&AccessorFunction != 0 }
func (k FunctionKind) IsAsync() bool    { return k&AsyncFunction != 0 }
func (k FunctionKind) IsClassConstructor() bool {
	return k&(BaseConstructor|SubclassConstructor) != 0
}
func (k FunctionKind) IsSubclassConstructor() bool {
	return k&SubclassConstructor != 0
}
func (k FunctionKind) IsDefaultConstructor() bool {
	return k&DefaultConstructor != 0
}

func (k FunctionKind) String() string {
	switch {
	case k.IsArrow():
		return "arrow"
	case k.IsAsync() && k.IsGenerator():
		return "async function*"
	case k.IsAsync():
		return "async function"
	case k.IsGenerator():
		return "function*"
	case k.IsClassConstructor():
		return "constructor"
	case k.IsAccessor():
		return "accessor"
	case k.IsConciseMethod():
		return "method"
	default:
		return "function"
	}
}
