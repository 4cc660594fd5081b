// Package compile lowers an optimized GAL AST (package ast) into the
// bytecode chunk format (package code), implementing spec §4.9's
// compiler: register allocation, upvalue capture, constant folding having
// already run as an AST pass (package parser's Optimize).
package compile

import (
	"fmt"

	"github.com/galang-lang/gal/ast"
	"github.com/galang-lang/gal/code"
	"github.com/galang-lang/gal/internal/galerr"
	"github.com/galang-lang/gal/object"
	"github.com/galang-lang/gal/parser"
)

const maxRegisters = 254

// Result is what Compile returns: the serialisable chunk plus any
// diagnostics the parser collected along the way (spec §7: a compile
// error aborts the current prototype; parse errors are collected instead).
type Result struct {
	Chunk       *code.Chunk
	Diagnostics []parser.Diagnostic
}

// compiler holds the state shared by every function compiled from one
// source: the chunk-wide string pool and the growing prototype table.
type compiler struct {
	pool       *stringPool
	prototypes []code.ChunkPrototype
	sourceName uint32
}

// Compile parses, optimizes, and compiles src into a chunk. sourceName is
// recorded in every prototype's debug info.
func Compile(src, sourceName string) (*Result, error) {
	parseResult := parser.Parse(src)
	parseResult.Chunk = parser.Optimize(parseResult.Chunk)

	c := &compiler{pool: newStringPool()}
	c.sourceName = c.pool.intern(sourceName)

	mainLit := &ast.FunctionLiteral{Variadic: true, Body: parseResult.Chunk, DebugName: "main chunk"}
	mainIdx, _, err := c.compileFunction(nil, mainLit)
	if err != nil {
		return nil, err
	}

	chunk := &code.Chunk{
		Version:       code.Version,
		Strings:       c.pool.strs,
		Prototypes:    c.prototypes,
		MainPrototype: mainIdx,
	}
	return &Result{Chunk: chunk, Diagnostics: parseResult.Diagnostics}, nil
}

// compileFunction compiles one function literal (or the synthetic main
// chunk literal) into a ChunkPrototype, appends it to c.prototypes, and
// returns its index plus the upvalue captures the new function needs from
// parent (so the caller can emit the new_closure's trailing capture words).
func (c *compiler) compileFunction(parent *funcScope, lit *ast.FunctionLiteral) (uint32, []upvalDesc, error) {
	f := newFuncScope(parent)
	f.isVararg = lit.Variadic
	f.debugName = lit.DebugName

	f.enterBlock()
	if lit.SelfParam {
		f.declareLocal("self")
		f.numParams++
	}
	for _, p := range lit.Params {
		f.declareLocal(p.Name)
		f.numParams++
	}

	cw := &funcCompiler{c: c, f: f}
	if err := cw.block(lit.Body); err != nil {
		return 0, nil, err
	}
	cw.emitImplicitReturn(lit.Body)
	f.exitBlock()

	if f.maxReg > maxRegisters {
		return 0, nil, fmt.Errorf("%w: function %q", galerr.ErrTooManyRegisters, lit.DebugName)
	}

	upvalNames := make([]string, len(f.upvalues))
	for i, u := range f.upvalues {
		upvalNames[i] = u.name
	}

	proto := code.ChunkPrototype{
		MaxStackSize:  f.maxReg,
		NumParams:     f.numParams,
		NumUpvalues:   uint8(len(f.upvalues)),
		IsVararg:      f.isVararg,
		Code:          f.code,
		Constants:     cw.constants,
		Children:      cw.children,
		SourceNameRef: c.sourceName,
		DebugNameRef:  c.pool.intern(lit.DebugName),
		UpvalNames:    upvalNames,
	}
	proto.Lines.GapLog2 = 0
	proto.Lines.Absolute = f.lines

	idx := uint32(len(c.prototypes))
	c.prototypes = append(c.prototypes, proto)
	return idx, f.upvalues, nil
}

// funcCompiler is the per-function visitor: it owns the constant pool and
// child-prototype list for the ChunkPrototype being built, alongside the
// shared funcScope register/jump state.
type funcCompiler struct {
	c *compiler
	f *funcScope

	constants []code.ChunkConstant
	constIdx  map[constKey]uint32
	children  []uint32
}

type constKey struct {
	kind object.ConstantKind
	num  float64
	str  uint32
}

func (fc *funcCompiler) constNumber(n float64) uint32 {
	return fc.internConst(constKey{kind: object.ConstNumber, num: n})
}

func (fc *funcCompiler) constString(s string) uint32 {
	ref := fc.c.pool.intern(s)
	return fc.internConst(constKey{kind: object.ConstString, str: ref})
}

func (fc *funcCompiler) internConst(k constKey) uint32 {
	if fc.constIdx == nil {
		fc.constIdx = make(map[constKey]uint32)
	}
	if i, ok := fc.constIdx[k]; ok {
		return i
	}
	i := uint32(len(fc.constants))
	var cc code.ChunkConstant
	switch k.kind {
	case object.ConstNumber:
		cc = code.ChunkConstant{Kind: object.ConstNumber, Number: k.num}
	case object.ConstString:
		cc = code.ChunkConstant{Kind: object.ConstString, StrRef: k.str}
	}
	fc.constants = append(fc.constants, cc)
	fc.constIdx[k] = i
	return i
}

func (fc *funcCompiler) line(n ast.Node) int32 {
	return int32(n.Loc().Begin.Line)
}

// emitImplicitReturn appends a bare `return` unless the block already ends
// in one (every prototype must terminate with OpCallReturn).
func (fc *funcCompiler) emitImplicitReturn(body *ast.Block) {
	if n := len(body.Stats); n > 0 {
		if _, ok := body.Stats[n-1].(*ast.ReturnStat); ok {
			return
		}
	}
	fc.f.emit(code.CreateAD(code.OpCallReturn, fc.f.freeReg, 1), 0)
}
