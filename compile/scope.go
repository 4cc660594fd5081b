package compile

import "github.com/galang-lang/gal/code"

// localVar is one declared local, tracked for the lifetime of the block
// that introduced it.
type localVar struct {
	name     string
	register uint8
	depth    int
}

// upvalDesc records how a function captures one variable from its
// immediately enclosing function, mirroring the new_closure/capture word
// pair (spec §6.2).
type upvalDesc struct {
	name      string
	kind      code.CaptureKind
	fromLocal bool // true: index is the parent's local register
	index     uint8
}

// loopCtx tracks the jump-patch lists a loop body needs: break jumps patch
// to just past the loop, continue jumps patch to the loop's increment /
// condition-recheck point.
type loopCtx struct {
	breakJumps    []int
	continueJumps []int
	// continueTarget, if >= 0, is already known (e.g. a while loop's test);
	// otherwise continue jumps are patched once the loop's tail is emitted.
	continueTarget int
}

// funcScope is one function's compile-time state: its register file,
// locals, upvalues, and loop nesting.
type funcScope struct {
	parent *funcScope

	locals   []localVar
	blockTop []int // stack of `len(locals)` snapshots, one per nested block

	freeReg uint8
	maxReg  uint8

	upvalues []upvalDesc

	loops []*loopCtx

	code  []uint32
	lines []int32

	numParams uint8
	isVararg  bool
	debugName string
}

func newFuncScope(parent *funcScope) *funcScope {
	return &funcScope{parent: parent}
}

func (f *funcScope) reserve() uint8 {
	r := f.freeReg
	f.freeReg++
	if f.freeReg > f.maxReg {
		f.maxReg = f.freeReg
	}
	return r
}

func (f *funcScope) reserveN(n int) uint8 {
	base := f.freeReg
	f.freeReg += uint8(n)
	if f.freeReg > f.maxReg {
		f.maxReg = f.freeReg
	}
	return base
}

// freeTo resets freeReg to r, reclaiming every temporary above it. Callers
// must never free below the current locals' top.
func (f *funcScope) freeTo(r uint8) {
	f.freeReg = r
}

func (f *funcScope) enterBlock() {
	f.blockTop = append(f.blockTop, len(f.locals))
}

// exitBlock drops every local declared since the matching enterBlock and
// reclaims their registers.
func (f *funcScope) exitBlock() {
	n := len(f.blockTop) - 1
	top := f.blockTop[n]
	f.blockTop = f.blockTop[:n]
	if top < len(f.locals) {
		f.freeReg = f.locals[top].register
	}
	f.locals = f.locals[:top]
}

func (f *funcScope) declareLocal(name string) uint8 {
	reg := f.reserve()
	f.locals = append(f.locals, localVar{name: name, register: reg, depth: len(f.blockTop)})
	return reg
}

// declareLocalAt declares a local at a specific, already-reserved register
// rather than the next free one, for constructs like the numeric for loop
// whose register layout is fixed by the loop opcodes themselves.
func (f *funcScope) declareLocalAt(name string, reg uint8) {
	f.locals = append(f.locals, localVar{name: name, register: reg, depth: len(f.blockTop)})
}

func (f *funcScope) resolveLocal(name string) (uint8, bool) {
	for i := len(f.locals) - 1; i >= 0; i-- {
		if f.locals[i].name == name {
			return f.locals[i].register, true
		}
	}
	return 0, false
}

// resolveUpvalue finds or creates an upvalue capturing name from an
// enclosing function, recursing outward (spec §6.2 capture word kinds:
// value/reference/upvalue).
func (f *funcScope) resolveUpvalue(name string) (uint8, bool) {
	if f.parent == nil {
		return 0, false
	}
	for i, u := range f.upvalues {
		if u.name == name {
			return uint8(i), true
		}
	}
	if reg, ok := f.parent.resolveLocal(name); ok {
		f.upvalues = append(f.upvalues, upvalDesc{name: name, kind: code.CaptureReference, fromLocal: true, index: reg})
		return uint8(len(f.upvalues) - 1), true
	}
	if idx, ok := f.parent.resolveUpvalue(name); ok {
		f.upvalues = append(f.upvalues, upvalDesc{name: name, kind: code.CaptureUpvalue, fromLocal: false, index: idx})
		return uint8(len(f.upvalues) - 1), true
	}
	return 0, false
}

func (f *funcScope) emit(i code.Instruction, line int32) int {
	pc := len(f.code)
	f.code = append(f.code, uint32(i))
	f.lines = append(f.lines, line)
	return pc
}

func (f *funcScope) emitAux(w code.AuxWord) {
	f.code = append(f.code, uint32(w))
	if len(f.lines) > 0 {
		f.lines = append(f.lines, f.lines[len(f.lines)-1])
	} else {
		f.lines = append(f.lines, 0)
	}
}

func (f *funcScope) here() int { return len(f.code) }

// patchAuxOffset patches the AUX word following the two-word jump
// instruction at pc (e.g. jump_if_eq) to target the current end of code.
func (f *funcScope) patchAuxOffset(pc int) {
	offset := int32(f.here() - pc - 2)
	f.code[pc+1] = uint32(offset)
}

// patchJump rewrites the jump instruction at pc to target the current end
// of the code array. Plain jumps (jump/jump_back/jump_extra) carry no
// other operand and are re-encoded via CreateE; conditional/prepare jumps
// (jump_if, jump_if_not, for_numeric_loop_prepare) carry a register in A
// that CreateE would clobber, so those are re-encoded via CreateAD instead,
// preserving A and rewriting only D.
func (f *funcScope) patchJump(pc int) {
	inst := code.Instruction(f.code[pc])
	op := inst.Op()
	switch op {
	case code.OpJump, code.OpJumpBack, code.OpJumpExtra:
		offset := int32(f.here() - pc - 1)
		f.code[pc] = uint32(code.CreateE(op, offset))
	default:
		offset := int16(f.here() - pc - 1)
		f.code[pc] = uint32(code.CreateAD(op, inst.A(), offset))
	}
}

func (f *funcScope) enterLoop() *loopCtx {
	l := &loopCtx{continueTarget: -1}
	f.loops = append(f.loops, l)
	return l
}

func (f *funcScope) exitLoop() *loopCtx {
	n := len(f.loops) - 1
	l := f.loops[n]
	f.loops = f.loops[:n]
	return l
}

// resolveContinueTarget fixes a loop's continue point to the current end
// of code and patches every continue jump queued before the target was
// known (spec-less compiler convention: continue re-enters at the loop's
// increment/recheck step, not at the top of the body).
func (f *funcScope) resolveContinueTarget(l *loopCtx) {
	l.continueTarget = f.here()
	for _, pc := range l.continueJumps {
		f.patchJump(pc)
	}
	l.continueJumps = nil
}

func (f *funcScope) currentLoop() *loopCtx {
	if len(f.loops) == 0 {
		return nil
	}
	return f.loops[len(f.loops)-1]
}
