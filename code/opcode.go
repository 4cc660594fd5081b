// Package code defines GAL's bytecode instruction encoding (ABC/AD/E/AUX,
// spec §4.9, §6.2), the opcode table, and chunk (de)serialization (§6.1).
// The Instruction uint32 encode/decode shape is grounded on
// other_examples' sentra-language-sentra vmregister bytecode (its
// CreateABC/CreateABx/CreateAsBx helpers and per-opcode String() table).
package code

// Op is a single opcode (spec §4.9: "Low byte = opcode").
type Op uint8

const (
	OpNop Op = iota

	// Loads
	OpLoadNull
	OpLoadBoolean
	OpLoadNumber
	OpLoadKey
	OpLoadKeyExtra
	OpLoadImport
	OpMove
	OpLoadGlobal
	OpSetGlobal
	OpLoadUpvalue
	OpSetUpvalue
	OpCloseUpvalues

	// Tables
	OpNewTable
	OpCopyTable
	OpLoadTable
	OpSetTable
	OpLoadTableStringKey
	OpSetTableStringKey
	OpLoadTableNumberKey
	OpSetTableNumberKey
	OpSetList

	// Closures
	OpNewClosure
	OpCapture
	OpCopyClosure

	// Calls
	OpCall
	OpCallReturn
	OpNamedCall
	OpFastcall
	OpFastcall1
	OpFastcall2
	OpFastcall2Key

	// Control
	OpJump
	OpJumpBack
	OpJumpIf
	OpJumpIfNot
	OpJumpIfEq
	OpJumpIfLt
	OpJumpIfLe
	OpJumpIfNe
	OpJumpIfNlt
	OpJumpIfNle
	OpJumpIfEqKey
	OpJumpIfNeKey
	OpJumpExtra

	// Arithmetic / bitops
	OpPlus
	OpMinus
	OpMultiply
	OpDivide
	OpModulus
	OpPow
	OpBitwiseAnd
	OpBitwiseOr
	OpBitwiseXor
	OpBitwiseLeftShift
	OpBitwiseRightShift
	OpPlusKey
	OpMinusKey
	OpMultiplyKey
	OpDivideKey
	OpModulusKey
	OpPowKey
	OpBitwiseAndKey
	OpBitwiseOrKey
	OpBitwiseXorKey
	OpBitwiseLeftShiftKey
	OpBitwiseRightShiftKey

	// Logical
	OpLogicalAnd
	OpLogicalOr
	OpLogicalAndKey
	OpLogicalOrKey

	// Unary
	OpNegate
	OpNot
	OpLength

	// Loops
	OpForNumericLoopPrepare
	OpForNumericLoop
	OpForGenericLoop
	OpINextPrepare
	OpINext
	OpNextPrepare
	OpNext

	// Misc
	OpLoadVarargs
	OpPrepareVarargs
	OpCoverage
	OpDebuggerBreak
	OpReturn
)

// twoWord lists opcodes whose instruction is followed by a 32-bit AUX word
// (spec §6.2 normative summary).
var twoWord = map[Op]bool{
	OpLoadGlobal:          true,
	OpSetGlobal:           true,
	OpLoadImport:          true,
	OpLoadTableStringKey:  true,
	OpSetTableStringKey:   true,
	OpNamedCall:           true,
	OpJumpIfEq:            true,
	OpJumpIfLt:            true,
	OpJumpIfLe:            true,
	OpJumpIfNe:            true,
	OpJumpIfNlt:           true,
	OpJumpIfNle:           true,
	OpCopyTable:           true,
	OpSetList:             true,
	OpForGenericLoop:      true,
	OpLoadKeyExtra:        true,
	OpJumpIfEqKey:         true,
	OpJumpIfNeKey:         true,
	OpFastcall2:           true,
	OpFastcall2Key:        true,
}

// Width reports an opcode's length in 32-bit words, not counting any
// trailing capture words after new_closure (spec §4.9, §6.2).
func (op Op) Width() int {
	if twoWord[op] {
		return 2
	}
	return 1
}

var names = map[Op]string{
	OpNop:                   "nop",
	OpLoadNull:              "load_null",
	OpLoadBoolean:           "load_boolean",
	OpLoadNumber:            "load_number",
	OpLoadKey:               "load_key",
	OpLoadKeyExtra:          "load_key_extra",
	OpLoadImport:            "load_import",
	OpMove:                  "move",
	OpLoadGlobal:            "load_global",
	OpSetGlobal:             "set_global",
	OpLoadUpvalue:           "load_upvalue",
	OpSetUpvalue:            "set_upvalue",
	OpCloseUpvalues:         "close_upvalues",
	OpNewTable:              "new_table",
	OpCopyTable:             "copy_table",
	OpLoadTable:             "load_table",
	OpSetTable:              "set_table",
	OpLoadTableStringKey:    "load_table_string_key",
	OpSetTableStringKey:     "set_table_string_key",
	OpLoadTableNumberKey:    "load_table_number_key",
	OpSetTableNumberKey:     "set_table_number_key",
	OpSetList:               "set_list",
	OpNewClosure:            "new_closure",
	OpCapture:               "capture",
	OpCopyClosure:           "copy_closure",
	OpCall:                  "call",
	OpCallReturn:            "call_return",
	OpNamedCall:             "named_call",
	OpFastcall:              "fastcall",
	OpFastcall1:             "fastcall_1",
	OpFastcall2:             "fastcall_2",
	OpFastcall2Key:          "fastcall_2_key",
	OpJump:                  "jump",
	OpJumpBack:              "jump_back",
	OpJumpIf:                "jump_if",
	OpJumpIfNot:             "jump_if_not",
	OpJumpIfEq:              "jump_if_eq",
	OpJumpIfLt:              "jump_if_lt",
	OpJumpIfLe:              "jump_if_le",
	OpJumpIfNe:              "jump_if_ne",
	OpJumpIfNlt:             "jump_if_nlt",
	OpJumpIfNle:             "jump_if_nle",
	OpJumpIfEqKey:           "jump_if_eq_key",
	OpJumpIfNeKey:           "jump_if_ne_key",
	OpJumpExtra:             "jump_extra",
	OpPlus:                  "plus",
	OpMinus:                 "minus",
	OpMultiply:              "multiply",
	OpDivide:                "divide",
	OpModulus:               "modulus",
	OpPow:                   "pow",
	OpBitwiseAnd:            "bitwise_and",
	OpBitwiseOr:             "bitwise_or",
	OpBitwiseXor:            "bitwise_xor",
	OpBitwiseLeftShift:      "bitwise_left_shift",
	OpBitwiseRightShift:     "bitwise_right_shift",
	OpPlusKey:               "plus_key",
	OpMinusKey:              "minus_key",
	OpMultiplyKey:           "multiply_key",
	OpDivideKey:             "divide_key",
	OpModulusKey:            "modulus_key",
	OpPowKey:                "pow_key",
	OpBitwiseAndKey:         "bitwise_and_key",
	OpBitwiseOrKey:          "bitwise_or_key",
	OpBitwiseXorKey:         "bitwise_xor_key",
	OpBitwiseLeftShiftKey:   "bitwise_left_shift_key",
	OpBitwiseRightShiftKey:  "bitwise_right_shift_key",
	OpLogicalAnd:            "logical_and",
	OpLogicalOr:             "logical_or",
	OpLogicalAndKey:         "logical_and_key",
	OpLogicalOrKey:          "logical_or_key",
	OpNegate:                "negate",
	OpNot:                   "not",
	OpLength:                "length",
	OpForNumericLoopPrepare: "for_numeric_loop_prepare",
	OpForNumericLoop:        "for_numeric_loop",
	OpForGenericLoop:        "for_generic_loop",
	OpINextPrepare:          "inext_prepare",
	OpINext:                 "inext",
	OpNextPrepare:           "next_prepare",
	OpNext:                  "next",
	OpLoadVarargs:           "load_varargs",
	OpPrepareVarargs:        "prepare_varargs",
	OpCoverage:              "coverage",
	OpDebuggerBreak:         "debugger_break",
	OpReturn:                "return",
}

func (op Op) String() string {
	if s, ok := names[op]; ok {
		return s
	}
	return "unknown_op"
}

// CaptureKind is the A field of a capture word following new_closure
// (spec §6.2).
type CaptureKind uint8

const (
	CaptureValue CaptureKind = iota
	CaptureReference
	CaptureUpvalue
)

// BuiltinID enumerates the fastcall-recognized host built-ins (spec
// §4.10).
type BuiltinID uint8

const (
	BuiltinNone BuiltinID = iota
	BuiltinAssert
	BuiltinMathAbs
	BuiltinMathFloor
	BuiltinMathCeil
	BuiltinMathSqrt
	BuiltinMathMin
	BuiltinMathMax
	BuiltinBitsBand
	BuiltinBitsBor
	BuiltinBitsBxor
	BuiltinTypeof
	BuiltinStringSub
	BuiltinRawGet
	BuiltinRawSet
	BuiltinRawEqual
	BuiltinTableInsert
	BuiltinTableUnpack
	BuiltinVector
)
