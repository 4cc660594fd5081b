package code

// Instruction is a single 32-bit bytecode word (spec §4.9, §6.2). Field
// layout, grounded on sentra-language-sentra's vmregister Instruction
// helpers (CreateABC/CreateABx/CreateAsBx):
//
//	opcode =  word        & 0xFF
//	A      = (word >>  8) & 0xFF
//	B      = (word >> 16) & 0xFF
//	C      = (word >> 24) & 0xFF
//	D      = int16(word >> 16)
//	E      = int32(word) >> 8
type Instruction uint32

func opcodeOf(w uint32) Op { return Op(w & 0xFF) }

// Op returns the instruction's opcode.
func (i Instruction) Op() Op { return opcodeOf(uint32(i)) }

// A returns the ABC/AD encoding's 8-bit A field.
func (i Instruction) A() uint8 { return uint8(i >> 8) }

// B returns the ABC encoding's 8-bit B field.
func (i Instruction) B() uint8 { return uint8(i >> 16) }

// C returns the ABC encoding's 8-bit C field.
func (i Instruction) C() uint8 { return uint8(i >> 24) }

// D returns the AD encoding's signed 16-bit D field.
func (i Instruction) D() int16 { return int16(uint16(i >> 16)) }

// E returns the E encoding's signed 24-bit field, sign-extended.
func (i Instruction) E() int32 { return int32(i) >> 8 }

// CreateABC builds an ABC-encoded instruction.
func CreateABC(op Op, a, b, c uint8) Instruction {
	return Instruction(uint32(op) | uint32(a)<<8 | uint32(b)<<16 | uint32(c)<<24)
}

// CreateAD builds an AD-encoded instruction (one 8-bit A, one signed
// 16-bit D).
func CreateAD(op Op, a uint8, d int16) Instruction {
	return Instruction(uint32(op) | uint32(a)<<8 | uint32(uint16(d))<<16)
}

// CreateE builds an E-encoded instruction (one signed 24-bit field).
func CreateE(op Op, e int32) Instruction {
	return Instruction(uint32(op) | (uint32(e)&0xFFFFFF)<<8)
}

// AuxWord is a plain 32-bit follow-on word (string-table index, jump
// target register, etc per opcode).
type AuxWord uint32

// CaptureWord encodes one `capture` word following new_closure: A selects
// the CaptureKind, B carries the source register (value/reference) or
// parent-upvalue index (upvalue) (spec §6.2).
func CaptureWord(kind CaptureKind, index uint8) Instruction {
	return CreateABC(OpCapture, uint8(kind), index, 0)
}
