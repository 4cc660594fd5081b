package compile

import (
	"testing"

	"github.com/galang-lang/gal/code"
	"github.com/galang-lang/gal/object"
)

// TestConstantFoldEmitsSingleLoad exercises scenario 3: "return 1 + 2 * 3"
// should constant-fold down to a single load of 7 followed by call_return,
// since parser.Optimize runs as an AST pass before compileFunction ever
// sees the return statement.
func TestConstantFoldEmitsSingleLoad(t *testing.T) {
	result, err := Compile("return 1 + 2 * 3", "test")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	main := result.Chunk.Prototypes[result.Chunk.MainPrototype]

	var loads int
	var foldedTo7 bool
	for _, word := range main.Code {
		instr := code.Instruction(word)
		switch instr.Op() {
		case code.OpLoadNumber:
			loads++
			if instr.D() == 7 {
				foldedTo7 = true
			}
		case code.OpLoadKey:
			loads++
			k := main.Constants[instr.D()]
			if k.Kind == object.ConstNumber && k.Number == 7 {
				foldedTo7 = true
			}
		}
	}

	if loads != 1 {
		t.Fatalf("expected exactly one load instruction after constant folding, got %d", loads)
	}
	if !foldedTo7 {
		t.Fatal("expected the folded constant to be 7")
	}

	last := code.Instruction(main.Code[len(main.Code)-1])
	if last.Op() != code.OpCallReturn {
		t.Fatalf("expected trailing call_return, got %s", last.Op())
	}
}
