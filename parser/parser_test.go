package parser

import (
	"testing"

	"github.com/galang-lang/gal/ast"
)

func TestParseSimpleReturn(t *testing.T) {
	res := Parse(`return 1 + 2 * 3`)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	if len(res.Chunk.Stats) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(res.Chunk.Stats))
	}
	ret, ok := res.Chunk.Stats[0].(*ast.ReturnStat)
	if !ok {
		t.Fatalf("expected ReturnStat, got %T", res.Chunk.Stats[0])
	}
	bin, ok := ret.Values[0].(*ast.Binary)
	if !ok || bin.Op != ast.BinAdd {
		t.Fatalf("expected top-level add, got %#v", ret.Values[0])
	}
	// precedence: 1 + (2 * 3)
	if _, ok := bin.Right.(*ast.Binary); !ok {
		t.Fatalf("expected mul on the right of add (precedence), got %#v", bin.Right)
	}
}

func TestParsePowerIsRightAssociative(t *testing.T) {
	res := Parse(`return 2 ** 3 ** 2`)
	ret := res.Chunk.Stats[0].(*ast.ReturnStat)
	top := ret.Values[0].(*ast.Binary)
	if top.Op != ast.BinPow {
		t.Fatalf("expected pow at top, got %v", top.Op)
	}
	if _, ok := top.Right.(*ast.Binary); !ok {
		t.Fatalf("expected ** to be right-associative (pow nested on the right), got %#v", top.Right)
	}
}

func TestParseIfStat(t *testing.T) {
	res := Parse(`
if x then
	return 1
elseif y then
	return 2
else
	return 3
end
`)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	ifs, ok := res.Chunk.Stats[0].(*ast.IfStat)
	if !ok {
		t.Fatalf("expected IfStat, got %T", res.Chunk.Stats[0])
	}
	if len(ifs.ElseIfs) != 1 {
		t.Fatalf("expected 1 elseif, got %d", len(ifs.ElseIfs))
	}
	if ifs.Else == nil {
		t.Fatalf("expected else block")
	}
}

func TestParseLocalFunctionRecursion(t *testing.T) {
	res := Parse(`
local function fact(n)
	if n <= 1 then
		return 1
	end
	return n * fact(n - 1)
end
`)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	local, ok := res.Chunk.Stats[0].(*ast.LocalStat)
	if !ok || !local.IsLocalFunction {
		t.Fatalf("expected local function statement, got %#v", res.Chunk.Stats[0])
	}
}

func TestParseErrorRecoveryContinuesAfterSyntaxError(t *testing.T) {
	// spec §8 scenario 2: a malformed statement should not stop the parser
	// from reporting a later, unrelated error too.
	res := Parse(`
local x = )
local y = (
`)
	if len(res.Diagnostics) < 2 {
		t.Fatalf("expected at least 2 diagnostics from recovery, got %d: %v", len(res.Diagnostics), res.Diagnostics)
	}
}

func TestParseTableConstructor(t *testing.T) {
	res := Parse(`return { 1, 2, x = 3, [k] = 4 }`)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	ret := res.Chunk.Stats[0].(*ast.ReturnStat)
	tbl, ok := ret.Values[0].(*ast.TableConstructor)
	if !ok {
		t.Fatalf("expected TableConstructor, got %T", ret.Values[0])
	}
	if len(tbl.Items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(tbl.Items))
	}
	if tbl.Items[2].Kind != ast.TableItemRecord {
		t.Fatalf("expected item 2 to be a record entry")
	}
	if tbl.Items[3].Kind != ast.TableItemGeneral {
		t.Fatalf("expected item 3 to be a general entry")
	}
}

func TestParseMethodCallAndIndexing(t *testing.T) {
	res := Parse(`return a.b:c(1)[2]`)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	ret := res.Chunk.Stats[0].(*ast.ReturnStat)
	idx, ok := ret.Values[0].(*ast.IndexExpr)
	if !ok {
		t.Fatalf("expected trailing index, got %#v", ret.Values[0])
	}
	call, ok := idx.Object.(*ast.Call)
	if !ok || call.Method != "c" {
		t.Fatalf("expected method call 'c', got %#v", idx.Object)
	}
}

func TestParseTypeAssertion(t *testing.T) {
	res := Parse(`return x :: number`)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	ret := res.Chunk.Stats[0].(*ast.ReturnStat)
	assert, ok := ret.Values[0].(*ast.TypeAssertion)
	if !ok {
		t.Fatalf("expected TypeAssertion, got %#v", ret.Values[0])
	}
	named, ok := assert.Type.(*ast.NamedType)
	if !ok || named.Name != "number" {
		t.Fatalf("expected named type 'number', got %#v", assert.Type)
	}
}

func TestParseBreakOutsideLoopIsError(t *testing.T) {
	res := Parse(`break`)
	if len(res.Diagnostics) == 0 {
		t.Fatalf("expected an error for break outside a loop")
	}
}

func TestParseNumericForLoop(t *testing.T) {
	res := Parse(`
for i = 1, 10, 2 do
	continue
end
`)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	forStat, ok := res.Chunk.Stats[0].(*ast.NumericForStat)
	if !ok {
		t.Fatalf("expected NumericForStat, got %T", res.Chunk.Stats[0])
	}
	if forStat.Step == nil {
		t.Fatalf("expected explicit step expression")
	}
}

func TestHotCommentStrictPropagates(t *testing.T) {
	res := Parse("#!strict\nreturn 1")
	if !res.Strict {
		t.Fatalf("expected Strict to be true from #!strict hot comment")
	}
}
