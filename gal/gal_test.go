package gal

import (
	"testing"

	"github.com/galang-lang/gal/value"
)

func runOne(t *testing.T, src string) value.Value {
	t.Helper()
	v := New(WithoutStdlib())
	results, diags, err := v.Run(src, "test.gal", nil)
	for _, d := range diags {
		t.Logf("diagnostic: %s: %s", d.Location.Begin, d.Message)
	}
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly one result, got %d", len(results))
	}
	return results[0]
}

// TestUpvalueCloseOnBreak exercises scenario 4: a local declared fresh on
// each loop iteration, captured by a closure created before the loop
// breaks, must close over the value it had at capture time rather than
// whatever the loop variable holds after the loop ends.
func TestUpvalueCloseOnBreak(t *testing.T) {
	const src = `
local f
for i = 1, 3 do
	local x = i
	if i == 2 then f = function() return x end; break end
end
return f()
`
	got := runOne(t, src)
	if !got.IsNumber() || got.AsNumber() != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
}

// TestGenericForLoopPreservesIteratorTriple exercises the generic-for
// register convention: the iterator/state/control triple at the loop's
// base registers must survive every pass through the loop body, since
// for_generic_loop re-executes itself on the backward jump rather than the
// compiler unrolling a fixed iteration count.
func TestGenericForLoopPreservesIteratorTriple(t *testing.T) {
	const src = `
local function counter(limit, i)
	i = i + 1
	if i > limit then return null end
	return i, i * 10
end

local sum = 0
for i, v in counter, 3, 0 do
	sum = sum + v
end
return sum
`
	got := runOne(t, src)
	if !got.IsNumber() || got.AsNumber() != 60 {
		t.Fatalf("expected 60, got %v", got)
	}
}

func TestConstantFoldEndToEnd(t *testing.T) {
	got := runOne(t, "return 1 + 2 * 3")
	if !got.IsNumber() || got.AsNumber() != 7 {
		t.Fatalf("expected 7, got %v", got)
	}
}

func TestNumericForLoopAccumulates(t *testing.T) {
	const src = `
local sum = 0
for i = 1, 5 do
	sum = sum + i
end
return sum
`
	got := runOne(t, src)
	if !got.IsNumber() || got.AsNumber() != 15 {
		t.Fatalf("expected 15, got %v", got)
	}
}

func TestIfElseIfElseChain(t *testing.T) {
	const src = `
local function classify(n)
	if n < 0 then
		return "negative"
	elseif n == 0 then
		return "zero"
	else
		return "positive"
	end
end
return classify(-5)
`
	v := New(WithoutStdlib())
	results, _, err := v.Run(src, "test.gal", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	obj := v.Heap.Resolve(results[0])
	if obj == nil {
		t.Fatal("expected a string result")
	}
}

// TestStdlibBuiltinsAreReachableFromScripts exercises RegisterStdlib's
// fastcall-recognized built-ins through the regular call path (this
// implementation never emits the dedicated fastcall opcodes, so every
// built-in must work as an ordinary global/module call).
func TestStdlibBuiltinsAreReachableFromScripts(t *testing.T) {
	const src = `
assert(typeof(1) == "number")
local t = {}
table.insert(t, 10)
table.insert(t, 20)
return math.floor(3.7) + raw.get(t, 1) + raw.get(t, 2)
`
	v := New()
	results, diags, err := v.Run(src, "test.gal", nil)
	for _, d := range diags {
		t.Logf("diagnostic: %s: %s", d.Location.Begin, d.Message)
	}
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if got := results[0]; !got.IsNumber() || got.AsNumber() != 33 {
		t.Fatalf("expected 33, got %v", got)
	}
}
