package value

import "testing"

func TestSingletonsAreDistinct(t *testing.T) {
	vs := []Value{Null, False, True, Undefined}
	for i := range vs {
		for j := range vs {
			if i != j && vs[i] == vs[j] {
				t.Fatalf("singletons %d and %d collide", i, j)
			}
		}
	}
}

func TestTruthiness(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Null, false},
		{False, false},
		{True, true},
		{Undefined, true},
		{Number(0), true},
		{Number(-1), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestNumberRoundTrip(t *testing.T) {
	for _, f := range []float64{0, 1, -1, 3.25, 1e300, -1e-300} {
		v := Number(f)
		if !v.IsNumber() {
			t.Fatalf("Number(%v) not recognized as number", f)
		}
		if v.AsNumber() != f {
			t.Fatalf("round-trip mismatch: got %v want %v", v.AsNumber(), f)
		}
	}
}

func TestObjectHandleRoundTrip(t *testing.T) {
	v := Object(0xABCDEF)
	if !v.IsObject() {
		t.Fatalf("expected object value")
	}
	if v.AsObject() != 0xABCDEF {
		t.Fatalf("handle round-trip failed: got %x", v.AsObject())
	}
	if v.IsNumber() {
		t.Fatalf("object value misclassified as number")
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		v    Value
		want Kind
	}{
		{Null, KindNull},
		{True, KindBoolean},
		{False, KindBoolean},
		{Undefined, KindUndefined},
		{Number(42), KindNumber},
		{Object(1), KindObject},
	}
	for _, c := range cases {
		if got := c.v.Kind(); got != c.want {
			t.Errorf("Kind() = %v, want %v", got, c.want)
		}
	}
}
