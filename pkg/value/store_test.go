package value

import "testing"

func TestSubstituteLiteralFastPath(t *testing.T) {
	st := NewStore()
	out, err := st.Substitute("no placeholders here")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "no placeholders here" {
		t.Fatalf("got %q", out)
	}
}

func TestSubstituteRoundTrip(t *testing.T) {
	st := NewStore()
	st.Set("NAME", String("hello"))
	out, err := st.Substitute("prefix ${NAME} suffix")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "prefix hello suffix" {
		t.Fatalf("got %q", out)
	}
}

func TestSubstituteListIndex(t *testing.T) {
	st := NewStore()
	st.Set("L", List([]Value{String("a"), String("b"), String("c")}))
	out, err := st.Substitute("${L[1]}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "b" {
		t.Fatalf("got %q", out)
	}
}

func TestSubstituteIndexOutOfRange(t *testing.T) {
	st := NewStore()
	st.Set("L", List([]Value{String("a")}))
	if _, err := st.Substitute("${L[5]}"); err == nil {
		t.Fatal("expected an error for out-of-range index")
	}
}

func TestSubstituteUndeclaredVariable(t *testing.T) {
	st := NewStore()
	if _, err := st.Substitute("${MISSING}"); err == nil {
		t.Fatal("expected an error for undeclared variable")
	}
}

func TestCloneIsolatesMutations(t *testing.T) {
	st := NewStore()
	st.Set("X", String("original"))
	clone := st.Clone()
	clone.Set("X", String("mutated"))

	v, _ := st.Get("X")
	if v.AsString() != "original" {
		t.Fatalf("mutation on clone leaked into original: %q", v.AsString())
	}
}

func TestEqualStructural(t *testing.T) {
	a := List([]Value{Number(1), String("x")})
	b := List([]Value{Number(1), String("x")})
	if !Equal(a, b) {
		t.Fatal("expected structural equality to hold")
	}
}
