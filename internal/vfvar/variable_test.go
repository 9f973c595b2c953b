package vfvar

import "testing"

func TestVariableLessOrdersByNamespaceThenName(t *testing.T) {
	a := New(Signal, "z")
	b := New(Data, "a")
	if !a.Less(b) {
		t.Fatalf("expected Signal < Data regardless of name")
	}
	c := New(Signal, "a")
	if !c.Less(a) {
		t.Fatalf("expected same-namespace ordering by name")
	}
}

func TestScopeEqualAndParent(t *testing.T) {
	s := Scope{0, 2, 1}
	if !s.Equal(Scope{0, 2, 1}) {
		t.Fatalf("expected equal scopes")
	}
	if s.Equal(Scope{0, 2}) {
		t.Fatalf("expected unequal scopes of different length")
	}
	if !s.Parent().Equal(Scope{0, 2}) {
		t.Fatalf("expected parent to drop the last index")
	}
	if (Scope{}).Parent() != nil {
		t.Fatalf("expected root scope's parent to be nil")
	}
}

func TestSetOperations(t *testing.T) {
	v1 := ScopedVariable{Variable: New(Signal, "a"), Scope: Scope{0}}
	v2 := ScopedVariable{Variable: New(Data, "b"), Scope: Scope{0}}
	v3 := ScopedVariable{Variable: New(Data, "c"), Scope: Scope{0}}

	s1 := NewSet(v1, v2)
	s2 := NewSet(v2, v3)

	if len(s1.Union(s2)) != 3 {
		t.Fatalf("expected union of size 3")
	}
	inter := s1.Intersect(s2)
	if len(inter) != 1 || !inter.Contains(v2) {
		t.Fatalf("expected intersection {v2}")
	}
	minus := s1.Minus(s2)
	if len(minus) != 1 || !minus.Contains(v1) {
		t.Fatalf("expected s1-s2 = {v1}")
	}
}

func TestSortScopedVariablesDeterministic(t *testing.T) {
	vs := []ScopedVariable{
		{Variable: New(Data, "z"), Scope: Scope{1}},
		{Variable: New(Signal, "a"), Scope: Scope{}},
		{Variable: New(Signal, "b"), Scope: Scope{}},
	}
	sorted := SortScopedVariables(vs)
	if !sorted[0].Scope.Equal(Scope{}) || sorted[0].Variable.Name != "a" {
		t.Fatalf("expected shallowest scope, name 'a' first, got %+v", sorted[0])
	}
}
