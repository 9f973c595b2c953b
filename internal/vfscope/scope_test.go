package vfscope

import (
	"testing"

	"github.com/vegafusion/vegafusion-go/internal/vfvar"
)

func TestResolveClimbsToEnclosingScope(t *testing.T) {
	root := NewRoot()
	root.DefineSignal("width")
	child := root.Child(0)
	child.DefineData("table")

	res, ok := child.Resolve(vfvar.Signal, "width")
	if !ok {
		t.Fatalf("expected width to resolve from child via root")
	}
	if !res.Owner.Path().Equal(vfvar.Scope{}) {
		t.Fatalf("expected owner to be root scope, got %v", res.Owner.Path())
	}

	res2, ok := child.Resolve(vfvar.Data, "table")
	if !ok || !res2.Owner.Path().Equal(vfvar.Scope{0}) {
		t.Fatalf("expected table to resolve directly at child scope")
	}
}

func TestResolveOutputVarHit(t *testing.T) {
	root := NewRoot()
	root.DefineData("movies")
	root.DefineOutputSignal("bins", "movies")

	res, ok := root.Resolve(vfvar.Signal, "bins")
	if !ok {
		t.Fatalf("expected output-var resolution to succeed")
	}
	if !res.IsOutput || res.Variable.Name != "movies" || res.Requested != "bins" {
		t.Fatalf("expected output-var hit resolving to data 'movies', got %+v", res)
	}
}

func TestResolveMissingReturnsFalse(t *testing.T) {
	root := NewRoot()
	if _, ok := root.Resolve(vfvar.Signal, "nope"); ok {
		t.Fatalf("expected resolution failure for undefined variable")
	}
}

func TestDescendCreatesPath(t *testing.T) {
	root := NewRoot()
	n := root.Descend(vfvar.Scope{0, 1})
	if !n.Path().Equal(vfvar.Scope{0, 1}) {
		t.Fatalf("expected descended path [0,1], got %v", n.Path())
	}
}
