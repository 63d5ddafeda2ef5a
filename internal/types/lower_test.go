package types

import (
	"testing"

	"ownc/internal/ast"
	"ownc/internal/source"
)

func TestLowerWrittenTypes(t *testing.T) {
	b := ast.NewBuilder(ast.Hints{}, nil)
	in := NewInterner()
	sp := source.Span{}

	i32 := b.Types.NewNamed(sp, b.Intern("i32"))
	tParam := b.Types.NewNamed(sp, b.Intern("T"))
	vecT := b.Types.NewNamed(sp, b.Intern("Vec"), tParam)
	refMut := b.Types.NewRef(sp, vecT, true)
	self := b.Types.NewSelf(sp)
	slice := b.Types.NewArray(sp, i32, ast.ArrayUnsized)

	selfTy := in.Named("Counter")
	env := NewEnv(in, b, selfTy, []ast.GenericParam{{Name: b.Intern("T"), Bounds: []source.StringID{b.Intern("Clone")}}})

	if got := in.Label(in.Lower(b, env, i32)); got != "i32" {
		t.Fatalf("i32 lowered to %q", got)
	}
	if got := in.Label(in.Lower(b, env, refMut)); got != "&mut Vec<T>" {
		t.Fatalf("&mut Vec<T> lowered to %q", got)
	}
	if in.Lower(b, env, self) != selfTy {
		t.Fatalf("Self should lower to the impl type")
	}
	if got := in.Label(in.Lower(b, env, slice)); got != "[i32]" {
		t.Fatalf("slice lowered to %q", got)
	}
	if in.Lower(b, env, ast.NoTypeID) != in.Builtins().Unit {
		t.Fatalf("missing type must lower to unit")
	}
	param := in.Lower(b, env, tParam)
	if in.Kind(param) != KindParam {
		t.Fatalf("T should lower to a generic param, got %v", in.Kind(param))
	}
}
