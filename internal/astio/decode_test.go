package astio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"ownc/internal/ast"
	"ownc/internal/diag"
	"ownc/internal/testkit"
)

const walkUnit = `{
  "version": 1,
  "path": "walk.own",
  "items": [
    {"struct": {"name": "Item", "derives": ["Clone"], "span": [0, 30],
      "fields": [{"name": "name", "type": {"named": {"name": "String"}, "span": [20, 26]}, "span": [14, 26]}]}},
    {"impl": {"type": {"named": {"name": "Item"}, "span": [36, 40]}, "span": [31, 81],
      "methods": [{"name": "label", "receiver": "self", "receiver_span": [50, 54], "span": [41, 80],
        "returns": {"named": {"name": "String"}, "span": [59, 65]},
        "body": {"block": {"stmts": [
          {"expr": {"expr": {"field": {"object": {"ident": {"name": "self"}, "span": [68, 72]}, "name": "name"}, "span": [68, 77]}}, "span": [68, 78]}
        ]}, "span": [66, 80]}}]}},
    {"fn": {"name": "walk", "span": [82, 145],
      "params": [{"name": "v", "span": [91, 100],
        "type": {"array": {"elem": {"named": {"name": "Item"}, "span": [95, 99]}}, "span": [94, 100]}}],
      "body": {"block": {"stmts": [
        {"for": {
          "pattern": {"bind": {"name": "x"}, "span": [110, 111]},
          "iterable": {"ident": {"name": "v"}, "span": [115, 116]},
          "body": {"expr": {"expr": {"call": {"callee": {"ident": {"name": "take"}, "span": [119, 123]},
            "args": [{"ident": {"name": "x"}, "span": [124, 125]}]}, "span": [119, 126]}}, "span": [119, 127]}
        }, "span": [106, 128]},
        {"loop": {"body": {"block": {"stmts": [{"break": {}, "span": [136, 141]}]}, "span": [134, 143]}}, "span": [129, 143]}
      ]}, "span": [102, 145]}}}
  ]
}`

func TestDecodeJSONUnit(t *testing.T) {
	u, err := Decode([]byte(walkUnit), FormatJSON, "fallback.json")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.Path != "walk.own" {
		t.Fatalf("expected document path, got %q", u.Path)
	}
	if u.Digest == ([32]byte{}) {
		t.Fatalf("digest must be set")
	}
	b := u.Builder
	if err := testkit.CheckSpanInvariants(b, u.File, u.Files.Get(u.Source)); err != nil {
		t.Fatalf("span invariants: %v", err)
	}
	items := b.AllItems()
	if len(items) != 3 {
		t.Fatalf("expected 3 top-level items, got %d", len(items))
	}

	im, ok := b.Items.Impl(items[1])
	if !ok || len(im.Methods) != 1 {
		t.Fatalf("expected an impl with one method")
	}
	m, _ := b.Items.Fn(im.Methods[0])
	if m.Owner.Kind != ast.ItemImpl || m.Receiver != ast.ReceiverInferred {
		t.Fatalf("method: unexpected owner/receiver %+v", m)
	}

	fn, _ := b.Items.Fn(items[2])
	ty := b.Types.Get(fn.Params[0].Type)
	if ty.Kind != ast.TypeExprArray || ty.Len != ast.ArrayUnsized {
		t.Fatalf("param type should be a slice, got %+v", ty)
	}
	body, _ := b.Stmts.Block(fn.Body)
	loop, ok := b.Stmts.For(body.Stmts[0])
	if !ok {
		t.Fatalf("first statement should be a for loop")
	}
	if b.Stmts.Get(loop.Body).Kind != ast.StmtBlock {
		t.Fatalf("a lone loop body statement must be wrapped in a block")
	}
	if b.Stmts.Get(body.Stmts[1]).Kind != ast.StmtLoop {
		t.Fatalf("second statement should be a loop")
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want error
		code diag.Code
	}{
		{"syntax", `{"items": [`, ErrMalformed, diag.IOMalformedUnit},
		{"future version", `{"version": 9, "items": []}`, ErrUnsupported, diag.IOUnsupportedNode},
		{"empty item", `{"items": [{}]}`, ErrUnsupported, diag.IOUnsupportedNode},
		{"two kinds", `{"items": [{"fn": {"name": "f", "span": [0, 1]}, "struct": {"name": "S", "span": [0, 1]}}]}`, ErrMalformed, diag.IOMalformedUnit},
		{"reversed span", `{"items": [{"fn": {"name": "f", "span": [5, 1]}}]}`, ErrMalformed, diag.IOMalformedUnit},
		{"bad receiver", `{"items": [{"fn": {"name": "f", "receiver": "box", "span": [0, 1]}}]}`, ErrUnsupported, diag.IOUnsupportedNode},
		{"bad operator", `{"items": [{"fn": {"name": "f", "span": [0, 9], "body": {"block": {"stmts": [
			{"expr": {"expr": {"binary": {"op": "**", "left": {"ident": {"name": "a"}, "span": [1, 2]},
			"right": {"ident": {"name": "b"}, "span": [3, 4]}}, "span": [1, 4]}}, "span": [1, 5]}]}, "span": [0, 9]}}}]}`,
			ErrUnsupported, diag.IOUnsupportedNode},
		{"span beyond source", `{"source": "fn f", "items": [{"fn": {"name": "f", "span": [0, 40]}}]}`, ErrMalformed, diag.IOMalformedUnit},
	}
	for _, tc := range cases {
		_, err := Decode([]byte(tc.doc), FormatJSON, tc.name)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if got := Code(err); got != tc.code {
			t.Fatalf("%s: expected code %v, got %v", tc.name, tc.code, got)
		}
	}
}

func TestDecodeMsgpack(t *testing.T) {
	doc := Document{
		Version: 1,
		Path:    "mini.own",
		Items: []Item{{Fn: &Fn{
			Name:   "id",
			Params: []Param{{Name: "x", Type: &Type{Named: &NamedType{Name: "int"}, Span: Span{8, 11}}, Span: Span{5, 11}}},
			Body: &Stmt{Block: &BlockStmt{Stmts: []*Stmt{
				{Return: &ReturnStmt{Value: &Expr{Ident: &IdentExpr{Name: "x"}, Span: Span{22, 23}}}, Span: Span{15, 24}},
			}}, Span: Span{13, 26}},
			Span: Span{0, 26},
		}}},
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(&doc); err != nil {
		t.Fatalf("encode: %v", err)
	}
	u, err := Decode(buf.Bytes(), FormatMsgpack, "mini.owb")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	fn, ok := u.Builder.Items.Fn(u.Builder.AllItems()[0])
	if !ok || u.Builder.Name(fn.Name) != "id" || len(fn.Params) != 1 || !fn.HasBody() {
		t.Fatalf("unexpected function %+v", fn)
	}
}

func TestDiscoverAndLoad(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.owb", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(walkUnit), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	paths, err := Discover(dir)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "a.owb" || filepath.Base(paths[1]) != "b.json" {
		t.Fatalf("unexpected unit list %v", paths)
	}
	if FormatOf(paths[0]) != FormatMsgpack || FormatOf(paths[1]) != FormatJSON {
		t.Fatalf("format should follow the extension")
	}
	if _, err := Load(paths[1]); err != nil {
		t.Fatalf("load: %v", err)
	}
	// a.owb holds JSON, so the MessagePack decoder must reject it.
	if _, err := Load(paths[0]); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected malformed error for mislabelled unit, got %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); Code(err) != diag.IOLoadFileError {
		t.Fatalf("missing file should map to a load error, got %v", err)
	}
}
