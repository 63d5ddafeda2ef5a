package astio

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"ownc/internal/ast"
	"ownc/internal/diag"
	"ownc/internal/source"
)

// CurrentVersion is the newest document version the decoder understands.
const CurrentVersion = 1

var (
	ErrMalformed   = errors.New("malformed unit document")
	ErrUnsupported = errors.New("unsupported node")
)

type Format uint8

const (
	FormatJSON Format = iota
	FormatMsgpack
)

// FormatOf picks the format by extension: .owb is MessagePack.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".owb") {
		return FormatMsgpack
	}
	return FormatJSON
}

// Unit is a decoded compilation unit.
type Unit struct {
	Path    string
	Builder *ast.Builder
	File    ast.FileID
	Files   *source.FileSet
	Source  source.FileID
	// Digest of the raw document, keys the disk cache.
	Digest [32]byte
}

// Load reads and decodes one unit file.
func Load(path string) (*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read unit %s: %w", path, err)
	}
	return Decode(data, FormatOf(path), path)
}

// Discover lists unit files (.json, .owb) directly inside dir, sorted.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list units in %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".owb":
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Decode parses data in the given format; name is used when the document
// carries no path.
func Decode(data []byte, format Format, name string) (*Unit, error) {
	var doc Document
	switch format {
	case FormatMsgpack:
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
		}
	}
	u, err := Build(&doc, name)
	if err != nil {
		return nil, err
	}
	u.Digest = sha256.Sum256(data)
	return u, nil
}

// Build converts an already decoded document.
func Build(doc *Document, name string) (*Unit, error) {
	if doc.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: %s: document version %d", ErrUnsupported, name, doc.Version)
	}
	path := doc.Path
	if path == "" {
		path = name
	}
	fs := source.NewFileSet()
	var content []byte
	if doc.Source != "" {
		content = []byte(doc.Source)
	}
	fid := fs.Add(path, content, source.FileVirtual)

	b := ast.NewBuilder(ast.Hints{}, nil)
	d := &decoder{b: b, file: fid}
	file := b.NewFile(source.Span{File: fid}, path)
	for i := range doc.Items {
		restore := d.at(fmt.Sprintf("items[%d]", i))
		if id, ok := d.item(&doc.Items[i]); ok {
			b.PushItem(file, id)
		}
		restore()
		if d.err != nil {
			return nil, d.err
		}
	}
	end := d.maxEnd
	if content != nil {
		n, err := safecast.Conv[uint32](len(content))
		if err != nil {
			panic(fmt.Errorf("source length overflow: %w", err))
		}
		if end > n {
			return nil, fmt.Errorf("%w: %s: span end %d beyond source length %d", ErrMalformed, name, end, n)
		}
		end = n
	}
	if f := b.Files.Get(file); f != nil {
		f.Span = source.Span{File: fid, Start: 0, End: end}
	}
	return &Unit{Path: path, Builder: b, File: file, Files: fs, Source: fid}, nil
}

// Code maps a load error to its diagnostic code.
func Code(err error) diag.Code {
	switch {
	case errors.Is(err, ErrUnsupported):
		return diag.IOUnsupportedNode
	case errors.Is(err, ErrMalformed):
		return diag.IOMalformedUnit
	default:
		return diag.IOLoadFileError
	}
}

type decoder struct {
	b      *ast.Builder
	file   source.FileID
	where  []string
	maxEnd uint32
	err    error
}

func (d *decoder) at(seg string) func() {
	d.where = append(d.where, seg)
	return func() { d.where = d.where[:len(d.where)-1] }
}

func (d *decoder) fail(base error, format string, args ...any) {
	if d.err != nil {
		return
	}
	d.err = fmt.Errorf("%w at %s: %s", base, strings.Join(d.where, "."), fmt.Sprintf(format, args...))
}

func (d *decoder) span(s Span) source.Span {
	if s[1] < s[0] {
		d.fail(ErrMalformed, "span [%d, %d] ends before it starts", s[0], s[1])
		return source.Span{File: d.file, Start: s[0], End: s[0]}
	}
	d.maxEnd = max(d.maxEnd, s[1])
	return source.Span{File: d.file, Start: s[0], End: s[1]}
}

func (d *decoder) name(s string) source.StringID {
	if s == "" {
		d.fail(ErrMalformed, "empty name")
	}
	return d.b.Intern(s)
}

// one checks the one-of rule for a node.
func (d *decoder) one(node string, set ...bool) bool {
	n := 0
	for _, s := range set {
		if s {
			n++
		}
	}
	if n == 1 {
		return true
	}
	if n == 0 {
		d.fail(ErrUnsupported, "%s has no known kind", node)
	} else {
		d.fail(ErrMalformed, "%s has %d kinds", node, n)
	}
	return false
}

// Items -----------------------------------------------------------------------

func (d *decoder) item(it *Item) (ast.ItemID, bool) {
	if !d.one("item", it.Fn != nil, it.Struct != nil, it.Enum != nil, it.Trait != nil, it.Impl != nil) {
		return ast.NoItemID, false
	}
	switch {
	case it.Fn != nil:
		return d.fn(it.Fn), true
	case it.Struct != nil:
		st := it.Struct
		defer d.at("struct " + st.Name)()
		item := ast.StructItem{Name: d.name(st.Name), Generics: d.generics(st.Generics), Derives: d.names(st.Derives), Span: d.span(st.Span)}
		for _, f := range st.Fields {
			item.Fields = append(item.Fields, ast.FieldDecl{Name: d.name(f.Name), Type: d.typ(f.Type), Span: d.span(f.Span)})
		}
		return d.b.Items.NewStruct(item), true
	case it.Enum != nil:
		en := it.Enum
		defer d.at("enum " + en.Name)()
		item := ast.EnumItem{Name: d.name(en.Name), Generics: d.generics(en.Generics), Derives: d.names(en.Derives), Span: d.span(en.Span)}
		for _, v := range en.Variants {
			vr := ast.Variant{Name: d.name(v.Name), Span: d.span(v.Span)}
			for _, p := range v.Payload {
				vr.Payload = append(vr.Payload, d.typ(p))
			}
			item.Variants = append(item.Variants, vr)
		}
		return d.b.Items.NewEnum(item), true
	case it.Trait != nil:
		tr := it.Trait
		defer d.at("trait " + tr.Name)()
		item := ast.TraitItem{Name: d.name(tr.Name), Span: d.span(tr.Span)}
		for i := range tr.Methods {
			item.Methods = append(item.Methods, d.fn(&tr.Methods[i]))
		}
		return d.b.Items.NewTrait(item), true
	default:
		im := it.Impl
		defer d.at("impl")()
		item := ast.ImplItem{Self: d.typ(im.Type), Generics: d.generics(im.Generics), Span: d.span(im.Span)}
		if im.Type == nil {
			d.fail(ErrMalformed, "impl without a type")
		}
		if im.Trait != "" {
			item.Trait = d.b.Intern(im.Trait)
		}
		for i := range im.Methods {
			item.Methods = append(item.Methods, d.fn(&im.Methods[i]))
		}
		return d.b.Items.NewImpl(item), true
	}
}

var receivers = map[string]ast.ReceiverKind{
	"":        ast.ReceiverNone,
	"self":    ast.ReceiverInferred,
	"owned":   ast.ReceiverOwned,
	"ref":     ast.ReceiverRef,
	"mut_ref": ast.ReceiverMutRef,
}

var hints = map[string]ast.OwnershipHint{
	"":      ast.HintInferred,
	"owned": ast.HintOwned,
	"ref":   ast.HintRef,
	"mut":   ast.HintMut,
}

func (d *decoder) fn(f *Fn) ast.ItemID {
	defer d.at("fn " + f.Name)()
	item := ast.FnItem{
		Name:         d.name(f.Name),
		Generics:     d.generics(f.Generics),
		ReceiverMut:  f.ReceiverMut,
		ReceiverSpan: d.span(f.ReceiverSpan),
		ReturnType:   d.typ(f.Returns),
		Span:         d.span(f.Span),
	}
	rk, ok := receivers[f.Receiver]
	if !ok {
		d.fail(ErrUnsupported, "receiver %q", f.Receiver)
	}
	item.Receiver = rk
	for _, p := range f.Params {
		h, ok := hints[p.Hint]
		if !ok {
			d.fail(ErrUnsupported, "ownership hint %q", p.Hint)
		}
		if p.Type == nil {
			d.fail(ErrMalformed, "parameter %s without a type", p.Name)
		}
		item.Params = append(item.Params, ast.FnParam{
			Name:    d.name(p.Name),
			Type:    d.typ(p.Type),
			Mutable: p.Mut,
			Hint:    h,
			Span:    d.span(p.Span),
		})
	}
	if f.Body != nil {
		item.Body = d.body(f.Body)
	}
	return d.b.Items.NewFn(item)
}

func (d *decoder) generics(gs []Generic) []ast.GenericParam {
	if len(gs) == 0 {
		return nil
	}
	out := make([]ast.GenericParam, 0, len(gs))
	for _, g := range gs {
		out = append(out, ast.GenericParam{Name: d.name(g.Name), Bounds: d.names(g.Bounds), Span: d.span(g.Span)})
	}
	return out
}

func (d *decoder) names(ss []string) []source.StringID {
	if len(ss) == 0 {
		return nil
	}
	out := make([]source.StringID, len(ss))
	for i, s := range ss {
		out[i] = d.name(s)
	}
	return out
}

// Types -----------------------------------------------------------------------

func (d *decoder) typ(t *Type) ast.TypeID {
	if t == nil {
		return ast.NoTypeID
	}
	if !d.one("type", t.Named != nil, t.Ref != nil, t.Tuple != nil, t.Array != nil, t.Self != nil) {
		return ast.NoTypeID
	}
	sp := d.span(t.Span)
	ts := d.b.Types
	switch {
	case t.Named != nil:
		args := make([]ast.TypeID, 0, len(t.Named.Args))
		for _, a := range t.Named.Args {
			args = append(args, d.typ(a))
		}
		return ts.NewNamed(sp, d.name(t.Named.Name), args...)
	case t.Ref != nil:
		return ts.NewRef(sp, d.typ(t.Ref.Elem), t.Ref.Mut)
	case t.Tuple != nil:
		elems := make([]ast.TypeID, 0, len(t.Tuple.Elems))
		for _, e := range t.Tuple.Elems {
			elems = append(elems, d.typ(e))
		}
		return ts.NewTuple(sp, elems...)
	case t.Array != nil:
		n := ast.ArrayUnsized
		if t.Array.Len != nil {
			if *t.Array.Len < 0 {
				d.fail(ErrMalformed, "negative array length %d", *t.Array.Len)
			}
			n = *t.Array.Len
		}
		return ts.NewArray(sp, d.typ(t.Array.Elem), n)
	default:
		return ts.NewSelf(sp)
	}
}
