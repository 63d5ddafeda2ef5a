package typeclass

import (
	"sort"
	"strconv"

	"ownc/internal/ast"
	"ownc/internal/source"
	"ownc/internal/types"
)

// Variant is an enum variant with lowered payload types.
type Variant struct {
	Name    string
	Payload []types.TypeID
	Span    source.Span
}

// Decl is a user struct or enum as the classifier sees it. Field and
// payload types may reference the decl's own generic params.
type Decl struct {
	Name       string
	Generics   []string
	Enum       bool
	FieldNames []string
	Fields     []types.TypeID
	Variants   []Variant
	Derives    []string
	Drop       bool
	Clone      bool
	Span       source.Span
}

func (d *Decl) derives(trait string) bool {
	for _, name := range d.Derives {
		if name == trait {
			return true
		}
	}
	return false
}

// Variant finds a variant by name.
func (d *Decl) Variant(name string) (*Variant, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.Variants {
		if d.Variants[i].Name == name {
			return &d.Variants[i], true
		}
	}
	return nil, false
}

// Table maps type names to declarations of one compilation unit.
// It is filled before resolution and read-only afterwards.
type Table struct {
	decls    map[string]*Decl
	variants map[string][]string // variant name -> enums declaring it
}

func NewTable() *Table {
	return &Table{
		decls:    make(map[string]*Decl),
		variants: make(map[string][]string),
	}
}

// Add registers d; a later declaration with the same name replaces it.
func (t *Table) Add(d *Decl) {
	if d == nil || d.Name == "" {
		return
	}
	t.decls[d.Name] = d
	if d.Enum {
		for _, v := range d.Variants {
			t.variants[v.Name] = append(t.variants[v.Name], d.Name)
		}
	}
}

func (t *Table) Lookup(name string) (*Decl, bool) {
	if t == nil {
		return nil, false
	}
	d, ok := t.decls[name]
	return d, ok
}

// Names returns declared type names in sorted order.
func (t *Table) Names() []string {
	out := make([]string, 0, len(t.decls))
	for name := range t.decls {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// MarkImpl records `impl Drop for T` and `impl Clone for T`.
func (t *Table) MarkImpl(typeName, trait string) {
	d, ok := t.decls[typeName]
	if !ok {
		return
	}
	switch trait {
	case "Drop":
		d.Drop = true
	case "Clone", "Copy":
		d.Clone = true
	}
}

// EnumOfVariant resolves an unqualified variant name when exactly one
// enum declares it.
func (t *Table) EnumOfVariant(variant string) (*Decl, bool) {
	owners := t.variants[variant]
	if len(owners) != 1 {
		return nil, false
	}
	return t.Lookup(owners[0])
}

// Instantiate substitutes the args of a named type into a decl type.
func (t *Table) Instantiate(in *types.Interner, d *Decl, owner types.TypeID, ty types.TypeID) types.TypeID {
	info, ok := in.NamedInfo(owner)
	if !ok || len(d.Generics) == 0 {
		return ty
	}
	subst := make(map[string]types.TypeID, len(d.Generics))
	for i, g := range d.Generics {
		if i < len(info.Args) {
			subst[g] = info.Args[i]
		}
	}
	return in.Substitute(ty, subst)
}

// FieldType returns the type of owner.field (auto-deref through
// references); tuple fields are numeric. Unknown when not found.
func (t *Table) FieldType(in *types.Interner, owner types.TypeID, field string) types.TypeID {
	base := in.Deref(owner)
	if tup, ok := in.TupleInfo(base); ok {
		idx, err := strconv.Atoi(field)
		if err == nil && idx >= 0 && idx < len(tup.Elems) {
			return tup.Elems[idx]
		}
		return in.Builtins().Unknown
	}
	d, ok := t.Lookup(in.NameOf(base))
	if !ok || d.Enum {
		return in.Builtins().Unknown
	}
	for i, name := range d.FieldNames {
		if name == field {
			return t.Instantiate(in, d, base, d.Fields[i])
		}
	}
	return in.Builtins().Unknown
}

// Collect lowers every struct and enum of the unit and marks Drop/Clone
// impls.
func Collect(b *ast.Builder, in *types.Interner) *Table {
	table := NewTable()
	items := b.AllItems()
	for _, id := range items {
		if st, ok := b.Items.Struct(id); ok {
			table.Add(collectStruct(b, in, st))
			continue
		}
		if en, ok := b.Items.Enum(id); ok {
			table.Add(collectEnum(b, in, en))
		}
	}
	for _, id := range items {
		im, ok := b.Items.Impl(id)
		if !ok || !im.IsTraitImpl() {
			continue
		}
		self := in.Lower(b, nil, im.Self)
		table.MarkImpl(in.NameOf(self), b.Name(im.Trait))
	}
	return table
}

func genericNames(b *ast.Builder, generics []ast.GenericParam) []string {
	out := make([]string, len(generics))
	for i, g := range generics {
		out[i] = b.Name(g.Name)
	}
	return out
}

func derivesOf(b *ast.Builder, ids []source.StringID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = b.Name(id)
	}
	return out
}

func collectStruct(b *ast.Builder, in *types.Interner, st *ast.StructItem) *Decl {
	name := b.Name(st.Name)
	self := in.Named(name)
	env := types.NewEnv(in, b, self, st.Generics)
	d := &Decl{
		Name:     name,
		Generics: genericNames(b, st.Generics),
		Derives:  derivesOf(b, st.Derives),
		Span:     st.Span,
	}
	for _, f := range st.Fields {
		d.FieldNames = append(d.FieldNames, b.Name(f.Name))
		d.Fields = append(d.Fields, in.Lower(b, env, f.Type))
	}
	return d
}

func collectEnum(b *ast.Builder, in *types.Interner, en *ast.EnumItem) *Decl {
	name := b.Name(en.Name)
	self := in.Named(name)
	env := types.NewEnv(in, b, self, en.Generics)
	d := &Decl{
		Name:     name,
		Generics: genericNames(b, en.Generics),
		Enum:     true,
		Derives:  derivesOf(b, en.Derives),
		Span:     en.Span,
	}
	for _, v := range en.Variants {
		variant := Variant{Name: b.Name(v.Name), Span: v.Span}
		for _, p := range v.Payload {
			ty := in.Lower(b, env, p)
			variant.Payload = append(variant.Payload, ty)
			d.Fields = append(d.Fields, ty)
		}
		d.Variants = append(d.Variants, variant)
	}
	return d
}
