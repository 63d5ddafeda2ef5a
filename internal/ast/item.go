package ast

import "ownc/internal/source"

type ItemKind uint8

const (
	ItemFn ItemKind = iota
	ItemStruct
	ItemEnum
	ItemTrait
	ItemImpl
)

func (k ItemKind) String() string {
	switch k {
	case ItemFn:
		return "fn"
	case ItemStruct:
		return "struct"
	case ItemEnum:
		return "enum"
	case ItemTrait:
		return "trait"
	case ItemImpl:
		return "impl"
	default:
		return "item?"
	}
}

type Item struct {
	Kind    ItemKind
	Span    source.Span
	Payload PayloadID
}

// Items manages allocation of items. Methods of traits and impls are items too;
// they are not pushed to a file directly but listed by their owner.
type Items struct {
	Arena   *Arena[Item]
	Fns     *Arena[FnItem]
	Structs *Arena[StructItem]
	Enums   *Arena[EnumItem]
	Traits  *Arena[TraitItem]
	Impls   *Arena[ImplItem]
}

func NewItems(capHint uint) *Items {
	if capHint == 0 {
		capHint = 1 << 6
	}
	return &Items{
		Arena:   NewArena[Item](capHint),
		Fns:     NewArena[FnItem](capHint),
		Structs: NewArena[StructItem](capHint / 4),
		Enums:   NewArena[EnumItem](capHint / 4),
		Traits:  NewArena[TraitItem](capHint / 8),
		Impls:   NewArena[ImplItem](capHint / 4),
	}
}

func (i *Items) new(kind ItemKind, span source.Span, payload PayloadID) ItemID {
	return ItemID(i.Arena.Allocate(Item{Kind: kind, Span: span, Payload: payload}))
}

func (i *Items) Get(id ItemID) *Item {
	return i.Arena.Get(uint32(id))
}

// ReceiverKind is the optional receiver marker of a method.
type ReceiverKind uint8

const (
	// ReceiverNone: free function or associated function without self.
	ReceiverNone ReceiverKind = iota
	// ReceiverInferred: plain `self`, passing mode left to inference.
	ReceiverInferred
	ReceiverOwned
	ReceiverRef
	ReceiverMutRef
)

func (k ReceiverKind) String() string {
	switch k {
	case ReceiverNone:
		return "none"
	case ReceiverInferred:
		return "self"
	case ReceiverOwned:
		return "owned self"
	case ReceiverRef:
		return "&self"
	case ReceiverMutRef:
		return "&mut self"
	default:
		return "receiver?"
	}
}

// OwnershipHint is an explicit passing mode written on a parameter
// (trait signatures and extern declarations carry them).
type OwnershipHint uint8

const (
	HintInferred OwnershipHint = iota
	HintOwned
	HintRef
	HintMut
)

type GenericParam struct {
	Name   source.StringID
	Bounds []source.StringID
	Span   source.Span
}

type FnParam struct {
	Name    source.StringID
	Type    TypeID
	Mutable bool
	Hint    OwnershipHint
	Span    source.Span
}

// FnOwner links a method back to its trait or impl.
type FnOwner struct {
	Kind ItemKind // ItemTrait or ItemImpl; ItemFn for free functions
	Item ItemID
}

type FnItem struct {
	Name         source.StringID
	Generics     []GenericParam
	Receiver     ReceiverKind
	ReceiverMut  bool
	ReceiverSpan source.Span
	Params       []FnParam
	ReturnType   TypeID // NoTypeID: returns unit
	Body         StmtID // NoStmtID: signature only
	Owner        FnOwner
	Span         source.Span
}

func (fn *FnItem) HasBody() bool { return fn != nil && fn.Body.IsValid() }

func (i *Items) NewFn(fn FnItem) ItemID {
	if fn.Owner.Kind != ItemTrait && fn.Owner.Kind != ItemImpl {
		fn.Owner = FnOwner{Kind: ItemFn}
	}
	payload := i.Fns.Allocate(fn)
	return i.new(ItemFn, fn.Span, PayloadID(payload))
}

func (i *Items) Fn(id ItemID) (*FnItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemFn {
		return nil, false
	}
	return i.Fns.Get(uint32(item.Payload)), true
}

type FieldDecl struct {
	Name source.StringID
	Type TypeID
	Span source.Span
}

type StructItem struct {
	Name     source.StringID
	Generics []GenericParam
	Fields   []FieldDecl
	Derives  []source.StringID
	Span     source.Span
}

func (i *Items) NewStruct(st StructItem) ItemID {
	payload := i.Structs.Allocate(st)
	return i.new(ItemStruct, st.Span, PayloadID(payload))
}

func (i *Items) Struct(id ItemID) (*StructItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemStruct {
		return nil, false
	}
	return i.Structs.Get(uint32(item.Payload)), true
}

// Variant is an enum variant; unit variants have no payload.
type Variant struct {
	Name    source.StringID
	Payload []TypeID
	Span    source.Span
}

type EnumItem struct {
	Name     source.StringID
	Generics []GenericParam
	Variants []Variant
	Derives  []source.StringID
	Span     source.Span
}

func (i *Items) NewEnum(en EnumItem) ItemID {
	payload := i.Enums.Allocate(en)
	return i.new(ItemEnum, en.Span, PayloadID(payload))
}

func (i *Items) Enum(id ItemID) (*EnumItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemEnum {
		return nil, false
	}
	return i.Enums.Get(uint32(item.Payload)), true
}

type TraitItem struct {
	Name    source.StringID
	Methods []ItemID
	Span    source.Span
}

// NewTrait allocates the trait and back-links its methods.
func (i *Items) NewTrait(tr TraitItem) ItemID {
	payload := i.Traits.Allocate(tr)
	id := i.new(ItemTrait, tr.Span, PayloadID(payload))
	i.adoptMethods(tr.Methods, FnOwner{Kind: ItemTrait, Item: id})
	return id
}

func (i *Items) Trait(id ItemID) (*TraitItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemTrait {
		return nil, false
	}
	return i.Traits.Get(uint32(item.Payload)), true
}

type ImplItem struct {
	Self     TypeID
	Trait    source.StringID // NoStringID for inherent impls
	Generics []GenericParam
	Methods  []ItemID
	Span     source.Span
}

func (im *ImplItem) IsTraitImpl() bool { return im != nil && im.Trait != source.NoStringID }

func (i *Items) NewImpl(im ImplItem) ItemID {
	payload := i.Impls.Allocate(im)
	id := i.new(ItemImpl, im.Span, PayloadID(payload))
	i.adoptMethods(im.Methods, FnOwner{Kind: ItemImpl, Item: id})
	return id
}

func (i *Items) Impl(id ItemID) (*ImplItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemImpl {
		return nil, false
	}
	return i.Impls.Get(uint32(item.Payload)), true
}

func (i *Items) adoptMethods(methods []ItemID, owner FnOwner) {
	for _, m := range methods {
		if fn, ok := i.Fn(m); ok {
			fn.Owner = owner
		}
	}
}
