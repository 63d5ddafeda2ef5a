package registry

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrFrozen is returned when a Builder is used after Freeze.
	ErrFrozen = errors.New("registry: frozen")
	// ErrDuplicate is returned when an entry id is registered twice.
	ErrDuplicate = errors.New("registry: duplicate entry")
)

// Builder is the mutable registration phase. It is not safe for
// concurrent use; registration runs before any worker starts.
type Builder struct {
	entries map[FuncID]*Entry
	order   []FuncID
	traits  map[string]*Trait
	implsOf map[string][]string // type name -> implemented traits
	frozen  bool
}

func NewBuilder() *Builder {
	return &Builder{
		entries: make(map[FuncID]*Entry),
		traits:  make(map[string]*Trait),
		implsOf: make(map[string][]string),
	}
}

// Register adds a function entry.
func (b *Builder) Register(e *Entry) error {
	if b.frozen {
		return ErrFrozen
	}
	if e == nil || e.ID == "" {
		return fmt.Errorf("registry: entry without id")
	}
	if _, ok := b.entries[e.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, e.ID)
	}
	b.entries[e.ID] = e
	b.order = append(b.order, e.ID)
	return nil
}

// RegisterTrait adds a trait and its method declarations. Methods with a
// default body are also registered as entries under "Trait::name".
func (b *Builder) RegisterTrait(tr *Trait) error {
	if b.frozen {
		return ErrFrozen
	}
	if _, ok := b.traits[tr.Name]; ok {
		return fmt.Errorf("%w: trait %s", ErrDuplicate, tr.Name)
	}
	b.traits[tr.Name] = tr
	for _, name := range tr.Order {
		m := tr.Methods[name]
		if err := b.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Lookup is available during registration for cross-checks.
func (b *Builder) Lookup(id FuncID) (*Entry, bool) {
	e, ok := b.entries[id]
	return e, ok
}

func (b *Builder) Trait(name string) (*Trait, bool) {
	tr, ok := b.traits[name]
	return tr, ok
}

// Freeze ends registration. The Builder rejects further changes.
func (b *Builder) Freeze() *Registry {
	b.frozen = true
	implsOf := make(map[string][]string, len(b.implsOf))
	for k, v := range b.implsOf {
		implsOf[k] = append([]string(nil), v...)
	}
	return &Registry{
		entries: b.entries,
		order:   append([]FuncID(nil), b.order...),
		traits:  b.traits,
		implsOf: implsOf,
	}
}

// Registry is a frozen snapshot. Entries are shared between snapshots and
// must not be modified; Publish produces a new snapshot instead.
type Registry struct {
	entries map[FuncID]*Entry
	order   []FuncID
	traits  map[string]*Trait
	implsOf map[string][]string
	version int
}

func (r *Registry) Lookup(id FuncID) (*Entry, bool) {
	if r == nil {
		return nil, false
	}
	e, ok := r.entries[id]
	return e, ok
}

func (r *Registry) Trait(name string) (*Trait, bool) {
	if r == nil {
		return nil, false
	}
	tr, ok := r.traits[name]
	return tr, ok
}

// Method resolves typeName.method: inherent or trait impl entry first, then
// default methods of traits the type implements.
func (r *Registry) Method(typeName, method string) (*Entry, bool) {
	if e, ok := r.Lookup(MethodID(typeName, method)); ok {
		return e, true
	}
	for _, trait := range r.implsOf[typeName] {
		if e, ok := r.TraitMethod(trait, method); ok {
			return e, true
		}
	}
	return nil, false
}

// TraitMethod returns the declaration of trait.method.
func (r *Registry) TraitMethod(trait, method string) (*Entry, bool) {
	tr, ok := r.Trait(trait)
	if !ok {
		return nil, false
	}
	e, ok := tr.Methods[method]
	return e, ok
}

// Implements reports whether typeName has an impl of trait.
func (r *Registry) Implements(typeName, trait string) bool {
	for _, t := range r.implsOf[typeName] {
		if t == trait {
			return true
		}
	}
	return false
}

// IDs returns entry ids in registration order.
func (r *Registry) IDs() []FuncID {
	return r.order
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.order)
}

// Version counts Publish generations; the registration snapshot is 0.
func (r *Registry) Version() int {
	return r.version
}

// Publish returns a new snapshot with the resolved signatures applied and
// the ids whose visible signature changed (sorted). Fixed slots keep their
// decision and every other slot only moves up the join order, so repeated
// publishing reaches a fixed point.
func (r *Registry) Publish(updates map[FuncID]Signature) (*Registry, []FuncID) {
	var changed []FuncID
	var next map[FuncID]*Entry
	for id, sig := range updates {
		old, ok := r.entries[id]
		if !ok {
			continue
		}
		upd := old.clone()
		if upd.HasReceiver && !upd.Receiver.Fixed {
			upd.Receiver.Decision = upd.Receiver.Decision.Join(sig.Receiver)
		}
		for i := range upd.Params {
			if i >= len(sig.Params) || upd.Params[i].Fixed {
				continue
			}
			upd.Params[i].Decision = upd.Params[i].Decision.Join(sig.Params[i])
		}
		if upd.Signature().Equal(old.Signature()) {
			continue
		}
		if next == nil {
			next = make(map[FuncID]*Entry, len(r.entries))
			for k, v := range r.entries {
				next[k] = v
			}
		}
		next[id] = upd
		changed = append(changed, id)
	}
	if next == nil {
		return r, nil
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i] < changed[j] })
	return &Registry{
		entries: next,
		order:   r.order,
		traits:  r.traits,
		implsOf: r.implsOf,
		version: r.version + 1,
	}, changed
}

// Reset returns a snapshot where ids carry their entries from base, the
// registration snapshot, and the ids whose visible signature changed.
// Publish only joins upward; Reset is how a re-check lowers a decision.
func (r *Registry) Reset(base *Registry, ids []FuncID) (*Registry, []FuncID) {
	var changed []FuncID
	var next map[FuncID]*Entry
	for _, id := range ids {
		old, ok := r.entries[id]
		orig, okBase := base.Lookup(id)
		if !ok || !okBase || old == orig {
			continue
		}
		if next == nil {
			next = make(map[FuncID]*Entry, len(r.entries))
			for k, v := range r.entries {
				next[k] = v
			}
		}
		next[id] = orig
		if !orig.Signature().Equal(old.Signature()) {
			changed = append(changed, id)
		}
	}
	if next == nil {
		return r, nil
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i] < changed[j] })
	return &Registry{
		entries: next,
		order:   r.order,
		traits:  r.traits,
		implsOf: r.implsOf,
		version: r.version + 1,
	}, changed
}
