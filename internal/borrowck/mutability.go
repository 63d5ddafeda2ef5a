package borrowck

import (
	"fmt"

	"ownc/internal/diag"
	"ownc/internal/registry"
	"ownc/internal/source"
	"ownc/internal/usage"
)

// mutability reports the first mutation of every binding that may not be
// mutated. Inferred parameters may become `&mut`; parameters that own their
// value (by-value type or fixed owned slot) need `mut` like locals.
func (c *checker) mutability() {
	seen := make(map[usage.BindingID]bool)
	for i := range c.u.Facts {
		f := &c.u.Facts[i]
		if !f.Kind.IsMutation() || seen[f.Binding] {
			continue
		}
		b := c.u.Binding(f.Binding)
		if b == nil || b.Mutable {
			continue
		}
		switch b.Kind {
		case usage.BindLet, usage.BindMatch, usage.BindClosureParam:
			if b.Uninit && f.Kind == usage.WholeWrite {
				continue
			}
			seen[b.ID] = true
			c.immutable(b, f)
		case usage.BindLoop:
			// через &mut-элемент менять можно, свой элемент нужно объявить mut
			if !c.r.Owns(b.ID) {
				continue
			}
			seen[b.ID] = true
			c.immutable(b, f)
		case usage.BindParam, usage.BindReceiver:
			slot := c.slot(b)
			if slot == nil {
				continue
			}
			if c.r.Owns(b.ID) || c.r.ByValue(b.ID) {
				seen[b.ID] = true
				c.immutable(b, f)
				continue
			}
			if !sharedSlot(slot) {
				continue
			}
			seen[b.ID] = true
			c.res.Errors++
			rb := diag.ReportError(c.rep, diag.OwnImmutableMutation, f.Span,
				fmt.Sprintf("cannot mutate `%s` through a shared borrow", b.Name))
			switch {
			case slot.Pinned:
				rb = rb.WithNote(slot.Span, fmt.Sprintf("trait `%s` declares this %s as `&`", c.r.Entry.Trait, b.Kind))
			case slot.Ref == registry.Borrowed:
				rb = rb.WithNote(slot.Span, fmt.Sprintf("`%s` is declared as a shared reference", b.Name))
			default:
				rb = rb.WithNote(slot.Span, "borrowed by an explicit marker")
			}
			if b.Kind == usage.BindReceiver {
				rb = rb.WithFix("take the receiver as `&mut self`")
			} else {
				rb = rb.WithFix(fmt.Sprintf("declare `%s` as `&mut`", b.Name))
			}
			rb.Emit()
		}
	}
}

// immutable reports a write to a binding that holds its value but is not
// declared `mut`.
func (c *checker) immutable(b *usage.Binding, f *usage.Fact) {
	c.res.Errors++
	diag.ReportError(c.rep, diag.OwnImmutableMutation, f.Span,
		fmt.Sprintf("cannot mutate immutable %s `%s`", b.Kind, b.Name)).
		WithNote(b.Span, "declared here").
		WithFix(fmt.Sprintf("declare `%s` as mutable", b.Name), diag.FixEdit{
			Span:    source.Span{File: b.Span.File, Start: b.Span.Start, End: b.Span.Start},
			NewText: "mut ",
		}).
		Emit()
}

func (c *checker) slot(b *usage.Binding) *registry.Slot {
	e := c.r.Entry
	if e == nil {
		return nil
	}
	if b.Kind == usage.BindReceiver {
		if !e.HasReceiver {
			return nil
		}
		return &e.Receiver
	}
	if b.Param < 0 || b.Param >= len(e.Params) {
		return nil
	}
	return &e.Params[b.Param]
}

func sharedSlot(s *registry.Slot) bool {
	return s.Ref == registry.Borrowed || (s.Fixed && s.Decision == registry.Borrowed)
}
