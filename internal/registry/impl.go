package registry

import (
	"fmt"

	"ownc/internal/diag"
	"ownc/internal/source"
)

// ImplDecl is an impl block ready for registration. Method entries carry
// the modes written at the impl; RegisterImpl rewrites them to the pins.
type ImplDecl struct {
	SelfName string
	Trait    string // "" for inherent impls
	Methods  []*Entry
	Span     source.Span
}

// RegisterImpl registers impl methods. For trait impls every method is
// cross-checked against the trait: an explicit marker that differs from
// the pin, an extra method or a missing required method is reported as
// TraitSignatureMismatch, and the implementing entry is corrected to the
// pin. The trait is never adjusted to the impl.
func (b *Builder) RegisterImpl(decl ImplDecl, rep diag.Reporter) error {
	if b.frozen {
		return ErrFrozen
	}
	tr, hasTrait := b.traits[decl.Trait]
	if decl.Trait != "" {
		b.implsOf[decl.SelfName] = append(b.implsOf[decl.SelfName], decl.Trait)
	}
	implemented := make(map[string]bool, len(decl.Methods))
	for _, m := range decl.Methods {
		implemented[m.Name] = true
		if hasTrait {
			b.checkAgainstTrait(tr, m, rep)
		}
		if err := b.Register(m); err != nil {
			return err
		}
	}
	if !hasTrait {
		return nil
	}
	for _, name := range tr.Order {
		if implemented[name] || tr.Methods[name].HasBody {
			continue
		}
		diag.ReportError(rep, diag.OwnTraitSignatureMismatch, decl.Span,
			fmt.Sprintf("impl of `%s` for `%s` is missing method `%s`", tr.Name, decl.SelfName, name)).
			WithNote(tr.Methods[name].Span, "required by this declaration").
			WithFix(fmt.Sprintf("implement `%s`", name)).
			Emit()
	}
	return nil
}

func (b *Builder) checkAgainstTrait(tr *Trait, m *Entry, rep diag.Reporter) {
	want, ok := tr.Methods[m.Name]
	if !ok {
		diag.ReportError(rep, diag.OwnTraitSignatureMismatch, m.Span,
			fmt.Sprintf("method `%s` is not a member of trait `%s`", m.Name, tr.Name)).
			WithNote(tr.Span, "trait declared here").
			WithFix(fmt.Sprintf("remove `%s` or move it to an inherent impl", m.Name)).
			Emit()
		return
	}
	m.Trait = tr.Name

	switch {
	case want.HasReceiver != m.HasReceiver:
		msg := fmt.Sprintf("method `%s` has no receiver but trait `%s` declares `%s`", m.Name, tr.Name, ReceiverMarker(want.Receiver.Decision))
		if m.HasReceiver {
			msg = fmt.Sprintf("method `%s` takes a receiver but trait `%s` declares an associated function", m.Name, tr.Name)
		}
		diag.ReportError(rep, diag.OwnTraitSignatureMismatch, m.Span, msg).
			WithNote(want.Span, "trait method declared here").
			WithFix("match the receiver of the trait declaration").
			Emit()
	case m.HasReceiver:
		pinned := want.Receiver.Decision
		if m.Receiver.Fixed && m.Receiver.Decision != pinned {
			diag.ReportError(rep, diag.OwnTraitSignatureMismatch, spanOr(m.Receiver.Span, m.Span),
				fmt.Sprintf("receiver of `%s::%s` is `%s` but trait `%s` declares `%s`",
					m.Owner, m.Name, ReceiverMarker(m.Receiver.Decision), tr.Name, ReceiverMarker(pinned))).
				WithNote(spanOr(want.Receiver.Span, want.Span), "trait receiver declared here").
				WithFix(fmt.Sprintf("change receiver to `%s`", ReceiverMarker(pinned))).
				Emit()
		}
		m.Receiver.Decision = pinned
		m.Receiver.Fixed = true
		m.Receiver.Pinned = true
	}

	if len(want.Params) != len(m.Params) {
		diag.ReportError(rep, diag.OwnTraitSignatureMismatch, m.Span,
			fmt.Sprintf("method `%s` has %d parameters but trait `%s` declares %d", m.Name, len(m.Params), tr.Name, len(want.Params))).
			WithNote(want.Span, "trait method declared here").
			WithFix("match the parameter list of the trait declaration").
			Emit()
	}
	for i := range m.Params {
		if i >= len(want.Params) {
			break
		}
		pinned := want.Params[i].Decision
		p := &m.Params[i]
		if p.Fixed && p.Ref == Unresolved && p.Decision != pinned {
			diag.ReportError(rep, diag.OwnTraitSignatureMismatch, spanOr(p.Span, m.Span),
				fmt.Sprintf("parameter `%s` of `%s::%s` is %s but trait `%s` declares %s",
					p.Name, m.Owner, m.Name, p.Decision, tr.Name, pinned)).
				WithNote(spanOr(want.Params[i].Span, want.Span), "trait parameter declared here").
				WithFix(fmt.Sprintf("declare `%s` as %s", p.Name, pinned)).
				Emit()
		}
		p.Decision = pinned
		p.Fixed = true
		p.Pinned = true
	}
}

func spanOr(sp, fallback source.Span) source.Span {
	if sp.Empty() {
		return fallback
	}
	return sp
}
