package usage

// usedAfter reports a fact on id at or after order.
func (w *walker) usedAfter(id BindingID, order int) bool {
	b := w.binding(id)
	for _, idx := range b.Facts {
		if w.res.Facts[idx].Order >= order {
			return true
		}
	}
	return false
}

func (w *walker) consumed(id BindingID) bool {
	for _, idx := range w.binding(id).Facts {
		if w.res.Facts[idx].IsConsuming() {
			return true
		}
	}
	return false
}

// finishLoops marks borrow-only loop sites once all facts are known.
func (w *walker) finishLoops() {
	for i := range w.res.Loops {
		l := &w.res.Loops[i]
		for _, bid := range l.Bindings {
			if w.consumed(bid) && !w.a.cls.IsValue(w.binding(bid).Type) {
				l.NeedsOwned = true
			}
		}
		if l.Root == NoBindingID {
			continue
		}
		root := w.binding(l.Root)
		if l.Field || l.Depth > root.Depth || w.usedAfter(l.Root, l.endOrder) {
			l.BorrowOnly = true
		}
	}
}

// finishMatches decides by-value matches: a bare owned binding with no
// later use whose arms bind unique payloads is moved into the arms.
func (w *walker) finishMatches() {
	for i := range w.res.Matches {
		m := &w.res.Matches[i]
		if m.Root == NoBindingID || m.Fact < 0 || w.res.Facts[m.Fact].Kind != Read {
			continue
		}
		root := w.binding(m.Root)
		if root.View != ViewNone || m.Depth > root.Depth || w.usedAfter(m.Root, m.endOrder) {
			continue
		}
		for _, bid := range m.Bindings {
			if !w.a.cls.IsValue(w.binding(bid).Type) {
				m.Consumes = true
				break
			}
		}
	}
}
