package diag

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// Bag keeps at most max diagnostics. Findings past the limit are counted
// by severity, so HasErrors and Count still see them.
type Bag struct {
	items   []Diagnostic
	max     uint16
	dropped [SevError + 1]int
}

func NewBag(max int) *Bag {
	if max <= 0 || max > math.MaxUint16 {
		max = math.MaxUint16
	}
	return &Bag{
		items: make([]Diagnostic, 0, min(max, 64)),
		max:   uint16(max), //nolint:gosec // clamped above
	}
}

// Add добавляет диагностику, учитывая лимит.
// При переполнении ошибка вытесняет последнюю не-ошибку; иначе
// диагностика только учитывается в счётчике. Возвращает false, если
// диагностика не добавлена.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) < int(b.max) {
		b.items = append(b.items, d)
		return true
	}
	if d.Severity >= SevError {
		for i := len(b.items) - 1; i >= 0; i-- {
			if b.items[i].Severity < SevError {
				b.drop(b.items[i].Severity)
				b.items[i] = d
				return true
			}
		}
	}
	b.drop(d.Severity)
	return false
}

func (b *Bag) drop(sev Severity) {
	b.dropped[min(sev, SevError)]++
}

// Dropped is the number of diagnostics that did not fit.
func (b *Bag) Dropped() int {
	n := 0
	for _, c := range b.dropped {
		n += c
	}
	return n
}

func (b *Bag) Cap() uint16 {
	return b.max
}

// HasErrors возвращает true, если есть хотя бы одна диагностика с Severity >= Error
func (b *Bag) HasErrors() bool {
	if b.dropped[SevError] > 0 {
		return true
	}
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// HasWarnings возвращает true, если есть хотя бы одна диагностика с Severity >= Warning
func (b *Bag) HasWarnings() bool {
	if b.dropped[SevError]+b.dropped[SevWarning] > 0 {
		return true
	}
	for i := range b.items {
		if b.items[i].Severity >= SevWarning {
			return true
		}
	}
	return false
}

// Count returns the number of diagnostics with exactly this severity,
// including those past the limit.
func (b *Bag) Count(sev Severity) int {
	n := 0
	if sev <= SevError {
		n = b.dropped[sev]
	}
	for i := range b.items {
		if b.items[i].Severity == sev {
			n++
		}
	}
	return n
}

// длина
func (b *Bag) Len() int {
	return len(b.items)
}

// Items возвращает read-only slice диагностик.
// ВАЖНО: не модифицируйте возвращаемый срез! (он указывает на внутренний массив Bag)
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge объединяет диагностики из другого Bag.
// Увеличивает max, если нужно вместить все элементы.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	newTotal := len(b.items) + len(other.items)
	if newTotal > int(b.max) {
		b.max = uint16(min(newTotal, math.MaxUint16)) //nolint:gosec // clamped
	}
	for i, c := range other.dropped {
		b.dropped[i] += c
	}
	for _, d := range other.items {
		b.Add(d)
	}
}

// Filter keeps diagnostics for which keep returns true.
func (b *Bag) Filter(keep func(*Diagnostic) bool) {
	out := b.items[:0]
	for i := range b.items {
		if keep(&b.items[i]) {
			out = append(out, b.items[i])
		}
	}
	b.items = out
}

// Sort: file, start, end, затем severity по убыванию, code, message.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Start, y.Primary.Start),
			cmp.Compare(x.Primary.End, y.Primary.End),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
			strings.Compare(x.Message, y.Message),
		)
	})
}
