package borrowck

import (
	"sort"
	"strings"

	"ownc/internal/usage"
)

// move records that fact moved path (of a binding) out; maybe is set when
// only some paths to the current point moved it.
type move struct {
	fact  int
	path  string
	maybe bool
}

// state maps bindings to their outstanding moves; absent bindings are live.
type state struct {
	moves map[usage.BindingID][]move
}

func newState() *state {
	return &state{moves: make(map[usage.BindingID][]move)}
}

func (s *state) clone() *state {
	out := newState()
	for id, ms := range s.moves {
		out.moves[id] = append([]move(nil), ms...)
	}
	return out
}

// join merges reachable states; nil states are diverged paths.
func join(states ...*state) *state {
	live := make([]*state, 0, len(states))
	for _, s := range states {
		if s != nil {
			live = append(live, s)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0].clone()
	}

	type key struct {
		fact int
		path string
	}
	out := newState()
	ids := make(map[usage.BindingID]struct{})
	for _, s := range live {
		for id := range s.moves {
			ids[id] = struct{}{}
		}
	}
	for id := range ids {
		seen := make(map[key]bool)
		maybe := make(map[key]bool)
		var merged []move
		for _, s := range live {
			for _, m := range s.moves[id] {
				k := key{m.fact, m.path}
				maybe[k] = maybe[k] || m.maybe
				if !seen[k] {
					seen[k] = true
					merged = append(merged, m)
				}
			}
		}
		// перемещение определённое, если каждый путь перемещает эту часть
		// (любым фактом) без оговорок
		for i := range merged {
			m := &merged[i]
			m.maybe = maybe[key{m.fact, m.path}] || !movedOnEvery(live, id, m.path)
		}
		sort.Slice(merged, func(i, j int) bool {
			if merged[i].fact != merged[j].fact {
				return merged[i].fact < merged[j].fact
			}
			return merged[i].path < merged[j].path
		})
		out.moves[id] = merged
	}
	return out
}

// movedOnEvery: every state has a definite move of path or of a part
// containing it.
func movedOnEvery(states []*state, id usage.BindingID, path string) bool {
	for _, s := range states {
		covered := false
		for _, m := range s.moves[id] {
			if !m.maybe && within(path, m.path) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// overlaps: one path is a prefix of the other on segment boundaries;
// "" is the whole binding.
func overlaps(a, b string) bool {
	if a == "" || b == "" || a == b {
		return true
	}
	return strings.HasPrefix(a, b+".") || strings.HasPrefix(b, a+".")
}

// within: p is q itself or a part of it.
func within(p, q string) bool {
	return q == "" || p == q || strings.HasPrefix(p, q+".")
}
