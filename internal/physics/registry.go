package physics

import (
	"fmt"
	"sort"
)

// Handle is a stable reference to a registry slot. Handles of removed
// entries go stale and never alias a later entry.
type Handle struct {
	index uint32
	gen   uint32
}

// String implements fmt.Stringer.
func (h Handle) String() string {
	return fmt.Sprintf("%d#%d", h.index, h.gen)
}

// IsZero reports whether h was never issued.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

type slot[T any] struct {
	gen  uint32
	live bool
	tag  Tag
	val  T
}

// Registry is a flat arena of records addressed by Handle, with an index
// from tag to the handles carrying it. It is not safe for concurrent use.
type Registry[T any] struct {
	slots []slot[T]
	free  []uint32
	byTag map[Tag]map[Handle]struct{}
	live  int
}

// NewRegistry returns an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{byTag: make(map[Tag]map[Handle]struct{})}
}

// Insert stores v under tag and returns its handle.
func (r *Registry[T]) Insert(tag Tag, v T) Handle {
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, slot[T]{})
	}

	s := &r.slots[idx]
	s.gen++
	s.live = true
	s.tag = tag
	s.val = v

	h := Handle{index: idx, gen: s.gen}
	set, ok := r.byTag[tag]
	if !ok {
		set = make(map[Handle]struct{})
		r.byTag[tag] = set
	}
	set[h] = struct{}{}
	r.live++
	return h
}

func (r *Registry[T]) slotFor(h Handle) (*slot[T], bool) {
	if h.IsZero() || int(h.index) >= len(r.slots) {
		return nil, false
	}
	s := &r.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil, false
	}
	return s, true
}

// Get returns a pointer to the record for h. The pointer is valid until the
// next Insert.
func (r *Registry[T]) Get(h Handle) (*T, bool) {
	s, ok := r.slotFor(h)
	if !ok {
		return nil, false
	}
	return &s.val, true
}

// TagOf returns the tag h was inserted with.
func (r *Registry[T]) TagOf(h Handle) (Tag, bool) {
	s, ok := r.slotFor(h)
	if !ok {
		return "", false
	}
	return s.tag, true
}

// Remove deletes h and reports whether it was live.
func (r *Registry[T]) Remove(h Handle) bool {
	s, ok := r.slotFor(h)
	if !ok {
		return false
	}
	delete(r.byTag[s.tag], h)
	var zero T
	s.val = zero
	s.live = false
	r.free = append(r.free, h.index)
	r.live--
	return true
}

// Tagged returns the live handles carrying tag in slot order.
func (r *Registry[T]) Tagged(tag Tag) []Handle {
	set := r.byTag[tag]
	out := make([]Handle, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out
}

// Count returns the number of live handles carrying tag.
func (r *Registry[T]) Count(tag Tag) int {
	return len(r.byTag[tag])
}

// Len returns the number of live records.
func (r *Registry[T]) Len() int {
	return r.live
}

// Each calls fn for every live record in slot order.
func (r *Registry[T]) Each(fn func(h Handle, tag Tag, v *T)) {
	for i := range r.slots {
		s := &r.slots[i]
		if !s.live {
			continue
		}
		fn(Handle{index: uint32(i), gen: s.gen}, s.tag, &s.val)
	}
}

// Reset removes every record. Outstanding handles go stale.
func (r *Registry[T]) Reset() {
	r.free = r.free[:0]
	var zero T
	for i := range r.slots {
		s := &r.slots[i]
		if s.live {
			s.live = false
			s.val = zero
		}
		r.free = append(r.free, uint32(i))
	}
	r.byTag = make(map[Tag]map[Handle]struct{})
	r.live = 0
}
