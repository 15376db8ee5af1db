package results

// Cursor addresses one result inside the classified groups. Item is -1
// until something is selected.
type Cursor struct {
	Group int `json:"group"`
	Item  int `json:"item"`
}

// Navigator moves a Cursor over a snapshot of groups. Every move keeps the
// cursor in range, and all moves are no-ops when there are no groups.
type Navigator struct {
	groups []Group
	cur    Cursor
}

// NewNavigator returns a navigator positioned at (0, -1).
func NewNavigator(groups []Group) *Navigator {
	return &Navigator{groups: groups, cur: Cursor{Group: 0, Item: -1}}
}

// Update swaps in a fresh snapshot and clamps the cursor into it.
func (n *Navigator) Update(groups []Group) {
	n.groups = groups
	if len(groups) == 0 {
		n.cur = Cursor{Group: 0, Item: -1}
		return
	}
	if n.cur.Group >= len(groups) {
		n.cur = Cursor{Group: len(groups) - 1, Item: -1}
	}
	if last := len(groups[n.cur.Group].Results) - 1; n.cur.Item > last {
		n.cur.Item = last
	}
}

// Reset returns the cursor to (0, -1).
func (n *Navigator) Reset() {
	n.cur = Cursor{Group: 0, Item: -1}
}

// Cursor returns the current position.
func (n *Navigator) Cursor() Cursor {
	return n.cur
}

// Selected returns the result under the cursor, if any.
func (n *Navigator) Selected() (Result, bool) {
	if len(n.groups) == 0 || n.cur.Item < 0 {
		return Result{}, false
	}
	g := n.groups[n.cur.Group]
	if n.cur.Item >= len(g.Results) {
		return Result{}, false
	}
	return g.Results[n.cur.Item], true
}

// Next moves to the following item, stopping at the last one.
func (n *Navigator) Next() {
	if len(n.groups) == 0 {
		return
	}
	last := len(n.groups[n.cur.Group].Results) - 1
	if n.cur.Item < last {
		n.cur.Item++
	}
}

// Prev moves to the previous item, stopping at the first one.
func (n *Navigator) Prev() {
	if len(n.groups) == 0 {
		return
	}
	if n.cur.Item > 0 {
		n.cur.Item--
	} else {
		n.cur.Item = 0
	}
}

// NextGroup moves to the first item of the next group, wrapping around.
func (n *Navigator) NextGroup() {
	if len(n.groups) == 0 {
		return
	}
	n.cur.Group = (n.cur.Group + 1) % len(n.groups)
	n.cur.Item = 0
}
