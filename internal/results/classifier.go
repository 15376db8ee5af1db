package results

import "sort"

// Group holds the results for one ratio pair ordered by ascending small
// percentage.
type Group struct {
	Key     Key      `json:"key"`
	Label   string   `json:"label"`
	Results []Result `json:"results"`
}

// Classifier groups results by ratio pair. Groups keep first-seen order.
// It is not safe for concurrent use.
type Classifier struct {
	groups []Group
	index  map[Key]int
}

// NewClassifier returns an empty classifier.
func NewClassifier() *Classifier {
	return &Classifier{index: make(map[Key]int)}
}

// Insert adds r to its group, after any results with the same small
// percentage.
func (c *Classifier) Insert(r Result) {
	if c.index == nil {
		c.index = make(map[Key]int)
	}
	k := r.Key()
	gi, ok := c.index[k]
	if !ok {
		c.index[k] = len(c.groups)
		c.groups = append(c.groups, Group{Key: k, Label: k.Label(), Results: []Result{r}})
		return
	}

	g := &c.groups[gi]
	pos := sort.Search(len(g.Results), func(i int) bool {
		return g.Results[i].SmallPercentage > r.SmallPercentage
	})
	g.Results = append(g.Results, Result{})
	copy(g.Results[pos+1:], g.Results[pos:])
	g.Results[pos] = r
}

// Groups returns a copy of every group in first-seen order.
func (c *Classifier) Groups() []Group {
	out := make([]Group, len(c.groups))
	for i, g := range c.groups {
		out[i] = Group{Key: g.Key, Label: g.Label, Results: append([]Result(nil), g.Results...)}
	}
	return out
}

// Len returns the number of groups.
func (c *Classifier) Len() int {
	return len(c.groups)
}

// Reset drops every group.
func (c *Classifier) Reset() {
	c.groups = nil
	c.index = make(map[Key]int)
}
