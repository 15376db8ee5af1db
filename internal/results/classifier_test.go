package results

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func res(r1, r2 int, small float64) Result {
	return Result{ContainerBigRatio: r1, BigSmallRatio: r2, SmallPercentage: small, BigPercentage: 100 - small}
}

func smalls(g Group) []float64 {
	out := make([]float64, len(g.Results))
	for i, r := range g.Results {
		out[i] = r.SmallPercentage
	}
	return out
}

func TestClassifier_GroupsAndOrder(t *testing.T) {
	orders := [][]Result{
		{res(5, 5, 30), res(5, 5, 10), res(4, 4, 20)},
		{res(4, 4, 20), res(5, 5, 10), res(5, 5, 30)},
		{res(5, 5, 10), res(4, 4, 20), res(5, 5, 30)},
	}
	for i, in := range orders {
		c := NewClassifier()
		for _, r := range in {
			c.Insert(r)
		}
		groups := c.Groups()
		if len(groups) != 2 {
			t.Fatalf("order %d: got %d groups, want 2", i, len(groups))
		}
		for _, g := range groups {
			if g.Key == (Key{5, 5}) {
				if diff := cmp.Diff([]float64{10, 30}, smalls(g)); diff != "" {
					t.Errorf("order %d: (5,5) group mismatch (-want +got):\n%s", i, diff)
				}
			}
		}
	}
}

func TestClassifier_FirstSeenGroupOrder(t *testing.T) {
	c := NewClassifier()
	c.Insert(res(3, 2, 1))
	c.Insert(res(5, 5, 1))
	c.Insert(res(3, 2, 0))
	c.Insert(res(1, 1, 1))

	var labels []string
	for _, g := range c.Groups() {
		labels = append(labels, g.Label)
	}
	want := []string{"C:B=1:3&B:S=1:2", "C:B=1:5&B:S=1:5", "C:B=1:1&B:S=1:1"}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifier_StableForEqualPercentages(t *testing.T) {
	c := NewClassifier()
	a := res(5, 5, 20)
	a.Index = 1
	b := res(5, 5, 20)
	b.Index = 2
	c.Insert(a)
	c.Insert(b)

	got := c.Groups()[0].Results
	if got[0].Index != 1 || got[1].Index != 2 {
		t.Errorf("equal percentages should keep insertion order, got %d,%d", got[0].Index, got[1].Index)
	}
}

func TestClassifier_GroupsIsCopy(t *testing.T) {
	c := NewClassifier()
	c.Insert(res(5, 5, 20))
	g := c.Groups()
	g[0].Results[0].SmallPercentage = 99

	if c.Groups()[0].Results[0].SmallPercentage != 20 {
		t.Error("Groups() should not expose internal state")
	}
}

func TestClassifier_Reset(t *testing.T) {
	c := NewClassifier()
	c.Insert(res(5, 5, 20))
	c.Reset()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after reset", c.Len())
	}
	c.Insert(res(5, 5, 20))
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLog_AppendImportClear(t *testing.T) {
	l := NewLog()
	first := l.Append(res(5, 5, 10))
	second := l.Append(res(4, 4, 10))
	if first.Index != 1 || second.Index != 2 {
		t.Errorf("indices = %d,%d, want 1,2", first.Index, second.Index)
	}

	imported := res(5, 5, 5)
	imported.Index = 7
	l.Import([]Result{imported})
	if next := l.Append(res(5, 5, 1)); next.Index != 8 {
		t.Errorf("next index after import = %d, want 8", next.Index)
	}

	if l.Len() != 4 {
		t.Errorf("Len() = %d, want 4", l.Len())
	}
	rs := l.Results()
	if rs[2].Index != 7 {
		t.Errorf("results not kept in insertion order: %+v", rs)
	}
	if got := len(l.Groups()); got != 2 {
		t.Errorf("groups = %d, want 2", got)
	}

	l.Clear()
	if l.Len() != 0 || len(l.Groups()) != 0 {
		t.Error("Clear() should empty the log")
	}
	if r := l.Append(res(1, 1, 0)); r.Index != 1 {
		t.Errorf("index after clear = %d, want 1", r.Index)
	}
}

func TestResult_Detail(t *testing.T) {
	r := Result{PackingDensity: 0.6, SmallPercentage: 12.5, ContainerBigRatio: 5, BigSmallRatio: 4}
	want := "Packing Density = 0.6000\nSmall Particles = 12.50%\n@ C:B = 1:5 & B:S = 1:4"
	if got := r.Detail(); got != want {
		t.Errorf("Detail() = %q, want %q", got, want)
	}
}
