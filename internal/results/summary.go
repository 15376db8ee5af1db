package results

import (
	"fmt"
	"io"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the packing density spread of one group.
type Summary struct {
	Key         Key     `json:"key"`
	Label       string  `json:"label"`
	Count       int     `json:"count"`
	MeanDensity float64 `json:"mean_density"`
	StdDensity  float64 `json:"std_density"`
	MinSmall    float64 `json:"min_small_percentage"`
	MaxSmall    float64 `json:"max_small_percentage"`
}

// Summarize computes a Summary per group, in group order. The standard
// deviation is zero for single-result groups.
func Summarize(groups []Group) []Summary {
	out := make([]Summary, 0, len(groups))
	for _, g := range groups {
		if len(g.Results) == 0 {
			continue
		}
		densities := make([]float64, len(g.Results))
		for i, r := range g.Results {
			densities[i] = r.PackingDensity
		}
		s := Summary{
			Key:      g.Key,
			Label:    g.Label,
			Count:    len(g.Results),
			MinSmall: g.Results[0].SmallPercentage,
			MaxSmall: g.Results[len(g.Results)-1].SmallPercentage,
		}
		if s.Count > 1 {
			s.MeanDensity, s.StdDensity = stat.MeanStdDev(densities, nil)
		} else {
			s.MeanDensity = densities[0]
		}
		out = append(out, s)
	}
	return out
}

// WriteSummaries prints summaries as an aligned table.
func WriteSummaries(w io.Writer, sums []Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tRUNS\tMEAN DENSITY\tSTD\tSMALL %")
	for _, s := range sums {
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.4f\t%.2f-%.2f\n", s.Label, s.Count, s.MeanDensity, s.StdDensity, s.MinSmall, s.MaxSmall)
	}
	return tw.Flush()
}
