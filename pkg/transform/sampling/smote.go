package sampling

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/ajitpratap0/refinery/pkg/columnar"
)

// smoteBlocker returns why SMOTE cannot run on t, or "" when it can.
func smoteBlocker(t *columnar.Table, p Params, groups []class) string {
	if !p.Capabilities.SMOTE {
		if p.Capabilities.Reason != "" {
			return p.Capabilities.Reason
		}
		return "smote unavailable"
	}

	features := 0
	for _, c := range t.Columns() {
		if c.Name() == p.Target {
			continue
		}
		features++
		if !c.IsNumeric() {
			return fmt.Sprintf("feature %q is not numeric", c.Name())
		}
		for _, g := range groups {
			for _, r := range g.rows {
				if c.IsNull(r) {
					return fmt.Sprintf("feature %q has missing values", c.Name())
				}
			}
		}
	}
	if features == 0 {
		return "no feature columns"
	}

	target := majority(groups)
	for _, g := range groups {
		if len(g.rows) < target && len(g.rows) < 2 {
			return fmt.Sprintf("class %q has fewer than 2 samples", g.label)
		}
	}
	return ""
}

// smote appends synthetic rows to every class below the majority count.
// A synthetic row lies on the segment between a class member and one of its
// k nearest neighbours within the class; its target is the member's.
func smote(t *columnar.Table, p Params, groups []class, rng *rand.Rand) (*columnar.Table, error) {
	var features []*columnar.Column
	for _, c := range t.Columns() {
		if c.Name() != p.Target {
			features = append(features, c)
		}
	}

	points := make([][]float64, t.NumRows())
	point := func(r int) []float64 {
		if points[r] == nil {
			v := make([]float64, len(features))
			for j, c := range features {
				v[j], _ = c.Float(r)
			}
			points[r] = v
		}
		return points[r]
	}

	var rows []int
	var synthetic [][]float64
	var origins []int

	target := majority(groups)
	for _, g := range groups {
		rows = append(rows, g.rows...)
		need := target - len(g.rows)
		if need <= 0 {
			continue
		}

		k := p.KNeighbors
		if k > len(g.rows)-1 {
			k = len(g.rows) - 1
		}
		neighbours := nearest(g.rows, k, point)

		for n := 0; n < need; n++ {
			i := rng.IntN(len(g.rows))
			j := neighbours[i][rng.IntN(len(neighbours[i]))]
			a, b := point(g.rows[i]), point(j)
			gap := rng.Float64()

			v := make([]float64, len(a))
			for d := range a {
				v[d] = a[d] + gap*(b[d]-a[d])
			}
			synthetic = append(synthetic, v)
			origins = append(origins, g.rows[i])
		}
	}

	cols := make([]*columnar.Column, 0, t.NumCols())
	for _, c := range t.Columns() {
		if c.Name() == p.Target {
			cols = append(cols, c.Take(append(append([]int(nil), rows...), origins...)))
			continue
		}
		base := c.Take(rows).NonNullFloats()
		j := featureIndex(features, c.Name())
		for _, v := range synthetic {
			base = append(base, v[j])
		}
		cols = append(cols, columnar.NewNumericColumn(c.Name(), base, nil))
	}
	return columnar.New(cols...)
}

// nearest returns, for each member of rows, the row indices of its k
// nearest other members by Euclidean distance.
func nearest(rows []int, k int, point func(int) []float64) [][]int {
	out := make([][]int, len(rows))
	type cand struct {
		row  int
		dist float64
	}
	for i, r := range rows {
		a := point(r)
		cands := make([]cand, 0, len(rows)-1)
		for j, s := range rows {
			if i == j {
				continue
			}
			cands = append(cands, cand{row: s, dist: floats.Distance(a, point(s), 2)})
		}
		sort.SliceStable(cands, func(x, y int) bool { return cands[x].dist < cands[y].dist })

		out[i] = make([]int, k)
		for n := 0; n < k; n++ {
			out[i][n] = cands[n].row
		}
	}
	return out
}

func featureIndex(features []*columnar.Column, name string) int {
	for i, c := range features {
		if c.Name() == name {
			return i
		}
	}
	return -1
}
