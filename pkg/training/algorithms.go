package training

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ajitpratap0/refinery/pkg/errors"
)

// rankTolerance is the relative singular value below which a direction of
// the feature matrix is treated as zero.
const rankTolerance = 1e-10

// fitLinear fits ordinary least squares with an intercept, returned as the
// last weight. The SVD solution has minimum norm, so constant or collinear
// features do not make the fit fail.
func fitLinear(x [][]float64, y []float64) ([]float64, error) {
	n, p := len(x), len(x[0])+1
	a := mat.NewDense(n, p, nil)
	for i, row := range x {
		for j, v := range row {
			a.Set(i, j, v)
		}
		a.Set(i, p-1, 1)
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, errors.New(errors.ErrorTypeData, "feature matrix could not be factorized")
	}
	var w mat.VecDense
	svd.SolveVecTo(&w, mat.NewVecDense(n, y), svd.Rank(rankTolerance))
	return mat.Col(nil, 0, &w), nil
}

// fitLogistic trains one binary classifier per class with batch gradient
// descent on the log loss. It checks ctx once per iteration.
func fitLogistic(ctx context.Context, x [][]float64, y []float64, classes, iterations int, lr float64) ([][]float64, error) {
	n, p := len(x), len(x[0])
	weights := make([][]float64, classes)
	grad := make([]float64, p+1)

	for c := 0; c < classes; c++ {
		w := make([]float64, p+1)
		for it := 0; it < iterations; it++ {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeInternal, "training cancelled")
			}
			clear(grad)
			for i, xi := range x {
				target := 0.0
				if int(y[i]) == c {
					target = 1
				}
				diff := sigmoid(dot(w, xi)) - target
				floats.AddScaled(grad[:p], diff, xi)
				grad[p] += diff
			}
			floats.AddScaled(w, -lr/float64(n), grad)
		}
		weights[c] = w
	}
	return weights, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

type neighbour struct {
	dist  float64
	index int
}

// knn predicts from the K nearest training rows: the mean target for
// regression, or the most frequent class for classification. On a tied
// vote the class that reached the count first, scanning from the nearest,
// wins.
func (m *Model) knn(z []float64) float64 {
	ns := make([]neighbour, len(m.TrainX))
	for i, row := range m.TrainX {
		ns[i] = neighbour{dist: floats.Distance(row, z, 2), index: i}
	}
	sort.SliceStable(ns, func(i, j int) bool { return ns[i].dist < ns[j].dist })
	k := min(m.K, len(ns))
	ns = ns[:k]

	if m.Task == TaskRegression {
		var s float64
		for _, nb := range ns {
			s += m.TrainY[nb.index]
		}
		return s / float64(k)
	}

	votes := make(map[float64]int, k)
	best, bestVotes := m.TrainY[ns[0].index], 0
	for _, nb := range ns {
		label := m.TrainY[nb.index]
		votes[label]++
		if votes[label] > bestVotes {
			best, bestVotes = label, votes[label]
		}
	}
	return best
}
