package training

import (
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/ajitpratap0/refinery/pkg/errors"
)

// Task is the kind of prediction problem.
type Task string

const (
	TaskClassification Task = "classification"
	TaskRegression     Task = "regression"
)

// ModelKind names a supported model.
type ModelKind string

const (
	ModelLinearRegression   ModelKind = "linear_regression"
	ModelLogisticRegression ModelKind = "logistic_regression"
	ModelKNN                ModelKind = "knn"
)

// ModelKinds lists every supported model.
var ModelKinds = []ModelKind{ModelLinearRegression, ModelLogisticRegression, ModelKNN}

// ParseModelKind parses a model name.
func ParseModelKind(s string) (ModelKind, error) {
	k := ModelKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ModelKinds {
		if k == known {
			return k, nil
		}
	}
	return "", errors.InvalidMethod("model", s)
}

// supports reports whether the model can be fitted for task.
func (k ModelKind) supports(task Task) bool {
	switch k {
	case ModelLinearRegression:
		return task == TaskRegression
	case ModelLogisticRegression:
		return task == TaskClassification
	default:
		return true
	}
}

// Model is a fitted model and everything needed to reuse it. It is the
// artifact written by SaveModel.
type Model struct {
	Kind     ModelKind `json:"kind"`
	Task     Task      `json:"task"`
	Target   string    `json:"target"`
	Features []string  `json:"features"`
	// Classes maps class indices to target values for classification.
	Classes []string `json:"classes,omitempty"`

	// Standardization fitted on the training rows.
	Means []float64 `json:"means"`
	Scales []float64 `json:"scales"`

	// Weights holds one row per fitted linear model (one for linear
	// regression, one per class for logistic regression); the last
	// entry of each row is the intercept.
	Weights [][]float64 `json:"weights,omitempty"`

	// K and the training rows for knn.
	K      int         `json:"k,omitempty"`
	TrainX [][]float64 `json:"train_x,omitempty"`
	TrainY []float64   `json:"train_y,omitempty"`

	Metrics   Metrics   `json:"metrics"`
	TrainRows int       `json:"train_rows"`
	TestRows  int       `json:"test_rows"`
	TrainedAt time.Time `json:"trained_at"`
}

// standardize returns x scaled with the fitted means and scales.
func (m *Model) standardize(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - m.Means[j]) / m.Scales[j]
	}
	return out
}

// Predict returns one prediction per row of raw feature values. For
// classification the prediction is a class index into Classes.
func (m *Model) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(m.Features) {
			return nil, errors.Newf(errors.ErrorTypeValidation, "row %d has %d features, expected %d", i, len(row), len(m.Features))
		}
		out[i] = m.predictOne(m.standardize(row))
	}
	return out, nil
}

// PredictLabels is Predict for classification models, mapped to class
// values.
func (m *Model) PredictLabels(rows [][]float64) ([]string, error) {
	if m.Task != TaskClassification {
		return nil, errors.New(errors.ErrorTypeValidation, "labels are only defined for classification models")
	}
	pred, err := m.Predict(rows)
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(pred))
	for i, p := range pred {
		labels[i] = m.Classes[int(p)]
	}
	return labels, nil
}

func (m *Model) predictOne(z []float64) float64 {
	switch m.Kind {
	case ModelLinearRegression:
		return dot(m.Weights[0], z)
	case ModelLogisticRegression:
		best, bestScore := 0, math.Inf(-1)
		for c, w := range m.Weights {
			if s := dot(w, z); s > bestScore {
				best, bestScore = c, s
			}
		}
		return float64(best)
	default:
		return m.knn(z)
	}
}

// dot computes w·z plus the intercept stored as w's last entry.
func dot(w, z []float64) float64 {
	return floats.Dot(w[:len(z)], z) + w[len(w)-1]
}
