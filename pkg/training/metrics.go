package training

import (
	"math"

	"github.com/ajitpratap0/refinery/pkg/transform/numeric"
)

// Metrics holds held-out evaluation results. Only the fields for the
// model's task are set.
type Metrics struct {
	Task Task `json:"task"`

	R2   *float64 `json:"r2,omitempty"`
	MAE  *float64 `json:"mae,omitempty"`
	MSE  *float64 `json:"mse,omitempty"`
	RMSE *float64 `json:"rmse,omitempty"`

	Accuracy  *float64 `json:"accuracy,omitempty"`
	Precision *float64 `json:"precision,omitempty"`
	Recall    *float64 `json:"recall,omitempty"`
	F1        *float64 `json:"f1,omitempty"`
	// ConfusionMatrix[i][j] counts rows of class i predicted as class j.
	ConfusionMatrix [][]int  `json:"confusion_matrix,omitempty"`
	Labels          []string `json:"labels,omitempty"`
}

// RegressionMetrics compares predictions with the truth. R2 is nil when the
// truth is constant.
func RegressionMetrics(truth, pred []float64) Metrics {
	m := Metrics{Task: TaskRegression}
	if len(truth) == 0 {
		return m
	}
	mean := numeric.Mean(truth)
	var sae, sse, sst float64
	for i, t := range truth {
		d := t - pred[i]
		sae += math.Abs(d)
		sse += d * d
		sst += (t - mean) * (t - mean)
	}
	n := float64(len(truth))
	m.MAE = numeric.Finite(sae / n)
	m.MSE = numeric.Finite(sse / n)
	m.RMSE = numeric.Finite(math.Sqrt(sse / n))
	if sst > 0 {
		m.R2 = numeric.Finite(1 - sse/sst)
	}
	return m
}

// ClassificationMetrics compares predicted class indices with the truth.
// Precision, recall and F1 are macro averages over the classes that occur
// in either truth or predictions; a class with no predicted (or no true)
// rows scores zero precision (or recall).
func ClassificationMetrics(truth, pred []float64, labels []string) Metrics {
	k := len(labels)
	m := Metrics{Task: TaskClassification, Labels: labels, ConfusionMatrix: make([][]int, k)}
	for i := range m.ConfusionMatrix {
		m.ConfusionMatrix[i] = make([]int, k)
	}
	if len(truth) == 0 {
		return m
	}

	correct := 0
	for i, t := range truth {
		m.ConfusionMatrix[int(t)][int(pred[i])]++
		if t == pred[i] {
			correct++
		}
	}
	m.Accuracy = numeric.Finite(float64(correct) / float64(len(truth)))

	var precision, recall, f1 float64
	classes := 0
	for c := 0; c < k; c++ {
		tp := m.ConfusionMatrix[c][c]
		actual, predicted := 0, 0
		for j := 0; j < k; j++ {
			actual += m.ConfusionMatrix[c][j]
			predicted += m.ConfusionMatrix[j][c]
		}
		if actual == 0 && predicted == 0 {
			continue
		}
		classes++

		var p, r float64
		if predicted > 0 {
			p = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			r = float64(tp) / float64(actual)
		}
		precision += p
		recall += r
		if p+r > 0 {
			f1 += 2 * p * r / (p + r)
		}
	}
	n := float64(classes)
	m.Precision = numeric.Finite(precision / n)
	m.Recall = numeric.Finite(recall / n)
	m.F1 = numeric.Finite(f1 / n)
	return m
}
