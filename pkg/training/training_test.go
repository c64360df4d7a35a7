package training

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/testutil"
)

func newTrainer(t *testing.T) *Trainer {
	return NewTrainer(config.Default().Training, testutil.TestLogger(t))
}

// linearTable has y = 3*x1 - 2*x2 + 5 and a categorical column that is
// ignored as a feature.
func linearTable(t *testing.T, n int) *columnar.Table {
	x1 := make([]float64, n)
	x2 := make([]float64, n)
	y := make([]float64, n)
	city := make([]string, n)
	for i := 0; i < n; i++ {
		x1[i], x2[i] = float64(i), float64((i*7)%11)
		y[i] = 3*x1[i] - 2*x2[i] + 5
		city[i] = fmt.Sprintf("c%d", i%3)
	}
	return testutil.Table(t,
		columnar.Numeric("x1", x1...),
		columnar.Numeric("x2", x2...),
		columnar.Categorical("city", city...),
		columnar.Numeric("y", y...),
	)
}

// thresholdTable labels rows "yes" when x >= n/2.
func thresholdTable(t *testing.T, n int) *columnar.Table {
	x := make([]float64, n)
	sq := make([]float64, n)
	label := make([]string, n)
	for i := 0; i < n; i++ {
		x[i], sq[i], label[i] = float64(i), float64(i*i), "no"
		if i >= n/2 {
			label[i] = "yes"
		}
	}
	return testutil.Table(t,
		columnar.Numeric("x", x...),
		columnar.Numeric("x_squared", sq...),
		columnar.Categorical("label", label...),
	)
}

func TestLinearRegression(t *testing.T) {
	m, err := newTrainer(t).Train(context.Background(), linearTable(t, 50), "y", ModelLinearRegression)
	require.NoError(t, err)

	assert.Equal(t, TaskRegression, m.Task)
	assert.Equal(t, []string{"x1", "x2"}, m.Features)
	assert.Equal(t, 40, m.TrainRows)
	assert.Equal(t, 10, m.TestRows)
	require.NotNil(t, m.Metrics.R2)
	assert.InDelta(t, 1.0, *m.Metrics.R2, 1e-6)
	assert.InDelta(t, 0.0, *m.Metrics.RMSE, 1e-4)

	pred, err := m.Predict([][]float64{{10, 3}})
	require.NoError(t, err)
	assert.InDelta(t, 29.0, pred[0], 1e-4)
}

func TestLinearRegressionCollinearFeatures(t *testing.T) {
	n := 40
	x := make([]float64, n)
	double := make([]float64, n)
	flat := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i], double[i], flat[i] = float64(i), float64(2*i), 7
		y[i] = 4*x[i] + 1
	}
	tbl := testutil.Table(t,
		columnar.Numeric("x", x...),
		columnar.Numeric("x_doubled", double...),
		columnar.Numeric("flat", flat...),
		columnar.Numeric("y", y...),
	)

	m, err := newTrainer(t).Train(context.Background(), tbl, "y", ModelLinearRegression)
	require.NoError(t, err)
	require.NotNil(t, m.Metrics.R2)
	assert.InDelta(t, 1.0, *m.Metrics.R2, 1e-6)

	pred, err := m.Predict([][]float64{{100, 200, 7}})
	require.NoError(t, err)
	assert.InDelta(t, 401.0, pred[0], 1e-4)
}

func TestLogisticRegression(t *testing.T) {
	m, err := newTrainer(t).Train(context.Background(), thresholdTable(t, 100), "label", ModelLogisticRegression)
	require.NoError(t, err)

	assert.Equal(t, TaskClassification, m.Task)
	assert.Equal(t, []string{"no", "yes"}, m.Classes)
	assert.Len(t, m.Weights, 2)
	require.NotNil(t, m.Metrics.Accuracy)
	assert.GreaterOrEqual(t, *m.Metrics.Accuracy, 0.8)
	assert.Len(t, m.Metrics.ConfusionMatrix, 2)

	labels, err := m.PredictLabels([][]float64{{0, 0}, {99, 9801}})
	require.NoError(t, err)
	assert.Equal(t, []string{"no", "yes"}, labels)
}

func TestKNN(t *testing.T) {
	m, err := newTrainer(t).Train(context.Background(), thresholdTable(t, 100), "label", ModelKNN)
	require.NoError(t, err)
	assert.Equal(t, 5, m.K)
	assert.Len(t, m.TrainX, 80)
	assert.GreaterOrEqual(t, *m.Metrics.Accuracy, 0.85)

	n := 60
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i], y[i] = float64(i), 2*float64(i)
	}
	table := testutil.Table(t, columnar.Numeric("x", x...), columnar.Numeric("y", y...))
	m, err = newTrainer(t).Train(context.Background(), table, "y", ModelKNN)
	require.NoError(t, err)
	assert.Equal(t, TaskRegression, m.Task)
	assert.Greater(t, *m.Metrics.R2, 0.95)
}

func TestDetectTask(t *testing.T) {
	assert.Equal(t, TaskClassification, DetectTask(columnar.Categorical("c", "a", "b")))
	assert.Equal(t, TaskClassification, DetectTask(columnar.Numeric("n", 0, 1, 1, 0)))

	values := make([]float64, 25)
	for i := range values {
		values[i] = float64(i)
	}
	assert.Equal(t, TaskRegression, DetectTask(columnar.Numeric("n", values...)))
}

func TestNumericClassLabels(t *testing.T) {
	assert.Equal(t, []string{"2", "10", "30"}, classLabels(columnar.Numeric("n", 30, 2, 10, 2)))
	assert.Equal(t, []string{"a", "b"}, classLabels(columnar.Categorical("c", "b", "a", "b")))
}

func TestMissingRowsDropped(t *testing.T) {
	table := columnar.NormalizeTable(testutil.Table(t,
		columnar.NewNumericColumn("x", []float64{1, 2, 3, 4, 5, 6}, []bool{true, false, true, true, true, true}),
		columnar.NewCategoricalColumn("label", []string{"a", "b", "a", "", "b", "a"}, []bool{true, true, true, false, true, true}),
	))
	ds, err := prepare(table, "label", TaskClassification)
	require.NoError(t, err)
	assert.Len(t, ds.x, 4)
	assert.Equal(t, []float64{0, 0, 1, 0}, ds.y)
}

func TestTrainErrors(t *testing.T) {
	ctx := context.Background()
	tr := newTrainer(t)

	_, err := tr.Train(ctx, linearTable(t, 30), "ghost", ModelKNN)
	assert.True(t, errors.IsInvalidColumn(err))

	_, err = tr.Train(ctx, thresholdTable(t, 30), "label", ModelLinearRegression)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = tr.Train(ctx, linearTable(t, 30), "y", ModelLogisticRegression)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	onlyTarget := testutil.Table(t, columnar.Categorical("c", "a", "b"), columnar.Categorical("label", "x", "y"))
	_, err = tr.Train(ctx, onlyTarget, "label", ModelKNN)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = ParseModelKind("random_forest")
	assert.True(t, errors.IsInvalidMethod(err))
	k, err := ParseModelKind(" KNN ")
	require.NoError(t, err)
	assert.Equal(t, ModelKNN, k)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = tr.Train(cancelled, thresholdTable(t, 30), "label", ModelLogisticRegression)
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	train, test := split(100, 0.2, 42)
	assert.Len(t, train, 80)
	assert.Len(t, test, 20)

	train2, test2 := split(100, 0.2, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	seen := map[int]bool{}
	for _, i := range append(train, test...) {
		seen[i] = true
	}
	assert.Len(t, seen, 100)

	train, test = split(2, 0.2, 42)
	assert.Len(t, train, 1)
	assert.Len(t, test, 1)
}

func TestMetrics(t *testing.T) {
	r := RegressionMetrics([]float64{1, 2, 3}, []float64{1, 2, 4})
	assert.InDelta(t, 1.0/3, *r.MAE, 1e-12)
	assert.InDelta(t, 1.0/3, *r.MSE, 1e-12)
	assert.InDelta(t, 0.5773503, *r.RMSE, 1e-6)
	assert.InDelta(t, 0.8333333, *r.R2, 1e-6)
	assert.Nil(t, RegressionMetrics([]float64{2, 2}, []float64{1, 3}).R2)

	c := ClassificationMetrics([]float64{0, 0, 1, 1, 2}, []float64{0, 1, 1, 1, 0}, []string{"a", "b", "c"})
	assert.Equal(t, [][]int{{1, 1, 0}, {0, 2, 0}, {1, 0, 0}}, c.ConfusionMatrix)
	assert.InDelta(t, 0.6, *c.Accuracy, 1e-12)
	assert.InDelta(t, 0.3888889, *c.Precision, 1e-6)
	assert.InDelta(t, 0.5, *c.Recall, 1e-12)
	assert.InDelta(t, 0.4333333, *c.F1, 1e-6)
}

func TestModelArtifact(t *testing.T) {
	m, err := newTrainer(t).Train(context.Background(), thresholdTable(t, 60), "label", ModelKNN)
	require.NoError(t, err)

	for _, name := range []string{"model.json", "model.json.zst", "model.json.gz"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, SaveModel(path, m))

		loaded, err := LoadModel(path)
		require.NoError(t, err, name)
		assert.Equal(t, m.Kind, loaded.Kind)
		assert.Equal(t, m.Classes, loaded.Classes)
		assert.Equal(t, *m.Metrics.Accuracy, *loaded.Metrics.Accuracy)

		rows := [][]float64{{3, 9}, {55, 3025}}
		want, _ := m.Predict(rows)
		got, err := loaded.Predict(rows)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = LoadModel(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}
