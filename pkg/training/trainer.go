// Package training fits simple models on a preprocessed table and reports
// held-out metrics. It reads tables and never modifies them.
package training

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/logger"
	"github.com/ajitpratap0/refinery/pkg/metrics"
)

// ClassificationThreshold is the unique-value count below which a numeric
// target is treated as class labels.
const ClassificationThreshold = 20

// Trainer fits models with the configured defaults.
type Trainer struct {
	cfg    config.TrainingConfig
	logger *zap.Logger
}

// NewTrainer creates a trainer.
func NewTrainer(cfg config.TrainingConfig, log *zap.Logger) *Trainer {
	return &Trainer{cfg: cfg, logger: logger.OrDefault(log).With(zap.String("component", "trainer"))}
}

// DetectTask returns classification for categorical targets and numeric
// targets with fewer than ClassificationThreshold unique values.
func DetectTask(target *columnar.Column) Task {
	if !target.IsNumeric() || target.Distinct() < ClassificationThreshold {
		return TaskClassification
	}
	return TaskRegression
}

// dataset is the complete-case design matrix.
type dataset struct {
	features []string
	x        [][]float64
	y        []float64
	classes  []string
}

// prepare selects the numeric feature columns, drops rows with a missing
// feature or target, and encodes classification targets as class indices
// in sorted order (numerically for numeric targets).
func prepare(t *columnar.Table, target string, task Task) (*dataset, error) {
	tc, ok := t.Column(target)
	if !ok {
		return nil, errors.InvalidColumn(target, "not found in table")
	}
	if task == TaskRegression && !tc.IsNumeric() {
		return nil, errors.New(errors.ErrorTypeInvalidColumn, "regression target must be numeric").
			WithDetail("column", target)
	}

	var feats []*columnar.Column
	ds := &dataset{}
	for _, c := range t.Columns() {
		if c.IsNumeric() && c.Name() != target {
			feats = append(feats, c)
			ds.features = append(ds.features, c.Name())
		}
	}
	if len(feats) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "no numeric feature columns").
			WithDetail("target", target)
	}

	classIndex := map[string]int{}
	if task == TaskClassification {
		ds.classes = classLabels(tc)
		for i, c := range ds.classes {
			classIndex[c] = i
		}
	}

rows:
	for i := 0; i < t.NumRows(); i++ {
		if tc.IsNull(i) {
			continue
		}
		row := make([]float64, len(feats))
		for j, c := range feats {
			v, ok := c.Float(i)
			if !ok {
				continue rows
			}
			row[j] = v
		}
		var y float64
		if task == TaskClassification {
			s, _ := tc.String(i)
			y = float64(classIndex[s])
		} else {
			y, _ = tc.Float(i)
		}
		ds.x = append(ds.x, row)
		ds.y = append(ds.y, y)
	}
	if len(ds.x) < 2 {
		return nil, errors.New(errors.ErrorTypeValidation, "need at least two complete rows to train").
			WithDetail("complete_rows", len(ds.x))
	}
	return ds, nil
}

func classLabels(c *columnar.Column) []string {
	seen := map[string]struct{}{}
	var nums []float64
	var labels []string
	for i := 0; i < c.Len(); i++ {
		s, ok := c.String(i)
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		labels = append(labels, s)
		if v, ok := c.Float(i); ok {
			nums = append(nums, v)
		}
	}
	if c.IsNumeric() {
		sort.Float64s(nums)
		labels = labels[:0]
		for _, v := range nums {
			labels = append(labels, columnar.FormatFloat(v))
		}
		return labels
	}
	sort.Strings(labels)
	return labels
}

// split shuffles row indices with seed and puts ceil(n*testSize) rows,
// clamped to [1, n-1], in the test set.
func split(n int, testSize float64, seed uint64) (train, test []int) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	nTest := int(math.Ceil(float64(n) * testSize))
	nTest = max(1, min(nTest, n-1))
	return idx[nTest:], idx[:nTest]
}

func pick[T any](values []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, k := range idx {
		out[i] = values[k]
	}
	return out
}

// Train fits kind on t to predict target and evaluates it on a held-out
// split.
func (tr *Trainer) Train(ctx context.Context, t *columnar.Table, target string, kind ModelKind) (m *Model, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("train_"+string(kind), time.Since(start), err) }()

	if t == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "no table to train on")
	}
	tc, ok := t.Column(target)
	if !ok {
		return nil, errors.InvalidColumn(target, "not found in table")
	}
	task := DetectTask(tc)
	if !kind.supports(task) {
		return nil, errors.Newf(errors.ErrorTypeValidation, "%s cannot fit a %s target", kind, task).
			WithDetail("target", target)
	}

	ds, err := prepare(t, target, task)
	if err != nil {
		return nil, err
	}
	trainIdx, testIdx := split(len(ds.x), tr.cfg.TestSize, tr.cfg.Seed)
	trainX, trainY := pick(ds.x, trainIdx), pick(ds.y, trainIdx)
	testX, testY := pick(ds.x, testIdx), pick(ds.y, testIdx)

	m = &Model{
		Kind:      kind,
		Task:      task,
		Target:    target,
		Features:  ds.features,
		Classes:   ds.classes,
		TrainRows: len(trainIdx),
		TestRows:  len(testIdx),
		TrainedAt: time.Now().UTC(),
	}
	m.Means, m.Scales = fitStandardization(trainX)
	z := make([][]float64, len(trainX))
	for i, row := range trainX {
		z[i] = m.standardize(row)
	}

	switch kind {
	case ModelLinearRegression:
		w, err := fitLinear(z, trainY)
		if err != nil {
			return nil, err
		}
		m.Weights = [][]float64{w}
	case ModelLogisticRegression:
		m.Weights, err = fitLogistic(ctx, z, trainY, len(ds.classes), tr.cfg.MaxIterations, tr.cfg.LearningRate)
		if err != nil {
			return nil, err
		}
	case ModelKNN:
		m.K = max(1, tr.cfg.Neighbors)
		m.TrainX, m.TrainY = z, trainY
	default:
		return nil, errors.InvalidMethod("model", string(kind))
	}

	pred, err := m.Predict(testX)
	if err != nil {
		return nil, err
	}
	if task == TaskRegression {
		m.Metrics = RegressionMetrics(testY, pred)
	} else {
		m.Metrics = ClassificationMetrics(testY, pred, ds.classes)
	}

	tr.logger.Info("model trained",
		zap.String("model", string(kind)),
		zap.String("task", string(task)),
		zap.String("target", target),
		zap.Int("features", len(ds.features)),
		zap.Int("train_rows", m.TrainRows),
		zap.Int("test_rows", m.TestRows),
		zap.Int("dropped_rows", t.NumRows()-len(ds.x)),
		zap.Duration("duration", time.Since(start)))
	return m, nil
}

// fitStandardization returns per-feature means and population standard
// deviations; a constant feature gets scale 1.
func fitStandardization(x [][]float64) (means, scales []float64) {
	p := len(x[0])
	means = make([]float64, p)
	scales = make([]float64, p)
	n := float64(len(x))
	for _, row := range x {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, row := range x {
		for j, v := range row {
			d := v - means[j]
			scales[j] += d * d
		}
	}
	for j := range scales {
		scales[j] = math.Sqrt(scales[j] / n)
		if scales[j] == 0 {
			scales[j] = 1
		}
	}
	return means, scales
}

// FormatLabel renders a class index for display.
func (m *Model) FormatLabel(class float64) string {
	i := int(class)
	if i >= 0 && i < len(m.Classes) {
		return m.Classes[i]
	}
	return strconv.Itoa(i)
}
