// Package sampling analyzes and rebalances class distributions.
//
// Three methods are available: random oversampling of minority classes,
// random undersampling of majority classes, and SMOTE, which synthesizes
// minority rows by interpolating between nearest neighbours. SMOTE needs
// every feature to be numeric and present; when it cannot run, Apply falls
// back to random oversampling and says so in the metadata.
//
// Rows whose target is missing are not part of any class and are dropped by
// Apply. Every method finishes by shuffling rows with a seeded generator, so
// results are reproducible.
package sampling

import (
	"math/rand/v2"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/transform"
	"github.com/ajitpratap0/refinery/pkg/transform/numeric"
)

const (
	// DefaultSeed seeds the generator when Params.Seed is zero.
	DefaultSeed = 42
	// DefaultNeighbors is the SMOTE k used when Params.KNeighbors is zero.
	DefaultNeighbors = 5
	// BalancedRatio is the largest imbalance ratio still considered balanced.
	BalancedRatio = 2.0
)

// Method selects a resampling scheme.
type Method int

const (
	// Over duplicates minority rows, with replacement, up to the majority count
	Over Method = iota
	// Under subsamples majority rows down to the minority count
	Under
	// SMOTE synthesizes minority rows up to the majority count
	SMOTE
)

var methodNames = map[Method]string{Over: "over", Under: "under", SMOTE: "smote"}

func (m Method) String() string { return methodNames[m] }

// MarshalText renders the method by name.
func (m Method) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// ParseMethod maps "over", "under" or "smote" to a Method.
func ParseMethod(name string) (Method, error) {
	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}
	return 0, errors.InvalidMethod("method", name)
}

// Capabilities records whether synthetic oversampling may run in this
// process. It is decided once at startup.
type Capabilities struct {
	SMOTE  bool   `json:"smote"`
	Reason string `json:"reason,omitempty"`
}

// DetectCapabilities returns the sampling capabilities given whether SMOTE
// is enabled by configuration.
func DetectCapabilities(smoteEnabled bool) Capabilities {
	if !smoteEnabled {
		return Capabilities{Reason: "smote disabled by configuration"}
	}
	return Capabilities{SMOTE: true}
}

// Params configures Apply.
type Params struct {
	Target string
	Method Method
	// KNeighbors for SMOTE; zero means DefaultNeighbors
	KNeighbors int
	// Seed for sampling and the final shuffle; zero means DefaultSeed
	Seed         uint64
	Capabilities Capabilities
}

// ClassCount is one entry of a class distribution.
type ClassCount struct {
	Class      string  `json:"class"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Distribution is the result of Analyze.
type Distribution struct {
	TotalSamples   int          `json:"total_samples"`
	NumClasses     int          `json:"num_classes"`
	Classes        []ClassCount `json:"class_distribution"`
	ImbalanceRatio float64      `json:"imbalance_ratio"`
	IsBalanced     bool         `json:"is_balanced"`
}

// Metadata is the result of Apply.
type Metadata struct {
	transform.Change
	MethodRequested Method       `json:"method_requested"`
	MethodApplied   Method       `json:"method_applied"`
	FallbackReason  string       `json:"fallback_reason,omitempty"`
	KNeighbors      int          `json:"k_neighbors,omitempty"`
	Before          Distribution `json:"before_distribution"`
	After           Distribution `json:"after_distribution"`
	SamplesAdded    int          `json:"samples_added"`
	SamplesRemoved  int          `json:"samples_removed"`
}

// class is the set of rows sharing one target value.
type class struct {
	label string
	rows  []int
}

// Analyze reports the distribution of the target column. Classes are
// ordered by descending count, ties by first appearance.
func Analyze(t *columnar.Table, target string) (Distribution, error) {
	col, ok := t.Column(target)
	if !ok {
		return Distribution{}, errors.InvalidColumn(target, "not found in table")
	}
	return describe(classes(col), t.NumRows()), nil
}

// Apply rebalances the classes of the target column.
func Apply(t *columnar.Table, p Params) (*columnar.Table, Metadata, error) {
	col, ok := t.Column(p.Target)
	if !ok {
		return nil, Metadata{}, errors.InvalidColumn(p.Target, "not found in table")
	}
	if _, ok := methodNames[p.Method]; !ok {
		return nil, Metadata{}, errors.InvalidMethod("method", p.Method.String())
	}
	if p.Seed == 0 {
		p.Seed = DefaultSeed
	}
	if p.KNeighbors <= 0 {
		p.KNeighbors = DefaultNeighbors
	}

	groups := classes(col)
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed))

	meta := Metadata{
		MethodRequested: p.Method,
		MethodApplied:   p.Method,
		Before:          describe(groups, t.NumRows()),
	}

	var out *columnar.Table
	switch p.Method {
	case Under:
		out = t.Take(undersample(groups, rng))
	case SMOTE:
		if reason := smoteBlocker(t, p, groups); reason != "" {
			meta.MethodApplied = Over
			meta.FallbackReason = reason
			out = t.Take(oversample(groups, rng))
			break
		}
		meta.KNeighbors = p.KNeighbors
		var err error
		if out, err = smote(t, p, groups, rng); err != nil {
			return nil, Metadata{}, err
		}
	default:
		out = t.Take(oversample(groups, rng))
	}

	out = out.Take(rng.Perm(out.NumRows()))

	after, _ := out.Column(p.Target)
	meta.After = describe(classes(after), out.NumRows())
	if out.NumRows() > t.NumRows() {
		meta.SamplesAdded = out.NumRows() - t.NumRows()
	} else {
		meta.SamplesRemoved = t.NumRows() - out.NumRows()
	}
	meta.Change = transform.NewChange(t, out, []string{p.Target})
	return out, meta, nil
}

func classes(col *columnar.Column) []class {
	index := make(map[string]int)
	var out []class
	for i := 0; i < col.Len(); i++ {
		label, ok := col.String(i)
		if !ok {
			continue
		}
		k, seen := index[label]
		if !seen {
			k = len(out)
			index[label] = k
			out = append(out, class{label: label})
		}
		out[k].rows = append(out[k].rows, i)
	}

	// stable insertion sort keeps first-appearance order among equal counts
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && len(out[j].rows) > len(out[j-1].rows); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func describe(groups []class, total int) Distribution {
	d := Distribution{
		TotalSamples:   total,
		NumClasses:     len(groups),
		Classes:        make([]ClassCount, len(groups)),
		ImbalanceRatio: 1.0,
	}
	for i, g := range groups {
		pct := 0.0
		if total > 0 {
			pct = float64(len(g.rows)) / float64(total) * 100
		}
		d.Classes[i] = ClassCount{Class: g.label, Count: len(g.rows), Percentage: numeric.Round(pct, 2)}
	}
	if len(groups) > 1 {
		hi, lo := len(groups[0].rows), len(groups[len(groups)-1].rows)
		d.ImbalanceRatio = numeric.Round(float64(hi)/float64(lo), 2)
	}
	d.IsBalanced = d.ImbalanceRatio <= BalancedRatio
	return d
}

func majority(groups []class) int {
	if len(groups) == 0 {
		return 0
	}
	return len(groups[0].rows)
}

func minority(groups []class) int {
	if len(groups) == 0 {
		return 0
	}
	return len(groups[len(groups)-1].rows)
}

// oversample returns every class's rows followed by rows drawn with
// replacement until each class reaches the majority count.
func oversample(groups []class, rng *rand.Rand) []int {
	target := majority(groups)
	out := make([]int, 0, target*len(groups))
	for _, g := range groups {
		out = append(out, g.rows...)
		for n := len(g.rows); n < target; n++ {
			out = append(out, g.rows[rng.IntN(len(g.rows))])
		}
	}
	return out
}

// undersample draws, without replacement, minority-count rows from every
// class.
func undersample(groups []class, rng *rand.Rand) []int {
	target := minority(groups)
	out := make([]int, 0, target*len(groups))
	for _, g := range groups {
		if len(g.rows) <= target {
			out = append(out, g.rows...)
			continue
		}
		for _, k := range rng.Perm(len(g.rows))[:target] {
			out = append(out, g.rows[k])
		}
	}
	return out
}
