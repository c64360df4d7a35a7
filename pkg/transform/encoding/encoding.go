package encoding

import (
	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/transform"
	"github.com/ajitpratap0/refinery/pkg/transform/numeric"
)

// OneHotParams configures OneHot.
type OneHotParams struct {
	Columns   []string
	DropFirst bool
	// HandleBinary label-encodes columns with exactly two categories
	// instead of expanding them.
	HandleBinary bool
}

// OrdinalParams configures Ordinal.
type OrdinalParams struct {
	Column string
	// Categories gives the explicit order; when empty the order is derived
	// from the data.
	Categories []string
	// AutoOrder sorts derived categories; otherwise first-seen order is used.
	AutoOrder bool
}

// TargetParams configures Target.
type TargetParams struct {
	Columns []string
	Target  string
}

// EncodedColumn describes how one input column was encoded.
type EncodedColumn struct {
	Original   string   `json:"original"`
	Method     Method   `json:"method"`
	Reason     string   `json:"reason,omitempty"`
	NewColumns []string `json:"new_columns,omitempty"`
}

// Metadata is the result of every encoding call.
type Metadata struct {
	transform.Change
	Method          Method             `json:"method"`
	ColumnsEncoded  []EncodedColumn    `json:"columns_encoded"`
	NewColumns      []string           `json:"new_columns,omitempty"`
	DropFirst       bool               `json:"drop_first,omitempty"`
	ColumnsDropped  []string           `json:"columns_dropped,omitempty"`
	TotalNewColumns int                `json:"total_new_columns"`
	TargetColumn    string             `json:"target_column,omitempty"`
	Encoders        map[string]Encoder `json:"encoders"`
	Warning         string             `json:"warning,omitempty"`
}

// EncodeLabel replaces each categorical column with the index of its value
// in the sorted list of classes. Numeric and absent columns are skipped;
// missing cells stay missing.
func EncodeLabel(t *columnar.Table, columns []string) (*columnar.Table, Metadata, error) {
	out := t
	meta := newMetadata(Label)

	for _, name := range t.Existing(columns) {
		col, _ := t.Column(name)
		if col.IsNumeric() {
			continue
		}
		enc := fitLabel(col)
		out = out.Replace(enc.Apply(col)[0])
		meta.record(enc, EncodedColumn{Original: name, Method: Label})
	}

	meta.Change = transform.NewChange(t, out, meta.touched())
	return out, meta, nil
}

// EncodeOneHot expands each selected column into indicator columns named
// <column>_<category>, appended after the remaining columns in category
// order. Missing cells produce all-zero indicators.
func EncodeOneHot(t *columnar.Table, p OneHotParams) (*columnar.Table, Metadata, error) {
	out := t
	meta := newMetadata(OneHot)
	meta.DropFirst = p.DropFirst

	for _, name := range t.Existing(p.Columns) {
		col, _ := t.Column(name)
		cats := categories(col)

		if p.HandleBinary && len(cats) == 2 {
			enc := fitLabel(col)
			out = out.Replace(enc.Apply(col)[0])
			meta.record(enc, EncodedColumn{Original: name, Method: Label, Reason: "binary_column"})
			continue
		}

		enc := Encoder{Method: OneHot, Column: name, Categories: cats, DropFirst: p.DropFirst}
		dummies := enc.Apply(col)
		for _, d := range dummies {
			enc.NewColumns = append(enc.NewColumns, d.Name())
		}

		next, err := out.Drop(name).Append(dummies...)
		if err != nil {
			return nil, Metadata{}, errors.Wrap(err, errors.ErrorTypeConflict, "one-hot column names collide").
				WithDetail("column", name)
		}
		out = next

		meta.NewColumns = append(meta.NewColumns, enc.NewColumns...)
		if p.DropFirst && len(cats) > 0 {
			meta.ColumnsDropped = append(meta.ColumnsDropped, name+"_"+cats[0])
		}
		meta.record(enc, EncodedColumn{Original: name, Method: OneHot, NewColumns: enc.NewColumns})
	}

	meta.TotalNewColumns = len(meta.NewColumns)
	meta.Change = transform.NewChange(t, out, meta.touched())
	return out, meta, nil
}

// EncodeOrdinal maps one column to integer codes following an explicit or
// derived category order. Values outside the order, including missing
// cells, become Unmapped. The column must exist.
func EncodeOrdinal(t *columnar.Table, p OrdinalParams) (*columnar.Table, Metadata, error) {
	col, ok := t.Column(p.Column)
	if !ok {
		return nil, Metadata{}, errors.InvalidColumn(p.Column, "not found in table")
	}

	order := p.Categories
	switch {
	case len(order) > 0:
		order = append([]string(nil), order...)
	case p.AutoOrder:
		order = categories(col)
	default:
		order = firstSeen(col)
	}

	enc := Encoder{Method: Ordinal, Column: p.Column, Categories: order, Mapping: indexOf(order)}
	out := t.Replace(enc.Apply(col)[0])

	meta := newMetadata(Ordinal)
	meta.record(enc, EncodedColumn{Original: p.Column, Method: Ordinal})
	meta.Change = transform.NewChange(t, out, meta.touched())
	return out, meta, nil
}

// EncodeTarget replaces each selected column with the mean of the numeric
// target column over the rows sharing its category. Missing and unseen
// categories receive the overall target mean. The target column must exist
// and be numeric; it is never encoded itself.
func EncodeTarget(t *columnar.Table, p TargetParams) (*columnar.Table, Metadata, error) {
	target, ok := t.Column(p.Target)
	if !ok {
		return nil, Metadata{}, errors.InvalidColumn(p.Target, "not found in table")
	}
	if !target.IsNumeric() {
		return nil, Metadata{}, errors.InvalidColumn(p.Target, "must be numeric for target encoding")
	}

	overall := numeric.Mean(target.NonNullFloats())
	out := t
	meta := newMetadata(Target)
	meta.TargetColumn = p.Target
	meta.Warning = LeakageWarning

	for _, name := range t.Existing(p.Columns) {
		if name == p.Target {
			continue
		}
		col, _ := t.Column(name)

		enc := Encoder{
			Method:       Target,
			Column:       name,
			TargetColumn: p.Target,
			TargetMeans:  groupMeans(col, target),
			OverallMean:  numeric.Finite(overall),
		}
		out = out.Replace(enc.Apply(col)[0])
		meta.record(enc, EncodedColumn{Original: name, Method: Target})
	}

	meta.Change = transform.NewChange(t, out, meta.touched())
	return out, meta, nil
}

func fitLabel(c *columnar.Column) Encoder {
	return Encoder{Method: Label, Column: c.Name(), Classes: categories(c)}
}

func groupMeans(col, target *columnar.Column) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i := 0; i < col.Len(); i++ {
		key, ok := col.String(i)
		if !ok {
			continue
		}
		y, ok := target.Float(i)
		if !ok {
			continue
		}
		sums[key] += y
		counts[key]++
	}

	out := make(map[string]float64, len(sums))
	for k, s := range sums {
		out[k] = s / float64(counts[k])
	}
	return out
}

func newMetadata(m Method) Metadata {
	return Metadata{
		Method:         m,
		ColumnsEncoded: []EncodedColumn{},
		Encoders:       make(map[string]Encoder),
	}
}

func (m *Metadata) record(enc Encoder, ec EncodedColumn) {
	m.Encoders[enc.Column] = enc
	m.ColumnsEncoded = append(m.ColumnsEncoded, ec)
}

func (m *Metadata) touched() []string {
	names := make([]string, len(m.ColumnsEncoded))
	for i, ec := range m.ColumnsEncoded {
		names[i] = ec.Original
	}
	return names
}
