package pipeline

import (
	"github.com/ajitpratap0/refinery/internal/dataset"
	"github.com/ajitpratap0/refinery/pkg/errors"
)

// Operation names one engine call. It is the op of a recipe step and the
// label of the operation metrics.
type Operation int

const (
	OpAnalyzeMissingValues Operation = iota
	OpHandleMissingValues
	OpAnalyzeDuplicates
	OpRemoveDuplicates
	OpDetectConstantColumns
	OpRemoveConstantColumns
	OpLabelEncode
	OpOneHotEncode
	OpOrdinalEncode
	OpTargetEncode
	OpScale
	OpDetectOutliers
	OpHandleOutliers
	OpClassDistribution
	OpSample
	OpUndo
	OpRedo
	OpReset
)

var operationNames = map[Operation]string{
	OpAnalyzeMissingValues:  "analyze_missing_values",
	OpHandleMissingValues:   "handle_missing_values",
	OpAnalyzeDuplicates:     "analyze_duplicates",
	OpRemoveDuplicates:      "remove_duplicates",
	OpDetectConstantColumns: "detect_constant_columns",
	OpRemoveConstantColumns: "remove_constant_columns",
	OpLabelEncode:           "label_encode",
	OpOneHotEncode:          "one_hot_encode",
	OpOrdinalEncode:         "ordinal_encode",
	OpTargetEncode:          "target_encode",
	OpScale:                 "scale",
	OpDetectOutliers:        "detect_outliers",
	OpHandleOutliers:        "handle_outliers",
	OpClassDistribution:     "class_distribution",
	OpSample:                "sample",
	OpUndo:                  "undo",
	OpRedo:                  "redo",
	OpReset:                 "reset",
}

func (o Operation) String() string {
	if n, ok := operationNames[o]; ok {
		return n
	}
	return "unknown"
}

// MarshalText renders the operation by name.
func (o Operation) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText parses an operation name.
func (o *Operation) UnmarshalText(b []byte) error {
	parsed, err := ParseOperation(string(b))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// OperationNames returns every operation name in declaration order.
func OperationNames() []string {
	names := make([]string, 0, len(operationNames))
	for o := OpAnalyzeMissingValues; o <= OpReset; o++ {
		names = append(names, o.String())
	}
	return names
}

// ParseOperation maps an operation name to an Operation.
func ParseOperation(name string) (Operation, error) {
	for o, n := range operationNames {
		if n == name {
			return o, nil
		}
	}
	return 0, errors.InvalidMethod("operation", name)
}

// Mutates reports whether the operation changes the current table.
func (o Operation) Mutates() bool {
	switch o {
	case OpAnalyzeMissingValues, OpAnalyzeDuplicates, OpDetectConstantColumns,
		OpDetectOutliers, OpClassDistribution:
		return false
	}
	return true
}

// action is the action-log kind recorded for a committing operation.
func (o Operation) action() dataset.Action {
	switch o {
	case OpHandleMissingValues:
		return dataset.ActionMissingValues
	case OpRemoveDuplicates:
		return dataset.ActionDuplicates
	case OpRemoveConstantColumns:
		return dataset.ActionConstantColumns
	case OpLabelEncode, OpOneHotEncode, OpOrdinalEncode, OpTargetEncode:
		return dataset.ActionEncoding
	case OpScale:
		return dataset.ActionScaling
	case OpHandleOutliers:
		return dataset.ActionOutliers
	case OpSample:
		return dataset.ActionSampling
	default:
		return dataset.ActionCommit
	}
}
