package dataset

import "github.com/ajitpratap0/refinery/pkg/errors"

// Action is the kind of change an action-log entry records.
type Action int

const (
	// ActionCommit is a table committed directly rather than by a transform
	ActionCommit Action = iota
	ActionMissingValues
	ActionDuplicates
	ActionConstantColumns
	ActionEncoding
	ActionScaling
	ActionOutliers
	ActionSampling
)

var actionNames = map[Action]string{
	ActionCommit:          "commit",
	ActionMissingValues:   "missing_values",
	ActionDuplicates:      "duplicates",
	ActionConstantColumns: "constant_columns",
	ActionEncoding:        "encoding",
	ActionScaling:         "scaling",
	ActionOutliers:        "outliers",
	ActionSampling:        "sampling",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "unknown"
}

// MarshalText renders the action by name.
func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText parses an action name.
func (a *Action) UnmarshalText(b []byte) error {
	for k, n := range actionNames {
		if n == string(b) {
			*a = k
			return nil
		}
	}
	return errors.InvalidMethod("operation", string(b))
}
