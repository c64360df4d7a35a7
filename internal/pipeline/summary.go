package pipeline

import (
	"time"

	"github.com/ajitpratap0/refinery/internal/dataset"
	"github.com/ajitpratap0/refinery/pkg/performance"
	"github.com/ajitpratap0/refinery/pkg/transform/encoding"
	"github.com/ajitpratap0/refinery/pkg/transform/scaling"
)

// ActionSummary aggregates a session's action log.
type ActionSummary struct {
	TotalActions int            `json:"total_actions"`
	ByOperation  map[string]int `json:"action_types"`
	FirstAction  *time.Time     `json:"first_action,omitempty"`
	LastAction   *time.Time     `json:"last_action,omitempty"`
}

// Summary is the end-of-preprocessing report of a session.
type Summary struct {
	Stats                 dataset.Stats               `json:"dataset_stats"`
	History               []dataset.Entry             `json:"history"`
	Actions               ActionSummary               `json:"action_summary"`
	Encoders              map[string]encoding.Encoder `json:"encoders"`
	Scalers               map[string]scaling.Fitted   `json:"scalers"`
	Resources             performance.ResourceUsage   `json:"resources"`
	PreprocessingComplete bool                        `json:"preprocessing_complete"`
}

// ActionSummary counts the session's reachable actions per kind.
func (e *Engine) ActionSummary(key string) (ActionSummary, error) {
	history, err := e.manager.History(key)
	if err != nil {
		return ActionSummary{}, err
	}
	return summarize(history), nil
}

func summarize(history []dataset.Entry) ActionSummary {
	s := ActionSummary{TotalActions: len(history), ByOperation: make(map[string]int)}
	for _, entry := range history {
		s.ByOperation[entry.Action.String()]++
	}
	if len(history) > 0 {
		first, last := history[0].Timestamp, history[len(history)-1].Timestamp
		s.FirstAction, s.LastAction = &first, &last
	}
	return s
}

// Summary reports the session's state, history, fitted transforms and the
// process resource usage.
func (e *Engine) Summary(key string) (Summary, error) {
	stats, err := e.manager.Stats(key)
	if err != nil {
		return Summary{}, err
	}
	history, err := e.manager.History(key)
	if err != nil {
		return Summary{}, err
	}
	encoders, err := e.Encoders(key)
	if err != nil {
		return Summary{}, err
	}
	scalers, err := e.Scalers(key)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Stats:                 stats,
		History:               history,
		Actions:               summarize(history),
		Encoders:              encoders,
		Scalers:               scalers,
		Resources:             performance.Snapshot(),
		PreprocessingComplete: stats.HistoryLength > 0,
	}, nil
}
