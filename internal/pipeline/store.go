package pipeline

import (
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/json"
	"github.com/ajitpratap0/refinery/pkg/transform/encoding"
	"github.com/ajitpratap0/refinery/pkg/transform/scaling"
)

// Fitted is the serialized form of a session's fitted transforms.
type Fitted struct {
	Encoders map[string]encoding.Encoder `json:"encoders"`
	Scalers  map[string]scaling.Fitted   `json:"scalers"`
}

func (e *Engine) storeEncoders(key string, fitted map[string]encoding.Encoder) {
	if len(fitted) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.encoders[key]
	if !ok {
		m = make(map[string]encoding.Encoder, len(fitted))
		e.encoders[key] = m
	}
	for col, enc := range fitted {
		m[col] = enc.Clone()
	}
}

func (e *Engine) storeScalers(key string, fitted map[string]scaling.Fitted) {
	if len(fitted) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.scalers[key]
	if !ok {
		m = make(map[string]scaling.Fitted, len(fitted))
		e.scalers[key] = m
	}
	for col, f := range fitted {
		m[col] = f
	}
}

func (e *Engine) clearFitted(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.encoders, key)
	delete(e.scalers, key)
}

// Encoders returns a copy of the session's fitted encoders keyed by column.
func (e *Engine) Encoders(key string) (map[string]encoding.Encoder, error) {
	if !e.manager.Has(key) {
		return nil, errors.NotFound(key)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]encoding.Encoder, len(e.encoders[key]))
	for col, enc := range e.encoders[key] {
		out[col] = enc.Clone()
	}
	return out, nil
}

// Scalers returns a copy of the session's fitted scalers keyed by column.
func (e *Engine) Scalers(key string) (map[string]scaling.Fitted, error) {
	if !e.manager.Has(key) {
		return nil, errors.NotFound(key)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]scaling.Fitted, len(e.scalers[key]))
	for col, f := range e.scalers[key] {
		out[col] = f
	}
	return out, nil
}

// SerializeFitted renders the session's fitted encoders and scalers as JSON
// so they can be re-applied elsewhere.
func (e *Engine) SerializeFitted(key string) ([]byte, error) {
	encoders, err := e.Encoders(key)
	if err != nil {
		return nil, err
	}
	scalers, err := e.Scalers(key)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(Fitted{Encoders: encoders, Scalers: scalers}, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to serialize fitted transforms").
			WithDetail("session_key", key)
	}
	return data, nil
}
