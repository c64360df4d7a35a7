package core

import (
	"context"
	"time"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/config"
)

// ConnectorType represents the type of connector
type ConnectorType string

const (
	ConnectorTypeSource      ConnectorType = "source"
	ConnectorTypeDestination ConnectorType = "destination"
)

// Schema represents the data schema
type Schema struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Field represents a field in the schema
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Nullable bool      `json:"nullable"`
}

// FieldType represents the data type of a field
type FieldType string

const (
	FieldTypeNumeric     FieldType = "numeric"
	FieldTypeCategorical FieldType = "categorical"
)

// SchemaOf describes the columns of t.
func SchemaOf(name string, t *columnar.Table) *Schema {
	s := &Schema{Name: name, Fields: make([]Field, 0, t.NumCols())}
	for _, c := range t.Columns() {
		typ := FieldTypeCategorical
		if c.IsNumeric() {
			typ = FieldTypeNumeric
		}
		s.Fields = append(s.Fields, Field{Name: c.Name(), Type: typ, Nullable: c.NullCount() > 0})
	}
	return s
}

// Dataset is what a source produces: a named table and its schema.
type Dataset struct {
	Name   string
	Table  *columnar.Table
	Schema *Schema
}

// HistoryEntry is one row of a session's action log as exported.
type HistoryEntry struct {
	Operation   string    `json:"operation"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Export is what a destination consumes. History is optional; destinations
// that cannot represent it ignore it.
type Export struct {
	Name    string
	Table   *columnar.Table
	History []HistoryEntry
}

// Source is the interface that all source connectors must implement
type Source interface {
	Name() string
	// Read loads the whole dataset. It honours ctx cancellation between rows.
	Read(ctx context.Context) (*Dataset, error)
	Close(ctx context.Context) error
}

// Destination is the interface that all destination connectors must implement
type Destination interface {
	Name() string
	Write(ctx context.Context, export *Export) error
	Close(ctx context.Context) error
}

// SourceFactory creates a configured source.
type SourceFactory func(cfg *config.SourceConfig) (Source, error)

// DestinationFactory creates a configured destination.
type DestinationFactory func(cfg *config.DestinationConfig) (Destination, error)
