package config

// ConnectorConfig identifies a source or destination instance.
type ConnectorConfig struct {
	// Name is the registered connector name (e.g. "csv", "sql", "xlsx")
	Name string `yaml:"name" json:"name"`
	// Type is "source" or "destination"
	Type string `yaml:"type" json:"type"`
}

// SourceConfig contains configuration for every source. Fields that do not
// apply to the named connector are ignored.
type SourceConfig struct {
	ConnectorConfig `yaml:",inline" json:",inline"`

	// DatasetName defaults to the file's base name or the connector name
	DatasetName string `yaml:"dataset_name" json:"dataset_name"`

	// CSV
	FilePath  string `yaml:"file_path" json:"file_path"`
	Delimiter string `yaml:"delimiter" json:"delimiter"`
	Comment   string `yaml:"comment" json:"comment"`
	// HasHeader is true unless explicitly disabled
	HasHeader  bool `yaml:"has_header" json:"has_header"`
	TrimSpaces bool `yaml:"trim_spaces" json:"trim_spaces"`

	// SQL
	// Driver is sqlite, pgx or mysql
	Driver string `yaml:"driver" json:"driver"`
	// DSN is the driver-specific connection string; use ${VAR} for secrets
	DSN   string `yaml:"dsn" json:"dsn"`
	Query string `yaml:"query" json:"query"`
}

// NewCSVSourceConfig returns CSV source defaults for path.
func NewCSVSourceConfig(path string) *SourceConfig {
	return &SourceConfig{
		ConnectorConfig: ConnectorConfig{Name: "csv", Type: "source"},
		FilePath:        path,
		Delimiter:       ",",
		HasHeader:       true,
		TrimSpaces:      true,
	}
}

// NewSQLSourceConfig returns SQL source defaults.
func NewSQLSourceConfig(driver, dsn, query string) *SourceConfig {
	return &SourceConfig{
		ConnectorConfig: ConnectorConfig{Name: "sql", Type: "source"},
		Driver:          driver,
		DSN:             dsn,
		Query:           query,
	}
}

// DestinationConfig contains configuration shared by every destination.
type DestinationConfig struct {
	ConnectorConfig `yaml:",inline" json:",inline"`

	OutputPath string `yaml:"output_path" json:"output_path"`
	// Compression wraps the output stream (none, gzip, snappy, lz4, zstd, s2, deflate)
	Compression      string `yaml:"compression" json:"compression"`
	CompressionLevel string `yaml:"compression_level" json:"compression_level"`
	// Delimiter is used by the CSV destination
	Delimiter string `yaml:"delimiter" json:"delimiter"`
	// Pretty indents JSON output
	Pretty bool `yaml:"pretty" json:"pretty"`
	// SheetName is used by the XLSX destination
	SheetName string `yaml:"sheet_name" json:"sheet_name"`
}

// NewDestinationConfig returns destination defaults for format and path.
func NewDestinationConfig(format, path string) *DestinationConfig {
	return &DestinationConfig{
		ConnectorConfig:  ConnectorConfig{Name: format, Type: "destination"},
		OutputPath:       path,
		Compression:      "none",
		CompressionLevel: "default",
		Delimiter:        ",",
		SheetName:        "Data",
	}
}
