// Package sql loads the result of a query into a table through
// database/sql. Three drivers are linked in: modernc.org/sqlite ("sqlite"),
// pgx ("pgx", alias "postgres") and go-sql-driver ("mysql").
package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/connector/base"
	"github.com/ajitpratap0/refinery/pkg/connector/core"
	"github.com/ajitpratap0/refinery/pkg/connector/registry"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/logger"
)

// drivers maps accepted driver names to database/sql driver names.
var drivers = map[string]string{
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
	"pgx":        "pgx",
	"postgres":   "pgx",
	"postgresql": "pgx",
	"mysql":      "mysql",
}

// numericTypes are database type names whose values load as numbers even
// when the driver hands them over as text.
var numericTypes = map[string]bool{
	"INTEGER": true, "INT": true, "INT2": true, "INT4": true, "INT8": true,
	"SMALLINT": true, "MEDIUMINT": true, "BIGINT": true, "TINYINT": true,
	"REAL": true, "FLOAT": true, "FLOAT4": true, "FLOAT8": true, "DOUBLE": true,
	"NUMERIC": true, "DECIMAL": true,
	"UNSIGNED INT": true, "UNSIGNED BIGINT": true, "UNSIGNED SMALLINT": true, "UNSIGNED TINYINT": true,
}

func init() {
	_ = registry.RegisterSource("sql", NewSQLSource)
	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:         "sql",
		Type:         string(core.ConnectorTypeSource),
		Description:  "Query result from SQLite, PostgreSQL or MySQL",
		Capabilities: []string{"sqlite", "postgres", "mysql"},
	})
}

// SQLSource runs one query and loads every row.
type SQLSource struct {
	cfg    *config.SourceConfig
	driver string
	db     *sql.DB
	ownDB  bool
	retry  *base.RetryPolicy
	logger *zap.Logger
}

// NewSQLSource validates cfg and creates a source. The connection is opened
// by Read.
func NewSQLSource(cfg *config.SourceConfig) (core.Source, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "sql source requires a configuration")
	}
	driver, ok := drivers[strings.ToLower(cfg.Driver)]
	if !ok {
		return nil, errors.InvalidMethod("driver", cfg.Driver)
	}
	if cfg.DSN == "" || cfg.Query == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "sql source requires dsn and query")
	}

	log := logger.Get().With(zap.String("component", "sql_source"), zap.String("driver", driver))
	target, err := describeDSN(driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid dsn").WithDetail("driver", driver)
	}
	log.Debug("sql source configured", zap.String("target", target))

	return &SQLSource{cfg: cfg, driver: driver, ownDB: true, retry: base.DefaultRetryPolicy(), logger: log}, nil
}

// NewDBSource creates a source over an open database. Close leaves db open.
func NewDBSource(db *sql.DB, query, datasetName string, log *zap.Logger) *SQLSource {
	cfg := config.NewSQLSourceConfig("", "", query)
	cfg.DatasetName = datasetName
	return &SQLSource{
		cfg:    cfg,
		db:     db,
		logger: logger.OrDefault(log).With(zap.String("component", "sql_source")),
	}
}

// describeDSN parses a network DSN and returns host/database without
// credentials, for logging.
func describeDSN(driver, dsn string) (string, error) {
	switch driver {
	case "mysql":
		c, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", err
		}
		return c.Addr + "/" + c.DBName, nil
	case "pgx":
		c, err := pgx.ParseConfig(dsn)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Database), nil
	default:
		return dsn, nil
	}
}

// Name returns the connector name
func (s *SQLSource) Name() string { return "sql" }

// Read runs the query and builds the table.
func (s *SQLSource) Read(ctx context.Context) (*core.Dataset, error) {
	start := time.Now()
	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.cfg.Query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to execute query")
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to get columns")
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to get column types")
	}

	values := make([]interface{}, len(names))
	valuePtrs := make([]interface{}, len(names))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	cells := make([][]interface{}, len(names))
	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to scan row")
		}
		for i, v := range values {
			// Drivers may reuse byte slices between rows.
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			cells[i] = append(cells[i], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "error reading rows")
	}

	cols := make([]*columnar.Column, len(names))
	for i, name := range names {
		cols[i] = buildColumn(name, strings.ToUpper(types[i].DatabaseTypeName()), cells[i])
	}
	table, err := columnar.New(cols...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid query result")
	}

	name := s.cfg.DatasetName
	if name == "" {
		name = "query"
	}
	s.logger.Info("SQL source read",
		zap.String("dataset", name),
		zap.Int("rows", table.NumRows()),
		zap.Int("columns", table.NumCols()),
		zap.Duration("duration", time.Since(start)))

	return &core.Dataset{Name: name, Table: table, Schema: core.SchemaOf(name, table)}, nil
}

func (s *SQLSource) connect(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open(s.driver, s.cfg.DSN)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to open database").WithDetail("driver", s.driver)
	}
	attempt := 0
	err = s.retry.Execute(ctx, func() error {
		attempt++
		if err := db.PingContext(ctx); err != nil {
			s.logger.Warn("database ping failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}, nil)
	if err != nil {
		db.Close()
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to ping database").
			WithDetail("driver", s.driver).
			WithDetail("attempts", attempt)
	}
	s.db = db
	return nil
}

// buildColumn decides the kind of a result column. It is numeric when the
// database type is numeric or every present value is a Go number, and every
// present value converts to float64. Otherwise it is categorical. NULL is
// missing in both kinds.
func buildColumn(name, dbType string, cells []interface{}) *columnar.Column {
	numeric := numericTypes[dbType] || allNumbers(cells)
	if numeric {
		values := make([]float64, len(cells))
		valid := make([]bool, len(cells))
		for i, v := range cells {
			if v == nil {
				continue
			}
			f, ok := toFloat(v)
			if !ok {
				numeric = false
				break
			}
			values[i], valid[i] = f, true
		}
		if numeric {
			return columnar.NewNumericColumn(name, values, valid)
		}
	}

	values := make([]string, len(cells))
	valid := make([]bool, len(cells))
	for i, v := range cells {
		if v == nil {
			continue
		}
		values[i], valid[i] = toString(v), true
	}
	return columnar.NewCategoricalColumn(name, values, valid)
}

func allNumbers(cells []interface{}) bool {
	for _, v := range cells {
		switch v.(type) {
		case nil, int64, int32, int, float64, float32, bool:
		default:
			return false
		}
	}
	return true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// Close closes the connection opened by Read.
func (s *SQLSource) Close(_ context.Context) error {
	if s.db == nil || !s.ownDB {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to close database")
	}
	return nil
}
