package registry

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/connector/core"
	"github.com/ajitpratap0/refinery/pkg/errors"
)

func nopSource(*config.SourceConfig) (core.Source, error) {
	return nil, nil
}

func nopDestination(*config.DestinationConfig) (core.Destination, error) {
	return nil, nil
}

func TestRegisterAndCreate(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))

	require.NoError(t, r.RegisterSource("csv", nopSource))
	require.NoError(t, r.RegisterSource("sql", nopSource))
	require.NoError(t, r.RegisterDestination("json", nopDestination))

	assert.Equal(t, []string{"csv", "sql"}, r.ListSources())
	assert.Equal(t, []string{"json"}, r.ListDestinations())
	assert.True(t, r.HasSource("csv"))
	assert.False(t, r.HasDestination("csv"))

	_, err := r.CreateSource("csv", config.NewCSVSourceConfig("x.csv"))
	assert.NoError(t, err)
	_, err = r.CreateDestination("json", &config.DestinationConfig{})
	assert.NoError(t, err)

	err = r.RegisterSource("csv", nopSource)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestCreateUnknown(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	require.NoError(t, r.RegisterSource("csv", nopSource))

	_, err := r.CreateSource("parquet", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "parquet")

	_, err = r.CreateDestination("parquet", nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestCreateWrapsFactoryError(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	cause := stderrors.New("missing file_path")
	require.NoError(t, r.RegisterSource("csv", func(*config.SourceConfig) (core.Source, error) {
		return nil, cause
	}))

	_, err := r.CreateSource("csv", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.ErrorIs(t, err, cause)
}

func TestListInfoOrder(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	require.NoError(t, r.RegisterInfo(&ConnectorInfo{Name: "xlsx", Type: "destination"}))
	require.NoError(t, r.RegisterInfo(&ConnectorInfo{Name: "sql", Type: "source"}))
	require.NoError(t, r.RegisterInfo(&ConnectorInfo{Name: "csv", Type: "destination"}))
	require.NoError(t, r.RegisterInfo(&ConnectorInfo{Name: "csv", Type: "source"}))
	assert.Error(t, r.RegisterInfo(&ConnectorInfo{Name: "csv", Type: "source"}))

	var got []string
	for _, info := range r.ListInfo() {
		got = append(got, info.Type+"/"+info.Name)
	}
	assert.Equal(t, []string{"source/csv", "source/sql", "destination/csv", "destination/xlsx"}, got)

	r.Clear()
	assert.Empty(t, r.ListInfo())
	assert.Empty(t, r.ListSources())
}
