package mplugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface{ Greet() string }

type hello struct{}

func (hello) Greet() string { return "hello" }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Metadata{Type: TypeDatasource, Kind: "VictoriaLogsDatasource", SupportedQueryTypes: []string{QueryTypeLog}}, nil))
	require.NoError(t, r.Register(Metadata{Type: TypeDatasource, Kind: "PrometheusDatasource", SupportedQueryTypes: []string{QueryTypeTimeSeries}}, nil))
	require.NoError(t, r.Register(Metadata{Type: TypeDatasource, Kind: "LokiDatasource", SupportedQueryTypes: []string{QueryTypeLog, QueryTypeTimeSeries}}, nil))
	require.NoError(t, r.Register(Metadata{Type: TypeLogQuery, Kind: "VictoriaLogsLogQuery"}, hello{}))

	assert.Error(t, r.Register(Metadata{Type: TypeLogQuery, Kind: "VictoriaLogsLogQuery"}, hello{}))
	assert.Error(t, r.Register(Metadata{Kind: "x"}, nil))

	assert.Len(t, r.List(), 4)
	assert.Len(t, r.List(TypeDatasource), 3)
	assert.Len(t, r.List(TypeVariable), 0)

	assert.Equal(t, []string{"VictoriaLogsDatasource", "LokiDatasource"}, r.KindsSupporting(TypeDatasource, QueryTypeLog))
	assert.Equal(t, []string{}, r.KindsSupporting(TypeDatasource, QueryTypeTrace))
	assert.True(t, r.Supports(TypeDatasource, "LokiDatasource", QueryTypeTimeSeries))
	assert.False(t, r.Supports(TypeDatasource, "PrometheusDatasource", QueryTypeLog))
	assert.False(t, r.Supports(TypeDatasource, "Missing", QueryTypeLog))

	g, ok := Implementation[greeter](r, TypeLogQuery, "VictoriaLogsLogQuery")
	require.True(t, ok)
	assert.Equal(t, "hello", g.Greet())

	_, ok = Implementation[greeter](r, TypeDatasource, "VictoriaLogsDatasource")
	assert.False(t, ok)
	_, ok = Implementation[greeter](r, TypeLogQuery, "Missing")
	assert.False(t, ok)

	assert.Panics(t, func() { r.MustRegister(Metadata{Type: TypeLogQuery, Kind: "VictoriaLogsLogQuery"}, nil) })
}
