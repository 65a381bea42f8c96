package mvlogs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mds"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mplugin"
)

func TestDatasourceFactory(t *testing.T) {
	var user string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, _ = r.BasicAuth()
		w.Write([]byte(`{"values":[{"value":"host"}]}`))
	}))
	defer srv.Close()

	store := mds.NewMemStore(NewDatasourceFactory(WithClientLimit(10)), mds.Datasource{
		Kind: DatasourceKind,
		Name: "prod",
		Spec: map[string]any{"directUrl": srv.URL, "username": "alice", "password": "secret"},
	})

	c, err := store.GetClient(context.Background(), mds.Selector{Kind: DatasourceKind})
	require.NoError(t, err)
	resp, err := c.FieldNames(context.Background(), FieldNamesParams{Query: "*"})
	require.NoError(t, err)
	assert.Equal(t, "host", resp.Values[0].Value)
	assert.Equal(t, "alice", user)
	assert.Equal(t, 10, c.(*HTTPClient).Conf.Limit)
}

func TestDatasourceFactory_BadSpec(t *testing.T) {
	store := mds.NewMemStore(NewDatasourceFactory(), mds.Datasource{
		Kind: DatasourceKind,
		Name: "bad",
		Spec: map[string]any{"headers": "not-a-map"},
	})
	_, err := store.GetClient(context.Background(), mds.Selector{Kind: DatasourceKind, Name: "bad"})
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	r := mplugin.NewRegistry()
	require.NoError(t, Register(r))
	assert.True(t, r.Supports(mplugin.TypeDatasource, DatasourceKind, mplugin.QueryTypeLog))
	assert.Error(t, Register(r))
}
