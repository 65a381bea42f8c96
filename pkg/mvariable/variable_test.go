package mvariable

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mds"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mplugin"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mtime"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvar"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvlogs"
)

type fakeClient struct {
	valueCalls []mvlogs.FieldValuesParams
	nameCalls  []mvlogs.FieldNamesParams
	items      []mvlogs.FieldItem
	err        error
}

func (c *fakeClient) StreamQueryRange(context.Context, mvlogs.StreamQueryRangeParams) (mvlogs.StreamQueryRangeResponse, error) {
	panic("not used")
}

func (c *fakeClient) FieldNames(_ context.Context, p mvlogs.FieldNamesParams) (*mvlogs.FieldNamesResponse, error) {
	c.nameCalls = append(c.nameCalls, p)
	if c.err != nil {
		return nil, c.err
	}
	return &mvlogs.FieldNamesResponse{Values: c.items}, nil
}

func (c *fakeClient) FieldValues(_ context.Context, p mvlogs.FieldValuesParams) (*mvlogs.FieldValuesResponse, error) {
	c.valueCalls = append(c.valueCalls, p)
	if c.err != nil {
		return nil, c.err
	}
	return &mvlogs.FieldValuesResponse{Values: c.items}, nil
}

type fakeStore struct {
	client    *fakeClient
	groups    []mds.SelectItemGroup
	selectors []mds.Selector
	err       error
}

func (s *fakeStore) GetClient(_ context.Context, sel mds.Selector) (mvlogs.Client, error) {
	s.selectors = append(s.selectors, sel)
	if s.err != nil {
		return nil, s.err
	}
	return s.client, nil
}

func (s *fakeStore) ListSelectItems(_ context.Context, kind string) ([]mds.SelectItemGroup, error) {
	return s.groups, nil
}

var testRange = mtime.AbsoluteRange{
	Start: time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC),
}

var testGroups = []mds.SelectItemGroup{{
	Items: []mds.SelectItem{
		{Name: "Default (prod)", Selector: mds.Selector{Kind: mvlogs.DatasourceKind}},
		{Name: "prod", Selector: mds.Selector{Kind: mvlogs.DatasourceKind, Name: "prod"}},
		{Name: "dev", Selector: mds.Selector{Kind: mvlogs.DatasourceKind, Name: "dev"}},
	},
}}

func TestFieldItemsToVariableOptions(t *testing.T) {
	assert.Equal(t, []mvar.Option{}, FieldItemsToVariableOptions(nil))
	assert.Equal(t, []mvar.Option{
		{Value: "api", Label: "api"},
		{Value: "web", Label: "web"},
	}, FieldItemsToVariableOptions([]mvlogs.FieldItem{{Value: "api", Hits: 3}, {Value: "web", Hits: 1}}))
}

func TestFieldValues_GetVariableOptions(t *testing.T) {
	client := &fakeClient{items: []mvlogs.FieldItem{{Value: "api", Hits: 10}, {Value: "web", Hits: 2}}}
	store := &fakeStore{client: client}

	options, err := FieldValuesVariable{}.GetVariableOptions(context.Background(), FieldValuesSpec{
		Field: "${field}",
		Query: "env:$env",
	}, OptionsContext{
		TimeRange:   testRange,
		Variables:   mvar.StateMap{"env": mvar.Single("prod"), "field": mvar.Single("app")},
		Datasources: store,
	})
	require.NoError(t, err)

	assert.Equal(t, []mvar.Option{{Value: "api", Label: "api"}, {Value: "web", Label: "web"}}, options)
	assert.Equal(t, []mds.Selector{DefaultDatasource}, store.selectors)
	require.Len(t, client.valueCalls, 1)
	assert.Equal(t, mvlogs.FieldValuesParams{
		Field: "app",
		Query: "env:prod",
		Start: "2024-05-01T03:00:00.000Z",
		End:   "2024-05-01T04:00:00.000Z",
	}, client.valueCalls[0])
}

func TestFieldValues_EmptyQuerySkipsBackend(t *testing.T) {
	client := &fakeClient{}
	store := &fakeStore{client: client}

	options, err := FieldValuesVariable{}.GetVariableOptions(context.Background(), FieldValuesSpec{Field: "app", Query: "$missing_empty"}, OptionsContext{
		TimeRange:   testRange,
		Variables:   mvar.StateMap{"missing_empty": mvar.Single("")},
		Datasources: store,
	})
	require.NoError(t, err)
	assert.NotNil(t, options)
	assert.Empty(t, options)
	assert.Empty(t, client.valueCalls)
	// 数据源仍然会被解析
	assert.Len(t, store.selectors, 1)
}

func TestFieldValues_DatasourceResolution(t *testing.T) {
	cases := []struct {
		name       string
		datasource *mds.SelectValue
		variables  mvar.StateMap
		want       mds.Selector
	}{
		{
			name: "unset",
			want: DefaultDatasource,
		},
		{
			name:       "selector",
			datasource: mds.SelectorValue(mds.Selector{Kind: mvlogs.DatasourceKind, Name: "dev"}),
			want:       mds.Selector{Kind: mvlogs.DatasourceKind, Name: "dev"},
		},
		{
			name:       "variable",
			datasource: mds.VariableValue("$ds"),
			variables:  mvar.StateMap{"ds": mvar.Single("dev")},
			want:       mds.Selector{Kind: mvlogs.DatasourceKind, Name: "dev"},
		},
		{
			name:       "variable with unknown name",
			datasource: mds.VariableValue("$ds"),
			variables:  mvar.StateMap{"ds": mvar.Single("staging")},
			want:       DefaultDatasource,
		},
		{
			name:       "undefined variable",
			datasource: mds.VariableValue("$ds"),
			want:       DefaultDatasource,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{client: &fakeClient{}, groups: testGroups}
			_, err := FieldValuesVariable{}.GetVariableOptions(context.Background(), FieldValuesSpec{Field: "app", Query: "*", Datasource: tc.datasource}, OptionsContext{
				TimeRange:   testRange,
				Variables:   tc.variables,
				Datasources: store,
			})
			require.NoError(t, err)
			assert.Equal(t, []mds.Selector{tc.want}, store.selectors)
		})
	}
}

func TestFieldValues_ErrorsPropagateUnchanged(t *testing.T) {
	backend := &mvlogs.StatusError{StatusCode: 400, Body: "bad query"}
	store := &fakeStore{client: &fakeClient{err: backend}}
	_, err := FieldValuesVariable{}.GetVariableOptions(context.Background(), FieldValuesSpec{Field: "app", Query: "*"}, OptionsContext{TimeRange: testRange, Datasources: store})
	assert.Same(t, backend, err)

	missing := errors.New("no datasource")
	store = &fakeStore{err: missing}
	_, err = FieldValuesVariable{}.GetVariableOptions(context.Background(), FieldValuesSpec{Field: "app", Query: "*"}, OptionsContext{TimeRange: testRange, Datasources: store})
	assert.Same(t, missing, err)
}

func TestFieldValues_DependsOn(t *testing.T) {
	v := FieldValuesVariable{}

	assert.Equal(t, DependsOn{Variables: []string{}}, v.DependsOn(FieldValuesSpec{}))

	got := v.DependsOn(FieldValuesSpec{
		Field:      "${field}",
		Query:      "env:$env AND app:${app:regex} AND env:$env",
		Datasource: mds.VariableValue("$ds"),
	})
	assert.Equal(t, []string{"env", "app", "field", "ds"}, got.Variables)

	// 不同字符串之间不去重
	got = v.DependsOn(FieldValuesSpec{Field: "$env", Query: "$env"})
	assert.Equal(t, []string{"env", "env"}, got.Variables)

	got = v.DependsOn(FieldValuesSpec{
		Query:      "$env",
		Datasource: mds.SelectorValue(mds.Selector{Kind: mvlogs.DatasourceKind, Name: "$notavar"}),
	})
	assert.Equal(t, []string{"env"}, got.Variables)
}

func TestFieldValues_CreateInitialOptions(t *testing.T) {
	assert.Equal(t, FieldValuesSpec{Field: "", Query: ""}, FieldValuesVariable{}.CreateInitialOptions())

	raw, err := FieldValuesVariable{}.InitialOptionsRaw()
	require.NoError(t, err)
	assert.JSONEq(t, `{"field":"","query":""}`, string(raw))
}

func TestFieldValues_Raw(t *testing.T) {
	client := &fakeClient{items: []mvlogs.FieldItem{{Value: "x"}}}
	store := &fakeStore{client: client, groups: testGroups}
	vctx := OptionsContext{
		TimeRange:   testRange,
		Variables:   mvar.StateMap{"ds": mvar.Single("prod")},
		Datasources: store,
	}

	options, err := FieldValuesVariable{}.GetVariableOptionsRaw(context.Background(), []byte(`{"field":"app","query":"*","datasource":"$ds"}`), vctx)
	require.NoError(t, err)
	assert.Equal(t, []mvar.Option{{Value: "x", Label: "x"}}, options)
	assert.Equal(t, "prod", store.selectors[0].Name)

	deps, err := FieldValuesVariable{}.DependsOnRaw([]byte(`{"field":"$f","query":"$q","datasource":"$ds"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"q", "f", "ds"}, deps.Variables)

	_, err = FieldValuesVariable{}.DependsOnRaw([]byte(`{`))
	assert.Error(t, err)
}

func TestFieldNames_GetVariableOptions(t *testing.T) {
	client := &fakeClient{items: []mvlogs.FieldItem{{Value: "_msg"}, {Value: "app"}}}
	store := &fakeStore{client: client}

	options, err := FieldNamesVariable{}.GetVariableOptions(context.Background(), FieldNamesSpec{Query: "app:$app"}, OptionsContext{
		TimeRange:   testRange,
		Variables:   mvar.StateMap{"app": mvar.Multi("api", "web")},
		Datasources: store,
	})
	require.NoError(t, err)
	assert.Equal(t, []mvar.Option{{Value: "_msg", Label: "_msg"}, {Value: "app", Label: "app"}}, options)
	require.Len(t, client.nameCalls, 1)
	assert.Equal(t, "app:(api|web)", client.nameCalls[0].Query)

	options, err = FieldNamesVariable{}.GetVariableOptions(context.Background(), FieldNamesSpec{}, OptionsContext{TimeRange: testRange, Datasources: store})
	require.NoError(t, err)
	assert.Empty(t, options)
	assert.Len(t, client.nameCalls, 1)
}

func TestFieldNames_DependsOn(t *testing.T) {
	got := FieldNamesVariable{}.DependsOn(FieldNamesSpec{Query: "$a $b", Datasource: mds.VariableValue("${ds}")})
	assert.Equal(t, []string{"a", "b", "ds"}, got.Variables)
}

func TestRegister(t *testing.T) {
	r := mplugin.NewRegistry()
	require.NoError(t, Register(r))

	kinds := []string{}
	for _, meta := range r.List(mplugin.TypeVariable) {
		kinds = append(kinds, meta.Kind)
	}
	assert.Equal(t, []string{FieldValuesKind, FieldNamesKind}, kinds)

	p, ok := mplugin.Implementation[VariablePlugin](r, mplugin.TypeVariable, FieldNamesKind)
	require.True(t, ok)
	raw, err := p.InitialOptionsRaw()
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":""}`, string(raw))
}
