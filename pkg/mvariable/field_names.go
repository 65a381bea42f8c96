package mvariable

import (
	"context"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mds"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvar"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvlogs"
)

type FieldNamesSpec struct {
	Query      string           `json:"query" yaml:"query"`
	Datasource *mds.SelectValue `json:"datasource,omitempty" yaml:"datasource,omitempty"`
}

// FieldNamesVariable 以匹配日志中出现的字段名作为可选项的变量
type FieldNamesVariable struct{}

func (FieldNamesVariable) GetVariableOptions(ctx context.Context, spec FieldNamesSpec, vctx OptionsContext) ([]mvar.Option, error) {
	sel, err := resolveDatasource(ctx, spec.Datasource, vctx)
	if err != nil {
		return nil, err
	}
	client, err := vctx.Datasources.GetClient(ctx, sel)
	if err != nil {
		return nil, err
	}

	query := mvar.Replace(spec.Query, vctx.Variables)
	if query == "" {
		return []mvar.Option{}, nil
	}

	start, end := vctx.TimeRange.ISO()
	resp, err := client.FieldNames(ctx, mvlogs.FieldNamesParams{
		Query: query,
		Start: start,
		End:   end,
	})
	if err != nil {
		return nil, err
	}
	return FieldItemsToVariableOptions(resp.Values), nil
}

func (FieldNamesVariable) DependsOn(spec FieldNamesSpec) DependsOn {
	variables := []string{}
	variables = append(variables, mvar.Parse(spec.Query)...)
	variables = append(variables, datasourceDependencies(spec.Datasource)...)
	return DependsOn{Variables: variables}
}

func (FieldNamesVariable) CreateInitialOptions() FieldNamesSpec {
	return FieldNamesSpec{Query: ""}
}

func (v FieldNamesVariable) GetVariableOptionsRaw(ctx context.Context, raw []byte, vctx OptionsContext) ([]mvar.Option, error) {
	var spec FieldNamesSpec
	if err := decodeSpec(FieldNamesKind, raw, &spec); err != nil {
		return nil, err
	}
	return v.GetVariableOptions(ctx, spec, vctx)
}

func (v FieldNamesVariable) DependsOnRaw(raw []byte) (DependsOn, error) {
	var spec FieldNamesSpec
	if err := decodeSpec(FieldNamesKind, raw, &spec); err != nil {
		return DependsOn{}, err
	}
	return v.DependsOn(spec), nil
}

func (v FieldNamesVariable) InitialOptionsRaw() ([]byte, error) {
	return json.Marshal(v.CreateInitialOptions())
}
