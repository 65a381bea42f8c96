package mvariable

import (
	"context"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mds"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvar"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvlogs"
)

// FieldValuesSpec 字段取值变量配置, 三个字段都可以引用其他变量
type FieldValuesSpec struct {
	Field      string           `json:"field" yaml:"field"`
	Query      string           `json:"query" yaml:"query"`
	Datasource *mds.SelectValue `json:"datasource,omitempty" yaml:"datasource,omitempty"`
}

// FieldValuesVariable 以字段取值作为可选项的变量
type FieldValuesVariable struct{}

// GetVariableOptions query 替换变量后为空时返回空列表, 不访问后端
func (FieldValuesVariable) GetVariableOptions(ctx context.Context, spec FieldValuesSpec, vctx OptionsContext) ([]mvar.Option, error) {
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
	resp, err := client.FieldValues(ctx, mvlogs.FieldValuesParams{
		Field: mvar.Replace(spec.Field, vctx.Variables),
		Query: query,
		Start: start,
		End:   end,
	})
	if err != nil {
		return nil, err
	}
	return FieldItemsToVariableOptions(resp.Values), nil
}

// DependsOn 依次为 query, field, datasource 中引用的变量
func (FieldValuesVariable) DependsOn(spec FieldValuesSpec) DependsOn {
	variables := []string{}
	variables = append(variables, mvar.Parse(spec.Query)...)
	variables = append(variables, mvar.Parse(spec.Field)...)
	variables = append(variables, datasourceDependencies(spec.Datasource)...)
	return DependsOn{Variables: variables}
}

func (FieldValuesVariable) CreateInitialOptions() FieldValuesSpec {
	return FieldValuesSpec{Field: "", Query: ""}
}

func (v FieldValuesVariable) GetVariableOptionsRaw(ctx context.Context, raw []byte, vctx OptionsContext) ([]mvar.Option, error) {
	var spec FieldValuesSpec
	if err := decodeSpec(FieldValuesKind, raw, &spec); err != nil {
		return nil, err
	}
	return v.GetVariableOptions(ctx, spec, vctx)
}

func (v FieldValuesVariable) DependsOnRaw(raw []byte) (DependsOn, error) {
	var spec FieldValuesSpec
	if err := decodeSpec(FieldValuesKind, raw, &spec); err != nil {
		return DependsOn{}, err
	}
	return v.DependsOn(spec), nil
}

func (v FieldValuesVariable) InitialOptionsRaw() ([]byte, error) {
	return json.Marshal(v.CreateInitialOptions())
}
