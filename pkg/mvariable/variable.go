package mvariable

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mds"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mplugin"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mtime"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvar"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvlogs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// 变量插件类型
const (
	FieldValuesKind = "VictoriaLogsFieldValuesVariable"
	FieldNamesKind  = "VictoriaLogsFieldNamesVariable"
)

// DefaultDatasource 未指定或无法解析数据源时使用
var DefaultDatasource = mds.Selector{Kind: mvlogs.DatasourceKind}

// OptionsContext 由宿主在每次调用时传入
type OptionsContext struct {
	TimeRange   mtime.AbsoluteRange
	Variables   mvar.StateMap
	Datasources mds.Store[mvlogs.Client]
}

// DependsOn 变量依赖, 顺序决定重新计算的触发顺序
type DependsOn struct {
	Variables []string `json:"variables"`
}

// VariablePlugin 以 JSON spec 形式对外提供的变量插件
type VariablePlugin interface {
	GetVariableOptionsRaw(ctx context.Context, raw []byte, vctx OptionsContext) ([]mvar.Option, error)
	DependsOnRaw(raw []byte) (DependsOn, error)
	InitialOptionsRaw() ([]byte, error)
}

// FieldItemsToVariableOptions value 与 label 相同, 保持原有顺序
func FieldItemsToVariableOptions(items []mvlogs.FieldItem) []mvar.Option {
	options := make([]mvar.Option, 0, len(items))
	for _, item := range items {
		options = append(options, mvar.Option{Value: item.Value, Label: item.Value})
	}
	return options
}

// resolveDatasource 未设置时使用默认数据源; 否则结合变量与可选数据源列表解析, 解析不到时回退到默认
func resolveDatasource(ctx context.Context, value *mds.SelectValue, vctx OptionsContext) (mds.Selector, error) {
	if value == nil {
		return DefaultDatasource, nil
	}
	groups, err := vctx.Datasources.ListSelectItems(ctx, mvlogs.DatasourceKind)
	if err != nil {
		return mds.Selector{}, err
	}
	if sel := mds.SelectValueToSelector(*value, vctx.Variables, groups); sel != nil {
		return *sel, nil
	}
	return DefaultDatasource, nil
}

// datasourceDependencies 仅当数据源本身是变量引用时才产生依赖
func datasourceDependencies(value *mds.SelectValue) []string {
	if value == nil || !value.IsVariable() {
		return []string{}
	}
	return mvar.Parse(value.Variable)
}

func decodeSpec(kind string, raw []byte, out any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s spec: %w", kind, err)
	}
	return nil
}

// Register 向注册表登记变量插件
func Register(r *mplugin.Registry) error {
	if err := r.Register(mplugin.Metadata{
		Type: mplugin.TypeVariable,
		Kind: FieldValuesKind,
		Display: mplugin.Display{
			Name:        "VictoriaLogs Field Values Variable",
			Description: "Options are the values of a log field",
		},
	}, FieldValuesVariable{}); err != nil {
		return err
	}
	return r.Register(mplugin.Metadata{
		Type: mplugin.TypeVariable,
		Kind: FieldNamesKind,
		Display: mplugin.Display{
			Name:        "VictoriaLogs Field Names Variable",
			Description: "Options are the field names present in matching logs",
		},
	}, FieldNamesVariable{})
}
