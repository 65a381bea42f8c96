package mvlogs

import (
	"context"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mds"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mplugin"
)

// Metadata 数据源插件元数据
var Metadata = mplugin.Metadata{
	Type: mplugin.TypeDatasource,
	Kind: DatasourceKind,
	Display: mplugin.Display{
		Name:        "VictoriaLogs Datasource",
		Description: "Datasource for VictoriaLogs LogsQL endpoints",
	},
	SupportedQueryTypes: []string{mplugin.QueryTypeLog},
}

// Register 向注册表登记数据源插件
func Register(r *mplugin.Registry) error {
	return r.Register(Metadata, nil)
}

// NewDatasourceFactory 返回 mds.MemStore 使用的客户端工厂, opts 作用于每个客户端
func NewDatasourceFactory(opts ...clientOpts) mds.Factory[Client] {
	return func(_ context.Context, ds mds.Datasource) (Client, error) {
		var spec DatasourceSpec
		if err := ds.DecodeSpec(&spec); err != nil {
			return nil, err
		}
		return NewClientFromSpec(spec, opts...), nil
	}
}
