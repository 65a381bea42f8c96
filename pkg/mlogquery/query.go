package mlogquery

import (
	"context"
	"fmt"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mds"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mlog"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mplugin"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mtime"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvar"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvlogs"
)

// Kind 日志查询插件类型
const Kind = "VictoriaLogsLogQuery"

// DefaultDatasource 未指定数据源时使用该类型的默认数据源
var DefaultDatasource = mds.Selector{Kind: mvlogs.DatasourceKind}

// Spec 日志查询配置
type Spec struct {
	Query      string        `json:"query" yaml:"query"`
	Datasource *mds.Selector `json:"datasource,omitempty" yaml:"datasource,omitempty"`
}

// QueryContext 由宿主在每次调用时传入
type QueryContext struct {
	TimeRange   mtime.AbsoluteRange
	Variables   mvar.StateMap
	Datasources mds.Store[mvlogs.Client]
}

type Metadata struct {
	ExecutedQueryString string `json:"executedQueryString"`
}

type Result struct {
	Logs      LogData             `json:"logs"`
	TimeRange mtime.AbsoluteRange `json:"timeRange"`
	Metadata  *Metadata           `json:"metadata,omitempty"`
}

// GetLogData 替换变量后执行流式查询并转换结果
//
// query 为空时直接返回空结果, 不访问后端; 数据源与后端的错误原样返回
func GetLogData(ctx context.Context, spec Spec, qctx QueryContext) (*Result, error) {
	if spec.Query == "" {
		return &Result{
			Logs:      LogData{Entries: []LogEntry{}, TotalCount: 0},
			TimeRange: qctx.TimeRange,
		}, nil
	}

	query := mvar.Replace(spec.Query, qctx.Variables)

	sel := DefaultDatasource
	if spec.Datasource != nil {
		sel = *spec.Datasource
	}
	client, err := qctx.Datasources.GetClient(ctx, sel)
	if err != nil {
		return nil, err
	}

	start, end := qctx.TimeRange.ISO()
	response, err := client.StreamQueryRange(ctx, mvlogs.StreamQueryRangeParams{
		Query: query,
		Start: start,
		End:   end,
	})
	if err != nil {
		return nil, err
	}

	logs := ConvertStreamToLogs(response, qctx.TimeRange.EndMillisString())
	mlog.Debug(mlog.H{"msg": "log query executed", "info": sel.String(), "data": query, "count": logs.TotalCount})

	return &Result{
		Logs:      logs,
		TimeRange: qctx.TimeRange,
		Metadata:  &Metadata{ExecutedQueryString: query},
	}, nil
}

// Plugin 以 JSON spec 形式对外提供 GetLogData
type Plugin struct{}

func (Plugin) GetLogDataRaw(ctx context.Context, raw []byte, qctx QueryContext) (*Result, error) {
	var spec Spec
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &spec); err != nil {
			return nil, fmt.Errorf("decode %s spec: %w", Kind, err)
		}
	}
	return GetLogData(ctx, spec, qctx)
}

// PluginMetadata 日志查询插件元数据
var PluginMetadata = mplugin.Metadata{
	Type: mplugin.TypeLogQuery,
	Kind: Kind,
	Display: mplugin.Display{
		Name:        "VictoriaLogs Log Query",
		Description: "Runs a LogsQL query and returns log entries",
	},
}

// Register 向注册表登记日志查询插件
func Register(r *mplugin.Registry) error {
	return r.Register(PluginMetadata, Plugin{})
}
