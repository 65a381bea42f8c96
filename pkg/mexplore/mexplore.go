package mexplore

import (
	"context"
	"errors"
	"fmt"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mlog"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mlogquery"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mplugin"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvariable"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvlogs"
)

// ErrUnknownKind 查询定义的插件类型没有注册
var ErrUnknownKind = errors.New("unknown log query plugin kind")

// LogQueryPlugin 可由 Explorer 调度的日志查询插件
type LogQueryPlugin interface {
	GetLogDataRaw(ctx context.Context, raw []byte, qctx mlogquery.QueryContext) (*mlogquery.Result, error)
}

// DefaultRegistry 登记 VictoriaLogs 的数据源, 日志查询与变量插件
func DefaultRegistry() (*mplugin.Registry, error) {
	r := mplugin.NewRegistry()
	for _, register := range []func(*mplugin.Registry) error{
		mvlogs.Register,
		mlogquery.Register,
		mvariable.Register,
	} {
		if err := register(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Explorer 日志浏览: 列出可查询日志的数据源, 执行一组查询
type Explorer struct {
	Registry *mplugin.Registry
}

func New(r *mplugin.Registry) *Explorer {
	return &Explorer{Registry: r}
}

// LogDatasourceKinds 声明支持日志查询的数据源类型
func (t *Explorer) LogDatasourceKinds() []string {
	return t.Registry.KindsSupporting(mplugin.TypeDatasource, mplugin.QueryTypeLog)
}

// Run 依次执行查询, 结果与输入顺序一致; 单个查询失败不影响其他查询
func (t *Explorer) Run(ctx context.Context, defs []QueryDefinition, qctx mlogquery.QueryContext) []QueryResult {
	results := make([]QueryResult, 0, len(defs))
	for i, def := range defs {
		res := QueryResult{Definition: def}
		res.Result, res.Err = t.run(ctx, def, qctx)
		if res.Err != nil {
			mlog.Warn(mlog.H{"msg": "explore query failed", "info": fmt.Sprintf("#%d %s", i, def.Spec.Plugin.Kind), "error": res.Err})
		}
		results = append(results, res)
	}
	return results
}

func (t *Explorer) run(ctx context.Context, def QueryDefinition, qctx mlogquery.QueryContext) (*mlogquery.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kind := def.Spec.Plugin.Kind
	plugin, ok := mplugin.Implementation[LogQueryPlugin](t.Registry, mplugin.TypeLogQuery, kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return plugin.GetLogDataRaw(ctx, def.Spec.Plugin.Spec, qctx)
}
