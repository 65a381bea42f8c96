package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mcache"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mds"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mlog"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mlogquery"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mrdb"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mtime"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvar"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvlogs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// defaultDatasourceName 仅指定 --url 时生成的数据源名称
const defaultDatasourceName = "default"

type app struct {
	opts *Opts
	out  io.Writer
	now  func() time.Time

	rdb *mrdb.Redis
}

func newApp(out io.Writer) *app {
	return &app{opts: &Opts{}, out: out}
}

// close 释放命令执行期间创建的连接
func (a *app) close() {
	if a.rdb == nil {
		return
	}
	if err := a.rdb.Close(); err != nil {
		mlog.Warn(mlog.H{"msg": "close redis failed", "error": err})
	}
	a.rdb = nil
}

func (a *app) setupLogger() {
	logOpts := mlog.GetOpts()
	logOpts.Level = mlog.ParseLevel(a.opts.LogLevel)
	logOpts.File = a.opts.LogFile
	logOpts.Console = true
	mlog.SetNew(
		mlog.WithOpts(logOpts),
		mlog.WithWriter(os.Stderr),
	)
}

func (a *app) timeRange() (mtime.AbsoluteRange, error) {
	now := time.Now
	if a.now != nil {
		now = a.now
	}
	since := a.opts.Since
	if a.opts.Start != "" {
		since = ""
	}
	return mtime.ParseRange(a.opts.Start, a.opts.End, since, now())
}

// variables 解析 --var name=value, 含逗号时视为多值
func (a *app) variables() (mvar.StateMap, error) {
	return parseVars(a.opts.Vars)
}

func parseVars(items []string) (mvar.StateMap, error) {
	states := mvar.StateMap{}
	for _, item := range items {
		name, value, ok := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variable %q, expected name=value", item)
		}
		if strings.Contains(value, ",") {
			states[name] = mvar.Multi(strings.Split(value, ",")...)
			continue
		}
		states[name] = mvar.Single(value)
	}
	return states, nil
}

// datasources 读取数据源定义, 未指定文件时由 --url 生成一个默认数据源
func (a *app) datasources() ([]mds.Datasource, error) {
	if a.opts.Datasources != "" {
		return mds.LoadFile(a.opts.Datasources)
	}
	return []mds.Datasource{{
		Kind:    mvlogs.DatasourceKind,
		Name:    defaultDatasourceName,
		Default: true,
		Spec:    map[string]any{"directUrl": a.opts.URL},
	}}, nil
}

// cache 指定 --redis 时使用 redis, 否则使用进程内缓存
func (a *app) cache(ctx context.Context) (mcache.Cache, error) {
	if a.opts.Redis == "" {
		return mcache.NewMemory(), nil
	}
	rdb, err := mrdb.NewClient(ctx, a.opts.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.rdb = rdb
	return mcache.NewRedis(rdb, "vlogs"), nil
}

func (a *app) store(ctx context.Context) (mds.Store[mvlogs.Client], error) {
	defs, err := a.datasources()
	if err != nil {
		return nil, err
	}

	newClient := mvlogs.NewDatasourceFactory(
		mvlogs.WithClientLimit(a.opts.Limit),
		mvlogs.WithClientTimeout(a.opts.Timeout),
		mvlogs.WithClientDebug(mlog.IsLevelEnabled(mlog.LevelTrace)),
	)
	if a.opts.CacheTTL <= 0 {
		return mds.NewMemStore(newClient, defs...), nil
	}

	cache, err := a.cache(ctx)
	if err != nil {
		return nil, err
	}
	factory := func(ctx context.Context, ds mds.Datasource) (mvlogs.Client, error) {
		client, err := newClient(ctx, ds)
		if err != nil {
			return nil, err
		}
		return mcache.NewClient(client, cache,
			mcache.WithTTL(a.opts.CacheTTL),
			mcache.WithNamespace(ds.Name),
		), nil
	}
	return mds.NewMemStore[mvlogs.Client](factory, defs...), nil
}

// selector 解析 --datasource, 变量引用按当前变量值查找, 找不到时使用默认数据源
func (a *app) selector(ctx context.Context, qctx mlogquery.QueryContext) (*mds.Selector, error) {
	value := a.selectValue()
	if value == nil {
		return nil, nil
	}
	if !value.IsVariable() {
		return value.Selector, nil
	}
	groups, err := qctx.Datasources.ListSelectItems(ctx, mvlogs.DatasourceKind)
	if err != nil {
		return nil, err
	}
	if sel := mds.SelectValueToSelector(*value, qctx.Variables, groups); sel != nil {
		return sel, nil
	}
	mlog.Debug(mlog.H{"msg": "datasource variable not resolved, using default", "info": a.opts.Datasource})
	return nil, nil
}

// selectValue --datasource 可以是数据源名称, 也可以是变量引用
func (a *app) selectValue() *mds.SelectValue {
	if a.opts.Datasource == "" {
		return nil
	}
	if mvar.IsVariableReference(a.opts.Datasource) {
		return mds.VariableValue(a.opts.Datasource)
	}
	return mds.SelectorValue(mds.Selector{Kind: mvlogs.DatasourceKind, Name: a.opts.Datasource})
}

// queryContext 组装每次调用需要的时间范围, 变量与数据源
func (a *app) queryContext(ctx context.Context) (mlogquery.QueryContext, error) {
	tr, err := a.timeRange()
	if err != nil {
		return mlogquery.QueryContext{}, err
	}
	vars, err := a.variables()
	if err != nil {
		return mlogquery.QueryContext{}, err
	}
	store, err := a.store(ctx)
	if err != nil {
		return mlogquery.QueryContext{}, err
	}
	mlog.Debug(mlog.H{"msg": "query context", "info": tr.String(), "data": vars})
	return mlogquery.QueryContext{TimeRange: tr, Variables: vars, Datasources: store}, nil
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
