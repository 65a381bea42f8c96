package mplugin

import (
	"fmt"
	"slices"
	"sync"
)

// Type 插件类别
type Type string

const (
	TypeDatasource Type = "Datasource"
	TypeLogQuery   Type = "LogQuery"
	TypeVariable   Type = "Variable"
)

// 数据源可支持的查询类型
const (
	QueryTypeLog        = "LogQuery"
	QueryTypeTimeSeries = "TimeSeriesQuery"
	QueryTypeTrace      = "TraceQuery"
)

type Display struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Metadata 插件元数据, 能力通过 SupportedQueryTypes 显式声明
type Metadata struct {
	Type                Type     `json:"type"`
	Kind                string   `json:"kind"`
	Display             Display  `json:"display"`
	SupportedQueryTypes []string `json:"supportedQueryTypes,omitempty"`
}

// Supports 是否支持指定的查询类型
func (m Metadata) Supports(queryType string) bool {
	return slices.Contains(m.SupportedQueryTypes, queryType)
}

type key struct {
	t    Type
	kind string
}

type entry struct {
	meta Metadata
	impl any
}

// Registry 插件注册表, 保持注册顺序
type Registry struct {
	mu      sync.RWMutex
	order   []key
	entries map[key]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: map[key]entry{}}
}

// Register 注册插件, impl 可以为 nil(只有元数据, 例如数据源)
func (r *Registry) Register(meta Metadata, impl any) error {
	if meta.Type == "" || meta.Kind == "" {
		return fmt.Errorf("plugin metadata requires type and kind")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{meta.Type, meta.Kind}
	if _, ok := r.entries[k]; ok {
		return fmt.Errorf("plugin %s/%s already registered", meta.Type, meta.Kind)
	}
	r.order = append(r.order, k)
	r.entries[k] = entry{meta: meta, impl: impl}
	return nil
}

// MustRegister 注册失败时 panic, 用于初始化阶段
func (r *Registry) MustRegister(meta Metadata, impl any) {
	if err := r.Register(meta, impl); err != nil {
		panic(err)
	}
}

// List 按注册顺序列出元数据, 不传 types 时返回全部
func (r *Registry) List(types ...Type) []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Metadata{}
	for _, k := range r.order {
		if len(types) > 0 && !slices.Contains(types, k.t) {
			continue
		}
		out = append(out, r.entries[k].meta)
	}
	return out
}

func (r *Registry) Get(t Type, kind string) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[key{t, kind}]
	return e.meta, ok
}

// Supports 指定插件是否声明支持 queryType
func (r *Registry) Supports(t Type, kind, queryType string) bool {
	meta, ok := r.Get(t, kind)
	return ok && meta.Supports(queryType)
}

// KindsSupporting 返回声明支持 queryType 的某类插件
func (r *Registry) KindsSupporting(t Type, queryType string) []string {
	kinds := []string{}
	for _, meta := range r.List(t) {
		if meta.Supports(queryType) {
			kinds = append(kinds, meta.Kind)
		}
	}
	return kinds
}

// Implementation 取出插件实现并断言为 T
func Implementation[T any](r *Registry, t Type, kind string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	e, ok := r.entries[key{t, kind}]
	if !ok {
		return zero, false
	}
	impl, ok := e.impl.(T)
	if !ok {
		return zero, false
	}
	return impl, true
}
