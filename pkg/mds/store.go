package mds

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrNotFound 数据源不存在
var ErrNotFound = errors.New("datasource not found")

// Store 由宿主注入的数据源存储, 每次调用显式传入, 不使用全局单例
type Store[C any] interface {
	GetClient(ctx context.Context, sel Selector) (C, error)
	ListSelectItems(ctx context.Context, kind string) ([]SelectItemGroup, error)
}

// Datasource 一个已配置的数据源, Spec 的结构由 Kind 决定
type Datasource struct {
	Kind    string         `json:"kind" yaml:"kind"`
	Name    string         `json:"name" yaml:"name"`
	Default bool           `json:"default,omitempty" yaml:"default,omitempty"`
	Display string         `json:"display,omitempty" yaml:"display,omitempty"`
	Spec    map[string]any `json:"spec,omitempty" yaml:"spec,omitempty"`
}

func (d Datasource) Selector() Selector {
	return Selector{Kind: d.Kind, Name: d.Name}
}

// DecodeSpec 将 Spec 解码到具体类型, 字段名使用 json tag
func (d Datasource) DecodeSpec(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(d.Spec); err != nil {
		return fmt.Errorf("datasource %s: %w", d.Selector(), err)
	}
	return nil
}

// Factory 根据数据源配置创建客户端
type Factory[C any] func(ctx context.Context, ds Datasource) (C, error)

// MemStore 内存中的数据源存储, 客户端按需创建并复用
type MemStore[C any] struct {
	factory Factory[C]

	mu          sync.Mutex
	datasources []Datasource
	clients     map[Selector]C
}

func NewMemStore[C any](factory Factory[C], datasources ...Datasource) *MemStore[C] {
	return &MemStore[C]{
		factory:     factory,
		datasources: append([]Datasource(nil), datasources...),
		clients:     map[Selector]C{},
	}
}

// Add 添加或替换同名数据源
func (s *MemStore[C]) Add(ds Datasource) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel := ds.Selector()
	delete(s.clients, sel)
	for i := range s.datasources {
		if s.datasources[i].Selector() == sel {
			s.datasources[i] = ds
			return
		}
	}
	s.datasources = append(s.datasources, ds)
}

func (s *MemStore[C]) GetClient(ctx context.Context, sel Selector) (C, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero C
	ds, ok := s.lookup(sel)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, sel)
	}
	key := ds.Selector()
	if c, ok := s.clients[key]; ok {
		return c, nil
	}
	c, err := s.factory(ctx, ds)
	if err != nil {
		return zero, err
	}
	s.clients[key] = c
	return c, nil
}

func (s *MemStore[C]) ListSelectItems(_ context.Context, kind string) ([]SelectItemGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group := SelectItemGroup{Items: []SelectItem{}}
	if ds, ok := s.lookup(Selector{Kind: kind}); ok {
		group.Items = append(group.Items, SelectItem{
			Name:     fmt.Sprintf("Default (%s)", displayName(ds)),
			Selector: Selector{Kind: kind},
		})
	}
	for _, ds := range s.datasources {
		if ds.Kind != kind {
			continue
		}
		group.Items = append(group.Items, SelectItem{Name: displayName(ds), Selector: ds.Selector()})
	}
	return []SelectItemGroup{group}, nil
}

// lookup Name 为空时: 优先 Default 标记, 其次该类型唯一的数据源
func (s *MemStore[C]) lookup(sel Selector) (Datasource, bool) {
	var candidates []Datasource
	for _, ds := range s.datasources {
		if ds.Kind != sel.Kind {
			continue
		}
		if sel.Name != "" {
			if ds.Name == sel.Name {
				return ds, true
			}
			continue
		}
		if ds.Default {
			return ds, true
		}
		candidates = append(candidates, ds)
	}
	if sel.Name == "" && len(candidates) == 1 {
		return candidates[0], true
	}
	return Datasource{}, false
}

func displayName(ds Datasource) string {
	if ds.Display != "" {
		return ds.Display
	}
	return ds.Name
}

type fileConfig struct {
	Datasources []Datasource `yaml:"datasources"`
}

// LoadFile 从 YAML 文件读取数据源定义
func LoadFile(path string) ([]Datasource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, ds := range cfg.Datasources {
		if ds.Kind == "" || ds.Name == "" {
			return nil, fmt.Errorf("parse %s: datasource #%d requires kind and name", path, i)
		}
	}
	return cfg.Datasources, nil
}
