package mexplore

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mlogquery"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefinitionKind 日志查询定义的固定类型
const DefinitionKind = "LogQuery"

// QueryDefinition 一条日志查询定义
//
//	{"kind":"LogQuery","spec":{"plugin":{"kind":"VictoriaLogsLogQuery","spec":{"query":"*"}}}}
type QueryDefinition struct {
	Kind string    `json:"kind"`
	Spec QuerySpec `json:"spec"`
}

type QuerySpec struct {
	Plugin PluginSpec `json:"plugin"`
}

type PluginSpec struct {
	Kind string              `json:"kind"`
	Spec jsoniter.RawMessage `json:"spec,omitempty"`
}

// NewLogQuery 以 VictoriaLogs 日志查询插件构造查询定义
func NewLogQuery(spec mlogquery.Spec) (QueryDefinition, error) {
	raw, err := json.Marshal(spec)
	if err != nil {
		return QueryDefinition{}, err
	}
	return QueryDefinition{
		Kind: DefinitionKind,
		Spec: QuerySpec{Plugin: PluginSpec{Kind: mlogquery.Kind, Spec: raw}},
	}, nil
}

// ParseDefinitions 解析 JSON 数组形式的查询定义
func ParseDefinitions(data []byte) ([]QueryDefinition, error) {
	defs := []QueryDefinition{}
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// QueryResult 单条查询的结果, Err 非空时 Result 为 nil
type QueryResult struct {
	Definition QueryDefinition   `json:"definition"`
	Result     *mlogquery.Result `json:"result,omitempty"`
	Err        error             `json:"-"`
}

func (r QueryResult) MarshalJSON() ([]byte, error) {
	type alias QueryResult
	out := struct {
		alias
		Error string `json:"error,omitempty"`
	}{alias: alias(r)}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}
