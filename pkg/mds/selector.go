package mds

import (
	"errors"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvar"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Selector 定位一个已配置的数据源, Name 为空表示该类型的默认数据源
type Selector struct {
	Kind string `json:"kind" yaml:"kind"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

func (s Selector) String() string {
	if s.Name == "" {
		return s.Kind + "/<default>"
	}
	return s.Kind + "/" + s.Name
}

// SelectValue 数据源选择值: 具体的 Selector, 或者 "$ds" 这样的变量引用
//
// JSON / YAML 中分别对应对象和字符串两种形态
type SelectValue struct {
	Selector *Selector
	Variable string
}

// SelectorValue 由具体数据源构造选择值
func SelectorValue(sel Selector) *SelectValue {
	return &SelectValue{Selector: &sel}
}

// VariableValue 由变量引用构造选择值
func VariableValue(ref string) *SelectValue {
	return &SelectValue{Variable: ref}
}

// IsVariable 是否为变量引用
func (v SelectValue) IsVariable() bool {
	return v.Selector == nil
}

func (v SelectValue) MarshalJSON() ([]byte, error) {
	if v.IsVariable() {
		return json.Marshal(v.Variable)
	}
	return json.Marshal(v.Selector)
}

func (v *SelectValue) UnmarshalJSON(data []byte) error {
	var ref string
	if err := json.Unmarshal(data, &ref); err == nil {
		*v = SelectValue{Variable: ref}
		return nil
	}
	var sel Selector
	if err := json.Unmarshal(data, &sel); err != nil {
		return errors.New("datasource must be a selector object or a variable reference string")
	}
	*v = SelectValue{Selector: &sel}
	return nil
}

func (v SelectValue) MarshalYAML() (any, error) {
	if v.IsVariable() {
		return v.Variable, nil
	}
	return v.Selector, nil
}

func (v *SelectValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = SelectValue{Variable: node.Value}
		return nil
	case yaml.MappingNode:
		var sel Selector
		if err := node.Decode(&sel); err != nil {
			return err
		}
		*v = SelectValue{Selector: &sel}
		return nil
	}
	return errors.New("datasource must be a selector mapping or a variable reference string")
}

// SelectItem 可供选择的数据源
type SelectItem struct {
	Name     string   `json:"name"`
	Selector Selector `json:"selector"`
}

// SelectItemGroup 一组可选数据源
type SelectItemGroup struct {
	Group string       `json:"group,omitempty"`
	Items []SelectItem `json:"items"`
}

// SelectValueToSelector 将选择值转换为具体的 Selector
//
// 变量引用时, 取变量当前值作为数据源名称在 groups 中查找; 变量未定义, 为多值,
// 或找不到同名数据源时返回 nil
func SelectValueToSelector(value SelectValue, variables mvar.StateMap, groups []SelectItemGroup) *Selector {
	if !value.IsVariable() {
		sel := *value.Selector
		return &sel
	}

	names := mvar.Parse(value.Variable)
	if len(names) == 0 {
		return nil
	}
	state, ok := variables[names[0]]
	if !ok || state.Multi || len(state.Value) != 1 {
		return nil
	}

	name := state.Value[0]
	for _, group := range groups {
		for _, item := range group.Items {
			if item.Selector.Name == name {
				sel := item.Selector
				return &sel
			}
		}
	}
	return nil
}
