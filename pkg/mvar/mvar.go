package mvar

import (
	"regexp"
	"strings"
)

// AllValue 变量选择了 "全部" 时的占位值
const AllValue = "$__all"

// VariableRegex 匹配 $name / ${name} / ${name.field} / ${name:format}
var VariableRegex = regexp.MustCompile(`\$(\w+)|\$\{(\w+)(?:\.([^:^\}]+))?(?::([^\}]+))?\}`)

// Option 变量的可选项
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// State 变量当前的取值
type State struct {
	Value    []string `json:"value"`
	Multi    bool     `json:"multi,omitempty"`
	Options  []Option `json:"options,omitempty"`
	AllValue string   `json:"allValue,omitempty"`
}

// StateMap 变量名 -> 变量状态
type StateMap map[string]State

// Single 单值变量
func Single(value string) State {
	return State{Value: []string{value}}
}

// Multi 多值变量
func Multi(values ...string) State {
	return State{Value: values, Multi: true}
}

// Parse 返回文本中引用的变量名, 按首次出现顺序, 同一文本内不重复
func Parse(text string) []string {
	names := []string{}
	seen := map[string]struct{}{}
	for _, m := range VariableRegex.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// IsVariableReference 文本是否本身就是一个变量引用, 例如 "$ds" 或 "${ds}"
func IsVariableReference(text string) bool {
	loc := VariableRegex.FindStringIndex(strings.TrimSpace(text))
	return loc != nil && loc[0] == 0 && loc[1] == len(strings.TrimSpace(text))
}

// Replace 用变量当前值替换文本中的占位符, 未定义的变量保持原样
func Replace(text string, states StateMap) string {
	if len(states) == 0 || !strings.Contains(text, "$") {
		return text
	}
	return VariableRegex.ReplaceAllStringFunc(text, func(match string) string {
		m := VariableRegex.FindStringSubmatch(match)
		name, format := m[1], m[4]
		if name == "" {
			name = m[2]
		}
		state, ok := states[name]
		if !ok {
			return match
		}
		values, multi := state.resolved()
		return Format(name, values, multi, format)
	})
}

// resolved 展开 $__all
func (s State) resolved() ([]string, bool) {
	for _, v := range s.Value {
		if v != AllValue {
			continue
		}
		if s.AllValue != "" {
			return []string{s.AllValue}, false
		}
		all := make([]string, 0, len(s.Options))
		for _, o := range s.Options {
			all = append(all, o.Value)
		}
		return all, true
	}
	return s.Value, s.Multi
}
