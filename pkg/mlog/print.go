package mlog

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const resetColor = "\033[0m"

var levelColors = map[string]string{
	"FATAL": "\033[95m",
	"ERROR": "\033[91m",
	"WARN":  "\033[93m",
	"INFO":  "\033[92m",
	"DEBUG": "\033[94m",
	"TRACE": "\033[90m",
}

var keyColors = map[string]string{
	"time":  "\033[30m",
	"msg":   "\033[34m",
	"error": "\033[31m",
	"warn":  "\033[33m",
	"info":  "\033[34m",
	"data":  "\033[32m",
	"other": "\033[36m",
	"call":  "\033[35m",
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// encodeFields 按 orderedKeys -> 其余键(字典序) -> call 的顺序输出一行 JSON
func encodeFields(fields H, orderedKeys []string, color bool) string {
	var otherKeys []string
	for key := range fields {
		if key != "call" && !slices.Contains(orderedKeys, key) {
			otherKeys = append(otherKeys, key)
		}
	}
	sort.Strings(otherKeys)

	allKeys := make([]string, 0, len(orderedKeys)+len(otherKeys)+1)
	allKeys = append(allKeys, orderedKeys...)
	allKeys = append(allKeys, otherKeys...)
	if _, ok := fields["call"]; ok {
		allKeys = append(allKeys, "call")
	}

	var b strings.Builder
	b.Grow(20 + len(allKeys)*64)
	b.WriteByte('{')

	first := true
	for _, key := range allKeys {
		value, ok := fields[key]
		if !ok {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false

		b.WriteByte('"')
		b.WriteString(key)
		b.WriteString(`":`)

		raw := encodeValue(value)
		if !color {
			b.Write(raw)
			continue
		}
		b.WriteString(colorOf(key, value))
		b.Write(raw)
		b.WriteString(resetColor)
	}
	b.WriteByte('}')
	return b.String()
}

func encodeValue(value any) []byte {
	// error 类型直接取 Error(), 否则会被序列化成 {}
	if err, ok := value.(error); ok {
		raw, _ := json.Marshal(err.Error())
		return raw
	}
	raw, err := json.Marshal(value)
	if err != nil {
		raw, _ = json.Marshal(fmt.Sprintf("%v", value))
	}
	return raw
}

func colorOf(key string, value any) string {
	if key == "level" {
		if c, ok := levelColors[fmt.Sprintf("%v", value)]; ok {
			return c
		}
	}
	if c, ok := keyColors[key]; ok {
		return c
	}
	return keyColors["other"]
}
