package mvar

import (
	"net/url"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// 插值格式, 用于 ${name:format}
const (
	FormatCSV           = "csv"
	FormatDoubleQuote   = "doublequote"
	FormatGlob          = "glob"
	FormatJSON          = "json"
	FormatLucene        = "lucene"
	FormatPercentEncode = "percentencode"
	FormatPipe          = "pipe"
	FormatQueryParam    = "queryparam"
	FormatRaw           = "raw"
	FormatRegex         = "regex"
	FormatSingleQuote   = "singlequote"
	FormatSQLString     = "sqlstring"
	FormatText          = "text"
)

var luceneEscaper = strings.NewReplacer(
	`\`, `\\`, `+`, `\+`, `-`, `\-`, `!`, `\!`, `(`, `\(`, `)`, `\)`,
	`:`, `\:`, `^`, `\^`, `[`, `\[`, `]`, `\]`, `"`, `\"`, `{`, `\{`,
	`}`, `\}`, `~`, `\~`, `*`, `\*`, `?`, `\?`, `|`, `\|`, `&`, `\&`,
	`/`, `\/`, ` `, `\ `,
)

// Format 按指定格式输出变量值, 未知格式按默认规则处理
//
// 默认规则: 单值原样输出, 多值输出 (a|b)
func Format(name string, values []string, multi bool, format string) string {
	switch format {
	case FormatCSV, FormatRaw:
		return strings.Join(values, ",")
	case FormatDoubleQuote:
		return joinQuoted(values, `"`, ",")
	case FormatSingleQuote:
		return joinQuoted(values, `'`, ",")
	case FormatSQLString:
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
		}
		return strings.Join(quoted, ",")
	case FormatPipe:
		return strings.Join(values, "|")
	case FormatText:
		return strings.Join(values, " + ")
	case FormatGlob:
		if len(values) == 1 {
			return values[0]
		}
		return "{" + strings.Join(values, ",") + "}"
	case FormatJSON:
		raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(values)
		if err != nil {
			return "[]"
		}
		return string(raw)
	case FormatLucene:
		if len(values) == 1 {
			return luceneEscaper.Replace(values[0])
		}
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = `"` + luceneEscaper.Replace(v) + `"`
		}
		return "(" + strings.Join(quoted, " OR ") + ")"
	case FormatPercentEncode:
		return url.QueryEscape(strings.Join(values, ","))
	case FormatQueryParam:
		params := make([]string, len(values))
		for i, v := range values {
			params[i] = "var-" + url.QueryEscape(name) + "=" + url.QueryEscape(v)
		}
		return strings.Join(params, "&")
	case FormatRegex:
		escaped := make([]string, len(values))
		for i, v := range values {
			escaped[i] = regexp.QuoteMeta(v)
		}
		if len(escaped) == 1 {
			return escaped[0]
		}
		return "(" + strings.Join(escaped, "|") + ")"
	}

	if !multi {
		return strings.Join(values, ",")
	}
	return "(" + strings.Join(values, "|") + ")"
}

func joinQuoted(values []string, quote, sep string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote + strings.ReplaceAll(v, quote, `\`+quote) + quote
	}
	return strings.Join(quoted, sep)
}
