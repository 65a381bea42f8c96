package mlogquery

import (
	"math"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvlogs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LogEntry 统一的日志行, Timestamp 单位为秒(可带小数), 无法解析时为 NaN
type LogEntry struct {
	Timestamp float64           `json:"timestamp"`
	Line      string            `json:"line"`
	Labels    map[string]string `json:"labels"`
}

// MarshalJSON NaN / Inf 无法用 JSON 表示, 输出为 null
func (e LogEntry) MarshalJSON() ([]byte, error) {
	type plain struct {
		Timestamp *float64          `json:"timestamp"`
		Line      string            `json:"line"`
		Labels    map[string]string `json:"labels"`
	}
	p := plain{Line: e.Line, Labels: e.Labels}
	if !math.IsNaN(e.Timestamp) && !math.IsInf(e.Timestamp, 0) {
		p.Timestamp = &e.Timestamp
	}
	return json.Marshal(p)
}

// LogData 按服务端返回顺序排列的日志, TotalCount 为本次处理的条数
type LogData struct {
	Entries    []LogEntry `json:"entries"`
	TotalCount int        `json:"totalCount"`
}

// ConvertStreamToLogs 将流式查询结果转换为 LogData
//
// _msg 与 _time 都缺失时使用 defaultTime(毫秒时间戳字符串), 否则解析 _time;
// 两种情况都除以 1000 得到秒
func ConvertStreamToLogs(records mvlogs.StreamQueryRangeResponse, defaultTime string) LogData {
	entries := make([]LogEntry, 0, len(records))
	for _, record := range records {
		msg := record[mvlogs.MessageField]
		ts := record[mvlogs.TimeField]

		labels := make(map[string]string, len(record))
		for k, v := range record {
			if k == mvlogs.MessageField || k == mvlogs.TimeField {
				continue
			}
			labels[k] = v
		}

		var millis float64
		if ts == "" && msg == "" {
			millis = parseNumber(defaultTime)
		} else {
			millis = ParseDate(ts)
		}

		entries = append(entries, LogEntry{
			Timestamp: millis / 1000,
			Line:      msg,
			Labels:    labels,
		})
	}
	return LogData{
		Entries:    entries,
		TotalCount: len(entries),
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// ParseDate 将日期时间字符串解析为毫秒时间戳, 失败时返回 NaN
//
// 不带时区的格式按 UTC 处理; 精度截断到毫秒
func ParseDate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return float64(t.UnixMilli())
		}
	}
	return math.NaN()
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		// 空字符串视为 0
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
