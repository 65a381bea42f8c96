package mlogquery

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvlogs"
)

func TestConvertStreamToLogs(t *testing.T) {
	records := mvlogs.StreamQueryRangeResponse{
		{"_msg": "first", "_time": "2024-05-01T04:00:00.123Z", "_stream": `{app="api"}`, "host": "a"},
		{"host": "b"},
		{"_time": "2024-05-01T04:00:01.5Z"},
	}

	logs := ConvertStreamToLogs(records, "1714536060000")
	require.Len(t, logs.Entries, 3)
	assert.Equal(t, 3, logs.TotalCount)

	first := logs.Entries[0]
	assert.Equal(t, 1714536000.123, first.Timestamp)
	assert.Equal(t, "first", first.Line)
	assert.Equal(t, map[string]string{"_stream": `{app="api"}`, "host": "a"}, first.Labels)

	second := logs.Entries[1]
	assert.Equal(t, 1714536060.0, second.Timestamp)
	assert.Equal(t, "", second.Line)
	assert.Equal(t, map[string]string{"host": "b"}, second.Labels)

	third := logs.Entries[2]
	assert.Equal(t, 1714536001.5, third.Timestamp)
	assert.Empty(t, third.Labels)

	// 输入不被修改
	assert.Equal(t, "first", records[0]["_msg"])
}

func TestConvertStreamToLogs_Empty(t *testing.T) {
	logs := ConvertStreamToLogs(nil, "0")
	assert.NotNil(t, logs.Entries)
	assert.Empty(t, logs.Entries)
	assert.Zero(t, logs.TotalCount)
}

func TestConvertStreamToLogs_EmptyStringsUseDefault(t *testing.T) {
	logs := ConvertStreamToLogs(mvlogs.StreamQueryRangeResponse{{"_msg": "", "_time": ""}}, "2000")
	assert.Equal(t, 2.0, logs.Entries[0].Timestamp)
}

// 已知限制: 无法解析的时间不会报错, 时间戳为 NaN, 但条目仍然计入 TotalCount
func TestConvertStreamToLogs_InvalidTimestamps(t *testing.T) {
	records := mvlogs.StreamQueryRangeResponse{
		{"_msg": "no time field"},
		{"_msg": "bad", "_time": "yesterday at noon"},
		{"host": "uses default"},
	}

	logs := ConvertStreamToLogs(records, "not-a-number")
	require.Equal(t, 3, logs.TotalCount)
	assert.True(t, math.IsNaN(logs.Entries[0].Timestamp))
	assert.True(t, math.IsNaN(logs.Entries[1].Timestamp))
	assert.True(t, math.IsNaN(logs.Entries[2].Timestamp))
	assert.Equal(t, "bad", logs.Entries[1].Line)
}

func TestParseDate(t *testing.T) {
	cases := map[string]float64{
		"2024-05-01T04:00:00Z":           1714536000000,
		"2024-05-01T04:00:00.123456789Z": 1714536000123,
		"2024-05-01T12:00:00+08:00":      1714536000000,
		"2024-05-01T04:00:00":            1714536000000,
		"2024-05-01 04:00:00.25":         1714536000250,
		"2024-05-01":                     1714521600000,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseDate(in), in)
	}
	assert.True(t, math.IsNaN(ParseDate("")))
	assert.True(t, math.IsNaN(ParseDate("01/05/2024")))
}

func TestLogEntryJSON(t *testing.T) {
	raw, err := json.Marshal(LogData{
		Entries: []LogEntry{
			{Timestamp: 1.5, Line: "ok", Labels: map[string]string{"a": "b"}},
			{Timestamp: math.NaN(), Line: "bad", Labels: map[string]string{}},
		},
		TotalCount: 2,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"entries":[
		{"timestamp":1.5,"line":"ok","labels":{"a":"b"}},
		{"timestamp":null,"line":"bad","labels":{}}
	],"totalCount":2}`, string(raw))
}
