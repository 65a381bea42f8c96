package mtime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/common/model"
)

// isoLayout 与浏览器 Date.toISOString() 的输出保持一致, 固定毫秒精度 + UTC
const isoLayout = "2006-01-02T15:04:05.000Z"

// AbsoluteRange 绝对时间范围
type AbsoluteRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// RelativeRange 相对时间范围, End 为零值时表示 "现在"
type RelativeRange struct {
	PastDuration model.Duration `json:"pastDuration"`
	End          time.Time      `json:"end,omitempty"`
}

// ISOString 返回 UTC 毫秒精度的 ISO-8601 字符串
func ISOString(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ISO 返回起止时间的 ISO-8601 字符串
func (r AbsoluteRange) ISO() (start string, end string) {
	return ISOString(r.Start), ISOString(r.End)
}

// EndMillisString 结束时间的毫秒时间戳(十进制字符串)
func (r AbsoluteRange) EndMillisString() string {
	return strconv.FormatInt(r.End.UnixMilli(), 10)
}

func (r AbsoluteRange) String() string {
	start, end := r.ISO()
	return start + " ~ " + end
}

// Absolute 以 now 为基准将相对范围转换为绝对范围
func (r RelativeRange) Absolute(now time.Time) AbsoluteRange {
	end := r.End
	if end.IsZero() {
		end = now
	}
	return AbsoluteRange{
		Start: end.Add(-time.Duration(r.PastDuration)),
		End:   end,
	}
}

// ParseDuration 支持 prometheus 风格的 "5m" / "1h30m" / "7d" / "2w"
func ParseDuration(s string) (model.Duration, error) {
	return model.ParseDuration(strings.TrimSpace(s))
}

// ParseTime 解析 "now" / RFC3339(Nano) / 秒或毫秒时间戳
func ParseTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == "now":
		return now, nil
	case strings.HasPrefix(s, "now-"):
		d, err := ParseDuration(s[len("now-"):])
		if err != nil {
			return time.Time{}, err
		}
		return now.Add(-time.Duration(d)), nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		// 13 位及以上视为毫秒
		if len(strings.TrimPrefix(s, "-")) >= 13 {
			return time.UnixMilli(n), nil
		}
		return time.Unix(n, 0), nil
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

// ParseRange 由命令行形式的参数得到绝对时间范围
//
// 指定 since 时以 end(默认 now) 向前推算, 否则使用 start / end
func ParseRange(start, end, since string, now time.Time) (AbsoluteRange, error) {
	endAt, err := ParseTime(end, now)
	if err != nil {
		return AbsoluteRange{}, err
	}

	if since != "" {
		d, err := ParseDuration(since)
		if err != nil {
			return AbsoluteRange{}, err
		}
		return RelativeRange{PastDuration: d, End: endAt}.Absolute(now), nil
	}

	if start == "" {
		return AbsoluteRange{}, errors.New("either start or since is required")
	}
	startAt, err := ParseTime(start, now)
	if err != nil {
		return AbsoluteRange{}, err
	}
	if startAt.After(endAt) {
		return AbsoluteRange{}, fmt.Errorf("start %s is after end %s", ISOString(startAt), ISOString(endAt))
	}
	return AbsoluteRange{Start: startAt, End: endAt}, nil
}
