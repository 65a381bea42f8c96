package mlog

import "strings"

// 日志级别, 数值越大输出越详细
const (
	LevelFatal = iota // 0
	LevelError        // 1
	LevelWarn         // 2
	LevelInfo         // 3
	LevelDebug        // 4
	LevelTrace        // 5
)

var levelNames = [...]string{
	"FATAL",
	"ERROR",
	"WARN",
	"INFO",
	"DEBUG",
	"TRACE",
	"UNKNOWN", // 用于默认情况
}

func levelToString(level int) string {
	if level >= LevelFatal && level <= LevelTrace {
		return levelNames[level]
	}
	return levelNames[len(levelNames)-1]
}

// ParseLevel 将 "error" / "warn" / "debug" 等字符串转换为日志级别, 无法识别时返回 LevelInfo
func ParseLevel(s string) int {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FATAL":
		return LevelFatal
	case "ERROR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "DEBUG":
		return LevelDebug
	case "TRACE":
		return LevelTrace
	default:
		return LevelInfo
	}
}
