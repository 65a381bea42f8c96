package mlog

import (
	"os"
	"sync"
)

var (
	this   = New()
	thisMu sync.RWMutex
)

func global() *ts {
	thisMu.RLock()
	defer thisMu.RUnlock()
	return this
}

// SetNew 替换全局日志实例, 旧实例会先被关闭
func SetNew(opts ...tsOpts) *ts {
	thisMu.Lock()
	defer thisMu.Unlock()
	this.Close()
	this = New(opts...)
	return this
}

func GetOpts() Opts {
	return *global().opts
}

// Close 关闭全局日志实例, 确保所有日志被处理
func Close() {
	global().Close()
}

func Fatal(fields H) *ts {
	t := global()
	t.logAt(LevelFatal, fields, 1)
	t.Close()
	os.Exit(1)
	return t
}

func Error(fields H) *ts {
	return global().logAt(LevelError, fields, 1)
}

func Warn(fields H) *ts {
	return global().logAt(LevelWarn, fields, 1)
}

func Info(fields H) *ts {
	return global().logAt(LevelInfo, fields, 1)
}

func Debug(fields H) *ts {
	return global().logAt(LevelDebug, fields, 1)
}

func Trace(fields H) *ts {
	return global().logAt(LevelTrace, fields, 1)
}

func IsLevelEnabled(level int) bool {
	return global().IsLevelEnabled(level)
}

func GetLevel() int {
	return global().GetLevel()
}
