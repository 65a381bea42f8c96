package mlog

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type H map[string]any

type Opts struct {
	File    string `group:"mlog" note:"日志文件名" default:""`
	Level   int    `group:"mlog" note:"日志级别" default:"3"`
	Console bool   `group:"mlog" note:"是否输出到终端" default:"true"`
	Color   bool   `group:"mlog" note:"是否启用终端颜色显示" default:"true"`

	// lumberjack.Logger fields
	RotateMaxSize    int  `group:"mlog" note:"日志文件最大尺寸(MB)" default:"100"`
	RotateMaxAge     int  `group:"mlog" note:"日志文件最大保存天数" default:"30"`
	RotateMaxBackups int  `group:"mlog" note:"日志文件最大备份数" default:"3"`
	RotateLocalTime  bool `group:"mlog" note:"是否使用本地时间" default:"true"`
	RotateCompress   bool `group:"mlog" note:"是否压缩" default:"true"`

	AsyncEnabled   bool `group:"mlog" note:"是否启用异步日志" default:"false"`
	AsyncQueueSize int  `group:"mlog" note:"异步日志队列大小" default:"1000"`
	AsyncBatchSize int  `group:"mlog" note:"异步日志批处理大小" default:"32"`

	CallerClip string `group:"mlog" note:"裁剪调用路径" default:""`
}

type ts struct {
	opts        *Opts
	orderedKeys []string

	console io.Writer
	file    io.WriteCloser
	writeMu sync.Mutex

	// 异步处理相关
	logChan  chan H
	wg       sync.WaitGroup
	shutdown chan struct{}
	once     sync.Once
}

type tsOpts func(*ts)

func New(opts ...tsOpts) *ts {
	t := &ts{
		opts: &Opts{
			Level:   LevelInfo,
			Console: true,
			Color:   true,

			RotateMaxSize:    100,
			RotateMaxAge:     30,
			RotateMaxBackups: 3,
			RotateLocalTime:  true,
			RotateCompress:   true,

			AsyncQueueSize: 1000,
			AsyncBatchSize: 32,
		},
		console:     os.Stdout,
		shutdown:    make(chan struct{}),
		orderedKeys: []string{"time", "level", "msg", "info", "error", "warn", "data", "flags"},
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.opts.File != "" {
		t.file = &lumberjack.Logger{
			Filename:   t.opts.File,
			MaxSize:    t.opts.RotateMaxSize,
			MaxBackups: t.opts.RotateMaxBackups,
			MaxAge:     t.opts.RotateMaxAge,
			Compress:   t.opts.RotateCompress,
			LocalTime:  t.opts.RotateLocalTime,
		}
	}

	if t.opts.AsyncEnabled {
		size := t.opts.AsyncQueueSize
		if size <= 0 {
			size = 1000
		}
		t.logChan = make(chan H, size)
		t.wg.Add(1)
		go t.processLogs()
	}
	return t
}

// WithOpts 使用完整配置覆盖默认值, 通常来自命令行参数
func WithOpts(o Opts) tsOpts {
	return func(t *ts) {
		*t.opts = o
	}
}

// 日志文件名, 指定文件名
func WithFile(file string) tsOpts {
	return func(t *ts) {
		t.opts.File = file
	}
}

// WithLevel 设置日志级别
func WithLevel(level int) tsOpts {
	return func(t *ts) {
		t.opts.Level = level
	}
}

// 控制是否启用终端颜色显示
func WithColor(enabled bool) tsOpts {
	return func(t *ts) {
		t.opts.Color = enabled
	}
}

// WithWriter 设置终端输出目标, 默认 os.Stdout
func WithWriter(w io.Writer) tsOpts {
	return func(t *ts) {
		t.console = w
		t.opts.Console = w != nil
	}
}

// WithAsync 启用异步日志
func WithAsync(enabled bool) tsOpts {
	return func(t *ts) {
		t.opts.AsyncEnabled = enabled
	}
}

// WithCallerClip 设置调用路径裁剪
func WithCallerClip(clip string) tsOpts {
	return func(t *ts) {
		t.opts.CallerClip = clip
	}
}

func (t *ts) logAt(level int, fields H, callDepth int) *ts {
	if t.opts.Level < level {
		return t
	}
	fields["level"] = levelToString(level)
	return t.print(fields, callDepth+1)
}

// 记录 fatal 级别日志并退出进程
func (t *ts) Fatal(fields H) *ts {
	t.logAt(LevelFatal, fields, 1)
	t.Close()
	os.Exit(1)
	return t
}

func (t *ts) Error(fields H) *ts {
	return t.logAt(LevelError, fields, 1)
}

func (t *ts) Warn(fields H) *ts {
	return t.logAt(LevelWarn, fields, 1)
}

func (t *ts) Info(fields H) *ts {
	return t.logAt(LevelInfo, fields, 1)
}

func (t *ts) Debug(fields H) *ts {
	return t.logAt(LevelDebug, fields, 1)
}

func (t *ts) Trace(fields H) *ts {
	return t.logAt(LevelTrace, fields, 1)
}

// IsLevelEnabled 检查指定日志级别是否启用
func (t *ts) IsLevelEnabled(level int) bool {
	return t.opts.Level >= level
}

func (t *ts) GetLevel() int {
	return t.opts.Level
}

// Close 等待异步队列写完并关闭日志文件, 可重复调用
func (t *ts) Close() {
	t.once.Do(func() {
		if t.opts.AsyncEnabled {
			close(t.shutdown)
			t.wg.Wait()
		}
		if t.file != nil {
			t.file.Close()
		}
	})
}

func (t *ts) print(fields H, callDepth int) *ts {
	t.setCaller(fields, callDepth+2)

	if !t.opts.AsyncEnabled {
		t.write(fields)
		return t
	}

	// 复制一份, 调用方可能复用 fields
	entry := make(H, len(fields))
	for k, v := range fields {
		entry[k] = v
	}
	select {
	case t.logChan <- entry:
	case <-t.shutdown:
		t.write(entry)
	default:
		t.write(H{"level": "WARN", "msg": "日志缓冲区已满, 日志被丢弃", "time": entry["time"]})
	}
	return t
}

func (t *ts) write(fields H) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.file != nil {
		fmt.Fprintln(t.file, encodeFields(fields, t.orderedKeys, false))
	}
	if t.opts.Console && t.console != nil {
		fmt.Fprintln(t.console, encodeFields(fields, t.orderedKeys, t.opts.Color))
	}
}

// processLogs 批量消费异步队列, 低流量时由 ticker 定期刷新
func (t *ts) processLogs() {
	defer t.wg.Done()

	batchSize := t.opts.AsyncBatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	batch := make([]H, 0, batchSize)
	flush := func() {
		for _, e := range batch {
			t.write(e)
		}
		batch = batch[:0]
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case e := <-t.logChan:
			batch = append(batch, e)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-t.shutdown:
			for {
				select {
				case e := <-t.logChan:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (t *ts) setCaller(fields H, callDepth int) {
	_, file, line, ok := runtime.Caller(callDepth)
	if !ok {
		file = "unknown"
		line = 0
	}
	fields["call"] = t.pathClipping(fmt.Sprintf("%s:%d", file, line))
	fields["time"] = time.Now().Format("2006-01-02 15:04:05")
}

func (t *ts) pathClipping(path string) string {
	if t.opts.CallerClip != "" {
		return strings.ReplaceAll(path, t.opts.CallerClip, "")
	}
	if !strings.HasPrefix(path, "/") {
		return path
	}
	// 只保留最后三级路径
	count := 0
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			count++
			if count == 3 {
				return path[i:]
			}
		}
	}
	return path
}
