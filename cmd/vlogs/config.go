package main

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// envPrefix 环境变量前缀, 例如 --cache-ttl 对应 VLOGS_CACHE_TTL
const envPrefix = "VLOGS_"

// Opts 命令行配置, flag 为参数名, 其余标签与 mlog.Opts 保持一致
type Opts struct {
	URL         string        `flag:"url" group:"vlogs" note:"VictoriaLogs 地址, 未指定 datasources 时使用" default:"http://127.0.0.1:9428"`
	Datasources string        `flag:"datasources" group:"vlogs" note:"数据源定义 YAML 文件" default:""`
	Datasource  string        `flag:"datasource" group:"vlogs" note:"数据源名称或变量引用(如 $ds), 为空使用默认数据源" default:""`
	Limit       int           `flag:"limit" group:"vlogs" note:"单次查询返回的最大条数, 0 表示不限制" default:"1000"`
	Timeout     time.Duration `flag:"timeout" group:"vlogs" note:"请求超时时间" default:"30s"`

	Since string   `flag:"since" group:"time" note:"相对时间范围, 例如 15m / 1h" default:"15m"`
	Start string   `flag:"start" group:"time" note:"开始时间, 指定后忽略 since" default:""`
	End   string   `flag:"end" group:"time" note:"结束时间, 默认 now" default:""`
	Vars  []string `flag:"var" group:"vars" note:"变量 name=value, 多个值用逗号分隔" default:""`

	Redis    string        `flag:"redis" group:"cache" note:"redis 地址, 为空时使用内存缓存" default:""`
	CacheTTL time.Duration `flag:"cache-ttl" group:"cache" note:"字段缓存时间, 0 表示不缓存" default:"1m"`

	LogLevel string `flag:"log-level" group:"mlog" note:"日志级别" default:"warn"`
	LogFile  string `flag:"log-file" group:"mlog" note:"日志文件名" default:""`
}

// bindFlags 按结构体标签注册参数, 默认值取自 default 标签
func bindFlags(fs *pflag.FlagSet, opts any) {
	rv := reflect.ValueOf(opts).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name := field.Tag.Get("flag")
		if name == "" {
			continue
		}
		note := field.Tag.Get("note")
		def := field.Tag.Get("default")
		ptr := rv.Field(i).Addr().Interface()

		switch p := ptr.(type) {
		case *string:
			fs.StringVar(p, name, def, note)
		case *int:
			n, _ := strconv.Atoi(def)
			fs.IntVar(p, name, n, note)
		case *bool:
			b, _ := strconv.ParseBool(def)
			fs.BoolVar(p, name, b, note)
		case *time.Duration:
			d, _ := time.ParseDuration(def)
			fs.DurationVar(p, name, d, note)
		case *[]string:
			fs.StringArrayVar(p, name, nil, note)
		default:
			panic(fmt.Sprintf("unsupported flag type %s for %s", field.Type, field.Name))
		}
	}
}

// envName --cache-ttl -> VLOGS_CACHE_TTL
func envName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// applyEnv 命令行未指定的参数使用环境变量
func applyEnv(fs *pflag.FlagSet, lookup func(string) (string, bool)) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}
		value, ok := lookup(envName(f.Name))
		if !ok || value == "" {
			return
		}
		if setErr := fs.Set(f.Name, value); setErr != nil {
			err = fmt.Errorf("%s: %w", envName(f.Name), setErr)
		}
	})
	return err
}

func lookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}
