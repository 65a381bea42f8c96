package mcache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mlog"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvlogs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client 为 FieldNames / FieldValues 增加缓存, 流式查询直接透传
//
// 缓存读写失败只记录日志, 后端错误原样返回
type Client struct {
	next      mvlogs.Client
	cache     Cache
	ttl       time.Duration
	namespace string
}

type clientOpts func(*Client)

// WithTTL 缓存时间, 默认 1 分钟
func WithTTL(ttl time.Duration) clientOpts {
	return func(c *Client) {
		c.ttl = ttl
	}
}

// WithNamespace 缓存键前缀, 一般为数据源名称
func WithNamespace(ns string) clientOpts {
	return func(c *Client) {
		c.namespace = ns
	}
}

func NewClient(next mvlogs.Client, cache Cache, opts ...clientOpts) *Client {
	c := &Client{
		next:  next,
		cache: cache,
		ttl:   time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) StreamQueryRange(ctx context.Context, params mvlogs.StreamQueryRangeParams) (mvlogs.StreamQueryRangeResponse, error) {
	return c.next.StreamQueryRange(ctx, params)
}

func (c *Client) FieldNames(ctx context.Context, params mvlogs.FieldNamesParams) (*mvlogs.FieldNamesResponse, error) {
	key := c.key("field_names", params.Query, params.Start, params.End)
	resp := &mvlogs.FieldNamesResponse{}
	if c.load(ctx, key, resp) {
		return resp, nil
	}

	resp, err := c.next.FieldNames(ctx, params)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, resp)
	return resp, nil
}

func (c *Client) FieldValues(ctx context.Context, params mvlogs.FieldValuesParams) (*mvlogs.FieldValuesResponse, error) {
	key := c.key("field_values", params.Field, params.Query, params.Start, params.End, strconv.Itoa(params.Limit))
	resp := &mvlogs.FieldValuesResponse{}
	if c.load(ctx, key, resp) {
		return resp, nil
	}

	resp, err := c.next.FieldValues(ctx, params)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, resp)
	return resp, nil
}

// key 形如 vlogs:<namespace>:<op>:<xxhash>
func (c *Client) key(op string, parts ...string) string {
	sum := xxhash.Sum64String(strings.Join(parts, "\x00"))
	return "vlogs:" + c.namespace + ":" + op + ":" + strconv.FormatUint(sum, 16)
}

func (c *Client) load(ctx context.Context, key string, out any) bool {
	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		mlog.Warn(mlog.H{"msg": "cache get failed", "error": err, "info": key})
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		mlog.Warn(mlog.H{"msg": "cache decode failed", "error": err, "info": key})
		return false
	}
	mlog.Trace(mlog.H{"msg": "cache hit", "info": key})
	return true
}

func (c *Client) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		mlog.Warn(mlog.H{"msg": "cache encode failed", "error": err, "info": key})
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		mlog.Warn(mlog.H{"msg": "cache set failed", "error": err, "info": key})
	}
}

var _ mvlogs.Client = (*Client)(nil)
