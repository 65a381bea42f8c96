package mvlogs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/gzip"
	"github.com/valyala/fastjson"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mlog"
)

const (
	pathQuery       = "/select/logsql/query"
	pathFieldNames  = "/select/logsql/field_names"
	pathFieldValues = "/select/logsql/field_values"

	// 单行日志上限
	maxLineSize = 16 << 20
	// StatusError 中保留的响应体长度
	maxErrorBody = 512
)

// Client 各插件依赖的 VictoriaLogs 客户端接口
type Client interface {
	StreamQueryRange(ctx context.Context, params StreamQueryRangeParams) (StreamQueryRangeResponse, error)
	FieldNames(ctx context.Context, params FieldNamesParams) (*FieldNamesResponse, error)
	FieldValues(ctx context.Context, params FieldValuesParams) (*FieldValuesResponse, error)
}

// StatusError 非 2xx 响应
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("victorialogs: HTTP %d: %s", e.StatusCode, e.Body)
}

type HTTPClient struct {
	Conf  *clientConf
	resty *resty.Client
}

// clientConf 客户端配置
type clientConf struct {
	BaseURL string
	Limit   int
}

// clientOpts 客户端选项
type clientOpts func(*HTTPClient)

// NewClient 创建客户端
func NewClient(baseUrl string, opts ...clientOpts) *HTTPClient {
	c := &HTTPClient{
		Conf:  &clientConf{BaseURL: baseUrl},
		resty: resty.New(),
	}

	{
		c.resty.SetTimeout(30 * time.Second)
		c.resty.SetDisableWarn(true)
		c.resty.SetBaseURL(baseUrl)
		c.resty.SetJSONUnmarshaler(jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal)
		c.resty.SetJSONMarshaler(jsoniter.ConfigCompatibleWithStandardLibrary.Marshal)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromSpec 根据数据源配置创建客户端
func NewClientFromSpec(spec DatasourceSpec, opts ...clientOpts) *HTTPClient {
	var all []clientOpts
	if spec.Username != "" {
		all = append(all, WithClientBasicAuth(spec.Username, spec.Password))
	}
	if spec.Token != "" {
		all = append(all, WithClientBearerAuth(spec.Token))
	}
	if spec.AccountID != "" || spec.ProjectID != "" {
		all = append(all, WithClientTenant(spec.AccountID, spec.ProjectID))
	}
	for k, v := range spec.Headers {
		all = append(all, WithClientHeader(k, v))
	}
	return NewClient(spec.DirectURL, append(all, opts...)...)
}

// WithClientBasicAuth 设置基本认证
func WithClientBasicAuth(username, password string) clientOpts {
	return func(c *HTTPClient) {
		c.resty.SetBasicAuth(username, password)
	}
}

// WithClientBearerAuth 设置 Bearer 认证
func WithClientBearerAuth(token string) clientOpts {
	return func(c *HTTPClient) {
		c.resty.SetAuthToken(token)
	}
}

// WithClientTenant 多租户请求头
func WithClientTenant(accountID, projectID string) clientOpts {
	return func(c *HTTPClient) {
		if accountID != "" {
			c.resty.SetHeader("AccountID", accountID)
		}
		if projectID != "" {
			c.resty.SetHeader("ProjectID", projectID)
		}
	}
}

// WithClientHeader 设置请求头
func WithClientHeader(key, value string) clientOpts {
	return func(c *HTTPClient) {
		c.resty.SetHeader(key, value)
	}
}

// WithClientDebug 设置 debug
func WithClientDebug(debug bool) clientOpts {
	return func(c *HTTPClient) {
		c.resty.SetDebug(debug)
	}
}

// WithClientTimeout 设置超时时间
func WithClientTimeout(timeout time.Duration) clientOpts {
	return func(c *HTTPClient) {
		c.resty.SetTimeout(timeout)
	}
}

// WithClientLimit 未在请求中指定 limit 时使用的默认值, 0 表示不限制
func WithClientLimit(limit int) clientOpts {
	return func(c *HTTPClient) {
		c.Conf.Limit = limit
	}
}

// StreamQueryRange 查询时间范围内的日志, 按服务端返回顺序输出
func (t *HTTPClient) StreamQueryRange(ctx context.Context, params StreamQueryRangeParams) (StreamQueryRangeResponse, error) {
	form := map[string]string{
		"query": params.Query,
		"start": params.Start,
		"end":   params.End,
	}
	if limit := t.limit(params.Limit); limit > 0 {
		form["limit"] = strconv.Itoa(limit)
	}

	mlog.Debug(mlog.H{"msg": "victorialogs stream query", "data": form})

	resp, err := t.resty.R().
		SetContext(ctx).
		SetFormData(form).
		SetHeader("Accept-Encoding", "gzip").
		SetDoNotParseResponse(true).
		Post(pathQuery)
	if err != nil {
		return nil, err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode(), Body: string(raw)}
	}
	return decodeStream(body)
}

// FieldNames 查询匹配日志中出现的字段名
func (t *HTTPClient) FieldNames(ctx context.Context, params FieldNamesParams) (*FieldNamesResponse, error) {
	result := &FieldNamesResponse{}
	err := t.postJSON(ctx, pathFieldNames, map[string]string{
		"query": params.Query,
		"start": params.Start,
		"end":   params.End,
	}, result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FieldValues 查询字段的取值
func (t *HTTPClient) FieldValues(ctx context.Context, params FieldValuesParams) (*FieldValuesResponse, error) {
	form := map[string]string{
		"field": params.Field,
		"query": params.Query,
		"start": params.Start,
		"end":   params.End,
	}
	if limit := t.limit(params.Limit); limit > 0 {
		form["limit"] = strconv.Itoa(limit)
	}

	result := &FieldValuesResponse{}
	if err := t.postJSON(ctx, pathFieldValues, form, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (t *HTTPClient) postJSON(ctx context.Context, path string, form map[string]string, result any) error {
	mlog.Debug(mlog.H{"msg": "victorialogs request", "info": path, "data": form})

	resp, err := t.resty.R().
		SetContext(ctx).
		SetFormData(form).
		SetHeader("Accept", "application/json").
		ForceContentType("application/json").
		SetResult(result).
		Post(path)
	if err != nil {
		return err
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return &StatusError{StatusCode: resp.StatusCode(), Body: truncate(resp.String(), maxErrorBody)}
	}
	return nil
}

func (t *HTTPClient) limit(limit int) int {
	if limit > 0 {
		return limit
	}
	return t.Conf.Limit
}

// decodeStream 逐行解析 NDJSON, 支持 gzip 压缩的响应体
func decodeStream(body io.Reader) (StreamQueryRangeResponse, error) {
	br := bufio.NewReader(body)
	var r io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var p fastjson.Parser
	records := StreamQueryRangeResponse{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		v, err := p.ParseBytes(line)
		if err != nil {
			return nil, fmt.Errorf("victorialogs: decode line %d: %w", lineNo, err)
		}
		obj, err := v.Object()
		if err != nil {
			return nil, fmt.Errorf("victorialogs: decode line %d: %w", lineNo, err)
		}
		record := make(StreamRecord, obj.Len())
		obj.Visit(func(key []byte, v *fastjson.Value) {
			if v.Type() == fastjson.TypeString {
				record[string(key)] = string(v.GetStringBytes())
				return
			}
			record[string(key)] = v.String()
		})
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

var _ Client = (*HTTPClient)(nil)
