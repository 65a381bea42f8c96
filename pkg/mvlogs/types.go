package mvlogs

import "github.com/lwmacct/251015-go-mod-vlogs/pkg/mvlogs/types/field_items"

// DatasourceKind 数据源插件类型
const DatasourceKind = "VictoriaLogsDatasource"

// 保留字段
const (
	MessageField = "_msg"
	TimeField    = "_time"
	StreamField  = "_stream"
)

// POST /select/logsql/field_names
type FieldNamesResponse field_items.Root

// POST /select/logsql/field_values
type FieldValuesResponse field_items.Root

type FieldItem = field_items.Item

// StreamRecord 流式查询返回的一行, 所有字段都是字符串
type StreamRecord map[string]string

// POST /select/logsql/query, 响应为 NDJSON
type StreamQueryRangeResponse []StreamRecord

// StreamQueryRangeParams 时间均为 ISO-8601 字符串
type StreamQueryRangeParams struct {
	Query string
	Start string
	End   string
	Limit int
}

type FieldNamesParams struct {
	Query string
	Start string
	End   string
}

type FieldValuesParams struct {
	Field string
	Query string
	Start string
	End   string
	Limit int
}

// DatasourceSpec 数据源配置
type DatasourceSpec struct {
	DirectURL string            `json:"directUrl" yaml:"directUrl"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Username  string            `json:"username,omitempty" yaml:"username,omitempty"`
	Password  string            `json:"password,omitempty" yaml:"password,omitempty"`
	Token     string            `json:"token,omitempty" yaml:"token,omitempty"`
	AccountID string            `json:"accountID,omitempty" yaml:"accountID,omitempty"`
	ProjectID string            `json:"projectID,omitempty" yaml:"projectID,omitempty"`
}
