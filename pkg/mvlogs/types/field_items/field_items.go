package field_items

// path: $
type Root struct {
	Values []Item `json:"values"`
}

// path: $.values
type Item struct {
	Value string `json:"value"`
	Hits  uint64 `json:"hits" note:"匹配的日志条数"`
}
