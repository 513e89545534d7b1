package entities

type LeadGroupCount struct {
	Key   string `json:"key"`
	Count uint64 `json:"count"`
}

type LeadReport struct {
	Total    uint64           `json:"total"`
	ByStatus []LeadGroupCount `json:"by_status"`
	BySource []LeadGroupCount `json:"by_source"`
}
