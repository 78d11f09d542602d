package output

// SeriesInfo is one series verdict in JSON output.
type SeriesInfo struct {
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	Metric    string  `json:"metric"`
	Points    int     `json:"points"`
	Last      float64 `json:"last"`
	Threshold float64 `json:"threshold"`
	Percent   float64 `json:"percent_of_threshold"`
}

// Summary counts series by status.
type Summary struct {
	Total   int `json:"total"`
	Pass    int `json:"pass"`
	Fail    int `json:"fail"`
	Unknown int `json:"unknown"`
}

// CheckOutput is the JSON output of the check command.
type CheckOutput struct {
	Summary Summary      `json:"summary"`
	Series  []SeriesInfo `json:"series"`
}

// ReportOutput is the JSON output of the report command.
type ReportOutput struct {
	Report       string       `json:"report"`
	SummaryImage string       `json:"summary_image"`
	Images       []string     `json:"images"`
	JSON         string       `json:"json,omitempty"`
	Summary      Summary      `json:"summary"`
	Series       []SeriesInfo `json:"series"`
}

// CollectOutput is the JSON output of the collect command.
type CollectOutput struct {
	RawDir  string        `json:"raw_dir"`
	Builds  int           `json:"builds"`
	Rows    int           `json:"rows"`
	Tables  []string      `json:"tables"`
	Skipped []string      `json:"skipped,omitempty"`
	Report  *ReportOutput `json:"report,omitempty"`
}
