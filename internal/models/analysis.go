package models

type ReportType string

const (
	ReportAttack      ReportType = "Attack"
	ReportDefense     ReportType = "Defense"
	ReportAllianceWar ReportType = "Alliance War"
	ReportScout       ReportType = "Scout"
	ReportMonster     ReportType = "Monster"
	ReportUnknown     ReportType = "Unknown"
)

type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// AnalysisResult is the typed outcome of one analysis call. It is never
// mutated after creation; chat context and persistence read it by value.
type AnalysisResult struct {
	ReportType      ReportType `json:"report_type"`
	Summary         string     `json:"summary"`
	Recommendations string     `json:"recommendations"`
	AnonymizedData  string     `json:"anonymized_data"`
	Sources         []Source   `json:"sources,omitempty"`
}

// OCRResult is the per-image recognition outcome, folded into the
// combined extracted text and then discarded.
type OCRResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}
