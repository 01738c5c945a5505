package api

import (
	"time"

	"staffpulse/pkg/contracts/domain"
)

// UploadResponse summarizes a processed upload. The full document is
// available from GET /api/reports/{id}.
type UploadResponse struct {
	ReportID   string       `json:"report_id"`
	FileName   string       `json:"file_name"`
	WeekNumber string       `json:"week_number"`
	SheetCount int          `json:"sheet_count"`
	WeekCount  int          `json:"week_count"`
	PipelineID string       `json:"pipeline_id"`
	DurationMS int64        `json:"duration_ms"`
	Stages     []StageState `json:"stages"`
}

// StageState is one pipeline stage's outcome inside an upload response.
type StageState struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
}

// ReportPage is one page of stored report summaries.
type ReportPage struct {
	Reports []domain.ReportSummary `json:"reports"`
	Total   int                    `json:"total"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
}

// AskResponse carries the assistant's answer.
type AskResponse struct {
	ReportID   string    `json:"report_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	AnsweredAt time.Time `json:"answered_at"`
}
