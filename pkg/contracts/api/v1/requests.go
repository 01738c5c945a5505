// Package api contains the request and response contracts for the
// StaffPulse HTTP API. Version v1 is the current stable API version.
package api

// ListReportsRequest carries the paging parameters of GET /api/reports.
// Zero values select the server defaults.
type ListReportsRequest struct {
	Limit  int `json:"limit" query:"limit" validate:"omitempty,min=1,max=200"`
	Offset int `json:"offset" query:"offset" validate:"omitempty,min=0"`
}

// AskRequest is the body of POST /api/reports/{id}/ask.
type AskRequest struct {
	Question string `json:"question" validate:"required,min=3,max=2000"`
}

// InsightParams names the path parameters of the sheet insights route.
type InsightParams struct {
	ReportID  string `param:"id" validate:"required,uuid"`
	SheetName string `param:"name" validate:"required,sheetname"`
}
