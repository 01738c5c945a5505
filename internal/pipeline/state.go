package pipeline

import (
	"sync"
	"time"

	"staffpulse/pkg/contracts/domain"
)

// Status represents the overall run status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// State carries one upload through the stages. The input fields are set
// once before the run; each stage writes its output through the typed
// setters, which the following stages read.
type State struct {
	mu sync.RWMutex

	id        string
	fileName  string
	traceID   string
	data      []byte
	status    Status
	startTime time.Time
	endTime   *time.Time
	err       error

	stages map[string]*StageState

	report      *domain.ParsedReport
	reportID    string
	archivePath string
	insights    []domain.SheetInsights
}

// NewState creates the run state for one upload.
func NewState(id, fileName string, data []byte, traceID string) *State {
	return &State{
		id:        id,
		fileName:  fileName,
		traceID:   traceID,
		data:      data,
		status:    StatusPending,
		startTime: time.Now(),
		stages:    make(map[string]*StageState),
	}
}

// ID returns the run identifier.
func (s *State) ID() string { return s.id }

// FileName returns the original upload file name.
func (s *State) FileName() string { return s.fileName }

// TraceID returns the trace ID of the originating request.
func (s *State) TraceID() string { return s.traceID }

// Data returns the raw workbook bytes.
func (s *State) Data() []byte { return s.data }

// Start marks the run as running.
func (s *State) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusRunning
	s.startTime = time.Now()
}

// Complete marks the run as completed.
func (s *State) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.endTime = &now
	s.status = StatusCompleted
}

// Fail marks the run as failed.
func (s *State) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.endTime = &now
	s.status = StatusFailed
	s.err = err
}

// Cancel marks the run as cancelled.
func (s *State) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.endTime = &now
	s.status = StatusCancelled
}

// Status returns the overall run status.
func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns the error that failed the run, if any.
func (s *State) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Duration returns how long the run took, or has been running.
func (s *State) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.endTime != nil {
		return s.endTime.Sub(s.startTime)
	}
	return time.Since(s.startTime)
}

// Stage returns the record for a stage ID, or nil.
func (s *State) Stage(id string) *StageState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stages[id]
}

// SetStage registers a stage record under its ID.
func (s *State) SetStage(id string, stage *StageState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages[id] = stage
}

// SetReport stores the extraction output.
func (s *State) SetReport(report *domain.ParsedReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = report
}

// Report returns the extraction output, nil before the extract stage ran.
func (s *State) Report() *domain.ParsedReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// SetReportID stores the ID the report was persisted under.
func (s *State) SetReportID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reportID = id
}

// ReportID returns the persisted report ID, empty before the persist stage.
func (s *State) ReportID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reportID
}

// SetArchivePath stores where the original upload was archived.
func (s *State) SetArchivePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archivePath = path
}

// ArchivePath returns the archived upload path, empty when archiving was
// skipped or failed.
func (s *State) ArchivePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.archivePath
}

// SetInsights stores the per-sheet analysis output.
func (s *State) SetInsights(insights []domain.SheetInsights) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights = insights
}

// Insights returns the per-sheet analysis output.
func (s *State) Insights() []domain.SheetInsights {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.insights
}
