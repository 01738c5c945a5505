package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"staffpulse/internal/extraction"
	"staffpulse/internal/insights"
	"staffpulse/internal/store"
	"staffpulse/internal/validation"
	"staffpulse/pkg/contracts/domain"
)

// Stage IDs in execution order.
const (
	StageIDValidate = "validate"
	StageIDExtract  = "extract"
	StageIDPersist  = "persist"
	StageIDAnalyze  = "analyze"
)

// Archiver keeps the original upload bytes for later reference. The files
// package provides the production implementation.
type Archiver interface {
	SaveUpload(fileName string, data []byte) (string, error)
}

// DefaultStages returns the standard stage sequence wired to the given
// collaborators. A nil archive disables upload archiving.
func DefaultStages(validator *validation.UploadValidator, extractor *extraction.Extractor, st store.Store, archive Archiver, logger *slog.Logger) []Stage {
	return []Stage{
		NewValidateStage(validator),
		NewExtractStage(extractor),
		NewPersistStage(st, archive, logger),
		NewAnalyzeStage(),
	}
}

// ValidateStage rejects payloads that are not usable workbooks before any
// extraction work happens.
type ValidateStage struct {
	validator *validation.UploadValidator
}

// NewValidateStage creates the validation stage.
func NewValidateStage(validator *validation.UploadValidator) *ValidateStage {
	return &ValidateStage{validator: validator}
}

func (s *ValidateStage) ID() string   { return StageIDValidate }
func (s *ValidateStage) Name() string { return "Validate workbook" }

func (s *ValidateStage) Validate(state *State) error {
	if s.validator == nil {
		return fmt.Errorf("no upload validator configured")
	}
	return nil
}

func (s *ValidateStage) Execute(ctx context.Context, state *State) error {
	if err := s.validator.ValidateUpload(state.FileName(), state.Data()); err != nil {
		return NewValidationError(StageIDValidate, err)
	}
	return nil
}

// ExtractStage turns the workbook bytes into a ParsedReport.
type ExtractStage struct {
	extractor *extraction.Extractor
}

// NewExtractStage creates the extraction stage.
func NewExtractStage(extractor *extraction.Extractor) *ExtractStage {
	return &ExtractStage{extractor: extractor}
}

func (s *ExtractStage) ID() string   { return StageIDExtract }
func (s *ExtractStage) Name() string { return "Extract report" }

func (s *ExtractStage) Validate(state *State) error {
	if s.extractor == nil {
		return fmt.Errorf("no extractor configured")
	}
	if len(state.Data()) == 0 {
		return fmt.Errorf("no workbook bytes to extract")
	}
	return nil
}

func (s *ExtractStage) Execute(ctx context.Context, state *State) error {
	report, err := s.extractor.Extract(state.Data(), state.FileName())
	if err != nil {
		return NewExecutionError(StageIDExtract, err)
	}
	state.SetReport(report)
	return nil
}

// PersistStage archives the original upload and saves the extracted report
// document. Archiving is best effort: a failed archive write is logged and
// the run continues, losing the report itself is the only fatal outcome.
type PersistStage struct {
	store   store.Store
	archive Archiver
	logger  *slog.Logger
}

// NewPersistStage creates the persistence stage.
func NewPersistStage(st store.Store, archive Archiver, logger *slog.Logger) *PersistStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStage{store: st, archive: archive, logger: logger}
}

func (s *PersistStage) ID() string   { return StageIDPersist }
func (s *PersistStage) Name() string { return "Persist report" }

func (s *PersistStage) Validate(state *State) error {
	if s.store == nil {
		return fmt.Errorf("no store configured")
	}
	if state.Report() == nil {
		return fmt.Errorf("no extracted report to persist")
	}
	return nil
}

func (s *PersistStage) Execute(ctx context.Context, state *State) error {
	if s.archive != nil {
		path, err := s.archive.SaveUpload(state.FileName(), state.Data())
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to archive upload",
				slog.String("file_name", state.FileName()),
				slog.String("error", err.Error()))
		} else {
			state.SetArchivePath(path)
		}
	}

	report := state.Report()
	id, err := s.store.SaveReport(ctx, report)
	if err != nil {
		return NewExecutionError(StageIDPersist, err)
	}

	// The store assigns the ID on its own copy; give later stages and the
	// result the persisted identity.
	saved := *report
	saved.ID = id
	state.SetReport(&saved)
	state.SetReportID(id)
	return nil
}

// AnalyzeStage runs the insight engine over every extracted sheet so the
// upload response can carry first findings without a second request.
type AnalyzeStage struct{}

// NewAnalyzeStage creates the analysis stage.
func NewAnalyzeStage() *AnalyzeStage {
	return &AnalyzeStage{}
}

func (s *AnalyzeStage) ID() string   { return StageIDAnalyze }
func (s *AnalyzeStage) Name() string { return "Analyze sheets" }

func (s *AnalyzeStage) Validate(state *State) error {
	if state.Report() == nil {
		return fmt.Errorf("no extracted report to analyze")
	}
	return nil
}

func (s *AnalyzeStage) Execute(ctx context.Context, state *State) error {
	report := state.Report()
	results := make([]domain.SheetInsights, 0, len(report.Sheets))
	for _, sheet := range report.Sheets {
		results = append(results, insights.Analyze(sheet))
	}
	state.SetInsights(results)
	return nil
}
