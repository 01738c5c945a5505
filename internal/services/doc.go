// Package services implements the business logic layer between the HTTP
// handlers and the collaborators (store, pipeline, assistant, authorizer).
// Handlers stay thin: they bind and validate requests, resolve the
// principal, and delegate here; services own authorization filtering,
// error mapping, and orchestration.
//
// # Services
//
//	- ReportService: upload processing through the pipeline, report
//	  retrieval with sheet-set filtering, listing, deletion, CSV export
//	- InsightService: on-demand findings and derived metrics per sheet
//	- AssistantService: renders a report into a text context and forwards
//	  (context, question) to the assistant capability
//	- HealthService: liveness, readiness, and runtime stats probes
//
// # Common Service Pattern
//
// Services follow the same structure:
//
//	type ReportService struct {
//	    store  store.Store
//	    logger *slog.Logger
//	}
//
//	func NewReportService(store store.Store, ..., logger *slog.Logger) *ReportService
//
//	func (s *ReportService) Get(ctx context.Context, principal, id string) (*domain.ParsedReport, error) {
//	    report, err := s.store.GetReport(ctx, id)
//	    if err != nil {
//	        return nil, storeError(err, "report")
//	    }
//	    ...
//	}
//
// # Error Handling
//
// Every error leaving this package is a typed AppError (or a context
// error) so the transport layer can render an RFC 7807 problem from the
// type alone: store misses become not-found errors, rejected workbooks
// become validation or parsing errors, assistant throttling becomes a
// rate-limit error with a retry hint.
//
// # Authorization
//
// Methods take the principal resolved by the security middleware as an
// explicit argument. Sheet-set filtering happens here, on data already
// loaded from the store; the extraction core never sees principals.
package services
