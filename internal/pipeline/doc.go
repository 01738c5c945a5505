// Package pipeline runs an uploaded workbook through the fixed extraction
// sequence validate -> extract -> persist -> analyze.
//
// Each stage implements the Stage interface; the Manager executes them in
// order on the caller's goroutine, broadcasts progress and completion
// events to the WebSocket hub, and records a span plus duration metrics
// per stage. A stage failure aborts the run with a typed *StageError so
// the service layer can tell a rejected workbook (validation) from an
// infrastructure fault (execution).
//
// Example:
//
//	manager := pipeline.NewManager(hub, tracer, logger,
//		pipeline.DefaultStages(validator, extractor, store, archive, logger)...)
//	result, err := manager.Run(ctx, pipeline.Upload{
//		FileName: header.Filename,
//		Data:     data,
//		TraceID:  traceID,
//	})
package pipeline
