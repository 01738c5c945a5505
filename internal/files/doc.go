// Package files provides workbook discovery and the upload archive for the
// StaffPulse application.
//
// This package contains two main components:
//
// Discovery: Finds .xlsx workbooks in a directory, skipping Excel lock
// files. FindWeeklyReports maps weekly report workbooks by their week number
// so batch jobs can process each week exactly once.
//
// Archive: Keeps the original bytes of every uploaded workbook in the
// uploads directory. The processing pipeline archives through it before
// persisting the extracted document, so any extraction can be re-run. Old
// copies can be pruned by count or by age.
//
// Example usage:
//
//	// Create a discovery instance
//	discovery := files.NewDiscovery("/path/to/base")
//
//	// Find all weekly report workbooks
//	reports, err := discovery.FindWeeklyReports("uploads")
//
//	// Archive an uploaded workbook
//	archive := files.NewArchive(paths, logger)
//	path, err := archive.SaveUpload("13WeekReport_Week_14.xlsx", data)
package files
