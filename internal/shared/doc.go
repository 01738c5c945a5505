// Package shared holds the few helpers that belong to no domain or layer.
// Keep it free of business logic and of dependencies on other internal
// packages; anything with a natural home goes there instead.
//
// The only current resident is the testutil subpackage, a buffered slog
// handler for asserting on structured log output:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//
//	    doWork(logger)
//
//	    if !logs.ContainsMessage("work done") {
//	        t.Error("expected completion log")
//	    }
//	}
package shared
