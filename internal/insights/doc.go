// Package insights computes qualitative findings and derived metrics from an
// extracted weekly series.
//
// The engine is a pure function of its inputs: no internal state, nothing
// persisted, safe to call concurrently for different sheets. Findings compare
// the two most recent weekly records against fixed thresholds and always
// arrive in the same order (revenue, margin, staffing, productivity). Derived
// metrics degrade to 0 instead of erroring when inputs are missing or a
// denominator is 0, matching the extraction layer's never-NaN contract.
package insights
