// Package stats aggregates committed focus sessions into per-user study
// statistics.
//
// It owns the lifetime counters, streak tracking, the daily study time
// series, and the derived productivity score, keeping aggregation rules
// isolated from the session state machine that feeds it.
package stats
