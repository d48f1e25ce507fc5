// Package timer implements per-user focus session lifecycle and triggers.
//
// It keeps session state transitions, trigger scheduling, and stale-trigger
// guarding isolated from presentation concerns so the external command and
// rendering layers stay free of timing logic.
package timer
