// Package events records a history of syscheck runs.
//
// Events are simple, synchronous, append-only records of what happened
// during a run. The recorder writes JSON lines to a file chosen with
// --events; the reader scans them back. Recording is best-effort: errors
// are logged to stderr but never returned to callers.
package events

import "time"

// Event type constants.
const (
	RunStarted    = "run.started"
	CheckFinished = "check.finished"
	RunFinished   = "run.finished"
)

// Event is a single recorded occurrence in a run.
type Event struct {
	Seq  uint64    `json:"seq"`
	Type string    `json:"type"`
	Ts   time.Time `json:"ts"`
	// Run identifies the run that emitted the event.
	Run string `json:"run"`
	// Root is the installation root that was checked.
	Root       string `json:"root,omitempty"`
	Group      string `json:"group,omitempty"`
	Check      string `json:"check,omitempty"`
	Findings   int    `json:"findings,omitempty"`
	Failed     int    `json:"failed,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Recorder records events. Safe for concurrent use. Best-effort.
type Recorder interface {
	Record(e Event)
}

// Provider records events and reads them back.
type Provider interface {
	Recorder
	// List returns recorded events matching filter, in Seq order.
	List(filter Filter) ([]Event, error)
	// LatestSeq returns the highest recorded Seq, or 0 when empty.
	LatestSeq() (uint64, error)
	Close() error
}

// Discard silently drops all events.
var Discard Recorder = discardRecorder{}

type discardRecorder struct{}

func (discardRecorder) Record(Event) {}
