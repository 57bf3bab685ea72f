package executor

import "fmt"

// ProgressStatus is the lifecycle state of one task in a run.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
	ProgressSkipped  ProgressStatus = "skipped"
)

// ProgressEvent reports a task state change.
type ProgressEvent struct {
	RunID   string
	Task    string
	Level   int
	Status  ProgressStatus
	Message string
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{ch: make(chan ProgressEvent, 64)}
}

// Emit sends a progress event without blocking. If the channel is full the
// event is dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", event.Task)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", event.Task)
	case ProgressComplete:
		return fmt.Sprintf("  ✓ %s complete", event.Task)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Task, event.Message)
	case ProgressSkipped:
		return fmt.Sprintf("  - %s skipped", event.Task)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Task)
	}
}
