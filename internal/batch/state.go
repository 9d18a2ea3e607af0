package batch

import "fmt"

// TaskState is the execution state of one input.
type TaskState string

const (
	TaskPending   TaskState = "PENDING"
	TaskRunning   TaskState = "RUNNING"
	TaskSucceeded TaskState = "SUCCEEDED"
	TaskFailed    TaskState = "FAILED"
)

// IsTerminal reports whether the state is final.
func IsTerminal(s TaskState) bool {
	return s == TaskSucceeded || s == TaskFailed
}

// Status is the terminal state of a whole batch.
type Status string

const (
	// Completed means every input reached a terminal state.
	Completed Status = "COMPLETED"
	// TimedOut means the time budget elapsed first.
	TimedOut Status = "TIMED_OUT"
	// Cancelled means the parent context was cancelled first.
	Cancelled Status = "CANCELLED"
)

// transition moves task i from one state to another and fails on any
// transition the lifecycle does not allow.
func transition(states []TaskState, i int, from, to TaskState) error {
	if i < 0 || i >= len(states) {
		return fmt.Errorf("unknown task %d", i)
	}
	if cur := states[i]; cur != from {
		return fmt.Errorf("invalid transition for task %d: expected %s, got %s", i, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for task %d: %s -> %s", i, from, to)
	}
	states[i] = to
	return nil
}

func isAllowedTransition(from, to TaskState) bool {
	if IsTerminal(from) {
		return false
	}
	switch from {
	case TaskPending:
		return to == TaskRunning
	case TaskRunning:
		return IsTerminal(to)
	default:
		return false
	}
}
