package task

import (
	"context"
	"sync"
	"time"

	"tram/eval"
	"tram/types"
)

// TaskState represents the current state of a task
type TaskState int

const (
	TaskCreated TaskState = iota
	TaskQueued
	TaskRunning
	TaskCompleted
	TaskFailed
	TaskKilled
)

func (s TaskState) String() string {
	switch s {
	case TaskCreated:
		return "created"
	case TaskQueued:
		return "queued"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	case TaskKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// Task is one program run on its own processor
type Task struct {
	ID         int64
	Name       string // usually the source file
	State      TaskState
	QueueTime  time.Time
	StartTime  time.Time
	EndTime    time.Time
	TicksLimit int64
	Code       []eval.Command

	Result    types.Value    // final accumulator of a completed task
	Err       error          // uncaught exception or processor error
	Traceback eval.Traceback // traceback of Err, when it has one
	Output    []string       // text printed by the program

	CancelFunc context.CancelFunc // For cancellation (exported for the manager)

	mu sync.RWMutex
}

// NewTask creates a new task
func NewTask(id int64, name string, code []eval.Command, tickLimit int64) *Task {
	return &Task{
		ID:         id,
		Name:       name,
		State:      TaskCreated,
		QueueTime:  time.Now(),
		TicksLimit: tickLimit,
		Code:       code,
		Result:     types.Null,
	}
}

// GetState returns the current state (thread-safe)
func (t *Task) GetState() TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.State
}

// SetState sets the state (thread-safe)
func (t *Task) SetState(state TaskState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.State = state
}

// appendOutput records a line printed by the program
func (t *Task) appendOutput(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Output = append(t.Output, text)
}

// GetOutput returns a copy of the printed lines (thread-safe)
func (t *Task) GetOutput() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.Output))
	copy(out, t.Output)
	return out
}

// finish records the outcome of a run
func (t *Task) finish(result types.Value, err error, tb eval.Traceback, killed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.EndTime = time.Now()
	t.Err = err
	t.Traceback = tb
	switch {
	case killed:
		t.State = TaskKilled
	case err != nil:
		t.State = TaskFailed
	default:
		t.State = TaskCompleted
		t.Result = result
	}
}

// Kill cancels a queued or running task. The program unwinds, running
// its finally blocks, and the task ends Killed.
func (t *Task) Kill() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.State {
	case TaskCompleted, TaskFailed, TaskKilled:
		return false
	}
	if t.CancelFunc != nil {
		t.CancelFunc()
	}
	if t.State != TaskRunning {
		t.State = TaskKilled
	}
	return true
}

// Elapsed returns how long the task ran
func (t *Task) Elapsed() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.StartTime.IsZero() {
		return 0
	}
	if t.EndTime.IsZero() {
		return time.Since(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}
