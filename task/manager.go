package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"tram/eval"
)

var (
	ErrNoSuchTask   = errors.New("no such task")
	ErrTaskFinished = errors.New("task already finished")
)

// Manager owns a set of tasks and runs them, each on a fresh processor
type Manager struct {
	tasks      map[int64]*Task
	nextTaskID int64
	mu         sync.RWMutex

	opts    eval.Options
	setup   func(p *eval.Processor)
	timeout time.Duration
	logger  *slog.Logger
}

// NewManager creates a manager. opts is the template for every task's
// processor; setup, if not nil, runs on each new processor before the
// program starts (it is where host functions get registered).
func NewManager(opts *eval.Options, setup func(p *eval.Processor)) *Manager {
	if opts == nil {
		opts = eval.DefaultOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		tasks:  make(map[int64]*Task),
		opts:   *opts,
		setup:  setup,
		logger: logger,
	}
}

// SetTimeout bounds the wall-clock time of each run; zero means none
func (m *Manager) SetTimeout(d time.Duration) {
	m.timeout = d
}

// CreateTask creates a new task and adds it to the manager
func (m *Manager) CreateTask(name string, code []eval.Command) *Task {
	id := atomic.AddInt64(&m.nextTaskID, 1)
	task := NewTask(id, name, code, m.opts.TickLimit)

	m.mu.Lock()
	m.tasks[id] = task
	m.mu.Unlock()

	return task
}

// GetTask retrieves a task by ID
func (m *Manager) GetTask(id int64) *Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tasks[id]
}

// RemoveTask removes a task from the manager
func (m *Manager) RemoveTask(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
}

// GetAllTasks returns all tasks ordered by ID
func (m *Manager) GetAllTasks() []*Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tasks := make([]*Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

// GetQueuedTasks returns all tasks that have not started yet
func (m *Manager) GetQueuedTasks() []*Task {
	var tasks []*Task
	for _, task := range m.GetAllTasks() {
		state := task.GetState()
		if state == TaskCreated || state == TaskQueued {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// KillTask kills a task by ID
func (m *Manager) KillTask(taskID int64) error {
	task := m.GetTask(taskID)
	if task == nil {
		return fmt.Errorf("%w: %d", ErrNoSuchTask, taskID)
	}
	if !task.Kill() {
		return fmt.Errorf("%w: %d", ErrTaskFinished, taskID)
	}
	return nil
}

// Run executes one task to completion. The program's own failure is
// recorded on the task and also returned.
func (m *Manager) Run(ctx context.Context, t *Task) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.mu.Lock()
	if t.State == TaskKilled {
		t.mu.Unlock()
		return nil
	}
	t.CancelFunc = cancel
	t.State = TaskRunning
	t.StartTime = time.Now()
	t.mu.Unlock()

	opts := m.opts
	if t.TicksLimit > 0 {
		opts.TickLimit = t.TicksLimit
	}
	opts.Logger = m.logger.With(slog.Int64("task", t.ID), slog.String("name", t.Name))
	hostPrint := m.opts.Print
	opts.Print = func(text string) {
		t.appendOutput(text)
		if hostPrint != nil {
			hostPrint(text)
		}
	}

	p := eval.NewProcessor(&opts)
	if m.setup != nil {
		m.setup(p)
	}
	err := p.RunContext(ctx, eval.Nodes(t.Code)...)
	killed := errors.Is(err, context.Canceled)
	if killed {
		err = nil
	}
	t.finish(p.Accumulator(), err, tracebackOf(err), killed)

	m.logger.Debug("task finished",
		slog.Int64("task", t.ID),
		slog.String("state", t.GetState().String()),
		slog.Duration("elapsed", t.Elapsed()))
	return err
}

// RunAll runs tasks concurrently, at most jobs at a time (jobs <= 0 means
// no limit). With failFast the first failing task cancels the rest;
// otherwise every task runs and RunAll reports how many failed.
func (m *Manager) RunAll(ctx context.Context, tasks []*Task, jobs int, failFast bool) error {
	g, gctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	var failed atomic.Int64
	for _, t := range tasks {
		t := t
		t.SetState(TaskQueued)
		g.Go(func() error {
			if err := m.Run(gctx, t); err != nil {
				failed.Add(1)
				if failFast {
					return fmt.Errorf("task %d (%s): %w", t.ID, t.Name, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d tasks failed", n, len(tasks))
	}
	return nil
}

// CleanupCompletedTasks removes finished tasks
func (m *Manager) CleanupCompletedTasks() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, task := range m.tasks {
		switch task.GetState() {
		case TaskCompleted, TaskFailed, TaskKilled:
			delete(m.tasks, id)
		}
	}
}

func tracebackOf(err error) eval.Traceback {
	var le *eval.LangError
	if errors.As(err, &le) && le.Traceback != nil {
		return le.Traceback
	}
	var pe *eval.ProcessorError
	if errors.As(err, &pe) {
		return pe.Traceback
	}
	return nil
}
