package task

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tram/eval"
	"tram/types"
)

func quietOptions() *eval.Options {
	opts := eval.DefaultOptions()
	opts.Print = func(string) {}
	return opts
}

func konst(v types.Value) eval.Command { return &eval.Const{Value: v} }

func printLine(s string) eval.Command {
	return &eval.Print{Args: []eval.Command{konst(types.NewStr(s))}}
}

func raiseValueError(msg string) eval.Command {
	return &eval.Throw{Value: &eval.Call{
		Fn:   &eval.GetVar{Name: "ValueError"},
		Args: []eval.Command{konst(types.NewStr(msg))},
	}}
}

func forever() eval.Command {
	return &eval.While{Cond: konst(types.NewBool(true))}
}

func TestRunRecordsResultAndOutput(t *testing.T) {
	m := NewManager(quietOptions(), nil)
	task := m.CreateTask("ok", []eval.Command{printLine("hello"), konst(types.NewInt(42))})

	if err := m.Run(context.Background(), task); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if task.GetState() != TaskCompleted {
		t.Errorf("state = %s", task.GetState())
	}
	if !task.Result.Equal(types.NewInt(42)) {
		t.Errorf("result = %s", task.Result)
	}
	if diff := cmp.Diff([]string{"hello"}, task.GetOutput()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if task.Elapsed() < 0 || task.EndTime.IsZero() {
		t.Error("end time not recorded")
	}
}

func TestRunRecordsFailure(t *testing.T) {
	m := NewManager(quietOptions(), nil)
	task := m.CreateTask("bad", []eval.Command{
		&eval.Function{Name: "f", Body: []eval.Command{raiseValueError("boom")}},
		&eval.Call{Fn: &eval.GetVar{Name: "f"}},
	})

	err := m.Run(context.Background(), task)
	var pe *eval.ProcessorError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want a processor error", err)
	}
	if task.GetState() != TaskFailed || task.Err != err {
		t.Errorf("state = %s, err = %v", task.GetState(), task.Err)
	}
	if !task.Result.Equal(types.Null) {
		t.Errorf("failed task should keep a null result, got %s", task.Result)
	}
	if len(task.Traceback) != 1 || task.Traceback[0].Name != "f" {
		t.Errorf("traceback = %v", task.Traceback)
	}
	lines := FormatTraceback(task.Traceback, task.Err)
	if !strings.HasPrefix(lines[0], "f (") || !strings.Contains(lines[0], "ValueError: boom") {
		t.Errorf("traceback line = %q", lines[0])
	}
}

func TestSetupRunsOnEveryProcessor(t *testing.T) {
	calls := 0
	m := NewManager(quietOptions(), func(p *eval.Processor) {
		calls++
		p.RegisterExternal("answer", func(*eval.Processor, []types.Value) (any, error) {
			return types.NewInt(42), nil
		})
	})
	for i := 0; i < 2; i++ {
		task := m.CreateTask("ext", []eval.Command{&eval.ExternalCall{Name: "answer"}})
		if err := m.Run(context.Background(), task); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !task.Result.Equal(types.NewInt(42)) {
			t.Errorf("result = %s", task.Result)
		}
	}
	if calls != 2 {
		t.Errorf("setup ran %d times, want 2", calls)
	}
}

func TestTickLimitFailsTask(t *testing.T) {
	opts := quietOptions()
	opts.TickLimit = 100
	m := NewManager(opts, nil)
	task := m.CreateTask("spin", []eval.Command{forever()})

	err := m.Run(context.Background(), task)
	if err == nil || err.Error() != "tick limit of 100 exceeded" {
		t.Fatalf("err = %v", err)
	}
	if task.GetState() != TaskFailed {
		t.Errorf("state = %s", task.GetState())
	}
}

func TestTimeoutFailsTask(t *testing.T) {
	m := NewManager(quietOptions(), nil)
	m.SetTimeout(20 * time.Millisecond)
	task := m.CreateTask("spin", []eval.Command{forever()})

	err := m.Run(context.Background(), task)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if task.GetState() != TaskFailed {
		t.Errorf("state = %s", task.GetState())
	}
}

func TestKillRunningTaskUnwinds(t *testing.T) {
	started := make(chan struct{})
	m := NewManager(quietOptions(), func(p *eval.Processor) {
		p.RegisterExternal("started", func(*eval.Processor, []types.Value) (any, error) {
			close(started)
			return nil, nil
		})
	})
	task := m.CreateTask("loop", []eval.Command{&eval.Try{
		Body:    []eval.Command{&eval.ExternalCall{Name: "started"}, forever()},
		Finally: []eval.Command{printLine("unwound")},
	}})

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background(), task) }()

	<-started
	if err := m.KillTask(task.ID); err != nil {
		t.Fatalf("KillTask: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("killed task reported %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("task did not stop after kill")
	}
	if task.GetState() != TaskKilled {
		t.Errorf("state = %s", task.GetState())
	}
	if diff := cmp.Diff([]string{"unwound"}, task.GetOutput()); diff != "" {
		t.Errorf("finally should run on kill (-want +got):\n%s", diff)
	}
}

func TestKillQueuedTask(t *testing.T) {
	m := NewManager(quietOptions(), nil)
	task := m.CreateTask("never", []eval.Command{printLine("ran")})

	if err := m.KillTask(task.ID); err != nil {
		t.Fatalf("KillTask: %v", err)
	}
	if err := m.Run(context.Background(), task); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if task.GetState() != TaskKilled || len(task.GetOutput()) != 0 {
		t.Errorf("killed task ran: state %s, output %v", task.GetState(), task.GetOutput())
	}

	if err := m.KillTask(task.ID); !errors.Is(err, ErrTaskFinished) {
		t.Errorf("second kill: %v", err)
	}
	if err := m.KillTask(999); !errors.Is(err, ErrNoSuchTask) {
		t.Errorf("unknown task: %v", err)
	}
}

func TestRunAllCountsFailures(t *testing.T) {
	m := NewManager(quietOptions(), nil)
	tasks := []*Task{
		m.CreateTask("a", []eval.Command{konst(types.NewInt(1))}),
		m.CreateTask("b", []eval.Command{raiseValueError("b failed")}),
		m.CreateTask("c", []eval.Command{konst(types.NewInt(3))}),
	}

	err := m.RunAll(context.Background(), tasks, 2, false)
	if err == nil || err.Error() != "1 of 3 tasks failed" {
		t.Fatalf("err = %v", err)
	}
	var states []string
	for _, task := range tasks {
		states = append(states, task.GetState().String())
	}
	if diff := cmp.Diff([]string{"completed", "failed", "completed"}, states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestRunAllFailFast(t *testing.T) {
	m := NewManager(quietOptions(), nil)
	bad := m.CreateTask("bad", []eval.Command{raiseValueError("stop")})

	err := m.RunAll(context.Background(), []*Task{bad}, 1, true)
	if err == nil || !strings.HasPrefix(err.Error(), "task 1 (bad): uncaught exception") {
		t.Fatalf("err = %v", err)
	}
}

func TestTaskBookkeeping(t *testing.T) {
	m := NewManager(nil, nil)
	a := m.CreateTask("a", nil)
	b := m.CreateTask("b", nil)

	if m.GetTask(a.ID) != a || m.GetTask(b.ID) != b {
		t.Fatal("GetTask returned the wrong task")
	}
	if b.ID != a.ID+1 {
		t.Errorf("ids %d, %d are not sequential", a.ID, b.ID)
	}
	if got := len(m.GetQueuedTasks()); got != 2 {
		t.Errorf("%d queued tasks, want 2", got)
	}

	a.SetState(TaskCompleted)
	m.CleanupCompletedTasks()
	all := m.GetAllTasks()
	if len(all) != 1 || all[0] != b {
		t.Errorf("after cleanup: %v", all)
	}

	m.RemoveTask(b.ID)
	if m.GetTask(b.ID) != nil {
		t.Error("RemoveTask left the task behind")
	}
}
