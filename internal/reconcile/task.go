package reconcile

import "context"

// Task is a reconciliation running on its own goroutine.
type Task struct {
	done   chan struct{}
	result *Result
	err    error
}

// Start runs Reconcile in the background. progress is called from the
// task's goroutine; the caller marshals it wherever it needs to go.
func (e *Engine) Start(ctx context.Context, req Request, progress ProgressFunc) *Task {
	t := &Task{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.result, t.err = e.Reconcile(ctx, req, progress)
	}()
	return t
}

// Done is closed when the run has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the run finishes and returns its outcome.
func (t *Task) Wait() (*Result, error) {
	<-t.done
	return t.result, t.err
}
