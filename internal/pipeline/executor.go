package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/dag"
)

type taskState int32

const (
	taskPending taskState = iota
	taskRunning
	taskDone
	taskFailed
)

// task is one runnable node of the build graph.
type task struct {
	id         string
	run        func(ctx context.Context) error
	depCount   atomic.Int32
	dependents []*task
	state      atomic.Int32
	err        error
	skipOnce   sync.Once
}

// executor runs a task graph on a fixed number of workers.
type executor struct {
	tasks      []*task
	numWorkers int
	wg         sync.WaitGroup
}

// newExecutor binds run functions to the nodes of g. Every node must have
// a run function.
func newExecutor(g *dag.Graph, runs map[string]func(context.Context) error, numWorkers int) (*executor, error) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	byID := make(map[string]*task, g.Len())
	ids := g.IDs()
	for _, id := range ids {
		run, ok := runs[id]
		if !ok {
			return nil, fmt.Errorf("no run function for task %s", id)
		}
		byID[id] = &task{id: id, run: run}
	}

	e := &executor{numWorkers: numWorkers}
	for _, id := range ids {
		t := byID[id]
		deps, err := g.Dependencies(id)
		if err != nil {
			return nil, err
		}
		dependents, err := g.Dependents(id)
		if err != nil {
			return nil, err
		}
		t.depCount.Store(int32(len(deps)))
		for _, dep := range dependents {
			t.dependents = append(t.dependents, byID[dep])
		}
		e.tasks = append(e.tasks, t)
	}
	return e, nil
}

// Run executes every task and returns the root cause of the first failure.
// It respects the cancellation signal from the provided context.
func (e *executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if len(e.tasks) == 0 {
		return nil
	}

	readyChan := make(chan *task, len(e.tasks))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rootCount := 0
	for _, t := range e.tasks {
		if t.depCount.Load() == 0 {
			readyChan <- t
			rootCount++
		}
	}
	logger.Debug("Found all root tasks.", "count", rootCount, "total", len(e.tasks))

	e.wg.Add(len(e.tasks))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	e.wg.Wait()
	close(readyChan)

	var failed []string
	var rootCause error
	for _, t := range e.tasks {
		if taskState(t.state.Load()) != taskFailed {
			continue
		}
		// A skipped task is a symptom, not a cause.
		if t.err == nil || errors.Is(t.err, errSkipped) || errors.Is(t.err, context.Canceled) {
			continue
		}
		logger.Error("Task failed.", "task", t.id, "error", t.err)
		failed = append(failed, t.id)
		if rootCause == nil {
			rootCause = t.err
		}
	}

	if rootCause != nil {
		return fmt.Errorf("build failed for %s: %w", strings.Join(failed, ", "), rootCause)
	}
	return ctx.Err()
}

var errSkipped = errors.New("skipped")

// skipDependents recursively marks all downstream tasks as failed and
// decrements the WaitGroup.
func (e *executor) skipDependents(ctx context.Context, t *task) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range t.dependents {
		dependent.skipOnce.Do(func() {
			logger.Debug("Skipping dependent task due to upstream failure.", "task", dependent.id, "dependency", t.id)
			dependent.state.Store(int32(taskFailed))
			dependent.err = fmt.Errorf("%w due to upstream failure of '%s'", errSkipped, t.id)
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		})
	}
}

// worker is the processing loop for a single concurrent worker.
func (e *executor) worker(ctx context.Context, readyChan chan *task, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)

	for t := range readyChan {
		taskLogger := logger.With("workerID", workerID, "task", t.id)

		if ctx.Err() != nil {
			t.skipOnce.Do(func() {
				taskLogger.Debug("Context canceled, skipping task.")
				t.state.Store(int32(taskFailed))
				t.err = ctx.Err()
				e.wg.Done()
				e.skipDependents(ctx, t)
			})
			continue
		}

		t.state.Store(int32(taskRunning))
		if err := t.run(ctxlog.WithLogger(ctx, taskLogger)); err != nil {
			taskLogger.Debug("Task failed.", "error", err)
			t.state.Store(int32(taskFailed))
			t.err = err
			cancel()
			e.skipDependents(ctx, t)
			e.wg.Done()
			continue
		}

		t.state.Store(int32(taskDone))
		for _, dependent := range t.dependents {
			if dependent.depCount.Add(-1) == 0 {
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
}
