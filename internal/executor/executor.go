// Package executor runs the tasks a build target needs. Tasks are grouped
// into dependency levels and every level runs in parallel; the first failure
// cancels the rest of the build.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/buildgraph/internal/task"
	"github.com/dusk-indust/buildgraph/internal/tracing"
)

// TaskResult is the outcome of one task in a run.
type TaskResult struct {
	Task     string         `json:"task"`
	Type     string         `json:"type"`
	Level    int            `json:"level"`
	Status   ProgressStatus `json:"status"`
	Duration time.Duration  `json:"duration_ns"`
	Error    string         `json:"error,omitempty"`
}

// Report summarizes a run.
type Report struct {
	RunID    string       `json:"run_id"`
	Plan     *Plan        `json:"plan"`
	Results  []TaskResult `json:"results"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
}

// Failed returns the tasks that returned an error.
func (r *Report) Failed() []string {
	var out []string
	for _, res := range r.Results {
		if res.Status == ProgressFailed {
			out = append(out, res.Task)
		}
	}
	return out
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// WithTracer sets the tracer used for build and task spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) { e.tracer = tracer }
}

// WithParallelism limits how many tasks of one level run at once. Zero or
// less means no limit.
func WithParallelism(n int) Option {
	return func(e *Executor) { e.parallelism = n }
}

// WithProgress registers a callback for progress events. It is called from
// the task goroutines and must be safe for concurrent use.
func WithProgress(fn func(ProgressEvent)) Option {
	return func(e *Executor) { e.onProgress = fn }
}

// Executor runs tasks from a container.
type Executor struct {
	tasks       *task.Container
	logger      *slog.Logger
	tracer      trace.Tracer
	parallelism int
	onProgress  func(ProgressEvent)
}

// New returns an executor over tasks.
func New(tasks *task.Container, opts ...Option) *Executor {
	e := &Executor{
		tasks:  tasks,
		logger: slog.New(slog.DiscardHandler),
		tracer: noop.NewTracerProvider().Tracer("buildgraph"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan computes the task levels for targets without running anything.
func (e *Executor) Plan(targets ...string) (*Plan, error) {
	return BuildPlan(e.tasks, targets...)
}

// Run executes every task targets need, level by level. The report is
// returned even when a task fails; tasks that never started are marked
// skipped.
func (e *Executor) Run(ctx context.Context, targets ...string) (*Report, error) {
	plan, err := e.Plan(targets...)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:   uuid.NewString(),
		Plan:    plan,
		Results: make([]TaskResult, 0, plan.Len()),
		Started: time.Now(),
	}
	ctx, span := e.tracer.Start(ctx, tracing.SpanBuild, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, report.RunID),
		attribute.StringSlice(tracing.AttrTarget, targets),
	))
	defer span.End()

	log := e.logger.With("run", report.RunID)
	log.Info("build started", "targets", targets, "tasks", plan.Len(), "levels", len(plan.Levels))

	var runErr error
	for level, names := range plan.Levels {
		if runErr != nil {
			for _, name := range names {
				report.Results = append(report.Results, e.skipped(report.RunID, name, level))
			}
			continue
		}
		results, err := e.runLevel(ctx, report.RunID, level, names)
		report.Results = append(report.Results, results...)
		runErr = err
	}
	report.Finished = time.Now()

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		log.Error("build failed", "err", runErr, "failed", report.Failed())
		return report, runErr
	}
	span.SetStatus(codes.Ok, "")
	log.Info("build finished", "duration", report.Finished.Sub(report.Started))
	return report, nil
}

func (e *Executor) runLevel(ctx context.Context, runID string, level int, names []string) ([]TaskResult, error) {
	results := make([]TaskResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	if e.parallelism > 0 {
		g.SetLimit(e.parallelism)
	}

	started := make([]bool, len(names))
	for i, name := range names {
		e.emit(ProgressEvent{RunID: runID, Task: name, Level: level, Status: ProgressPending})

		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			started[i] = true
			res, err := e.runTask(gctx, runID, level, name)
			results[i] = res
			return err
		})
	}
	err := g.Wait()

	for i, name := range names {
		if !started[i] {
			results[i] = e.skipped(runID, name, level)
		}
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return results, err
}

func (e *Executor) runTask(ctx context.Context, runID string, level int, name string) (TaskResult, error) {
	res := TaskResult{Task: name, Level: level}
	typeName, _ := e.tasks.TypeName(name)
	res.Type = typeName

	ctx, span := e.tracer.Start(ctx, tracing.SpanTask+name, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, runID),
		attribute.String(tracing.AttrTaskName, name),
		attribute.String(tracing.AttrTaskType, typeName),
		attribute.Int(tracing.AttrTaskLevel, level),
	))
	defer span.End()

	e.emit(ProgressEvent{RunID: runID, Task: name, Level: level, Status: ProgressWorking})
	start := time.Now()
	err := e.execute(ctx, name)
	res.Duration = time.Since(start)

	if err != nil {
		err = fmt.Errorf("executor: task %s: %w", name, err)
		res.Status = ProgressFailed
		res.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.emit(ProgressEvent{RunID: runID, Task: name, Level: level, Status: ProgressFailed, Message: err.Error()})
		return res, err
	}

	res.Status = ProgressComplete
	span.SetStatus(codes.Ok, "")
	e.logger.Debug("task finished", "run", runID, "task", name, "duration", res.Duration)
	e.emit(ProgressEvent{RunID: runID, Task: name, Level: level, Status: ProgressComplete})
	return res, nil
}

func (e *Executor) execute(ctx context.Context, name string) error {
	t, err := e.tasks.Realize(name)
	if err != nil {
		return err
	}
	return t.Execute(ctx)
}

func (e *Executor) skipped(runID, name string, level int) TaskResult {
	e.emit(ProgressEvent{RunID: runID, Task: name, Level: level, Status: ProgressSkipped})
	typeName, _ := e.tasks.TypeName(name)
	return TaskResult{Task: name, Type: typeName, Level: level, Status: ProgressSkipped}
}

// emit sends a progress event if a callback is registered.
func (e *Executor) emit(ev ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(ev)
	}
}
