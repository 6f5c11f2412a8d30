package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/wheelsmith/wheelsmith/internal/log"
	"github.com/wheelsmith/wheelsmith/internal/tracing"
)

// Executor runs the declared stage sequence for one matrix cell.
// Each invocation is a single sequential flow; there is no internal
// concurrency and no retry. The first applicable stage that fails ends
// the run.
type Executor struct {
	stages []Stage
	tracer trace.Tracer
}

// Option configures an Executor.
type Option func(*Executor)

// WithTracer attaches a tracer; one span is emitted per executed stage.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) { e.tracer = tracer }
}

// NewExecutor creates an executor over an ordered stage sequence.
func NewExecutor(stages []Stage, opts ...Option) *Executor {
	e := &Executor{
		stages: stages,
		tracer: noop.NewTracerProvider().Tracer("noop"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every applicable stage in order. Skipped stages still
// advance the state machine; a failing stage moves it to StateFailed and
// nothing after it executes, including publish stages. The returned error
// is the *StageFailure for the failing stage, or nil.
func (e *Executor) Execute(ctx context.Context, cell MatrixCell) (Report, error) {
	run := NewRun(cell)
	state := StateInit

	log.Info(log.CatPipeline, "Pipeline started",
		"run", run.ID, "os", cell.OS, "python", cell.Python,
		"torch", cell.Torch, "cuda", cell.CUDAShort,
		"publish", cell.Publish, "sdist", cell.SourceDist)

	ctx, runSpan := e.tracer.Start(ctx, tracing.SpanNameRun, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, run.ID.String()),
		attribute.String(tracing.AttrOS, string(cell.OS)),
		attribute.String(tracing.AttrPython, cell.Python),
		attribute.String(tracing.AttrTorch, cell.Torch),
		attribute.String(tracing.AttrCUDAShort, cell.CUDAShort),
	))
	defer runSpan.End()

	results := make([]StageResult, 0, len(e.stages))
	var failure *StageFailure

	for _, stage := range e.stages {
		if failure != nil {
			break
		}

		if !stage.Applicable(cell) {
			log.Debug(log.CatPipeline, "Stage skipped", "run", run.ID, "stage", stage.Name)
			results = append(results, StageResult{Name: stage.Name, Status: StatusSkipped})
			state = e.advance(state, stage.Next)
			continue
		}

		result, err := e.runStage(ctx, stage, run)
		results = append(results, result)
		if err != nil {
			failure = err
			state = StateFailed
			continue
		}
		state = e.advance(state, stage.Next)
	}

	if failure == nil {
		state = e.advance(state, StateDone)
		runSpan.SetStatus(codes.Ok, "")
		log.Info(log.CatPipeline, "Pipeline finished", "run", run.ID, "artifacts", len(run.Artifacts()))
	} else {
		runSpan.SetStatus(codes.Error, failure.Error())
		log.ErrorErr(log.CatPipeline, "Pipeline failed", failure, "run", run.ID, "stage", failure.Stage)
	}

	report := Report{
		RunID:     run.ID,
		Cell:      cell,
		Results:   results,
		Final:     state,
		Artifacts: run.Artifacts(),
	}
	if failure != nil {
		return report, failure
	}
	return report, nil
}

func (e *Executor) runStage(ctx context.Context, stage Stage, run *Run) (StageResult, *StageFailure) {
	log.Debug(log.CatPipeline, "Stage started", "run", run.ID, "stage", stage.Name)

	ctx, span := e.tracer.Start(ctx, tracing.SpanPrefixStage+stage.Name, trace.WithAttributes(
		attribute.String(tracing.AttrStageName, stage.Name),
	))
	defer span.End()

	start := time.Now()
	err := stage.Run(ctx, run)
	elapsed := time.Since(start)

	if err != nil {
		failure := &StageFailure{Stage: stage.Name, Kind: stage.Kind, Err: err}
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(tracing.AttrErrorMessage, err.Error()))
		return StageResult{Name: stage.Name, Status: StatusFailed, Duration: elapsed, Err: failure}, failure
	}

	span.SetStatus(codes.Ok, "")
	log.Info(log.CatPipeline, "Stage finished", "run", run.ID, "stage", stage.Name, "duration", elapsed)
	return StageResult{Name: stage.Name, Status: StatusRan, Duration: elapsed}, nil
}

// advance moves the state machine forward, treating an illegal transition
// as a programmer error in the stage declaration.
func (e *Executor) advance(state, next State) State {
	if !state.CanAdvanceTo(next) {
		panic(fmt.Sprintf("illegal state transition %s -> %s", state, next))
	}
	return next
}
