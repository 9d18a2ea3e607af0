// Package batch runs one unit of work per input file on a bounded number of
// goroutines under a global time budget.
//
// A failing or panicking input never stops the batch. When the budget
// elapses the batch stops dispatching and returns right away: inputs still
// in flight are abandoned and whatever they produce later is discarded.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// ErrPanic wraps panics recovered from a Processor.
var ErrPanic = errors.New("processor panicked")

// Processor handles a single input. Processors run concurrently and must not
// share mutable state.
type Processor func(path string) error

// Result is the outcome of one input.
type Result struct {
	Index    int
	Path     string
	Err      error
	Duration time.Duration
}

// Options configure Run. The zero value uses one worker per CPU, no time
// budget and the standard logrus logger.
type Options struct {
	Workers int
	Timeout time.Duration
	Logger  logrus.FieldLogger
	// OnResult is called from the collecting goroutine for every accepted
	// result. done counts the results accepted so far, including r.
	OnResult func(done int, r Result)
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// Report summarizes a batch. States and Errors are indexed like the inputs.
type Report struct {
	Status    Status
	Inputs    []string
	States    []TaskState
	Errors    []error
	Succeeded int
	Failed    int
	// Abandoned counts inputs that were still running when the batch ended.
	Abandoned int
	// Pending counts inputs that were never started.
	Pending int
	Elapsed time.Duration
}

// Run processes every input and returns once all of them finished, the
// timeout elapsed or ctx was cancelled, whichever happens first.
func Run(ctx context.Context, inputs []string, process Processor, opts Options) Report {
	opts = opts.withDefaults()
	log := opts.Logger
	start := time.Now()

	report := Report{
		Status: Completed,
		Inputs: inputs,
		States: make([]TaskState, len(inputs)),
		Errors: make([]error, len(inputs)),
	}
	for i := range report.States {
		report.States[i] = TaskPending
	}

	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	sem := semaphore.NewWeighted(int64(opts.Workers))
	started := make(chan int)
	// buffered so abandoned goroutines can always deliver and exit
	results := make(chan Result, len(inputs))

	go func() {
		for i, path := range inputs {
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			if ctx.Err() != nil {
				sem.Release(1)
				return
			}
			select {
			case started <- i:
			case <-ctx.Done():
				sem.Release(1)
				return
			}
			go func(i int, path string) {
				defer sem.Release(1)
				results <- runOne(i, path, process)
			}(i, path)
		}
	}()

	done := 0
collect:
	for done < len(inputs) {
		select {
		case i := <-started:
			if err := transition(report.States, i, TaskPending, TaskRunning); err != nil {
				log.WithError(err).Error("batch state corrupted")
			}

		case r := <-results:
			done++
			to := TaskSucceeded
			if r.Err != nil {
				to = TaskFailed
				report.Errors[r.Index] = r.Err
				log.WithField("file", r.Path).WithError(r.Err).Error("processing failed")
			} else {
				log.WithField("file", r.Path).WithField("duration", r.Duration).Debug("processed")
			}
			if err := transition(report.States, r.Index, TaskRunning, to); err != nil {
				log.WithError(err).Error("batch state corrupted")
			}
			if opts.OnResult != nil {
				opts.OnResult(done, r)
			}

		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				report.Status = TimedOut
			} else {
				report.Status = Cancelled
			}
			break collect
		}
	}

	for _, s := range report.States {
		switch s {
		case TaskSucceeded:
			report.Succeeded++
		case TaskFailed:
			report.Failed++
		case TaskRunning:
			report.Abandoned++
		case TaskPending:
			report.Pending++
		}
	}
	report.Elapsed = time.Since(start)

	if report.Status != Completed {
		log.WithFields(logrus.Fields{
			"status":    report.Status,
			"succeeded": report.Succeeded,
			"failed":    report.Failed,
			"abandoned": report.Abandoned,
			"pending":   report.Pending,
		}).Warn("batch stopped before all inputs finished")
	}

	return report
}

func runOne(i int, path string, process Processor) (r Result) {
	start := time.Now()
	r = Result{Index: i, Path: path}
	defer func() {
		if p := recover(); p != nil {
			r.Err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
		r.Duration = time.Since(start)
	}()

	r.Err = process(path)
	return r
}
