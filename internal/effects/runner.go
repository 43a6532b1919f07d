// Package effects runs the side effects that follow a committed state change.
//
// An operation returns the effects it wants attempted instead of performing
// them inline. The Runner executes each one in isolation: a failing or
// panicking effect is recorded and the next effect still runs. Outcomes are
// logged and returned so callers and tests can inspect them, but they never
// change the result of the operation that produced the effects.
package effects

import (
	"context"
	"fmt"
	"sync"
	"time"

	"property_portal_backend/platform/logger"
)

// Effect is a named, independently failable side effect.
type Effect struct {
	Name string
	Run  func(ctx context.Context) error
}

// New builds an Effect.
func New(name string, run func(ctx context.Context) error) Effect {
	return Effect{Name: name, Run: run}
}

// Outcome is the recorded result of one effect.
type Outcome struct {
	Name    string
	Err     error
	Elapsed time.Duration
}

// OK reports whether the effect succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Report is the ordered list of outcomes of one Run.
type Report []Outcome

// Failed returns the outcomes that carry an error.
func (r Report) Failed() []Outcome {
	out := make([]Outcome, 0)
	for _, o := range r {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Outcome returns the outcome recorded under name.
func (r Report) Outcome(name string) (Outcome, bool) {
	for _, o := range r {
		if o.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// Runner executes effects sequentially in the order given.
type Runner struct {
	log      *logger.Logger
	timeout  time.Duration
	inline   bool
	observer func(Report)
	wg       sync.WaitGroup
}

// NewRunner returns a runner whose Go method executes in the background.
// timeout bounds each effect; zero means no per-effect deadline.
func NewRunner(log *logger.Logger, timeout time.Duration) *Runner {
	return &Runner{log: log, timeout: timeout}
}

// NewInlineRunner returns a runner whose Go method blocks until all effects ran.
func NewInlineRunner(log *logger.Logger) *Runner {
	return &Runner{log: log, inline: true}
}

// Observe registers a callback invoked with every completed report.
func (r *Runner) Observe(fn func(Report)) {
	r.observer = fn
}

// Run executes effects and returns their outcomes.
func (r *Runner) Run(ctx context.Context, effects ...Effect) Report {
	report := make(Report, 0, len(effects))
	for _, e := range effects {
		report = append(report, r.runOne(ctx, e))
	}
	if r.observer != nil {
		r.observer(report)
	}
	return report
}

// Go executes effects without tying them to the caller's cancellation.
func (r *Runner) Go(ctx context.Context, effects ...Effect) {
	if len(effects) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	if r.inline {
		r.Run(detached, effects...)
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Run(detached, effects...)
	}()
}

// Wait blocks until every background run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) runOne(ctx context.Context, e Effect) (out Outcome) {
	out.Name = e.Name
	start := time.Now()

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			out.Err = fmt.Errorf("effect %s panicked: %v", e.Name, rec)
		}
		out.Elapsed = time.Since(start)
		if r.log != nil {
			r.log.EffectOutcome(e.Name, out.Err, float64(out.Elapsed.Microseconds())/1000)
		}
	}()

	if e.Run == nil {
		return out
	}
	out.Err = e.Run(runCtx)
	return out
}
