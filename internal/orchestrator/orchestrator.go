// Package orchestrator fans extraction tasks out over a bounded worker pool,
// folds the results into a composite report, and validates the document
// before release. Each run is independent; the orchestrator itself holds no
// per-run state.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/vc-research-engine/internal/agent"
	"github.com/sells-group/vc-research-engine/internal/company"
	"github.com/sells-group/vc-research-engine/internal/gateway"
	"github.com/sells-group/vc-research-engine/internal/model"
	"github.com/sells-group/vc-research-engine/internal/progress"
	"github.com/sells-group/vc-research-engine/internal/registry"
	"github.com/sells-group/vc-research-engine/internal/report"
)

// Terminal run errors.
var (
	// ErrCancelled means the caller cancelled the run; no report is produced.
	ErrCancelled = eris.New("orchestrator: run cancelled")
	// ErrRunTimeout means the whole-run deadline expired; the partial report
	// is still returned.
	ErrRunTimeout = eris.New("orchestrator: run timed out")
	// ErrRejected means the assembled report failed validation. This signals
	// an assembly bug, not bad research data.
	ErrRejected = eris.New("orchestrator: report rejected by validation")
)

// Config bounds a run's concurrency and wall-clock budget.
type Config struct {
	// TaskTimeout is the per-attempt budget for one extraction task.
	TaskTimeout time.Duration
	// MaxConcurrency caps how many tasks run at once.
	MaxConcurrency int
	// RunTimeoutMultiple sets the whole-run deadline as a multiple of
	// TaskTimeout.
	RunTimeoutMultiple int
}

func (c Config) withDefaults() Config {
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 120 * time.Second
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 12
	}
	if c.RunTimeoutMultiple <= 0 {
		c.RunTimeoutMultiple = 15
	}
	return c
}

// Orchestrator runs company research end to end.
type Orchestrator struct {
	specs  []registry.SectionSpec
	runner agent.Runner
	cfg    Config
}

// New builds an Orchestrator and verifies every catalog entry only names
// tools the gateway actually provides. A mismatch is a deployment error
// caught here rather than mid-run.
func New(specs []registry.SectionSpec, gw gateway.Gateway, runner agent.Runner, cfg Config) (*Orchestrator, error) {
	if len(specs) == 0 {
		return nil, eris.New("orchestrator: no section specs")
	}

	available := make(map[gateway.Tool]bool)
	for _, tool := range gw.Tools() {
		available[tool] = true
	}
	for _, spec := range specs {
		for _, tool := range spec.AllowedTools {
			if !available[tool] {
				return nil, eris.Errorf("orchestrator: section %s requires tool %s which is not configured", spec.ID, tool)
			}
		}
	}

	return &Orchestrator{specs: specs, runner: runner, cfg: cfg.withDefaults()}, nil
}

// Run executes a research run without a progress feed.
func (o *Orchestrator) Run(ctx context.Context, companyName string, params model.RunParams) (*model.CompositeReport, error) {
	return o.RunStream(ctx, companyName, params, progress.Discard())
}

// RunStream executes a research run, emitting progress events as it goes.
// The stream always receives exactly one terminal event. On cancellation no
// report is returned; on run timeout the partial report is returned together
// with ErrRunTimeout.
func (o *Orchestrator) RunStream(ctx context.Context, companyName string, params model.RunParams, stream *progress.Stream) (*model.CompositeReport, error) {
	name, err := company.NormalizeName(companyName)
	if err != nil {
		stream.Emit(progress.Event{Type: progress.RunFailed, Cause: "invalid_params", Detail: err.Error()})
		return nil, err
	}
	if err := params.Normalize(); err != nil {
		stream.Emit(progress.Event{Type: progress.RunFailed, Cause: "invalid_params", Detail: err.Error()})
		return nil, err
	}
	specs, err := registry.Filter(o.specs, params.FocusAreas)
	if err != nil {
		stream.Emit(progress.Event{Type: progress.RunFailed, Cause: "invalid_params", Detail: err.Error()})
		return nil, err
	}

	runID := uuid.NewString()
	start := time.Now()
	log := zap.L().With(zap.String("run_id", runID), zap.String("company", name))
	log.Info("research run starting",
		zap.String("depth", string(params.Depth)),
		zap.Int("sections", len(specs)),
	)

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.TaskTimeout*time.Duration(o.cfg.RunTimeoutMultiple))
	defer cancel()

	stream.Emit(progress.Event{Type: progress.PhaseStarted, Phase: progress.PhaseDispatching})

	results := make([]model.ExtractionResult, len(specs))
	g, gctx := errgroup.WithContext(runCtx)
	limit := o.cfg.MaxConcurrency
	if len(specs) < limit {
		limit = len(specs)
	}
	g.SetLimit(limit)

	for i, spec := range specs {
		g.Go(func() error {
			res := o.executeWithRetry(gctx, spec, name, params, stream)
			results[i] = res

			if res.Status == model.TaskOK {
				stream.Emit(progress.Event{Type: progress.TaskCompleted, Section: spec.ID})
			} else {
				cause := string(res.Status)
				if res.Err != nil {
					cause = string(res.Err.Kind)
				}
				stream.Emit(progress.Event{Type: progress.TaskFailed, Section: spec.ID, Cause: cause})
			}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		log.Warn("research run cancelled", zap.Duration("elapsed", time.Since(start)))
		stream.Emit(progress.Event{Type: progress.RunFailed, Cause: progress.CauseCancelled})
		return nil, ErrCancelled
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		rep := report.BuildComposite(runID, name, params, specs, results)
		rep.Duration = time.Since(start)
		attachWarnings(rep, specs)
		log.Warn("research run timed out", zap.Duration("elapsed", rep.Duration))
		stream.Emit(progress.Event{Type: progress.RunFailed, Cause: progress.CauseRunTimeout})
		return rep, ErrRunTimeout
	}

	stream.Emit(progress.Event{Type: progress.PhaseStarted, Phase: progress.PhaseAggregating})
	rep := report.BuildComposite(runID, name, params, specs, results)
	rep.Duration = time.Since(start)

	stream.Emit(progress.Event{Type: progress.PhaseStarted, Phase: progress.PhaseValidating})
	verdict := report.Validate(rep, specs)
	if verdict.Outcome == report.Rejected {
		log.Error("assembled report rejected", zap.String("reason", verdict.Reason))
		stream.Emit(progress.Event{Type: progress.RunFailed, Cause: progress.CauseRejected, Detail: verdict.Reason})
		return rep, eris.Wrap(ErrRejected, verdict.Reason)
	}
	rep.Warnings = verdict.Warnings

	log.Info("research run finished",
		zap.Bool("complete", rep.Complete),
		zap.Int("warnings", len(rep.Warnings)),
		zap.Duration("elapsed", rep.Duration),
		zap.Float64("cost_usd", rep.Usage.Cost),
	)
	stream.Emit(progress.Event{Type: progress.RunCompleted})
	return rep, nil
}

// executeWithRetry runs one task with a per-attempt timeout and a single
// retry on failure. The retry is skipped when the run itself is out of time.
func (o *Orchestrator) executeWithRetry(ctx context.Context, spec registry.SectionSpec, name string, params model.RunParams, stream *progress.Stream) model.ExtractionResult {
	var res model.ExtractionResult
	for attempt := 0; attempt < 2; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.TaskTimeout)
		attemptRes := o.runner.Execute(attemptCtx, spec, name, params, stream)
		cancel()

		// Keep usage from every attempt; the last attempt decides the outcome.
		attemptRes.Usage.Add(res.Usage)
		res = attemptRes

		if res.Status == model.TaskOK || ctx.Err() != nil {
			return res
		}
		if attempt == 0 {
			zap.L().Warn("extraction task failed, retrying",
				zap.String("section", spec.ID),
				zap.String("status", string(res.Status)),
			)
		}
	}
	return res
}

func attachWarnings(rep *model.CompositeReport, specs []registry.SectionSpec) {
	for _, spec := range specs {
		if sec, ok := rep.Sections[spec.ID]; ok && sec.Status == model.SectionUnavailable {
			rep.Warnings = append(rep.Warnings, report.SectionWarning(spec.ID, sec))
		}
	}
}
