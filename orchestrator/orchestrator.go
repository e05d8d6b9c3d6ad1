package orchestrator

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rakib91221/StableGen/comfy"
	"github.com/rakib91221/StableGen/config"
	"github.com/rakib91221/StableGen/graph"
	"github.com/rakib91221/StableGen/projection"
	"github.com/rakib91221/StableGen/scene"
	"github.com/rakib91221/StableGen/types"
)

// Backend is the protocol client surface the orchestrator drives.
// *comfy.Client satisfies it.
type Backend interface {
	Ping(ctx context.Context) error
	Execute(ctx context.Context, g *graph.Graph, onProgress comfy.ProgressFunc) ([]byte, error)
	Interrupt(ctx context.Context) error
}

// Options tweak a single run beyond the static configuration.
type Options struct {
	// Reproject skips generation and re-projects the generated images of
	// a previous run directory onto the surfaces.
	Reproject bool
	// ReprojectDir is the previous run directory Reproject reads from.
	ReprojectDir string
	// OnlySelected regenerates only the viewpoints marked selected,
	// reusing the images in ReprojectDir for the rest.
	OnlySelected bool
}

// Orchestrator owns the run lifecycle: the run guard, the seed policy
// state, the progress surface, and the material revision counter.
type Orchestrator struct {
	cfg        *config.Config
	scene      scene.Scene
	backend    Backend
	dispatcher *scene.Dispatcher
	engine     *projection.Engine
	logger     *zap.Logger

	running  atomic.Bool
	revision types.MaterialRevision
	seed     int64
	rand     *rand.Rand

	mu       sync.Mutex
	progress types.Progress
}

// New wires an orchestrator from its collaborators. The dispatcher is
// created here; the host pumps it via Dispatcher().
func New(cfg *config.Config, sc scene.Scene, backend Backend, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := projection.WeightPolicy{
		Exponent:         cfg.Projection.WeightExponent,
		DiscardAngle:     cfg.Projection.DiscardAngle,
		EarlyPriority:    cfg.Projection.EarlyPriority,
		PriorityStrength: cfg.Projection.PriorityStrength,
	}
	return &Orchestrator{
		cfg:        cfg,
		scene:      sc,
		backend:    backend,
		dispatcher: scene.NewDispatcher(logger),
		engine:     projection.NewEngine(policy, logger),
		logger:     logger.With(zap.String("component", "orchestrator")),
		seed:       cfg.Generation.Seed,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Dispatcher returns the main-context pump the host must drive while a
// run is active.
func (o *Orchestrator) Dispatcher() *scene.Dispatcher { return o.dispatcher }

// Progress returns the latest progress snapshot.
func (o *Orchestrator) Progress() types.Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Revision returns the material revision the next run will write to when
// overwrite is enabled.
func (o *Orchestrator) Revision() types.MaterialRevision { return o.revision }

func (o *Orchestrator) setProgress(stage string, percent float64, current, total int) {
	o.mu.Lock()
	o.progress = types.Progress{Stage: stage, Percent: percent, Current: current, Total: total}
	o.mu.Unlock()
}

// Handle observes and controls one active run.
type Handle struct {
	result chan types.Result
	cancel context.CancelFunc
}

// Result delivers the run's terminal report exactly once.
func (h *Handle) Result() <-chan types.Result { return h.result }

// Cancel requests cooperative cancellation.
func (h *Handle) Cancel() { h.cancel() }

// Start validates the configuration and backend reachability, then spawns
// the run worker. A second Start while a run is active fails with the
// run-active error code.
func (o *Orchestrator) Start(ctx context.Context, opts Options) (*Handle, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if !o.running.CompareAndSwap(false, true) {
		return nil, types.NewError(types.ErrRunActive, "a generation run is already active")
	}
	if err := o.backend.Ping(ctx); err != nil {
		o.running.Store(false)
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{result: make(chan types.Result, 1), cancel: cancel}

	go func() {
		defer o.running.Store(false)
		defer cancel()
		h.result <- o.guardedRun(runCtx, opts)
	}()
	return h, nil
}

// guardedRun folds a worker panic into a backend-execution error so the
// host always receives a terminal result.
func (o *Orchestrator) guardedRun(ctx context.Context, opts Options) (result types.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("run worker panic", zap.Any("panic", r))
			result = types.Result{
				Outcome: types.OutcomeError,
				Err:     types.NewError(types.ErrBackendExecution, "orchestration failure: %v", r),
			}
		}
	}()
	return o.runWorker(ctx, opts)
}

// runWorker executes one run end to end and turns its error into an
// outcome.
func (o *Orchestrator) runWorker(ctx context.Context, opts Options) types.Result {
	rs, err := o.prepare(ctx, opts)
	if err != nil {
		return types.Result{Outcome: outcomeFor(err), Err: resultErr(err)}
	}
	defer rs.finish()

	err = rs.strategy.run(ctx, rs)
	if err == nil && !rs.strategy.appliesOwnTextures() {
		err = rs.applyTextures(ctx)
	}

	result := types.Result{
		Outcome:       outcomeFor(err),
		Err:           resultErr(err),
		Revision:      rs.revision,
		JobsCompleted: rs.jobsCompleted,
	}
	// A post-run side effect, applied whatever the outcome.
	o.advanceSeed()
	if err == nil {
		o.setProgress("done", 100, rs.jobsCompleted, rs.jobsCompleted)
	}
	o.logger.Info("run finished",
		zap.String("outcome", string(result.Outcome)),
		zap.Int("jobs", result.JobsCompleted),
		zap.Error(result.Err))
	return result
}

func outcomeFor(err error) types.Outcome {
	switch {
	case err == nil:
		return types.OutcomeSuccess
	case types.IsCancelled(err):
		return types.OutcomeCancelled
	default:
		return types.OutcomeError
	}
}

// resultErr keeps Err nil unless the outcome is an error.
func resultErr(err error) error {
	if err == nil || types.IsCancelled(err) {
		return nil
	}
	return err
}

// advanceSeed applies the post-run seed policy.
func (o *Orchestrator) advanceSeed() {
	switch o.cfg.Generation.SeedPolicy {
	case types.SeedIncrement:
		o.seed++
	case types.SeedDecrement:
		o.seed--
	case types.SeedRandomize:
		o.seed = o.rand.Int63()
	}
}

// Seed returns the seed the next run will use.
func (o *Orchestrator) Seed() int64 { return o.seed }
