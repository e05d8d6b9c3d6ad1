package orchestrator

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakib91221/StableGen/config"
	"github.com/rakib91221/StableGen/testutil"
	"github.com/rakib91221/StableGen/types"
)

func testConfig(t *testing.T, mode types.Mode) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	cfg.Generation.Mode = mode
	cfg.Generation.Model = "sdxl_base.safetensors"
	cfg.Generation.Prompt = "weathered stone wall"
	cfg.Generation.Width = 32
	cfg.Generation.Height = 32
	cfg.Generation.AutoRescale = false
	cfg.ControlUnits = []types.ControlChainUnit{
		{Type: types.SignalDepth, Model: "depth_cn.safetensors", Strength: 0.8, EndPercent: 1.0},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

// startPump drives the dispatcher for the test's lifetime, playing the
// role of the host's main execution context.
func startPump(t *testing.T, o *Orchestrator) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go o.Dispatcher().Pump(ctx)
	return ctx
}

// runToCompletion starts the run and waits for the worker's report. The
// dispatcher pump must already be running.
func runToCompletion(t *testing.T, ctx context.Context, o *Orchestrator, opts Options) types.Result {
	t.Helper()
	h, err := o.Start(ctx, opts)
	require.NoError(t, err)
	select {
	case result := <-h.Result():
		return result
	case <-time.After(10 * time.Second):
		t.Fatal("run did not finish")
		return types.Result{}
	}
}

func TestSeparateModeRunsOneJobPerViewpoint(t *testing.T) {
	cfg := testConfig(t, types.ModeSeparate)
	sc := testutil.NewFakeScene(3)
	backend := &testutil.FakeBackend{}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	result := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, result.Outcome)
	assert.Equal(t, 3, result.JobsCompleted)
	require.Len(t, backend.Graphs, 3)

	// Text-to-image jobs only: no inpainting nodes.
	for i := range backend.Graphs {
		classes := backend.ExecutedClasses(i)
		assert.Zero(t, classes["InpaintModelConditioning"], "job %d", i)
		assert.Equal(t, 1, classes["EmptyLatentImage"], "job %d", i)
	}

	// The blended texture landed on the surface.
	assert.Contains(t, sc.Applied, 0)
}

func TestSequentialModeInpaintsAfterFirstViewpoint(t *testing.T) {
	cfg := testConfig(t, types.ModeSequential)
	sc := testutil.NewFakeScene(3)
	backend := &testutil.FakeBackend{}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	result := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, result.Outcome)
	require.Len(t, backend.Graphs, 3)

	assert.Equal(t, 1, backend.ExecutedClasses(0)["EmptyLatentImage"])
	for i := 1; i < 3; i++ {
		classes := backend.ExecutedClasses(i)
		assert.Equal(t, 1, classes["InpaintModelConditioning"], "job %d", i)
		assert.Equal(t, 1, classes["DifferentialDiffusion"], "job %d", i)
	}

	// One composite render per inpainting viewpoint.
	assert.Equal(t, 2, sc.CompositeCalls)
}

func TestGridModeRunsSingleJob(t *testing.T) {
	cfg := testConfig(t, types.ModeGrid)
	sc := testutil.NewFakeScene(4)
	backend := &testutil.FakeBackend{Size: 64}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	result := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, result.Outcome)
	assert.Equal(t, 1, result.JobsCompleted)
	require.Len(t, backend.Graphs, 1)

	// 2x2 layout at tile resolution.
	sampler := backend.ExecutedClasses(0)
	assert.Equal(t, 1, sampler["KSampler"])
}

func TestGridModeTileRefine(t *testing.T) {
	cfg := testConfig(t, types.ModeGrid)
	cfg.Refine.Tiles = true
	sc := testutil.NewFakeScene(4)
	backend := &testutil.FakeBackend{Size: 64}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	result := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, result.Outcome)
	assert.Equal(t, 5, result.JobsCompleted)

	// Refine jobs are img2img over the split tiles.
	classes := backend.ExecutedClasses(1)
	assert.Equal(t, 1, classes["VAEEncode"])
}

func TestRefineModeUsesComposites(t *testing.T) {
	cfg := testConfig(t, types.ModeRefine)
	sc := testutil.NewFakeScene(2)
	backend := &testutil.FakeBackend{}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	result := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, result.Outcome)
	require.Len(t, backend.Graphs, 2)
	assert.Equal(t, 2, sc.CompositeCalls)
	for i := range backend.Graphs {
		assert.Equal(t, 1, backend.ExecutedClasses(i)["VAEEncode"], "job %d", i)
	}
}

func TestUVInpaintModeRunsPerSurface(t *testing.T) {
	cfg := testConfig(t, types.ModeUVInpaint)
	sc := testutil.NewFakeScene(2)
	sc.Baked = testutil.SolidImage(32, 32, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	backend := &testutil.FakeBackend{}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	result := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, result.Outcome)
	assert.Equal(t, 1, result.JobsCompleted)
	assert.Contains(t, sc.Applied, 0)

	classes := backend.ExecutedClasses(0)
	assert.Equal(t, 1, classes["InpaintModelConditioning"])
}

func TestRunGuardRejectsSecondRun(t *testing.T) {
	cfg := testConfig(t, types.ModeSeparate)
	sc := testutil.NewFakeScene(1)
	backend := &testutil.FakeBackend{Block: make(chan struct{})}
	o := New(cfg, sc, backend, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Dispatcher().Pump(ctx)

	h, err := o.Start(ctx, Options{})
	require.NoError(t, err)

	_, err = o.Start(ctx, Options{})
	require.Error(t, err)
	assert.Equal(t, types.ErrRunActive, types.GetErrorCode(err))

	close(backend.Block)
	<-h.Result()

	// A finished run releases the guard.
	h2, err := o.Start(ctx, Options{})
	require.NoError(t, err)
	<-h2.Result()
}

func TestCancellationYieldsCancelledOutcome(t *testing.T) {
	cfg := testConfig(t, types.ModeSeparate)
	sc := testutil.NewFakeScene(2)
	backend := &testutil.FakeBackend{Block: make(chan struct{})}
	o := New(cfg, sc, backend, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Dispatcher().Pump(ctx)

	h, err := o.Start(ctx, Options{})
	require.NoError(t, err)

	// Cancel while the first job is in flight.
	time.Sleep(20 * time.Millisecond)
	h.Cancel()

	result := <-h.Result()
	assert.Equal(t, types.OutcomeCancelled, result.Outcome)
	assert.NoError(t, result.Err)

	// No hollow artifact tree survives a cancelled run.
	entries, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assertNoEmptyDirs(t, filepath.Join(cfg.Output.Dir, entries[0].Name()))
}

func assertNoEmptyDirs(t *testing.T, root string) {
	t.Helper()
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		require.NoError(t, err)
		if d.IsDir() {
			children, err := os.ReadDir(path)
			require.NoError(t, err)
			if path != root {
				assert.NotEmpty(t, children, "empty directory %s", path)
			}
		}
		return nil
	})
}

func TestBackendErrorYieldsErrorOutcome(t *testing.T) {
	cfg := testConfig(t, types.ModeSeparate)
	sc := testutil.NewFakeScene(2)
	backend := &testutil.FakeBackend{
		FailAt: 1,
		Err:    types.NewError(types.ErrBackendExecution, "out of memory"),
	}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	result := runToCompletion(t, ctx, o, Options{})
	assert.Equal(t, types.OutcomeError, result.Outcome)
	require.Error(t, result.Err)
	assert.Equal(t, types.ErrBackendExecution, types.GetErrorCode(result.Err))
	assert.Equal(t, 1, result.JobsCompleted)
}

func TestSeedPolicyAdvancesAfterSuccess(t *testing.T) {
	cfg := testConfig(t, types.ModeSeparate)
	cfg.Generation.Seed = 100
	cfg.Generation.SeedPolicy = types.SeedIncrement
	sc := testutil.NewFakeScene(1)
	backend := &testutil.FakeBackend{}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	require.Equal(t, int64(100), o.Seed())
	result := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, result.Outcome)
	assert.Equal(t, int64(101), o.Seed())

	// Fixed policy holds the seed.
	cfg.Generation.SeedPolicy = types.SeedFixed
	result = runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, result.Outcome)
	assert.Equal(t, int64(101), o.Seed())
}

func TestSeedPolicyAdvancesAfterError(t *testing.T) {
	cfg := testConfig(t, types.ModeSeparate)
	cfg.Generation.Seed = 100
	cfg.Generation.SeedPolicy = types.SeedIncrement
	sc := testutil.NewFakeScene(1)
	backend := &testutil.FakeBackend{
		Err: types.NewError(types.ErrBackendExecution, "boom"),
	}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	// The policy is a post-run side effect, so a failed run advances too.
	result := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeError, result.Outcome)
	assert.Equal(t, int64(101), o.Seed())
}

func TestAdapterBootstrapRegeneratesViewpointZero(t *testing.T) {
	cfg := testConfig(t, types.ModeSeparate)
	cfg.Bootstrap.Enabled = true
	cfg.Bootstrap.Regenerate = true
	cfg.Bootstrap.Strength = 0.6
	cfg.Bootstrap.Policy = types.AdapterUseFirst
	sc := testutil.NewFakeScene(2)
	backend := &testutil.FakeBackend{}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	result := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, result.Outcome)
	// Viewpoint 0 twice (bootstrap + regeneration), viewpoint 1 once.
	assert.Equal(t, 3, result.JobsCompleted)

	// First pass has no adapter, regeneration and later viewpoints do.
	assert.Zero(t, backend.ExecutedClasses(0)["IPAdapter"])
	assert.Equal(t, 1, backend.ExecutedClasses(1)["IPAdapter"])
	assert.Equal(t, 1, backend.ExecutedClasses(2)["IPAdapter"])
}

func TestCustomViewpointOrder(t *testing.T) {
	cfg := testConfig(t, types.ModeSequential)
	cfg.Generation.ViewpointOrder = "2,0,1"
	sc := testutil.NewFakeScene(3)
	backend := &testutil.FakeBackend{}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	result := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, result.Outcome)
	assert.Equal(t, 3, result.JobsCompleted)
}

func TestRevisionAdvancesWithoutOverwrite(t *testing.T) {
	cfg := testConfig(t, types.ModeSeparate)
	cfg.Generation.Overwrite = false
	sc := testutil.NewFakeScene(1)
	backend := &testutil.FakeBackend{}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	result := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, result.Outcome)
	assert.Equal(t, types.MaterialRevision(1), result.Revision)

	result = runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, result.Outcome)
	assert.Equal(t, types.MaterialRevision(2), result.Revision)
}

func TestInvalidConfigRejectedBeforeStart(t *testing.T) {
	cfg := testConfig(t, types.ModeSeparate)
	cfg.Generation.Mode = types.Mode("freestyle")
	o := New(cfg, testutil.NewFakeScene(1), &testutil.FakeBackend{}, nil)

	_, err := o.Start(context.Background(), Options{})
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
}

func TestSurfaceSlotBudgetRejected(t *testing.T) {
	cfg := testConfig(t, types.ModeSeparate)
	// The fake surface exposes eight free UV slots, one short of the
	// viewpoint count.
	sc := testutil.NewFakeScene(9)
	backend := &testutil.FakeBackend{}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	result := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeError, result.Outcome)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(result.Err))
	assert.Empty(t, backend.Graphs)
}

func TestOversizedResolutionRejectedWithoutRescale(t *testing.T) {
	cfg := testConfig(t, types.ModeSeparate)
	cfg.Generation.Width = 2048
	cfg.Generation.Height = 2048
	sc := testutil.NewFakeScene(1)
	backend := &testutil.FakeBackend{}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	result := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeError, result.Outcome)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(result.Err))
	assert.Empty(t, backend.Graphs)
}

func TestReprojectUsesPriorImages(t *testing.T) {
	cfg := testConfig(t, types.ModeSeparate)
	sc := testutil.NewFakeScene(2)
	backend := &testutil.FakeBackend{}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	first := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, first.Outcome)
	priorRuns, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)
	require.Len(t, priorRuns, 1)
	priorDir := filepath.Join(cfg.Output.Dir, priorRuns[0].Name())

	calls := len(backend.Graphs)
	second := runToCompletion(t, ctx, o, Options{Reproject: true, ReprojectDir: priorDir})
	require.Equal(t, types.OutcomeSuccess, second.Outcome)

	// No new backend jobs, but textures were applied again.
	assert.Len(t, backend.Graphs, calls)
	assert.Zero(t, second.JobsCompleted)
}

func TestReprojectDiscoversPriorRevision(t *testing.T) {
	cfg := testConfig(t, types.ModeSeparate)
	cfg.Generation.Overwrite = false
	sc := testutil.NewFakeScene(2)
	backend := &testutil.FakeBackend{}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	first := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, first.Outcome)
	require.Equal(t, types.MaterialRevision(1), first.Revision)
	priorRuns, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)
	require.Len(t, priorRuns, 1)
	priorDir := filepath.Join(cfg.Output.Dir, priorRuns[0].Name())

	// The reproject run allocates revision 2 for its own output, yet the
	// prior artifacts sit under revision 1 and must still be found.
	second := runToCompletion(t, ctx, o, Options{Reproject: true, ReprojectDir: priorDir})
	require.Equal(t, types.OutcomeSuccess, second.Outcome)
	assert.Equal(t, types.MaterialRevision(2), second.Revision)
	assert.Zero(t, second.JobsCompleted)
}

func TestRegenerateSelectedSkipsUnselected(t *testing.T) {
	cfg := testConfig(t, types.ModeSeparate)
	sc := testutil.NewFakeScene(3)
	backend := &testutil.FakeBackend{}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	first := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, first.Outcome)
	priorRuns, _ := os.ReadDir(cfg.Output.Dir)
	priorDir := filepath.Join(cfg.Output.Dir, priorRuns[0].Name())

	sc.ViewpointList[1].Selected = true
	second := runToCompletion(t, ctx, o, Options{OnlySelected: true, ReprojectDir: priorDir})
	require.Equal(t, types.OutcomeSuccess, second.Outcome)
	assert.Equal(t, 1, second.JobsCompleted)
	assert.Len(t, backend.Graphs, 4)
}

func TestProgressReachesDone(t *testing.T) {
	cfg := testConfig(t, types.ModeSeparate)
	sc := testutil.NewFakeScene(2)
	backend := &testutil.FakeBackend{}
	o := New(cfg, sc, backend, nil)
	ctx := startPump(t, o)

	result := runToCompletion(t, ctx, o, Options{})
	require.Equal(t, types.OutcomeSuccess, result.Outcome)

	p := o.Progress()
	assert.Equal(t, "done", p.Stage)
	assert.Equal(t, 100.0, p.Percent)
}
