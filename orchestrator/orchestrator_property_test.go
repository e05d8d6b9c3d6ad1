package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/rakib91221/StableGen/testutil"
	"github.com/rakib91221/StableGen/types"
)

// TestProperty_PerViewpointModesRunOneJobEach checks that the
// per-viewpoint modes complete with exactly one backend job per
// viewpoint, for any viewpoint count, and that every submitted graph
// validates.
func TestProperty_PerViewpointModesRunOneJobEach(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("separate and refine run n jobs for n viewpoints", prop.ForAll(
		func(n int, sequential bool) bool {
			mode := types.ModeSeparate
			if sequential {
				mode = types.ModeSequential
			}
			cfg := testConfig(t, mode)
			sc := testutil.NewFakeScene(n)
			backend := &testutil.FakeBackend{}
			o := New(cfg, sc, backend, nil)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			go o.Dispatcher().Pump(ctx)

			h, err := o.Start(ctx, Options{})
			if err != nil {
				return false
			}
			result := <-h.Result()
			if result.Outcome != types.OutcomeSuccess {
				return false
			}
			if result.JobsCompleted != n || len(backend.Graphs) != n {
				return false
			}
			for _, g := range backend.Graphs {
				if err := g.Validate(); err != nil {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 5),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
