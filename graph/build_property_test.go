package graph

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/rakib91221/StableGen/types"
)

func genControlUnits() gopter.Gen {
	signal := gen.OneConstOf(types.SignalDepth, types.SignalCanny, types.SignalNormal)
	return gen.SliceOf(gopter.CombineGens(
		signal,
		gen.Float64Range(0, 2),
		gen.Bool(),
		gen.Bool(),
	).Map(func(vs []interface{}) types.ControlChainUnit {
		return types.ControlChainUnit{
			Type:         vs[0].(types.SignalType),
			Model:        "cn.safetensors",
			Strength:     vs[1].(float64),
			EndPercent:   1.0,
			IsUnion:      vs[2].(bool),
			UseUnionType: vs[2].(bool) && vs[3].(bool),
		}
	}))
}

func specWithUnits(units []types.ControlChainUnit, loraCount int, seed int64) Spec {
	spec := baseSpec()
	spec.Job.Params.Seed = seed
	spec.Job.Guidance = types.GuidanceArtifacts{
		Depth:  "run/control/depth/0.png",
		Canny:  "run/control/canny/0.png",
		Normal: "run/control/normal/0.png",
	}
	spec.ControlUnits = units
	for i := 0; i < loraCount; i++ {
		spec.LoRAUnits = append(spec.LoRAUnits, types.LoRAUnit{
			Model: "lora.safetensors", ModelStrength: 1, ClipStrength: 1,
		})
	}
	return spec
}

func TestProperty_BuiltGraphsAreValid(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("every built graph validates and serializes", prop.ForAll(
		func(units []types.ControlChainUnit, loraCount int, seed int64) bool {
			g, err := Build(nil, specWithUnits(units, loraCount, seed))
			if err != nil {
				t.Logf("Build failed: %v", err)
				return false
			}
			if err := g.Validate(); err != nil {
				t.Logf("Validate failed: %v", err)
				return false
			}
			if _, err := json.Marshal(g); err != nil {
				t.Logf("Marshal failed: %v", err)
				return false
			}
			return g.Node(g.SinkID()).ClassType == "SaveImageWebsocket"
		},
		genControlUnits(),
		gen.IntRange(0, 4),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestProperty_NodeCountMatchesChainLength(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("node count follows from the configured chains", prop.ForAll(
		func(units []types.ControlChainUnit, loraCount int) bool {
			g, err := Build(nil, specWithUnits(units, loraCount, 1))
			if err != nil {
				t.Logf("Build failed: %v", err)
				return false
			}
			// Fixed skeleton: loader, two prompt encodes, latent, sampler,
			// decode, sink. Each control unit adds its image load, net
			// load and apply node; units running in union mode share one
			// selector.
			want := 7 + 3*len(units) + loraCount
			unionMode := false
			for _, u := range units {
				if u.IsUnion && u.UseUnionType {
					unionMode = true
				}
			}
			if unionMode {
				want++
			}
			if g.Len() != want {
				t.Logf("got %d nodes, want %d", g.Len(), want)
				return false
			}
			return true
		},
		genControlUnits(),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}

func TestProperty_BuildDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("identical specs produce identical wire graphs", prop.ForAll(
		func(units []types.ControlChainUnit, seed int64) bool {
			spec := specWithUnits(units, 2, seed)
			g1, err := Build(nil, spec)
			if err != nil {
				return false
			}
			g2, err := Build(nil, spec)
			if err != nil {
				return false
			}
			j1, _ := json.Marshal(g1)
			j2, _ := json.Marshal(g2)
			return bytes.Equal(j1, j2)
		},
		genControlUnits(),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestProperty_ZeroStrengthZeroesEveryUnit(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("zero-strength jobs zero every apply node", prop.ForAll(
		func(units []types.ControlChainUnit) bool {
			spec := specWithUnits(units, 0, 1)
			spec.Job.ZeroControlStrength = true
			g, err := Build(nil, spec)
			if err != nil {
				return false
			}
			for _, id := range g.NodeIDs() {
				n := g.Node(id)
				if n.ClassType != "ControlNetApplyAdvanced" {
					continue
				}
				if n.Inputs["strength"] != float64(0) {
					return false
				}
			}
			return true
		},
		genControlUnits(),
	))

	properties.TestingRun(t)
}
