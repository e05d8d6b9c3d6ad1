package projection

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakib91221/StableGen/types"
)

func uniformImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// fullMapping maps every texel of a w×h texture onto the same pixel
// coordinates of the viewpoint image under one cosine.
func fullMapping(w, h int, cos float64) []TexelSample {
	var out []TexelSample
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out = append(out, TexelSample{X: x, Y: y, SrcX: x, SrcY: y, CosAngle: cos})
		}
	}
	return out
}

func TestProjectFirstViewpointClaimsEverything(t *testing.T) {
	e := NewEngine(DefaultWeightPolicy(), nil)
	tex := NewTexture(4, 4, [3]float64{0.5, 0.5, 0.5})
	state := NewVisibilityState(4, 4)
	red := uniformImage(4, 4, color.NRGBA{R: 255, A: 255})

	claimed, err := e.Project(tex, state, red, fullMapping(4, 4, 0.9), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 16, claimed)
	assert.Equal(t, 1.0, state.ClaimedFraction())
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, tex.NRGBAAt(2, 2))
	assert.Equal(t, 0, state.Owner(0, 0))
}

func TestProjectStrictGreaterOverwrite(t *testing.T) {
	e := NewEngine(DefaultWeightPolicy(), nil)
	tex := NewTexture(2, 2, [3]float64{0, 0, 0})
	state := NewVisibilityState(2, 2)
	red := uniformImage(2, 2, color.NRGBA{R: 255, A: 255})
	blue := uniformImage(2, 2, color.NRGBA{B: 255, A: 255})

	_, err := e.Project(tex, state, red, fullMapping(2, 2, 0.8), 0, 2)
	require.NoError(t, err)

	// Equal weight does not overwrite.
	claimed, err := e.Project(tex, state, blue, fullMapping(2, 2, 0.8), 1, 2)
	require.NoError(t, err)
	assert.Zero(t, claimed)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, tex.NRGBAAt(0, 0))
	assert.Equal(t, 0, state.Owner(0, 0))

	// Strictly greater weight does.
	claimed, err = e.Project(tex, state, blue, fullMapping(2, 2, 0.9), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, claimed)
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, tex.NRGBAAt(0, 0))
	assert.Equal(t, 1, state.Owner(0, 0))
}

func TestProjectBackFacingLeavesTexelsUntouched(t *testing.T) {
	e := NewEngine(DefaultWeightPolicy(), nil)
	fallback := [3]float64{0.5, 0.5, 0.5}
	tex := NewTexture(2, 2, fallback)
	state := NewVisibilityState(2, 2)
	red := uniformImage(2, 2, color.NRGBA{R: 255, A: 255})

	claimed, err := e.Project(tex, state, red, fullMapping(2, 2, -0.3), 0, 1)
	require.NoError(t, err)
	assert.Zero(t, claimed)
	assert.False(t, state.Claimed(0, 0))
	assert.Equal(t, NewTexture(2, 2, fallback).NRGBAAt(0, 0), tex.NRGBAAt(0, 0))
}

func TestProjectEarlyPriorityBlocksLaterViewpoint(t *testing.T) {
	policy := DefaultWeightPolicy()
	policy.EarlyPriority = true
	policy.PriorityStrength = 1.0
	e := NewEngine(policy, nil)

	tex := NewTexture(1, 1, [3]float64{0, 0, 0})
	state := NewVisibilityState(1, 1)
	red := uniformImage(1, 1, color.NRGBA{R: 255, A: 255})
	blue := uniformImage(1, 1, color.NRGBA{B: 255, A: 255})

	_, err := e.Project(tex, state, red, fullMapping(1, 1, 0.8), 0, 2)
	require.NoError(t, err)

	// Slightly better raw weight is no longer enough against the boost.
	claimed, err := e.Project(tex, state, blue, fullMapping(1, 1, 0.9), 1, 2)
	require.NoError(t, err)
	assert.Zero(t, claimed)
	assert.Equal(t, 0, state.Owner(0, 0))
}

func TestProjectSizeMismatch(t *testing.T) {
	e := NewEngine(DefaultWeightPolicy(), nil)
	tex := NewTexture(4, 4, [3]float64{0, 0, 0})
	state := NewVisibilityState(2, 2)

	_, err := e.Project(tex, state, uniformImage(4, 4, color.NRGBA{A: 255}), nil, 0, 1)
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
}
