package projection

import (
	"image"
	"image/color"

	"go.uber.org/zap"

	"github.com/rakib91221/StableGen/types"
)

// TexelSample maps one surface texel onto a pixel of a viewpoint image.
// Samples are produced by the scene collaborator's projection of the
// surface through the viewpoint's transform.
type TexelSample struct {
	// X, Y address the surface texture texel.
	X, Y int
	// SrcX, SrcY address the pixel in the viewpoint image.
	SrcX, SrcY int
	// CosAngle is the cosine of the angle between the surface normal and
	// the view direction at this texel.
	CosAngle float64
}

// Engine accumulates viewpoint images into a shared texture under one
// weight policy.
type Engine struct {
	policy WeightPolicy
	logger *zap.Logger
}

// NewEngine returns an engine with the given policy.
func NewEngine(policy WeightPolicy, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		policy: policy,
		logger: logger.With(zap.String("component", "projection")),
	}
}

// Policy returns the engine's weight policy.
func (e *Engine) Policy() WeightPolicy { return e.policy }

// Project blends one viewpoint image into the texture. index and total
// position the viewpoint within the run for the early-priority boost. A
// texel is written only when its effective weight strictly exceeds the
// stored one; back-facing texels are left untouched. Returns the number
// of texels claimed.
func (e *Engine) Project(texture *image.NRGBA, state *VisibilityState, img image.Image, samples []TexelSample, index, total int) (int, error) {
	if texture == nil || state == nil {
		return 0, types.NewError(types.ErrConfiguration, "projection target not initialized")
	}
	tw, th := state.Size()
	if b := texture.Bounds(); b.Dx() != tw || b.Dy() != th {
		return 0, types.NewError(types.ErrConfiguration,
			"texture %dx%d does not match visibility state %dx%d",
			b.Dx(), b.Dy(), tw, th)
	}

	srcBounds := img.Bounds()
	claimed := 0
	for _, s := range samples {
		w := e.policy.Weight(s.CosAngle)
		if w == 0 {
			continue
		}
		eff := e.policy.Effective(w, index, total)
		if eff <= state.Weight(s.X, s.Y) {
			continue
		}
		sx, sy := srcBounds.Min.X+s.SrcX, srcBounds.Min.Y+s.SrcY
		if sx < srcBounds.Min.X || sx >= srcBounds.Max.X ||
			sy < srcBounds.Min.Y || sy >= srcBounds.Max.Y {
			continue
		}
		texture.Set(s.X, s.Y, img.At(sx, sy))
		state.claim(s.X, s.Y, eff, index)
		claimed++
	}

	e.logger.Debug("viewpoint projected",
		zap.Int("viewpoint", index),
		zap.Int("samples", len(samples)),
		zap.Int("claimed", claimed))
	return claimed, nil
}

// NewTexture returns a texture canvas filled with the fallback color.
// Unclaimed texels keep the fallback after all viewpoints are projected.
func NewTexture(width, height int, fallback [3]float64) *image.NRGBA {
	tex := image.NewNRGBA(image.Rect(0, 0, width, height))
	c := color.NRGBA{
		R: uint8(clamp(fallback[0], 0, 1) * 255),
		G: uint8(clamp(fallback[1], 0, 1) * 255),
		B: uint8(clamp(fallback[2], 0, 1) * 255),
		A: 255,
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			tex.SetNRGBA(x, y, c)
		}
	}
	return tex
}
