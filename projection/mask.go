package projection

import (
	"image"
	"image/color"
	"math"
)

// latentBlock is the backend's latent-space granularity. The blocky mask
// variant is constant over blocks of this size.
const latentBlock = 8

// MaskOptions controls how the visibility weight field is turned into an
// inpainting mask.
type MaskOptions struct {
	// Smooth remaps weights through the black/white-point ramp; disabled,
	// weights are thresholded into a binary mask.
	Smooth          bool
	BinaryThreshold float64
	BlackPoint      float64
	WhitePoint      float64
	// UseWeightExponent keeps the policy exponent in the mask weights;
	// disabled, the mask sees the plain view-angle cosine.
	UseWeightExponent bool
	// Blocky makes the mask constant over the backend's 8x8 latent blocks.
	Blocky bool
}

// BuildMask derives the inpainting mask of one viewpoint from the current
// visibility state, in viewpoint image space. White marks pixels still to
// be generated; pixels off the surface stay black. samples must be the
// same mapping used to project this viewpoint.
func (e *Engine) BuildMask(state *VisibilityState, samples []TexelSample, width, height int, opts MaskOptions) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, width, height))

	for _, s := range samples {
		if s.SrcX < 0 || s.SrcX >= width || s.SrcY < 0 || s.SrcY >= height {
			continue
		}
		w := state.Weight(s.X, s.Y)
		if !opts.UseWeightExponent && e.policy.Exponent > 0 && w > 0 {
			// Undo the falloff exponent so the mask sees the raw cosine.
			w = math.Pow(w, 1/e.policy.Exponent)
		}
		w = clamp(w, 0, 1)

		var covered float64
		if opts.Smooth {
			if opts.WhitePoint > opts.BlackPoint {
				covered = clamp((w-opts.BlackPoint)/(opts.WhitePoint-opts.BlackPoint), 0, 1)
			} else if w >= opts.WhitePoint {
				covered = 1
			}
		} else if w >= opts.BinaryThreshold {
			covered = 1
		}

		v := uint8(math.Round((1 - covered) * 255))
		i := mask.PixOffset(s.SrcX, s.SrcY)
		if v > mask.Pix[i] {
			mask.Pix[i] = v
		}
	}

	if opts.Blocky {
		blockify(mask)
	}
	return mask
}

// blockify makes the mask constant over latent blocks, taking each
// block's maximum so partially uncovered blocks are regenerated whole.
func blockify(mask *image.Gray) {
	b := mask.Bounds()
	for by := b.Min.Y; by < b.Max.Y; by += latentBlock {
		for bx := b.Min.X; bx < b.Max.X; bx += latentBlock {
			var peak uint8
			for y := by; y < by+latentBlock && y < b.Max.Y; y++ {
				for x := bx; x < bx+latentBlock && x < b.Max.X; x++ {
					if v := mask.GrayAt(x, y).Y; v > peak {
						peak = v
					}
				}
			}
			for y := by; y < by+latentBlock && y < b.Max.Y; y++ {
				for x := bx; x < bx+latentBlock && x < b.Max.X; x++ {
					mask.SetGray(x, y, color.Gray{Y: peak})
				}
			}
		}
	}
}
