package orchestrator

import (
	"context"
	"image"
	"image/color"

	"go.uber.org/zap"

	"github.com/rakib91221/StableGen/projection"
	"github.com/rakib91221/StableGen/scene"
	"github.com/rakib91221/StableGen/types"
)

// uvInpaintStrategy fills the untextured areas of each surface's baked
// flat texture with one inpainting job per surface, independent of
// viewpoints.
type uvInpaintStrategy struct{}

func (uvInpaintStrategy) name() string             { return "uv_inpaint" }
func (uvInpaintStrategy) appliesOwnTextures() bool { return true }

func (s uvInpaintStrategy) run(ctx context.Context, rs *runState) error {
	for si, surface := range rs.surfaces {
		baked, err := scene.Run(ctx, rs.o.dispatcher, func(ctx context.Context) (image.Image, error) {
			return rs.o.scene.BakedTexture(ctx, si, rs.revision)
		})
		if err != nil {
			return err
		}
		if baked == nil {
			rs.o.logger.Warn("surface has no baked texture, skipping",
				zap.String("surface", surface.Name))
			continue
		}

		bakedPath := rs.run.BakedPath(si, rs.revision)
		if err := rs.run.SaveImage(bakedPath, baked); err != nil {
			return err
		}
		mask := missingAreaMask(baked)
		maskPath := rs.run.UVMaskPath(si)
		if err := rs.run.SaveImage(maskPath, mask); err != nil {
			return err
		}

		job := types.GenerationJob{
			Mode:     types.ModeUVInpaint,
			Index:    si,
			Prompt:   uvPrompt(rs, surface),
			Negative: rs.o.cfg.Generation.NegativePrompt,
			Inpaint:  &types.InpaintInputs{Render: bakedPath, Mask: maskPath},
			Img2Img:  true,
			Params:   rs.samplingParams(),
		}
		result, err := rs.executeJob(ctx, job, jobLabel(types.ModeUVInpaint, si))
		if err != nil {
			return err
		}

		texture := projection.Rescale(result, rs.width, rs.height)
		err = rs.o.dispatcher.Do(ctx, func(ctx context.Context) error {
			return rs.o.scene.ApplyTexture(ctx, si, rs.revision, texture)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// uvPrompt wraps the prompt so the backend generates in flat UV space
// rather than a camera view. A surface-specific prompt takes precedence.
func uvPrompt(rs *runState, surface types.Surface) string {
	base := rs.o.cfg.Generation.Prompt
	if surface.Prompt != "" {
		base = surface.Prompt
	}
	return "seamless UV-unwrapped texture of " + base
}

// missingAreaMask marks fully transparent texels as areas to generate.
func missingAreaMask(baked image.Image) *image.Gray {
	b := baked.Bounds()
	mask := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, a := baked.At(x, y).RGBA()
			if a == 0 {
				mask.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: 255})
			}
		}
	}
	return mask
}
