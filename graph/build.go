package graph

import (
	"go.uber.org/zap"

	"github.com/rakib91221/StableGen/types"
)

// Build assembles the complete request graph for one generation job. The
// template family is selected by architecture and by whether the job runs
// image-to-image; everything else is spliced in from the Spec.
func Build(logger *zap.Logger, spec Spec) (*Graph, error) {
	if spec.Model == "" {
		return nil, types.NewError(types.ErrGraphInvalid, "no model configured")
	}
	if spec.Job.Img2Img && spec.Job.Inpaint == nil && spec.Job.InputImage == "" {
		return nil, types.NewError(types.ErrGraphInvalid,
			"img2img job has neither inpaint inputs nor an input image")
	}

	b := NewBuilder(logger)
	switch spec.Architecture {
	case types.ArchFlux:
		if spec.Job.Img2Img {
			return b.buildFluxImg2Img(spec)
		}
		return b.buildFlux(spec)
	case types.ArchSDXL:
		if spec.Job.Img2Img {
			return b.buildSDXLImg2Img(spec)
		}
		return b.buildSDXL(spec)
	default:
		return nil, types.NewError(types.ErrGraphInvalid,
			"unknown architecture %q", spec.Architecture)
	}
}

func errMissingDepth() error {
	return types.NewError(types.ErrGraphInvalid,
		"depth-lora path requires an exported depth guidance image")
}
