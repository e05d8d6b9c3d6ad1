package orchestrator

import (
	"context"
	"image"

	"github.com/rakib91221/StableGen/projection"
	"github.com/rakib91221/StableGen/scene"
	"github.com/rakib91221/StableGen/types"
	"github.com/rakib91221/StableGen/workdir"
)

// strategy is one generation mode's sequencing.
type strategy interface {
	name() string
	run(ctx context.Context, rs *runState) error
	// appliesOwnTextures reports whether the strategy installs textures
	// itself instead of relying on the shared projection apply.
	appliesOwnTextures() bool
}

func strategyFor(mode types.Mode, opts Options) (strategy, error) {
	if opts.Reproject {
		if opts.ReprojectDir == "" {
			return nil, types.NewError(types.ErrConfiguration,
				"reproject requires a previous run directory")
		}
		return reprojectStrategy{}, nil
	}
	switch mode {
	case types.ModeSeparate:
		return separateStrategy{}, nil
	case types.ModeSequential:
		return sequentialStrategy{}, nil
	case types.ModeGrid:
		return gridStrategy{}, nil
	case types.ModeRefine:
		return refineStrategy{}, nil
	case types.ModeUVInpaint:
		return uvInpaintStrategy{}, nil
	}
	return nil, types.NewError(types.ErrConfiguration, "unknown generation mode %q", mode)
}

// adapterActive reports whether any job of this run carries the style
// adapter.
func (rs *runState) adapterActive() bool {
	return rs.o.cfg.Adapter != nil || rs.o.cfg.Bootstrap.Enabled
}

// adapterReference picks the adapter image for a viewpoint after the
// bootstrap, per the configured policy.
func (rs *runState) adapterReference(viewpoint int) string {
	if !rs.o.cfg.Bootstrap.Enabled {
		return ""
	}
	if rs.o.cfg.Bootstrap.Policy == types.AdapterUseRecent && viewpoint > 0 {
		return rs.run.GeneratedPath(viewpoint-1, rs.revision)
	}
	return rs.run.GeneratedPath(0, rs.revision)
}

// runViewpointJob executes one viewpoint's job, handling the adapter
// bootstrap on viewpoint 0: a first pass without the adapter, then an
// optional regeneration with the adapter referencing the first output.
// All other job inputs stay unchanged between the two passes.
func (rs *runState) runViewpointJob(ctx context.Context, vp types.Viewpoint, job types.GenerationJob) (image.Image, error) {
	bootstrap := rs.o.cfg.Bootstrap.Enabled && rs.adapterActive()
	if bootstrap && vp.Index == 0 {
		first := job
		first.DisableAdapter = true
		first.ZeroControlStrength = rs.o.cfg.Bootstrap.WithoutControl
		img, err := rs.executeJob(ctx, first, jobLabel(job.Mode, vp.Index))
		if err != nil {
			return nil, err
		}
		if !rs.o.cfg.Bootstrap.Regenerate {
			return img, nil
		}
		second := job
		second.AdapterImage = rs.run.GeneratedPath(0, rs.revision)
		return rs.executeJob(ctx, second, jobLabel(job.Mode, vp.Index)+"_adapter")
	}
	if bootstrap && vp.Index > 0 {
		job.AdapterImage = rs.adapterReference(vp.Index)
	}
	return rs.executeJob(ctx, job, jobLabel(job.Mode, vp.Index))
}

// shouldGenerate honors regenerate-selected runs. An empty selection
// regenerates everything.
func (rs *runState) shouldGenerate(vp types.Viewpoint) bool {
	if !rs.opts.OnlySelected {
		return true
	}
	any := false
	for _, v := range rs.viewpoints {
		if v.Selected {
			any = true
			break
		}
	}
	return !any || vp.Selected
}

// loadPrior reads a viewpoint's image from the previous run so skipped
// viewpoints still take part in projection.
func (rs *runState) loadPrior(vp types.Viewpoint) error {
	if rs.opts.ReprojectDir == "" {
		return types.NewError(types.ErrConfiguration,
			"regenerate-selected requires a previous run directory for viewpoint %d", vp.Index)
	}
	img, err := rs.run.LoadImage(workdir.GeneratedIn(rs.opts.ReprojectDir, vp.Index, rs.priorRevision))
	if err != nil {
		return err
	}
	rs.generated[vp.Index] = img
	return nil
}

// separateStrategy generates every viewpoint independently and projects
// once at the end.
type separateStrategy struct{}

func (separateStrategy) name() string             { return "separate" }
func (separateStrategy) appliesOwnTextures() bool { return false }

func (s separateStrategy) run(ctx context.Context, rs *runState) error {
	for _, vp := range rs.viewpoints {
		if !rs.shouldGenerate(vp) {
			if err := rs.loadPrior(vp); err != nil {
				return err
			}
			continue
		}
		arts, err := rs.exportGuidance(ctx, vp.Index)
		if err != nil {
			return err
		}
		job := types.GenerationJob{
			Mode:     types.ModeSeparate,
			Index:    vp.Index,
			Prompt:   rs.promptFor(vp),
			Negative: rs.o.cfg.Generation.NegativePrompt,
			Guidance: arts,
			Params:   rs.samplingParams(),
		}
		if _, err := rs.runViewpointJob(ctx, vp, job); err != nil {
			return err
		}
	}
	return rs.projectAll(ctx)
}

// sequentialStrategy makes viewpoint i inpaint against the blended result
// of viewpoints 0..i-1. Projection alternates with generation; the
// dispatcher enforces the ordering.
type sequentialStrategy struct{}

func (sequentialStrategy) name() string             { return "sequential" }
func (sequentialStrategy) appliesOwnTextures() bool { return false }

func (s sequentialStrategy) run(ctx context.Context, rs *runState) error {
	for i, vp := range rs.viewpoints {
		arts, err := rs.exportGuidance(ctx, vp.Index)
		if err != nil {
			return err
		}
		job := types.GenerationJob{
			Mode:     types.ModeSequential,
			Index:    vp.Index,
			Prompt:   rs.promptFor(vp),
			Negative: rs.o.cfg.Generation.NegativePrompt,
			Guidance: arts,
			Params:   rs.samplingParams(),
		}
		if i > 0 {
			inputs, err := rs.inpaintInputs(ctx, vp.Index)
			if err != nil {
				return err
			}
			job.Inpaint = inputs
			job.Img2Img = true
		}

		img, err := rs.runViewpointJob(ctx, vp, job)
		if err != nil {
			return err
		}
		// Projection must complete before the next viewpoint's inpaint
		// inputs are derived.
		if err := rs.projectViewpoint(ctx, vp.Index, img); err != nil {
			return err
		}
	}
	return nil
}

// refineStrategy reruns every viewpoint as img2img over its current
// rendered appearance.
type refineStrategy struct{}

func (refineStrategy) name() string             { return "refine" }
func (refineStrategy) appliesOwnTextures() bool { return false }

func (s refineStrategy) run(ctx context.Context, rs *runState) error {
	if rs.o.cfg.Refine.Preserve {
		if err := rs.seedTexturesFromBaked(ctx); err != nil {
			return err
		}
	}
	for _, vp := range rs.viewpoints {
		if !rs.shouldGenerate(vp) {
			if err := rs.loadPrior(vp); err != nil {
				return err
			}
			continue
		}
		arts, err := rs.exportGuidance(ctx, vp.Index)
		if err != nil {
			return err
		}

		input, err := scene.Run(ctx, rs.o.dispatcher, func(ctx context.Context) (image.Image, error) {
			return rs.o.scene.RenderComposite(ctx, vp.Index, rs.revision, rs.width, rs.height)
		})
		if err != nil {
			return err
		}
		inputPath := rs.run.InpaintRenderPath(vp.Index)
		if err := rs.run.SaveImage(inputPath, input); err != nil {
			return err
		}

		prompt := rs.promptFor(vp)
		if rs.o.cfg.Refine.Prompt != "" {
			prompt = rs.o.cfg.Refine.Prompt
		}
		job := types.GenerationJob{
			Mode:       types.ModeRefine,
			Index:      vp.Index,
			Prompt:     prompt,
			Negative:   rs.o.cfg.Generation.NegativePrompt,
			Guidance:   arts,
			InputImage: inputPath,
			Img2Img:    true,
			Params:     rs.refineParams(),
		}
		if _, err := rs.runViewpointJob(ctx, vp, job); err != nil {
			return err
		}
	}
	return rs.projectAll(ctx)
}

// seedTexturesFromBaked preloads each surface's current texture so texels
// the refine pass never claims keep their previous appearance.
func (rs *runState) seedTexturesFromBaked(ctx context.Context) error {
	return rs.o.dispatcher.Do(ctx, func(ctx context.Context) error {
		for si := range rs.surfaces {
			baked, err := rs.o.scene.BakedTexture(ctx, si, rs.revision)
			if err != nil {
				return err
			}
			if baked == nil {
				continue
			}
			rs.textures[si] = projection.Rescale(baked, rs.width, rs.height)
		}
		return nil
	})
}
