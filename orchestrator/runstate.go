package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rakib91221/StableGen/graph"
	"github.com/rakib91221/StableGen/projection"
	"github.com/rakib91221/StableGen/scene"
	"github.com/rakib91221/StableGen/types"
	"github.com/rakib91221/StableGen/workdir"
)

// fluxDepthLoRAFile is the depth-conditioning LoRA wired in when the
// depth-LoRA path replaces the control chain.
const fluxDepthLoRAFile = "flux1-depth-dev-lora.safetensors"

// runState is the per-run working set shared by the mode strategies.
type runState struct {
	o        *Orchestrator
	opts     Options
	run      *workdir.Run
	strategy strategy

	viewpoints []types.Viewpoint
	surfaces   []types.Surface
	revision   types.MaterialRevision

	// priorRevision is the revision discovered in the previous run's
	// directory when one is read back.
	priorRevision types.MaterialRevision

	// width, height is the working resolution after auto-rescale.
	width, height int

	// textures and states are indexed by surface.
	textures []*image.NRGBA
	states   []*projection.VisibilityState

	// generated maps viewpoint index to the decoded backend output.
	generated map[int]image.Image

	jobsCompleted int
}

// prepare builds the run's working set: artifact directory, ordered
// viewpoints, surfaces, working resolution, revision, and blank textures.
func (o *Orchestrator) prepare(ctx context.Context, opts Options) (*runState, error) {
	strat, err := strategyFor(o.cfg.Generation.Mode, opts)
	if err != nil {
		return nil, err
	}

	run, err := workdir.New(o.cfg.Output.Dir, time.Now(), o.logger)
	if err != nil {
		return nil, err
	}

	viewpoints, err := scene.Run(ctx, o.dispatcher, o.scene.Viewpoints)
	if err != nil {
		return nil, err
	}
	if len(viewpoints) == 0 {
		return nil, types.NewError(types.ErrConfiguration, "scene has no viewpoints")
	}
	sort.SliceStable(viewpoints, func(i, j int) bool {
		return viewpoints[i].Name < viewpoints[j].Name
	})
	if order, err := o.cfg.ViewpointOrder(len(viewpoints)); err != nil {
		return nil, err
	} else if order != nil {
		permuted := make([]types.Viewpoint, len(viewpoints))
		for pos, idx := range order {
			permuted[pos] = viewpoints[idx]
		}
		viewpoints = permuted
	}
	for i := range viewpoints {
		viewpoints[i].Index = i
	}

	surfaces, err := scene.Run(ctx, o.dispatcher, o.scene.Surfaces)
	if err != nil {
		return nil, err
	}
	if len(surfaces) == 0 {
		return nil, types.NewError(types.ErrConfiguration, "scene has no texturable surfaces")
	}
	if !strat.appliesOwnTextures() {
		// Every projected viewpoint claims one UV slot on each surface.
		for _, s := range surfaces {
			if s.UVSlotsFree < len(viewpoints) {
				return nil, types.NewError(types.ErrConfiguration,
					"surface %s has %d free UV slots for %d viewpoints",
					s.Name, s.UVSlotsFree, len(viewpoints))
			}
		}
	}

	width, height := o.cfg.Generation.Width, o.cfg.Generation.Height
	if o.cfg.Generation.AutoRescale {
		width, height = projection.SnapResolution(width, height)
	} else if projection.OverBudget(width, height) {
		return nil, types.NewError(types.ErrConfiguration,
			"resolution %dx%d exceeds the pixel budget; enable auto_rescale or lower it",
			width, height)
	}

	if !o.cfg.Generation.Overwrite {
		o.revision = o.revision.Next()
	}

	var priorRevision types.MaterialRevision
	if opts.ReprojectDir != "" {
		priorRevision, err = workdir.LatestRevisionIn(opts.ReprojectDir)
		if err != nil {
			return nil, err
		}
	}

	rs := &runState{
		o:             o,
		opts:          opts,
		run:           run,
		strategy:      strat,
		viewpoints:    viewpoints,
		surfaces:      surfaces,
		revision:      o.revision,
		priorRevision: priorRevision,
		width:         width,
		height:        height,
		generated:     make(map[int]image.Image),
	}
	for range surfaces {
		rs.textures = append(rs.textures, projection.NewTexture(width, height, o.cfg.Generation.FallbackColor))
		rs.states = append(rs.states, projection.NewVisibilityState(width, height))
	}

	o.setProgress("preparing", 0, 0, len(viewpoints))
	o.logger.Info("run prepared",
		zap.String("mode", string(o.cfg.Generation.Mode)),
		zap.Int("viewpoints", len(viewpoints)),
		zap.Int("surfaces", len(surfaces)),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("revision", int(rs.revision)))
	return rs, nil
}

// finish prunes the artifact tree. Runs regardless of outcome so a
// cancelled run leaves no empty directories.
func (rs *runState) finish() {
	if err := rs.run.Prune(); err != nil {
		rs.o.logger.Warn("prune failed", zap.Error(err))
	}
}

// guidanceOptions forwards the canny thresholds to the scene.
func (rs *runState) guidanceOptions() scene.GuidanceOptions {
	return scene.GuidanceOptions{
		Width:     rs.width,
		Height:    rs.height,
		CannyLow:  rs.o.cfg.Generation.CannyLow,
		CannyHigh: rs.o.cfg.Generation.CannyHigh,
	}
}

// exportGuidance renders and saves every active control signal of one
// viewpoint, returning the artifact paths for the job.
func (rs *runState) exportGuidance(ctx context.Context, viewpoint int) (types.GuidanceArtifacts, error) {
	var arts types.GuidanceArtifacts
	opts := rs.guidanceOptions()
	for _, signal := range rs.o.cfg.ActiveSignals() {
		img, err := scene.Run(ctx, rs.o.dispatcher, func(ctx context.Context) (image.Image, error) {
			return rs.o.scene.RenderGuidance(ctx, viewpoint, signal, opts)
		})
		if err != nil {
			return arts, err
		}
		path := rs.run.GuidancePath(signal, viewpoint)
		if err := rs.run.SaveImage(path, img); err != nil {
			return arts, err
		}
		switch signal {
		case types.SignalDepth:
			arts.Depth = path
		case types.SignalCanny:
			arts.Canny = path
		case types.SignalNormal:
			arts.Normal = path
		}
	}
	return arts, nil
}

// samplingParams builds the job's leaf parameters from the generation
// settings and the run seed.
func (rs *runState) samplingParams() types.SamplingParams {
	g := rs.o.cfg.Generation
	return types.SamplingParams{
		Seed:      rs.o.seed,
		Steps:     g.Steps,
		CFG:       g.CFG,
		Sampler:   g.Sampler,
		Scheduler: g.Scheduler,
		ClipSkip:  g.ClipSkip,
		Denoise:   1.0,
		Width:     rs.width,
		Height:    rs.height,
	}
}

// refineParams builds img2img parameters, falling back to the generation
// settings where the refine section leaves a field unset.
func (rs *runState) refineParams() types.SamplingParams {
	p := rs.samplingParams()
	r := rs.o.cfg.Refine
	if r.Steps > 0 {
		p.Steps = r.Steps
	}
	if r.CFG > 0 {
		p.CFG = r.CFG
	}
	if r.Sampler != "" {
		p.Sampler = r.Sampler
	}
	if r.Scheduler != "" {
		p.Scheduler = r.Scheduler
	}
	if r.Denoise > 0 {
		p.Denoise = r.Denoise
	}
	return p
}

// promptFor resolves the prompt of one viewpoint, prepending its own
// fragment when viewpoint prompts are enabled.
func (rs *runState) promptFor(vp types.Viewpoint) string {
	base := rs.o.cfg.Generation.Prompt
	if rs.o.cfg.Generation.UseViewpointPrompts && vp.Prompt != "" {
		return vp.Prompt + ", " + base
	}
	return base
}

// graphSpec assembles the build input for one job.
func (rs *runState) graphSpec(job types.GenerationJob) graph.Spec {
	cfg := rs.o.cfg
	spec := graph.Spec{
		Job:           job,
		Architecture:  cfg.Generation.Architecture,
		Model:         cfg.Generation.Model,
		ControlUnits:  cfg.ControlUnits,
		LoRAUnits:     cfg.LoRAUnits,
		Adapter:       cfg.Adapter,
		UpscaleMethod: cfg.Refine.UpscaleMethod,
		Mask:          cfg.Mask,
		Inpaint:       cfg.Inpaint,
	}
	// UV-space jobs have no camera, so no guidance signal applies.
	if job.Mode == types.ModeUVInpaint {
		spec.ControlUnits = nil
	} else if cfg.UsesFluxDepthLoRA() {
		spec.FluxDepthLoRA = fluxDepthLoRAFile
	}
	if spec.Adapter == nil && cfg.Bootstrap.Enabled {
		spec.Adapter = &types.StyleAdapter{
			Policy:   cfg.Bootstrap.Policy,
			Strength: cfg.Bootstrap.Strength,
			Start:    cfg.Bootstrap.Start,
			End:      cfg.Bootstrap.End,
		}
	}
	return spec
}

// executeJob builds, dumps, submits and collects one backend job. The
// decoded image is recorded under the job index and saved to the run
// directory.
func (rs *runState) executeJob(ctx context.Context, job types.GenerationJob, label string) (image.Image, error) {
	g, err := graph.Build(rs.o.logger, rs.graphSpec(job))
	if err != nil {
		return nil, err
	}
	if rs.o.cfg.Output.SaveGraphs {
		if err := rs.run.SaveGraph(label, g); err != nil {
			rs.o.logger.Warn("graph dump failed", zap.Error(err))
		}
	}

	data, err := rs.o.backend.Execute(ctx, g, func(value, max int) {
		pct := 0.0
		if max > 0 {
			pct = float64(value) / float64(max) * 100
		}
		rs.o.setProgress(label, pct, rs.jobsCompleted, rs.totalJobs())
	})
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, types.NewError(types.ErrBackendExecution,
			"decode generated image: %v", err)
	}

	path := rs.run.GeneratedPath(job.Index, rs.revision)
	if err := rs.run.SaveBytes(path, data); err != nil {
		return nil, err
	}
	rs.generated[job.Index] = img
	rs.jobsCompleted++
	return img, nil
}

// totalJobs estimates the run's job count for the progress surface.
func (rs *runState) totalJobs() int {
	switch rs.o.cfg.Generation.Mode {
	case types.ModeGrid:
		if rs.o.cfg.Refine.Tiles {
			return 1 + len(rs.viewpoints)
		}
		return 1
	case types.ModeUVInpaint:
		return len(rs.surfaces)
	default:
		return len(rs.viewpoints)
	}
}

// projectViewpoint blends one generated image onto every surface. Sample
// gathering needs the main context; the blending itself runs on the
// worker side, one goroutine per surface since each surface owns its
// texture and visibility state.
func (rs *runState) projectViewpoint(ctx context.Context, viewpoint int, img image.Image) error {
	samples := make([][]projection.TexelSample, len(rs.surfaces))
	err := rs.o.dispatcher.Do(ctx, func(ctx context.Context) error {
		for si := range rs.surfaces {
			s, err := rs.o.scene.ProjectionSamples(ctx, viewpoint, si, rs.width, rs.height)
			if err != nil {
				return err
			}
			samples[si] = s
		}
		return nil
	})
	if err != nil {
		return err
	}

	total := len(rs.viewpoints)
	eg, _ := errgroup.WithContext(ctx)
	for si := range rs.surfaces {
		si := si
		eg.Go(func() error {
			_, err := rs.o.engine.Project(rs.textures[si], rs.states[si], img, samples[si], viewpoint, total)
			return err
		})
	}
	return eg.Wait()
}

// projectAll blends every recorded image in viewpoint order. Used by the
// modes without inter-viewpoint dependencies.
func (rs *runState) projectAll(ctx context.Context) error {
	for _, vp := range rs.viewpoints {
		img, ok := rs.generated[vp.Index]
		if !ok {
			continue
		}
		if err := rs.projectViewpoint(ctx, vp.Index, img); err != nil {
			return err
		}
	}
	return nil
}

// inpaintInputs renders the composite of everything textured so far from
// one viewpoint and derives its visibility mask, saving both.
func (rs *runState) inpaintInputs(ctx context.Context, viewpoint int) (*types.InpaintInputs, error) {
	composite, err := scene.Run(ctx, rs.o.dispatcher, func(ctx context.Context) (image.Image, error) {
		return rs.o.scene.RenderComposite(ctx, viewpoint, rs.revision, rs.width, rs.height)
	})
	if err != nil {
		return nil, err
	}
	renderPath := rs.run.InpaintRenderPath(viewpoint)
	if err := rs.run.SaveImage(renderPath, composite); err != nil {
		return nil, err
	}

	m := rs.o.cfg.Mask
	maskOpts := projection.MaskOptions{
		Smooth:            m.Smooth,
		BinaryThreshold:   m.BinaryThreshold,
		BlackPoint:        m.BlackPoint,
		WhitePoint:        m.WhitePoint,
		UseWeightExponent: m.UseWeightExponent,
		Blocky:            m.Blocky,
	}
	mask, err := scene.Run(ctx, rs.o.dispatcher, func(ctx context.Context) (image.Image, error) {
		// The mask covers every surface: a pixel is "textured" when any
		// surface claims it with enough weight.
		combined := image.NewGray(image.Rect(0, 0, rs.width, rs.height))
		for si := range rs.surfaces {
			samples, err := rs.o.scene.ProjectionSamples(ctx, viewpoint, si, rs.width, rs.height)
			if err != nil {
				return nil, err
			}
			part := rs.o.engine.BuildMask(rs.states[si], samples, rs.width, rs.height, maskOpts)
			for i, v := range part.Pix {
				if v > combined.Pix[i] {
					combined.Pix[i] = v
				}
			}
		}
		return combined, nil
	})
	if err != nil {
		return nil, err
	}
	maskPath := rs.run.VisibilityMaskPath(viewpoint)
	if err := rs.run.SaveImage(maskPath, mask); err != nil {
		return nil, err
	}

	return &types.InpaintInputs{Render: renderPath, Mask: maskPath}, nil
}

// applyTextures installs the blended textures on their surfaces.
func (rs *runState) applyTextures(ctx context.Context) error {
	if len(rs.generated) == 0 && !rs.opts.Reproject {
		return nil
	}
	return rs.o.dispatcher.Do(ctx, func(ctx context.Context) error {
		for si := range rs.surfaces {
			if err := rs.o.scene.ApplyTexture(ctx, si, rs.revision, rs.textures[si]); err != nil {
				return err
			}
		}
		return nil
	})
}

// jobLabel names a job for progress and graph dumps.
func jobLabel(mode types.Mode, index int) string {
	return fmt.Sprintf("%s_%d", mode, index)
}
