package orchestrator

import (
	"context"
	"image"

	"github.com/rakib91221/StableGen/projection"
	"github.com/rakib91221/StableGen/scene"
	"github.com/rakib91221/StableGen/types"
)

// gridStrategy tiles every viewpoint's guidance into one near-square
// composite, generates it in a single job, splits the result back into
// per-viewpoint tiles, optionally refines each tile, then projects.
type gridStrategy struct{}

func (gridStrategy) name() string             { return "grid" }
func (gridStrategy) appliesOwnTextures() bool { return false }

func (s gridStrategy) run(ctx context.Context, rs *runState) error {
	layout := projection.GridLayout(len(rs.viewpoints), rs.width, rs.height)

	arts, err := s.exportCompositeGuidance(ctx, rs, layout)
	if err != nil {
		return err
	}

	// The composite itself renders at the budgeted resolution.
	compW, compH := layout.Bounds()
	jobW, jobH := compW, compH
	if rs.o.cfg.Generation.AutoRescale {
		jobW, jobH = projection.SnapResolution(compW, compH)
	}
	params := rs.samplingParams()
	params.Width, params.Height = jobW, jobH

	job := types.GenerationJob{
		Mode:     types.ModeGrid,
		Index:    0,
		Prompt:   rs.o.cfg.Generation.Prompt,
		Negative: rs.o.cfg.Generation.NegativePrompt,
		Guidance: arts,
		Params:   params,
	}
	composite, err := rs.executeJob(ctx, job, "grid")
	if err != nil {
		return err
	}

	// Inverse tiling recovers the per-viewpoint images.
	tiles, err := projection.Split(projection.Rescale(composite, compW, compH), layout)
	if err != nil {
		return err
	}
	for _, vp := range rs.viewpoints {
		tile := tiles[vp.Index]
		rs.generated[vp.Index] = tile
		if err := rs.run.SaveImage(rs.run.GeneratedPath(vp.Index, rs.revision), tile); err != nil {
			return err
		}
	}

	if rs.o.cfg.Refine.Tiles {
		if err := s.refineTiles(ctx, rs); err != nil {
			return err
		}
	}
	return rs.projectAll(ctx)
}

// exportCompositeGuidance renders every viewpoint's control signals and
// tiles them with the same layout the generated composite will use.
func (s gridStrategy) exportCompositeGuidance(ctx context.Context, rs *runState, layout projection.Layout) (types.GuidanceArtifacts, error) {
	var arts types.GuidanceArtifacts
	opts := rs.guidanceOptions()
	for _, signal := range rs.o.cfg.ActiveSignals() {
		images := make([]image.Image, 0, len(rs.viewpoints))
		for _, vp := range rs.viewpoints {
			img, err := scene.Run(ctx, rs.o.dispatcher, func(ctx context.Context) (image.Image, error) {
				return rs.o.scene.RenderGuidance(ctx, vp.Index, signal, opts)
			})
			if err != nil {
				return arts, err
			}
			images = append(images, img)
		}
		composite, err := projection.Tile(images, layout)
		if err != nil {
			return arts, err
		}
		path := rs.run.GridGuidancePath(signal)
		if err := rs.run.SaveImage(path, composite); err != nil {
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

// refineTiles reruns each split tile as an independent img2img job using
// the tile as input and the viewpoint's own guidance.
func (s gridStrategy) refineTiles(ctx context.Context, rs *runState) error {
	for _, vp := range rs.viewpoints {
		arts, err := rs.exportGuidance(ctx, vp.Index)
		if err != nil {
			return err
		}
		job := types.GenerationJob{
			Mode:       types.ModeGrid,
			Index:      vp.Index,
			Prompt:     rs.promptFor(vp),
			Negative:   rs.o.cfg.Generation.NegativePrompt,
			Guidance:   arts,
			InputImage: rs.run.GeneratedPath(vp.Index, rs.revision),
			Img2Img:    true,
			Params:     rs.refineParams(),
		}
		if _, err := rs.executeJob(ctx, job, jobLabel(types.ModeGrid, vp.Index)+"_refine"); err != nil {
			return err
		}
	}
	return nil
}
