package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/rakib91221/StableGen/types"
	"github.com/rakib91221/StableGen/workdir"
)

// reprojectStrategy skips generation entirely and re-projects the images
// of a previous run, useful after changing the blend weighting or the
// viewpoint set's projection parameters.
type reprojectStrategy struct{}

func (reprojectStrategy) name() string             { return "reproject" }
func (reprojectStrategy) appliesOwnTextures() bool { return false }

func (s reprojectStrategy) run(ctx context.Context, rs *runState) error {
	loaded := 0
	for _, vp := range rs.viewpoints {
		path := workdir.GeneratedIn(rs.opts.ReprojectDir, vp.Index, rs.priorRevision)
		img, err := rs.run.LoadImage(path)
		if err != nil {
			rs.o.logger.Warn("no prior image for viewpoint, skipping",
				zap.Int("viewpoint", vp.Index),
				zap.String("path", path))
			continue
		}
		rs.generated[vp.Index] = img
		loaded++
	}
	if loaded == 0 {
		return types.NewError(types.ErrConfiguration,
			"no generated images found under %s", rs.opts.ReprojectDir)
	}
	rs.o.setProgress("reprojecting", 0, 0, loaded)
	return rs.projectAll(ctx)
}
