// Package workdir manages the per-run artifact directory: a timestamped
// root with one subdirectory per artifact class, filenames keyed by
// viewpoint index and material revision, and empty subdirectories pruned
// when the run ends.
package workdir

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rakib91221/StableGen/graph"
	"github.com/rakib91221/StableGen/types"
)

const timestampLayout = "20060102_150405"

// Run is one generation run's working directory.
type Run struct {
	root   string
	logger *zap.Logger
}

// subdirs are created eagerly; Prune removes the ones a run never used.
var subdirs = []string{
	"control/depth",
	"control/canny",
	"control/normal",
	"inpaint/render",
	"inpaint/visibility",
	"generated",
	"baked",
	"graphs",
}

// New creates the timestamped run directory under outputDir with the
// artifact-class layout.
func New(outputDir string, now time.Time, logger *zap.Logger) (*Run, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	root := filepath.Join(outputDir, now.Format(timestampLayout))
	for _, sub := range subdirs {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, types.NewError(types.ErrConfiguration,
				"create run directory %s: %v", root, err)
		}
	}
	r := &Run{root: root, logger: logger.With(zap.String("component", "workdir"))}
	r.logger.Info("run directory created", zap.String("root", root))
	return r, nil
}

// Root returns the run directory.
func (r *Run) Root() string { return r.root }

// GuidancePath names the control-signal image of one viewpoint.
func (r *Run) GuidancePath(signal types.SignalType, viewpoint int) string {
	return filepath.Join(r.root, "control", string(signal), fmt.Sprintf("%d.png", viewpoint))
}

// InpaintRenderPath names the composite render fed to an inpainting job.
func (r *Run) InpaintRenderPath(viewpoint int) string {
	return filepath.Join(r.root, "inpaint", "render", fmt.Sprintf("%d.png", viewpoint))
}

// VisibilityMaskPath names the inpainting mask of one viewpoint.
func (r *Run) VisibilityMaskPath(viewpoint int) string {
	return filepath.Join(r.root, "inpaint", "visibility", fmt.Sprintf("%d.png", viewpoint))
}

// GeneratedPath names a generated viewpoint image under a revision.
func (r *Run) GeneratedPath(viewpoint int, revision types.MaterialRevision) string {
	return filepath.Join(r.root, "generated", fmt.Sprintf("rev%d_%d.png", revision, viewpoint))
}

// BakedPath names a surface's flat texture under a revision.
func (r *Run) BakedPath(surface int, revision types.MaterialRevision) string {
	return filepath.Join(r.root, "baked", fmt.Sprintf("rev%d_surface%d.png", revision, surface))
}

// GridGuidancePath names the tiled composite control signal of grid mode.
func (r *Run) GridGuidancePath(signal types.SignalType) string {
	return filepath.Join(r.root, "control", string(signal), "grid.png")
}

// UVMaskPath names the missing-area mask of one surface in uv-inpaint
// mode.
func (r *Run) UVMaskPath(surface int) string {
	return filepath.Join(r.root, "inpaint", "visibility", fmt.Sprintf("surface%d.png", surface))
}

// GeneratedIn names a generated viewpoint image inside an arbitrary run
// root. Used to read artifacts of a previous run back.
func GeneratedIn(root string, viewpoint int, revision types.MaterialRevision) string {
	return filepath.Join(root, "generated", fmt.Sprintf("rev%d_%d.png", revision, viewpoint))
}

// LatestRevisionIn scans a previous run's generated artifacts and returns
// the highest material revision present. A prior run may have been written
// under any revision, so readers discover it instead of assuming their own.
func LatestRevisionIn(root string) (types.MaterialRevision, error) {
	entries, err := os.ReadDir(filepath.Join(root, "generated"))
	if err != nil {
		return 0, types.NewError(types.ErrConfiguration,
			"read generated artifacts under %s: %v", root, err)
	}
	latest := -1
	for _, e := range entries {
		var rev, vp int
		if n, _ := fmt.Sscanf(e.Name(), "rev%d_%d.png", &rev, &vp); n == 2 && rev > latest {
			latest = rev
		}
	}
	if latest < 0 {
		return 0, types.NewError(types.ErrConfiguration,
			"no generated images found under %s", root)
	}
	return types.MaterialRevision(latest), nil
}

// GraphPath names a debug graph dump.
func (r *Run) GraphPath(name string) string {
	return filepath.Join(r.root, "graphs", name+".json")
}

// SaveImage writes a PNG artifact.
func (r *Run) SaveImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return types.NewError(types.ErrConfiguration, "create artifact %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return types.NewError(types.ErrConfiguration, "encode artifact %s: %v", path, err)
	}
	return nil
}

// SaveBytes writes raw image bytes as produced by the backend stream.
func (r *Run) SaveBytes(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return types.NewError(types.ErrConfiguration, "write artifact %s: %v", path, err)
	}
	return nil
}

// LoadImage reads a PNG artifact back.
func (r *Run) LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration, "open artifact %s: %v", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration, "decode artifact %s: %v", path, err)
	}
	return img, nil
}

// SaveGraph dumps a submitted graph for debugging.
func (r *Run) SaveGraph(name string, g *graph.Graph) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return types.NewError(types.ErrGraphInvalid, "encode graph dump: %v", err)
	}
	return r.SaveBytes(r.GraphPath(name), data)
}

// Prune removes empty subdirectories, deepest first, so a cancelled or
// partial run leaves no hollow tree behind.
func (r *Run) Prune() error {
	var dirs []string
	err := filepath.WalkDir(r.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != r.root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return types.NewError(types.ErrConfiguration, "scan run directory: %v", err)
	}

	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		if len(entries) == 0 {
			if err := os.Remove(dir); err == nil {
				r.logger.Debug("pruned empty directory", zap.String("dir", dir))
			}
		}
	}
	return nil
}
