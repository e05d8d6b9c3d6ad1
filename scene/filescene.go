package scene

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/rakib91221/StableGen/projection"
	"github.com/rakib91221/StableGen/types"
)

var _ Scene = (*FileScene)(nil)

// FileScene is a flat, directory-backed scene for headless use. Each
// subdirectory of the root is one viewpoint holding its exported guidance
// renders (depth.png, canny.png, normal.png); the single surface maps
// one-to-one onto the image plane, and finished textures are written back
// into the root.
//
// Layout:
//
//	root/
//	  Camera.001/depth.png
//	  Camera.002/depth.png
//	  texture_rev0.png
type FileScene struct {
	root   string
	logger *zap.Logger

	viewpoints []types.Viewpoint
	textures   map[types.MaterialRevision]image.Image
}

// NewFileScene scans root for viewpoint subdirectories, sorted by name.
func NewFileScene(root string, logger *zap.Logger) (*FileScene, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration, "read scene directory %s: %v", root, err)
	}

	s := &FileScene{
		root:     root,
		logger:   logger.With(zap.String("component", "filescene")),
		textures: make(map[types.MaterialRevision]image.Image),
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for i, name := range names {
		s.viewpoints = append(s.viewpoints, types.Viewpoint{Name: name, Index: i})
	}
	if len(s.viewpoints) == 0 {
		return nil, types.NewError(types.ErrConfiguration,
			"scene directory %s has no viewpoint subdirectories", root)
	}

	s.logger.Info("scene loaded", zap.String("root", root), zap.Int("viewpoints", len(s.viewpoints)))
	return s, nil
}

func (s *FileScene) Viewpoints(ctx context.Context) ([]types.Viewpoint, error) {
	out := make([]types.Viewpoint, len(s.viewpoints))
	copy(out, s.viewpoints)
	return out, nil
}

func (s *FileScene) Surfaces(ctx context.Context) ([]types.Surface, error) {
	return []types.Surface{{Name: "texture", UVSlotsFree: 8}}, nil
}

// RenderGuidance loads the viewpoint's exported render of the signal and
// rescales it to the working resolution. The canny thresholds are baked
// into the export, so the options beyond the size are ignored here.
func (s *FileScene) RenderGuidance(ctx context.Context, viewpoint int, signal types.SignalType, opts GuidanceOptions) (image.Image, error) {
	if viewpoint < 0 || viewpoint >= len(s.viewpoints) {
		return nil, types.NewError(types.ErrConfiguration, "no viewpoint %d", viewpoint)
	}
	path := filepath.Join(s.root, s.viewpoints[viewpoint].Name, string(signal)+".png")
	img, err := loadImage(path)
	if err != nil {
		return nil, err
	}
	return projection.Rescale(img, opts.Width, opts.Height), nil
}

// RenderComposite returns the current texture. The flat mapping makes
// every viewpoint's composite the texture itself; texels never claimed
// stay at their stored color.
func (s *FileScene) RenderComposite(ctx context.Context, viewpoint int, revision types.MaterialRevision, width, height int) (image.Image, error) {
	current, ok := s.textures[revision]
	if !ok {
		if img, err := loadImage(s.texturePath(revision)); err == nil {
			current = img
		} else {
			current = image.NewNRGBA(image.Rect(0, 0, width, height))
		}
	}
	return projection.Rescale(current, width, height), nil
}

// ProjectionSamples maps the image plane one-to-one onto the texture at
// full weight.
func (s *FileScene) ProjectionSamples(ctx context.Context, viewpoint, surface, width, height int) ([]projection.TexelSample, error) {
	samples := make([]projection.TexelSample, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			samples = append(samples, projection.TexelSample{
				X: x, Y: y, SrcX: x, SrcY: y, CosAngle: 1.0,
			})
		}
	}
	return samples, nil
}

func (s *FileScene) BakedTexture(ctx context.Context, surface int, revision types.MaterialRevision) (image.Image, error) {
	if img, ok := s.textures[revision]; ok {
		return img, nil
	}
	img, err := loadImage(s.texturePath(revision))
	if err != nil {
		return nil, nil
	}
	return img, nil
}

// ApplyTexture installs the texture in memory and writes it next to the
// viewpoint directories.
func (s *FileScene) ApplyTexture(ctx context.Context, surface int, revision types.MaterialRevision, texture image.Image) error {
	s.textures[revision] = texture

	path := s.texturePath(revision)
	f, err := os.Create(path)
	if err != nil {
		return types.NewError(types.ErrConfiguration, "write texture %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, texture); err != nil {
		return types.NewError(types.ErrConfiguration, "encode texture %s: %v", path, err)
	}
	s.logger.Info("texture written", zap.String("path", path))
	return nil
}

func (s *FileScene) texturePath(revision types.MaterialRevision) string {
	return filepath.Join(s.root, fmt.Sprintf("texture_rev%d.png", revision))
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration, "open image %s: %v", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration, "decode image %s: %v", path, err)
	}
	return img, nil
}
