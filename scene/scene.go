package scene

import (
	"context"
	"image"

	"github.com/rakib91221/StableGen/projection"
	"github.com/rakib91221/StableGen/types"
)

// GuidanceOptions parameterizes guidance-signal rendering. The canny
// thresholds only apply to the canny signal.
type GuidanceOptions struct {
	Width, Height       int
	CannyLow, CannyHigh int
}

// Scene is the hosting application's surface. Implementations are only
// called from the main execution context; the orchestrator routes every
// call through the Dispatcher.
type Scene interface {
	// Viewpoints returns the scene's cameras in a deterministic order
	// (sorted by name unless the host applies a user permutation).
	Viewpoints(ctx context.Context) ([]types.Viewpoint, error)

	// Surfaces returns the texturable target surfaces.
	Surfaces(ctx context.Context) ([]types.Surface, error)

	// RenderGuidance rasterizes one control signal for a viewpoint.
	RenderGuidance(ctx context.Context, viewpoint int, signal types.SignalType, opts GuidanceOptions) (image.Image, error)

	// RenderComposite renders everything textured so far, as seen from
	// the viewpoint, for the given material revision.
	RenderComposite(ctx context.Context, viewpoint int, revision types.MaterialRevision, width, height int) (image.Image, error)

	// ProjectionSamples maps the surface's texels through the viewpoint,
	// pairing each visible texel with its image pixel and view cosine.
	ProjectionSamples(ctx context.Context, viewpoint, surface, width, height int) ([]projection.TexelSample, error)

	// BakedTexture returns the surface's current flat texture for the
	// uv-inpaint mode, or nil if the surface has never been textured.
	BakedTexture(ctx context.Context, surface int, revision types.MaterialRevision) (image.Image, error)

	// ApplyTexture installs a finished texture on a surface under the
	// given revision.
	ApplyTexture(ctx context.Context, surface int, revision types.MaterialRevision, texture image.Image) error
}
