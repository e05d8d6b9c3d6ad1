// Package testutil provides in-memory fakes of the scene and backend
// collaborators for orchestrator and integration tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/rakib91221/StableGen/comfy"
	"github.com/rakib91221/StableGen/graph"
	"github.com/rakib91221/StableGen/projection"
	"github.com/rakib91221/StableGen/scene"
	"github.com/rakib91221/StableGen/types"
)

// SolidImage returns a uniformly colored image.
func SolidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// EncodePNG encodes an image the way the backend stream delivers output.
func EncodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// FakeScene implements scene.Scene with n viewpoints and one surface.
// Every viewpoint sees the whole texture under its configured cosine.
type FakeScene struct {
	mu sync.Mutex

	ViewpointList []types.Viewpoint
	SurfaceList   []types.Surface

	// Cosines maps viewpoint index to the view cosine of its samples.
	// Unlisted viewpoints default to 0.9.
	Cosines map[int]float64

	// Baked, when set, is returned by BakedTexture.
	Baked image.Image

	GuidanceCalls  []types.SignalType
	CompositeCalls int
	Applied        map[int]image.Image
}

// NewFakeScene returns a scene with n named viewpoints and one surface.
func NewFakeScene(n int) *FakeScene {
	s := &FakeScene{
		SurfaceList: []types.Surface{{Name: "Body", UVSlotsFree: 8}},
		Cosines:     map[int]float64{},
		Applied:     map[int]image.Image{},
	}
	for i := 0; i < n; i++ {
		s.ViewpointList = append(s.ViewpointList, types.Viewpoint{
			Name:  fmt.Sprintf("Camera.%03d", i),
			Index: i,
		})
	}
	return s
}

func (s *FakeScene) Viewpoints(ctx context.Context) ([]types.Viewpoint, error) {
	out := make([]types.Viewpoint, len(s.ViewpointList))
	copy(out, s.ViewpointList)
	return out, nil
}

func (s *FakeScene) Surfaces(ctx context.Context) ([]types.Surface, error) {
	out := make([]types.Surface, len(s.SurfaceList))
	copy(out, s.SurfaceList)
	return out, nil
}

func (s *FakeScene) RenderGuidance(ctx context.Context, viewpoint int, signal types.SignalType, opts scene.GuidanceOptions) (image.Image, error) {
	s.mu.Lock()
	s.GuidanceCalls = append(s.GuidanceCalls, signal)
	s.mu.Unlock()
	return SolidImage(opts.Width, opts.Height, color.NRGBA{R: 128, G: 128, B: 128, A: 255}), nil
}

func (s *FakeScene) RenderComposite(ctx context.Context, viewpoint int, revision types.MaterialRevision, width, height int) (image.Image, error) {
	s.mu.Lock()
	s.CompositeCalls++
	s.mu.Unlock()
	return SolidImage(width, height, color.NRGBA{R: 64, G: 64, B: 64, A: 255}), nil
}

func (s *FakeScene) ProjectionSamples(ctx context.Context, viewpoint, surface, width, height int) ([]projection.TexelSample, error) {
	cos, ok := s.Cosines[viewpoint]
	if !ok {
		cos = 0.9
	}
	samples := make([]projection.TexelSample, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			samples = append(samples, projection.TexelSample{
				X: x, Y: y, SrcX: x, SrcY: y, CosAngle: cos,
			})
		}
	}
	return samples, nil
}

func (s *FakeScene) BakedTexture(ctx context.Context, surface int, revision types.MaterialRevision) (image.Image, error) {
	return s.Baked, nil
}

func (s *FakeScene) ApplyTexture(ctx context.Context, surface int, revision types.MaterialRevision, texture image.Image) error {
	s.mu.Lock()
	s.Applied[surface] = texture
	s.mu.Unlock()
	return nil
}

// FakeBackend implements the orchestrator's backend surface, recording
// every executed graph and answering with solid-color PNGs.
type FakeBackend struct {
	mu sync.Mutex

	// Graphs records every executed graph in order.
	Graphs []*graph.Graph

	// Colors cycles through the returned image colors, one per call.
	Colors []color.NRGBA

	// Size is the edge length of returned images (default 64).
	Size int

	// FailAt makes the n-th Execute call (0-based) fail with Err.
	FailAt int
	Err    error

	// Block, when non-nil, is closed signal-style: Execute waits on it
	// after recording the graph, so tests can cancel mid-job.
	Block chan struct{}

	Interrupts int
	calls      int
}

func (b *FakeBackend) Ping(ctx context.Context) error { return nil }

func (b *FakeBackend) Interrupt(ctx context.Context) error {
	b.mu.Lock()
	b.Interrupts++
	b.mu.Unlock()
	return nil
}

func (b *FakeBackend) Execute(ctx context.Context, g *graph.Graph, onProgress comfy.ProgressFunc) ([]byte, error) {
	b.mu.Lock()
	call := b.calls
	b.calls++
	b.Graphs = append(b.Graphs, g)
	block := b.Block
	b.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, types.NewError(types.ErrCancelled, "generation cancelled").
				WithCause(ctx.Err())
		}
	}
	if b.Err != nil && call == b.FailAt {
		return nil, b.Err
	}
	if onProgress != nil {
		onProgress(1, 2)
		onProgress(2, 2)
	}

	size := b.Size
	if size == 0 {
		size = 64
	}
	c := color.NRGBA{R: 255, A: 255}
	if len(b.Colors) > 0 {
		c = b.Colors[call%len(b.Colors)]
	}
	return EncodePNG(SolidImage(size, size, c)), nil
}

// ExecutedClasses returns the class types present in the n-th executed
// graph, for wiring assertions.
func (b *FakeBackend) ExecutedClasses(n int) map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := map[string]int{}
	if n < 0 || n >= len(b.Graphs) {
		return out
	}
	g := b.Graphs[n]
	for _, id := range g.NodeIDs() {
		out[g.Node(id).ClassType]++
	}
	return out
}
