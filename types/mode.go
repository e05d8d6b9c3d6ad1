package types

// Mode selects the top-level generation strategy for a run.
type Mode string

const (
	// ModeSeparate generates one independent image per viewpoint and
	// projects all results after the last job finishes.
	ModeSeparate Mode = "separate"
	// ModeSequential generates viewpoints in order; each job i>0 inpaints
	// against the blended result of viewpoints 0..i-1.
	ModeSequential Mode = "sequential"
	// ModeGrid generates a single composite image covering all viewpoints,
	// then splits it back into per-viewpoint tiles.
	ModeGrid Mode = "grid"
	// ModeRefine runs one img2img job per viewpoint using the current
	// rendered appearance as the input image.
	ModeRefine Mode = "refine"
	// ModeUVInpaint runs one job per surface, inpainting the missing areas
	// of a previously baked flat texture.
	ModeUVInpaint Mode = "uv_inpaint"
)

// Valid reports whether m is a known generation mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeSeparate, ModeSequential, ModeGrid, ModeRefine, ModeUVInpaint:
		return true
	}
	return false
}

// PerViewpoint reports whether the mode produces one job per viewpoint.
func (m Mode) PerViewpoint() bool {
	switch m {
	case ModeSeparate, ModeSequential, ModeRefine:
		return true
	}
	return false
}

// Architecture selects the backend model family a graph is built for.
type Architecture string

const (
	// ArchSDXL is the base architecture: checkpoint loader, CLIP text
	// encoding with a negative prompt, KSampler.
	ArchSDXL Architecture = "sdxl"
	// ArchFlux is the alternate architecture: split UNet/CLIP/VAE loaders,
	// guidance conditioning instead of CFG, no negative prompt.
	ArchFlux Architecture = "flux1"
)

// Valid reports whether a is a known architecture.
func (a Architecture) Valid() bool {
	return a == ArchSDXL || a == ArchFlux
}

// SeedPolicy controls how the seed advances after a run completes.
// The policy applies regardless of the run outcome.
type SeedPolicy string

const (
	SeedFixed     SeedPolicy = "fixed"
	SeedIncrement SeedPolicy = "increment"
	SeedDecrement SeedPolicy = "decrement"
	SeedRandomize SeedPolicy = "randomize"
)

// Valid reports whether p is a known seed policy.
func (p SeedPolicy) Valid() bool {
	switch p {
	case SeedFixed, SeedIncrement, SeedDecrement, SeedRandomize:
		return true
	}
	return false
}

// SignalType identifies a guidance signal rendered from scene geometry.
type SignalType string

const (
	SignalDepth  SignalType = "depth"
	SignalCanny  SignalType = "canny"
	SignalNormal SignalType = "normal"
)

// Valid reports whether s is a known guidance signal type.
func (s SignalType) Valid() bool {
	switch s {
	case SignalDepth, SignalCanny, SignalNormal:
		return true
	}
	return false
}

// AdapterImagePolicy chooses which prior artifact feeds the style adapter
// when no explicit reference image is configured.
type AdapterImagePolicy string

const (
	// AdapterUseFirst references viewpoint 0's generated image.
	AdapterUseFirst AdapterImagePolicy = "first"
	// AdapterUseRecent references the most recently generated image.
	AdapterUseRecent AdapterImagePolicy = "recent"
)
