package config

import "github.com/rakib91221/StableGen/types"

// DefaultConfig returns the built-in defaults for a generation run.
func DefaultConfig() *Config {
	return &Config{
		Backend:    DefaultBackendConfig(),
		Output:     DefaultOutputConfig(),
		Generation: DefaultGenerationConfig(),
		Refine:     DefaultRefineConfig(),
		Bootstrap:  DefaultBootstrapConfig(),
		Projection: DefaultProjectionConfig(),
		Mask:       DefaultMaskConfig(),
		Inpaint:    DefaultInpaintConfig(),
		Log:        DefaultLogConfig(),
	}
}

// DefaultBackendConfig returns the default backend connection settings.
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		Address: "127.0.0.1:8188",
	}
}

// DefaultOutputConfig returns the default artifact settings.
func DefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Dir:        "output",
		SaveGraphs: true,
	}
}

// DefaultGenerationConfig returns the default generation settings.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Mode:          types.ModeSequential,
		Architecture:  types.ArchSDXL,
		Seed:          42,
		SeedPolicy:    types.SeedFixed,
		Steps:         8,
		CFG:           1.5,
		Sampler:       "dpmpp_2s_ancestral",
		Scheduler:     "sgm_uniform",
		ClipSkip:      1,
		Width:         1024,
		Height:        1024,
		AutoRescale:   true,
		Overwrite:     true,
		CannyLow:      0,
		CannyHigh:     80,
		FallbackColor: [3]float64{0.5, 0.5, 0.5},
	}
}

// DefaultRefineConfig returns the default refinement settings.
func DefaultRefineConfig() RefineConfig {
	return RefineConfig{
		Steps:         8,
		CFG:           1.5,
		Sampler:       "dpmpp_2s_ancestral",
		Scheduler:     "sgm_uniform",
		Denoise:       0.5,
		UpscaleMethod: "lanczos",
	}
}

// DefaultBootstrapConfig returns the default adapter bootstrap settings.
func DefaultBootstrapConfig() BootstrapConfig {
	return BootstrapConfig{
		Policy:   types.AdapterUseFirst,
		Strength: 1.0,
		Start:    0.0,
		End:      1.0,
	}
}

// DefaultProjectionConfig returns the default blend weighting settings.
func DefaultProjectionConfig() ProjectionConfig {
	return ProjectionConfig{
		WeightExponent: 3.0,
		DiscardAngle:   90.0,
	}
}

// DefaultMaskConfig returns the default visibility mask settings.
func DefaultMaskConfig() MaskConfig {
	return MaskConfig{
		Smooth:          true,
		BinaryThreshold: 0.7,
		BlackPoint:      0.15,
		WhitePoint:      1.0,
		GrowBy:          3,
		Blur:            true,
		BlurRadius:      1,
		BlurSigma:       1.0,
	}
}

// DefaultInpaintConfig returns the default inpainting settings.
func DefaultInpaintConfig() InpaintConfig {
	return InpaintConfig{
		DifferentialDiffusion: true,
		NoiseMask:             true,
	}
}

// DefaultLogConfig returns the default logging settings.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level: "info",
	}
}
