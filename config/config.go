package config

import (
	"github.com/rakib91221/StableGen/types"
)

// Config is the complete configuration of one generation run.
type Config struct {
	// Backend holds the connection settings for the generation backend.
	Backend BackendConfig `yaml:"backend" env:"BACKEND"`

	// Output holds the artifact directory settings.
	Output OutputConfig `yaml:"output" env:"OUTPUT"`

	// Generation holds the prompt, mode and sampling settings.
	Generation GenerationConfig `yaml:"generation" env:"GENERATION"`

	// Refine holds the settings of the optional grid-refine pass and of
	// refine mode.
	Refine RefineConfig `yaml:"refine" env:"REFINE"`

	// ControlUnits is the ordered guidance chain. At most one unit per
	// signal type.
	ControlUnits []types.ControlChainUnit `yaml:"control_units"`

	// LoRAUnits is the ordered fine-tune chain.
	LoRAUnits []types.LoRAUnit `yaml:"lora_units"`

	// Adapter configures the style adapter. Nil disables it unless the
	// bootstrap regeneration enables it per job.
	Adapter *types.StyleAdapter `yaml:"adapter"`

	// Bootstrap configures style-consistency adapter regeneration.
	Bootstrap BootstrapConfig `yaml:"bootstrap" env:"BOOTSTRAP"`

	// Projection holds the blend weighting settings.
	Projection ProjectionConfig `yaml:"projection" env:"PROJECTION"`

	// Mask holds the visibility mask settings used by inpainting modes.
	Mask MaskConfig `yaml:"mask" env:"MASK"`

	// Inpaint holds the inpainting conditioning settings.
	Inpaint InpaintConfig `yaml:"inpaint" env:"INPAINT"`

	// Log holds the logging settings.
	Log LogConfig `yaml:"log" env:"LOG"`
}

// BackendConfig holds the backend connection settings.
type BackendConfig struct {
	// Address is the host:port of the backend server.
	Address string `yaml:"address" env:"ADDRESS"`
}

// OutputConfig holds artifact directory settings.
type OutputConfig struct {
	// Dir is the root under which per-run working directories are created.
	Dir string `yaml:"dir" env:"DIR"`
	// SaveGraphs writes each submitted graph document into the run's
	// revision directory for debugging.
	SaveGraphs bool `yaml:"save_graphs" env:"SAVE_GRAPHS"`
}

// GenerationConfig holds prompt, mode, model and sampling settings.
type GenerationConfig struct {
	Prompt         string             `yaml:"prompt" env:"PROMPT"`
	NegativePrompt string             `yaml:"negative_prompt" env:"NEGATIVE_PROMPT"`
	Mode           types.Mode         `yaml:"mode" env:"MODE"`
	Architecture   types.Architecture `yaml:"architecture" env:"ARCHITECTURE"`
	// Model is the checkpoint name for SDXL or the UNet name for Flux.
	Model string `yaml:"model" env:"MODEL"`
	// FluxDepthLoRA replaces the ControlNet chain with the depth LoRA
	// conditioning path on the Flux architecture.
	FluxDepthLoRA bool `yaml:"flux_depth_lora" env:"FLUX_DEPTH_LORA"`

	Seed       int64            `yaml:"seed" env:"SEED"`
	SeedPolicy types.SeedPolicy `yaml:"seed_policy" env:"SEED_POLICY"`
	Steps      int              `yaml:"steps" env:"STEPS"`
	CFG        float64          `yaml:"cfg" env:"CFG"`
	Sampler    string           `yaml:"sampler" env:"SAMPLER"`
	Scheduler  string           `yaml:"scheduler" env:"SCHEDULER"`
	ClipSkip   int              `yaml:"clip_skip" env:"CLIP_SKIP"`

	Width  int `yaml:"width" env:"WIDTH"`
	Height int `yaml:"height" env:"HEIGHT"`
	// AutoRescale snaps the working resolution toward one megapixel and
	// to multiples of eight before generation.
	AutoRescale bool `yaml:"auto_rescale" env:"AUTO_RESCALE"`

	// Overwrite reuses the current material revision instead of
	// allocating the next one.
	Overwrite bool `yaml:"overwrite" env:"OVERWRITE"`

	// ViewpointOrder is an optional comma-separated permutation of
	// viewpoint indices applied in sequential mode.
	ViewpointOrder string `yaml:"viewpoint_order" env:"VIEWPOINT_ORDER"`
	// UseViewpointPrompts prepends each viewpoint's own prompt fragment.
	UseViewpointPrompts bool `yaml:"use_viewpoint_prompts" env:"USE_VIEWPOINT_PROMPTS"`

	// CannyLow and CannyHigh are the edge detection thresholds handed to
	// the scene when rendering the canny guidance signal.
	CannyLow  int `yaml:"canny_low" env:"CANNY_LOW"`
	CannyHigh int `yaml:"canny_high" env:"CANNY_HIGH"`

	// FallbackColor fills untextured areas of inpainting renders (RGB in
	// [0,1]).
	FallbackColor [3]float64 `yaml:"fallback_color"`
}

// RefineConfig holds the img2img refinement settings.
type RefineConfig struct {
	// Tiles enables the per-tile refine pass after a grid split.
	Tiles         bool    `yaml:"tiles" env:"TILES"`
	Steps         int     `yaml:"steps" env:"STEPS"`
	CFG           float64 `yaml:"cfg" env:"CFG"`
	Sampler       string  `yaml:"sampler" env:"SAMPLER"`
	Scheduler     string  `yaml:"scheduler" env:"SCHEDULER"`
	Denoise       float64 `yaml:"denoise" env:"DENOISE"`
	Prompt        string  `yaml:"prompt" env:"PROMPT"`
	UpscaleMethod string  `yaml:"upscale_method" env:"UPSCALE_METHOD"`
	// Preserve keeps the original texture where the refined one has no
	// coverage.
	Preserve bool `yaml:"preserve" env:"PRESERVE"`
}

// BootstrapConfig configures the style-consistency adapter regeneration:
// viewpoint 0 is generated once without the adapter, then regenerated with
// the adapter referencing its own first output. All other inputs stay
// unchanged.
type BootstrapConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Regenerate re-runs viewpoint 0 with the adapter active.
	Regenerate bool `yaml:"regenerate" env:"REGENERATE"`
	// WithoutControl zeroes ControlNet strengths for the first pass.
	WithoutControl bool `yaml:"without_control" env:"WITHOUT_CONTROL"`
	// Policy chooses the adapter reference for viewpoints after the
	// bootstrap.
	Policy types.AdapterImagePolicy `yaml:"policy" env:"POLICY"`
	// Strength, Start and End configure the injected adapter.
	Strength float64 `yaml:"strength" env:"STRENGTH"`
	Start    float64 `yaml:"start" env:"START"`
	End      float64 `yaml:"end" env:"END"`
}

// ProjectionConfig holds the viewpoint blend weighting settings.
type ProjectionConfig struct {
	// WeightExponent is p in w = |cos θ|^p. Higher values prioritize
	// straight-on views more sharply.
	WeightExponent float64 `yaml:"weight_exponent" env:"WEIGHT_EXPONENT"`
	// DiscardAngle is the view angle in degrees beyond which a surface
	// point receives zero weight and is left unmodified.
	DiscardAngle float64 `yaml:"discard_angle" env:"DISCARD_ANGLE"`
	// EarlyPriority boosts earlier viewpoints' effective weight so later
	// viewpoints overwrite only when strictly more confident after boost.
	EarlyPriority bool `yaml:"early_priority" env:"EARLY_PRIORITY"`
	// PriorityStrength scales the early-priority boost; zero is neutral.
	PriorityStrength float64 `yaml:"priority_strength" env:"PRIORITY_STRENGTH"`
}

// MaskConfig holds the visibility mask settings for inpainting modes.
type MaskConfig struct {
	// Smooth keeps the mask continuous via the two-point ramp; disabled,
	// the mask is thresholded to binary.
	Smooth bool `yaml:"smooth" env:"SMOOTH"`
	// BinaryThreshold is the cutoff used when Smooth is off.
	BinaryThreshold float64 `yaml:"binary_threshold" env:"BINARY_THRESHOLD"`
	// BlackPoint and WhitePoint bound the smooth remap ramp.
	BlackPoint float64 `yaml:"black_point" env:"BLACK_POINT"`
	WhitePoint float64 `yaml:"white_point" env:"WHITE_POINT"`
	// UseWeightExponent applies the projection weight exponent to the
	// mask weights; disabled, the mask uses exponent 1.0.
	UseWeightExponent bool `yaml:"use_weight_exponent" env:"USE_WEIGHT_EXPONENT"`
	// Blocky downsamples the mask to the backend's 8x8 latent granularity.
	Blocky bool `yaml:"blocky" env:"BLOCKY"`
	// GrowBy expands the mask by the given number of pixels backend-side.
	GrowBy int `yaml:"grow_by" env:"GROW_BY"`
	// Blur smooths the mask backend-side before inpainting.
	Blur       bool    `yaml:"blur" env:"BLUR"`
	BlurRadius int     `yaml:"blur_radius" env:"BLUR_RADIUS"`
	BlurSigma  float64 `yaml:"blur_sigma" env:"BLUR_SIGMA"`
}

// InpaintConfig holds the inpainting conditioning settings.
type InpaintConfig struct {
	// DifferentialDiffusion binds image, mask and text conditioning ahead
	// of the sampler; disabled, the mask wires directly into the latent
	// encode.
	DifferentialDiffusion bool `yaml:"differential_diffusion" env:"DIFFERENTIAL_DIFFUSION"`
	// NoiseMask sets the noise-mask flag on the inpaint conditioning.
	NoiseMask bool `yaml:"noise_mask" env:"NOISE_MASK"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	// Development switches zap to its development encoder.
	Development bool `yaml:"development" env:"DEVELOPMENT"`
}
