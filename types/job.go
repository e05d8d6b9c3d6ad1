package types

// SamplingParams carries the leaf parameters of one backend job.
type SamplingParams struct {
	Seed      int64
	Steps     int
	CFG       float64
	Sampler   string
	Scheduler string
	ClipSkip  int
	// Denoise below 1.0 keeps part of the input image in img2img modes.
	Denoise float64
	Width   int
	Height  int
}

// GuidanceArtifacts holds the file paths of the rendered control signals
// for one job. Unused signals are empty strings.
type GuidanceArtifacts struct {
	Depth  string
	Canny  string
	Normal string
}

// Path returns the artifact path for the given signal type.
func (g GuidanceArtifacts) Path(s SignalType) string {
	switch s {
	case SignalDepth:
		return g.Depth
	case SignalCanny:
		return g.Canny
	case SignalNormal:
		return g.Normal
	}
	return ""
}

// InpaintInputs holds the prior-render image and visibility mask consumed
// by inpainting jobs (sequential and uv-inpaint modes).
type InpaintInputs struct {
	Render string
	Mask   string
}

// GenerationJob is one request to the backend. Jobs are created by the
// orchestrator per iteration and discarded after their result is consumed.
type GenerationJob struct {
	Mode Mode
	// Index is the viewpoint index for per-viewpoint modes, the surface
	// index for uv-inpaint, and 0 for grid.
	Index    int
	Prompt   string
	Negative string
	Guidance GuidanceArtifacts
	// Inpaint is nil for jobs without inpainting inputs.
	Inpaint *InpaintInputs
	// InputImage is the img2img source for refine and grid-refine jobs.
	InputImage string
	Params     SamplingParams
	// Img2Img selects the image-to-image/inpaint template family.
	Img2Img bool
	// DisableAdapter suppresses the style adapter for this job. Used by
	// the adapter bootstrap pass on viewpoint 0.
	DisableAdapter bool
	// AdapterImage overrides the style adapter reference image.
	AdapterImage string
	// ZeroControlStrength generates without guidance influence while
	// keeping the chain shape intact (adapter bootstrap option).
	ZeroControlStrength bool
}
