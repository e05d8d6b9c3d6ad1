package graph

import (
	"github.com/rakib91221/StableGen/config"
	"github.com/rakib91221/StableGen/types"
)

// Spec carries everything needed to assemble the graph for one generation
// job. The orchestrator resolves prompts, guidance paths and the adapter
// reference image before building.
type Spec struct {
	Job          types.GenerationJob
	Architecture types.Architecture

	// Model is the checkpoint name on SDXL or the UNet name on Flux. A
	// ".gguf" suffix selects the quantized loader.
	Model string

	// FluxDepthLoRA, when non-empty, replaces the control chain with the
	// depth-LoRA conditioning path. Flux only.
	FluxDepthLoRA string

	ControlUnits []types.ControlChainUnit
	LoRAUnits    []types.LoRAUnit
	Adapter      *types.StyleAdapter

	// UpscaleMethod resamples the img2img input. Defaults to lanczos.
	UpscaleMethod string

	Mask    config.MaskConfig
	Inpaint config.InpaintConfig
}

// unionTypeFor maps a guidance signal onto the union control network's
// modality selector string.
func unionTypeFor(s types.SignalType) string {
	switch s {
	case types.SignalCanny:
		return "canny/lineart/anime_lineart/mlsd"
	case types.SignalNormal:
		return "normal"
	default:
		return "depth"
	}
}

// spliceLoRAChain threads model and clip through every configured LoRA in
// order.
func (b *Builder) spliceLoRAChain(units []types.LoRAUnit, m Model, c Clip) (Model, Clip) {
	for _, u := range units {
		m, c = b.LoraLoader(u.Model, u.ModelStrength, u.ClipStrength, m, c)
	}
	return m, c
}

// spliceAdapter inserts the style adapter unless the job disables it. The
// job-level reference image takes precedence over the configured one.
func (b *Builder) spliceAdapter(spec Spec, m Model) Model {
	if spec.Adapter == nil || spec.Job.DisableAdapter {
		return m
	}
	ref := spec.Job.AdapterImage
	if ref == "" {
		ref = spec.Adapter.Image
	}
	weightType := spec.Adapter.WeightType
	if weightType == "" {
		weightType = "linear"
	}
	loaded, adapter := b.AdapterLoader(m)
	img := b.LoadImage(ref, "Load Style Reference")
	return b.ApplyAdapter(loaded, adapter, img, spec.Adapter.Strength,
		spec.Adapter.Start, spec.Adapter.End, weightType)
}

// spliceControlChain applies every control unit to both conditioning
// branches. Units that are union-capable and request union mode share a
// single type selector; each one retargets the selector at its own loader
// and stamps its modality, so the last such unit in the chain wins. A
// union-capable unit that does not request union mode applies its model
// directly, and the selector is absent when no unit requests it. Guidance
// images come from the job's exported artifacts.
func (b *Builder) spliceControlChain(spec Spec, pos, neg Cond, v VAE) (Cond, Cond, error) {
	var (
		selector   Control
		selectorID string
	)
	for _, u := range spec.ControlUnits {
		path := spec.Job.Guidance.Path(u.Type)
		if path == "" {
			return pos, neg, types.NewError(types.ErrGraphInvalid,
				"control unit %s has no exported guidance image", u.Type)
		}
		img := b.LoadImage(path, "Load Guidance ("+string(u.Type)+")")
		ctrl := b.ControlNetLoader(u.Model)

		use := ctrl
		if u.IsUnion && u.UseUnionType {
			if selectorID == "" {
				selector, selectorID = b.UnionTypeSelector(ctrl, unionTypeFor(u.Type))
			} else {
				b.setInput(selectorID, "control_net", ctrl)
				b.setInput(selectorID, "type", unionTypeFor(u.Type))
			}
			use = selector
		}

		strength := u.Strength
		if spec.Job.ZeroControlStrength {
			strength = 0
		}
		pos, neg = b.ControlNetApply(pos, neg, use, img, v,
			strength, u.StartPercent, u.EndPercent)
	}
	return pos, neg, nil
}

// spliceMaskChain loads the job's visibility mask and runs the backend-side
// grow and blur passes on it.
func (b *Builder) spliceMaskChain(spec Spec) Mask {
	img := b.LoadImage(spec.Job.Inpaint.Mask, "Load Visibility Mask")
	m := b.ImageToMask(img, "red")
	if spec.Mask.GrowBy > 0 {
		m = b.GrowMask(m, spec.Mask.GrowBy)
	}
	if spec.Mask.Blur {
		blurred := b.ImageBlur(b.MaskToImage(m), spec.Mask.BlurRadius, spec.Mask.BlurSigma)
		m = b.ImageToMask(blurred, "red")
	}
	return m
}
