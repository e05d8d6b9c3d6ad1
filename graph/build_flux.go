package graph

import "strings"

// Component names for the decomposed Flux pipeline. Flux checkpoints ship
// as separate UNet, text encoder, and autoencoder files.
const (
	fluxCLIPPrimary   = "t5xxl_fp16.safetensors"
	fluxCLIPSecondary = "clip_l.safetensors"
	fluxVAE           = "ae.safetensors"
)

// fluxModel loads the diffusion model, picking the quantized loader for
// .gguf files, and applies the LoRA chain.
func (b *Builder) fluxModel(spec Spec, clip Clip) (Model, Clip) {
	var model Model
	if strings.HasSuffix(strings.ToLower(spec.Model), ".gguf") {
		model = b.UNETLoaderGGUF(spec.Model)
	} else {
		model = b.UNETLoader(spec.Model)
	}
	return b.spliceLoRAChain(spec.LoRAUnits, model, clip)
}

// fluxConditioning encodes the prompt pair and applies either the control
// chain or the depth-LoRA path. Flux ignores the negative branch during
// sampling but the control chain still threads it. The third return value
// is non-nil only on the depth-LoRA path, which produces its own latent.
func (b *Builder) fluxConditioning(spec Spec, model Model, clip Clip, vae VAE) (Model, Cond, *Latent, error) {
	pos := b.TextEncode(clip, spec.Job.Prompt, "Positive Prompt")
	neg := b.TextEncode(clip, "", "Negative Prompt")
	pos = b.FluxGuidance(pos, spec.Job.Params.CFG)

	if spec.FluxDepthLoRA != "" {
		depth := spec.Job.Guidance.Depth
		if depth == "" {
			return model, pos, nil, errMissingDepth()
		}
		model = b.LoraLoaderModelOnly(model, spec.FluxDepthLoRA, 1.0)
		img := b.LoadImage(depth, "Load Guidance (depth)")
		var latent Latent
		pos, _, latent = b.PixToPixConditioning(pos, neg, vae, img)
		return model, pos, &latent, nil
	}

	pos, _, err := b.spliceControlChain(spec, pos, neg, vae)
	if err != nil {
		return model, pos, nil, err
	}
	return model, pos, nil, nil
}

// fluxSample runs the decomposed sampling loop and attaches the sink.
func (b *Builder) fluxSample(spec Spec, model Model, pos Cond, latent Latent, vae VAE, denoise float64) (*Graph, error) {
	guider := b.BasicGuider(model, pos)
	sampler := b.KSamplerSelect(spec.Job.Params.Sampler)
	sigmas := b.BasicScheduler(model, spec.Job.Params.Scheduler,
		spec.Job.Params.Steps, denoise)
	noise := b.RandomNoise(spec.Job.Params.Seed)
	out := b.SamplerCustomAdvanced(noise, guider, sampler, sigmas, latent)
	b.SaveImageWebsocket(b.VAEDecode(out, vae))
	return b.Graph()
}

// buildFlux assembles the Flux text-to-image template.
func (b *Builder) buildFlux(spec Spec) (*Graph, error) {
	clip := b.DualCLIPLoader(fluxCLIPPrimary, fluxCLIPSecondary)
	vae := b.VAELoader(fluxVAE)
	model, clip := b.fluxModel(spec, clip)

	model, pos, depthLatent, err := b.fluxConditioning(spec, model, clip, vae)
	if err != nil {
		return nil, err
	}
	var latent Latent
	if depthLatent != nil {
		latent = *depthLatent
	} else {
		latent = b.EmptyLatent(spec.Job.Params.Width, spec.Job.Params.Height)
	}
	return b.fluxSample(spec, model, pos, latent, vae, 1.0)
}

// buildFluxImg2Img assembles the Flux image-to-image template. Inpaint
// inputs route through the inpaint conditioning with the visibility mask;
// otherwise the input image is re-encoded and partially denoised.
func (b *Builder) buildFluxImg2Img(spec Spec) (*Graph, error) {
	clip := b.DualCLIPLoader(fluxCLIPPrimary, fluxCLIPSecondary)
	vae := b.VAELoader(fluxVAE)
	model, clip := b.fluxModel(spec, clip)

	pos := b.TextEncode(clip, spec.Job.Prompt, "Positive Prompt")
	neg := b.TextEncode(clip, "", "Negative Prompt")
	pos = b.FluxGuidance(pos, spec.Job.Params.CFG)

	if spec.FluxDepthLoRA != "" {
		depth := spec.Job.Guidance.Depth
		if depth == "" {
			return nil, errMissingDepth()
		}
		model = b.LoraLoaderModelOnly(model, spec.FluxDepthLoRA, 1.0)
		img := b.LoadImage(depth, "Load Guidance (depth)")
		pos, neg, _ = b.PixToPixConditioning(pos, neg, vae, img)
	} else {
		var err error
		pos, neg, err = b.spliceControlChain(spec, pos, neg, vae)
		if err != nil {
			return nil, err
		}
	}

	var latent Latent
	denoise := spec.Job.Params.Denoise
	if spec.Job.Inpaint != nil {
		render := b.LoadImage(spec.Job.Inpaint.Render, "Load Prior Render")
		pixels := b.ImageScale(render, "nearest-exact",
			spec.Job.Params.Width, spec.Job.Params.Height)
		mask := b.spliceMaskChain(spec)
		if spec.Inpaint.DifferentialDiffusion {
			model = b.DifferentialDiffusion(model)
			pos, _, latent = b.InpaintConditioning(pos, neg, vae, pixels, mask,
				spec.Inpaint.NoiseMask)
		} else {
			latent = b.VAEEncodeForInpaint(pixels, vae, mask, 0)
		}
		denoise = 1.0
	} else {
		input := b.LoadImage(spec.Job.InputImage, "Load Input Image")
		method := spec.UpscaleMethod
		if method == "" {
			method = "lanczos"
		}
		pixels := b.ImageScale(input, method,
			spec.Job.Params.Width, spec.Job.Params.Height)
		latent = b.VAEEncode(pixels, vae)
	}
	return b.fluxSample(spec, model, pos, latent, vae, denoise)
}
