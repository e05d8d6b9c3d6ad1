package graph

// buildSDXL assembles the SDXL text-to-image template: checkpoint, LoRA
// chain, clip-skip, prompt encodes, style adapter, control chain, sampler.
func (b *Builder) buildSDXL(spec Spec) (*Graph, error) {
	model, clip, vae := b.CheckpointLoader(spec.Model)
	model, clip = b.spliceLoRAChain(spec.LoRAUnits, model, clip)
	if spec.Job.Params.ClipSkip > 0 {
		clip = b.ClipSetLastLayer(clip, -spec.Job.Params.ClipSkip)
	}

	pos := b.TextEncode(clip, spec.Job.Prompt, "Positive Prompt")
	neg := b.TextEncode(clip, spec.Job.Negative, "Negative Prompt")
	model = b.spliceAdapter(spec, model)

	pos, neg, err := b.spliceControlChain(spec, pos, neg, vae)
	if err != nil {
		return nil, err
	}

	latent := b.EmptyLatent(spec.Job.Params.Width, spec.Job.Params.Height)
	out := b.KSampler(model, spec.Job.Params.Seed, spec.Job.Params.Steps,
		spec.Job.Params.CFG, spec.Job.Params.Sampler, spec.Job.Params.Scheduler,
		pos, neg, latent, 1.0)
	b.SaveImageWebsocket(b.VAEDecode(out, vae))
	return b.Graph()
}

// buildSDXLImg2Img assembles the SDXL image-to-image template. With inpaint
// inputs present it wires the visibility mask through either the inpaint
// conditioning path (differential diffusion) or directly into the masked
// latent encode; without them it is a plain img2img pass over the input
// image.
func (b *Builder) buildSDXLImg2Img(spec Spec) (*Graph, error) {
	model, clip, vae := b.CheckpointLoader(spec.Model)
	model, clip = b.spliceLoRAChain(spec.LoRAUnits, model, clip)
	if spec.Job.Params.ClipSkip > 0 {
		clip = b.ClipSetLastLayer(clip, -spec.Job.Params.ClipSkip)
	}

	pos := b.TextEncode(clip, spec.Job.Prompt, "Positive Prompt")
	neg := b.TextEncode(clip, spec.Job.Negative, "Negative Prompt")
	model = b.spliceAdapter(spec, model)

	pos, neg, err := b.spliceControlChain(spec, pos, neg, vae)
	if err != nil {
		return nil, err
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
			pos, neg, latent = b.InpaintConditioning(pos, neg, vae, pixels, mask,
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

	out := b.KSampler(model, spec.Job.Params.Seed, spec.Job.Params.Steps,
		spec.Job.Params.CFG, spec.Job.Params.Sampler, spec.Job.Params.Scheduler,
		pos, neg, latent, denoise)
	b.SaveImageWebsocket(b.VAEDecode(out, vae))
	return b.Graph()
}
