package graph

import (
	"strconv"

	"go.uber.org/zap"
)

// Builder constructs a Graph node by node. Node ids are assigned in
// insertion order, so identical build inputs always produce identical
// graphs.
type Builder struct {
	g      *Graph
	next   int
	logger *zap.Logger
}

// NewBuilder returns a Builder writing into a fresh graph.
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		g:      newGraph(),
		next:   1,
		logger: logger.With(zap.String("component", "graph")),
	}
}

// Graph finalizes the build and returns the constructed graph after
// structural validation.
func (b *Builder) Graph() (*Graph, error) {
	if err := b.g.Validate(); err != nil {
		return nil, err
	}
	b.logger.Debug("graph assembled",
		zap.Int("nodes", b.g.Len()),
		zap.String("sink", b.g.SinkID()))
	return b.g, nil
}

func (b *Builder) add(class, title string, inputs map[string]any) string {
	id := strconv.Itoa(b.next)
	b.next++
	b.g.nodes[id] = &Node{ID: id, ClassType: class, Title: title, Inputs: inputs}
	b.g.order = append(b.g.order, id)
	return id
}

// setInput rewrites one input of an existing node. Used by the control
// chain to retarget the shared union-type selector.
func (b *Builder) setInput(id, name string, value any) {
	b.g.nodes[id].Inputs[name] = value
}

// CheckpointLoader loads an all-in-one SDXL checkpoint.
func (b *Builder) CheckpointLoader(name string) (Model, Clip, VAE) {
	id := b.add("CheckpointLoaderSimple", "Load Checkpoint", map[string]any{
		"ckpt_name": name,
	})
	return Model{Handle{id, 0}}, Clip{Handle{id, 1}}, VAE{Handle{id, 2}}
}

// LoraLoader applies one LoRA to both the model and the text encoder.
func (b *Builder) LoraLoader(name string, modelStrength, clipStrength float64, m Model, c Clip) (Model, Clip) {
	id := b.add("LoraLoader", "Load LoRA", map[string]any{
		"lora_name":      name,
		"strength_model": modelStrength,
		"strength_clip":  clipStrength,
		"model":          m,
		"clip":           c,
	})
	return Model{Handle{id, 0}}, Clip{Handle{id, 1}}
}

// ClipSetLastLayer truncates the text encoder at the given layer. The stop
// value is negative, counted from the last layer.
func (b *Builder) ClipSetLastLayer(c Clip, stopAt int) Clip {
	id := b.add("CLIPSetLastLayer", "CLIP Set Last Layer", map[string]any{
		"stop_at_clip_layer": stopAt,
		"clip":               c,
	})
	return Clip{Handle{id, 0}}
}

// TextEncode encodes a prompt into conditioning.
func (b *Builder) TextEncode(c Clip, text, title string) Cond {
	id := b.add("CLIPTextEncode", title, map[string]any{
		"text": text,
		"clip": c,
	})
	return Cond{Handle{id, 0}}
}

// AdapterLoader attaches the unified style adapter weights to the model.
// The second return value is the adapter handle consumed by ApplyAdapter.
func (b *Builder) AdapterLoader(m Model) (Model, Handle) {
	id := b.add("IPAdapterUnifiedLoader", "IPAdapter Unified Loader", map[string]any{
		"preset": "PLUS (high strength)",
		"model":  m,
	})
	return Model{Handle{id, 0}}, Handle{id, 1}
}

// ApplyAdapter conditions the model on a reference image.
func (b *Builder) ApplyAdapter(m Model, adapter Handle, img Image, weight, start, end float64, weightType string) Model {
	id := b.add("IPAdapter", "Apply IPAdapter", map[string]any{
		"weight":      weight,
		"start_at":    start,
		"end_at":      end,
		"weight_type": weightType,
		"model":       m,
		"ipadapter":   adapter,
		"image":       img,
	})
	return Model{Handle{id, 0}}
}

// ControlNetLoader loads a control network by file name.
func (b *Builder) ControlNetLoader(name string) Control {
	id := b.add("ControlNetLoader", "Load ControlNet", map[string]any{
		"control_net_name": name,
	})
	return Control{Handle{id, 0}}
}

// UnionTypeSelector stamps a union control network with the modality it
// should act as. Returns both the typed output and the selector node id so
// the control chain can retarget the shared selector.
func (b *Builder) UnionTypeSelector(c Control, unionType string) (Control, string) {
	id := b.add("SetUnionControlNetType", "Set Union Type", map[string]any{
		"control_net": c,
		"type":        unionType,
	})
	return Control{Handle{id, 0}}, id
}

// ControlNetApply conditions both prompt branches on a guidance image.
func (b *Builder) ControlNetApply(pos, neg Cond, c Control, img Image, v VAE, strength, start, end float64) (Cond, Cond) {
	id := b.add("ControlNetApplyAdvanced", "Apply ControlNet", map[string]any{
		"strength":      strength,
		"start_percent": start,
		"end_percent":   end,
		"positive":      pos,
		"negative":      neg,
		"control_net":   c,
		"image":         img,
		"vae":           v,
	})
	return Cond{Handle{id, 0}}, Cond{Handle{id, 1}}
}

// LoadImage reads an image from the backend input directory.
func (b *Builder) LoadImage(path, title string) Image {
	id := b.add("LoadImage", title, map[string]any{
		"image": path,
	})
	return Image{Handle{id, 0}}
}

// ImageScale resamples an image to the given resolution.
func (b *Builder) ImageScale(img Image, method string, width, height int) Image {
	id := b.add("ImageScale", "Upscale Image", map[string]any{
		"upscale_method": method,
		"width":          width,
		"height":         height,
		"crop":           "disabled",
		"image":          img,
	})
	return Image{Handle{id, 0}}
}

// EmptyLatent creates a blank latent canvas.
func (b *Builder) EmptyLatent(width, height int) Latent {
	id := b.add("EmptyLatentImage", "Empty Latent Image", map[string]any{
		"width":      width,
		"height":     height,
		"batch_size": 1,
	})
	return Latent{Handle{id, 0}}
}

// KSampler runs the standard denoising loop.
func (b *Builder) KSampler(m Model, seed int64, steps int, cfg float64, sampler, scheduler string, pos, neg Cond, latent Latent, denoise float64) Latent {
	id := b.add("KSampler", "KSampler", map[string]any{
		"seed":         seed,
		"steps":        steps,
		"cfg":          cfg,
		"sampler_name": sampler,
		"scheduler":    scheduler,
		"denoise":      denoise,
		"model":        m,
		"positive":     pos,
		"negative":     neg,
		"latent_image": latent,
	})
	return Latent{Handle{id, 0}}
}

// VAEDecode converts a latent back to pixel space.
func (b *Builder) VAEDecode(l Latent, v VAE) Image {
	id := b.add("VAEDecode", "VAE Decode", map[string]any{
		"samples": l,
		"vae":     v,
	})
	return Image{Handle{id, 0}}
}

// SaveImageWebsocket marks the graph's image sink. Binary frames on the
// execution stream are attributed to this node.
func (b *Builder) SaveImageWebsocket(img Image) string {
	id := b.add("SaveImageWebsocket", "Save Image (Websocket)", map[string]any{
		"images": img,
	})
	b.g.sink = id
	return id
}

// VAEEncode converts a pixel image into latent space.
func (b *Builder) VAEEncode(img Image, v VAE) Latent {
	id := b.add("VAEEncode", "VAE Encode", map[string]any{
		"pixels": img,
		"vae":    v,
	})
	return Latent{Handle{id, 0}}
}

// VAEEncodeForInpaint encodes pixels with a mask for plain inpainting.
func (b *Builder) VAEEncodeForInpaint(img Image, v VAE, m Mask, growBy int) Latent {
	id := b.add("VAEEncodeForInpaint", "VAE Encode (for Inpainting)", map[string]any{
		"grow_mask_by": growBy,
		"pixels":       img,
		"vae":          v,
		"mask":         m,
	})
	return Latent{Handle{id, 0}}
}

// ImageToMask extracts one channel of an image as a mask.
func (b *Builder) ImageToMask(img Image, channel string) Mask {
	id := b.add("ImageToMask", "Convert Image to Mask", map[string]any{
		"channel": channel,
		"image":   img,
	})
	return Mask{Handle{id, 0}}
}

// MaskToImage renders a mask into a grayscale image.
func (b *Builder) MaskToImage(m Mask) Image {
	id := b.add("MaskToImage", "Convert Mask to Image", map[string]any{
		"mask": m,
	})
	return Image{Handle{id, 0}}
}

// GrowMask dilates a mask by the given number of pixels.
func (b *Builder) GrowMask(m Mask, expand int) Mask {
	id := b.add("GrowMask", "Grow Mask", map[string]any{
		"expand":          expand,
		"tapered_corners": true,
		"mask":            m,
	})
	return Mask{Handle{id, 0}}
}

// ImageBlur applies a gaussian blur.
func (b *Builder) ImageBlur(img Image, radius int, sigma float64) Image {
	id := b.add("ImageBlur", "Image Blur", map[string]any{
		"blur_radius": radius,
		"sigma":       sigma,
		"image":       img,
	})
	return Image{Handle{id, 0}}
}

// InpaintConditioning binds both prompt branches and the masked pixels for
// inpaint-aware sampling. Returns positive, negative, and the latent.
func (b *Builder) InpaintConditioning(pos, neg Cond, v VAE, pixels Image, m Mask, noiseMask bool) (Cond, Cond, Latent) {
	id := b.add("InpaintModelConditioning", "Inpaint Model Conditioning", map[string]any{
		"noise_mask": noiseMask,
		"positive":   pos,
		"negative":   neg,
		"vae":        v,
		"pixels":     pixels,
		"mask":       m,
	})
	return Cond{Handle{id, 0}}, Cond{Handle{id, 1}}, Latent{Handle{id, 2}}
}

// DifferentialDiffusion enables per-pixel denoise strength on the model.
func (b *Builder) DifferentialDiffusion(m Model) Model {
	id := b.add("DifferentialDiffusion", "Differential Diffusion", map[string]any{
		"model": m,
	})
	return Model{Handle{id, 0}}
}

// UNETLoader loads a standalone diffusion model.
func (b *Builder) UNETLoader(name string) Model {
	id := b.add("UNETLoader", "Load Diffusion Model", map[string]any{
		"unet_name":    name,
		"weight_dtype": "default",
	})
	return Model{Handle{id, 0}}
}

// UNETLoaderGGUF loads a quantized diffusion model.
func (b *Builder) UNETLoaderGGUF(name string) Model {
	id := b.add("UnetLoaderGGUF", "Load Diffusion Model (GGUF)", map[string]any{
		"unet_name": name,
	})
	return Model{Handle{id, 0}}
}

// DualCLIPLoader loads the paired text encoders used by Flux.
func (b *Builder) DualCLIPLoader(name1, name2 string) Clip {
	id := b.add("DualCLIPLoader", "Dual CLIP Loader", map[string]any{
		"clip_name1": name1,
		"clip_name2": name2,
		"type":       "flux",
	})
	return Clip{Handle{id, 0}}
}

// VAELoader loads a standalone autoencoder.
func (b *Builder) VAELoader(name string) VAE {
	id := b.add("VAELoader", "Load VAE", map[string]any{
		"vae_name": name,
	})
	return VAE{Handle{id, 0}}
}

// FluxGuidance embeds the guidance scale into the conditioning.
func (b *Builder) FluxGuidance(c Cond, guidance float64) Cond {
	id := b.add("FluxGuidance", "Flux Guidance", map[string]any{
		"guidance":     guidance,
		"conditioning": c,
	})
	return Cond{Handle{id, 0}}
}

// BasicGuider wraps model and conditioning for the advanced sampler.
func (b *Builder) BasicGuider(m Model, c Cond) Guider {
	id := b.add("BasicGuider", "Basic Guider", map[string]any{
		"model":        m,
		"conditioning": c,
	})
	return Guider{Handle{id, 0}}
}

// KSamplerSelect picks a sampler implementation by name.
func (b *Builder) KSamplerSelect(name string) SamplerSel {
	id := b.add("KSamplerSelect", "KSampler Select", map[string]any{
		"sampler_name": name,
	})
	return SamplerSel{Handle{id, 0}}
}

// BasicScheduler computes the noise schedule.
func (b *Builder) BasicScheduler(m Model, scheduler string, steps int, denoise float64) Sigmas {
	id := b.add("BasicScheduler", "Basic Scheduler", map[string]any{
		"scheduler": scheduler,
		"steps":     steps,
		"denoise":   denoise,
		"model":     m,
	})
	return Sigmas{Handle{id, 0}}
}

// RandomNoise seeds the sampling noise.
func (b *Builder) RandomNoise(seed int64) Noise {
	id := b.add("RandomNoise", "Random Noise", map[string]any{
		"noise_seed": seed,
	})
	return Noise{Handle{id, 0}}
}

// SamplerCustomAdvanced runs the decomposed Flux sampling loop.
func (b *Builder) SamplerCustomAdvanced(n Noise, g Guider, s SamplerSel, sig Sigmas, l Latent) Latent {
	id := b.add("SamplerCustomAdvanced", "Sampler Custom Advanced", map[string]any{
		"noise":        n,
		"guider":       g,
		"sampler":      s,
		"sigmas":       sig,
		"latent_image": l,
	})
	return Latent{Handle{id, 0}}
}

// LoraLoaderModelOnly applies a LoRA to the model without touching the
// text encoder. Used for the Flux depth-conditioning LoRA.
func (b *Builder) LoraLoaderModelOnly(m Model, name string, strength float64) Model {
	id := b.add("LoraLoaderModelOnly", "Load LoRA (Model Only)", map[string]any{
		"lora_name":      name,
		"strength_model": strength,
		"model":          m,
	})
	return Model{Handle{id, 0}}
}

// PixToPixConditioning fuses a conditioning image into both prompt
// branches for the Flux depth-LoRA path. Returns positive, negative, and
// the latent.
func (b *Builder) PixToPixConditioning(pos, neg Cond, v VAE, pixels Image) (Cond, Cond, Latent) {
	id := b.add("InstructPixToPixConditioning", "InstructPixToPix Conditioning", map[string]any{
		"positive": pos,
		"negative": neg,
		"vae":      v,
		"pixels":   pixels,
	})
	return Cond{Handle{id, 0}}, Cond{Handle{id, 1}}, Latent{Handle{id, 2}}
}
