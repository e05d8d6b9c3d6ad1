package types

// ControlChainUnit is one guidance-signal-conditioned module in the backend
// graph. Units form a user-declared ordered chain; a configuration may hold
// at most one unit per signal type.
type ControlChainUnit struct {
	// Type is the guidance signal this unit conditions on.
	Type SignalType `yaml:"type"`
	// Model is the backend-side model reference for this unit.
	Model string `yaml:"model"`
	// Strength scales the unit's effect on conditioning.
	Strength float64 `yaml:"strength"`
	// StartPercent and EndPercent bound the active interval within [0,1].
	StartPercent float64 `yaml:"start_percent"`
	EndPercent   float64 `yaml:"end_percent"`
	// IsUnion marks a union-capable model that multiplexes several signal
	// modalities behind one shared type selector.
	IsUnion bool `yaml:"is_union"`
	// UseUnionType routes a union-capable unit through the shared selector
	// node instead of applying its model directly.
	UseUnionType bool `yaml:"use_union_type"`
}

// LoRAUnit is a small composable weight-delta module applied to the base
// generative model. Units compose in order: each unit consumes the previous
// unit's model and clip outputs.
type LoRAUnit struct {
	Model         string  `yaml:"model"`
	ModelStrength float64 `yaml:"model_strength"`
	ClipStrength  float64 `yaml:"clip_strength"`
}

// StyleAdapter is a reference-image-conditioned module (IPAdapter) that
// biases output style toward a chosen image.
type StyleAdapter struct {
	// Image is an explicit reference image path. When empty, the reference
	// is a prior generated artifact chosen by Policy.
	Image      string             `yaml:"image"`
	Policy     AdapterImagePolicy `yaml:"policy"`
	Strength   float64            `yaml:"strength"`
	Start      float64            `yaml:"start"`
	End        float64            `yaml:"end"`
	WeightType string             `yaml:"weight_type"`
}
