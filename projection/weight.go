package projection

import "math"

// WeightPolicy controls the per-texel confidence computation and the
// cross-viewpoint overwrite rule.
type WeightPolicy struct {
	// Exponent sharpens the angular falloff. Must be positive.
	Exponent float64
	// DiscardAngle is the view angle in degrees beyond which a texel is
	// excluded entirely.
	DiscardAngle float64
	// EarlyPriority boosts earlier viewpoints' effective weights so later
	// viewpoints need strictly more confidence to win a texel.
	EarlyPriority bool
	// PriorityStrength scales the boost. Zero disables it even when
	// EarlyPriority is set.
	PriorityStrength float64
}

// DefaultWeightPolicy mirrors the shipped generation defaults.
func DefaultWeightPolicy() WeightPolicy {
	return WeightPolicy{Exponent: 3.0, DiscardAngle: 90.0}
}

// Weight computes the confidence of a texel seen under cosAngle, the
// cosine of the angle between the surface normal and the view direction.
// Texels beyond the discard angle get exactly zero.
func (p WeightPolicy) Weight(cosAngle float64) float64 {
	angle := math.Acos(clamp(cosAngle, -1, 1)) * 180 / math.Pi
	if angle > p.DiscardAngle {
		return 0
	}
	return math.Pow(math.Abs(cosAngle), p.Exponent)
}

// Effective applies the early-priority boost for a viewpoint at the given
// position in the run. The boost grows linearly with how early the
// viewpoint is: the first viewpoint of n receives the full strength, the
// last receives none, so raising the strength can only make it harder for
// later viewpoints to overwrite earlier ones.
func (p WeightPolicy) Effective(weight float64, index, total int) float64 {
	if !p.EarlyPriority || p.PriorityStrength <= 0 || total <= 1 {
		return weight
	}
	earliness := float64(total-1-index) / float64(total-1)
	return weight * (1 + p.PriorityStrength*earliness)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
