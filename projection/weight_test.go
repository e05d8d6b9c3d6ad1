package projection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestWeightDefaults(t *testing.T) {
	p := DefaultWeightPolicy()
	assert.Equal(t, 3.0, p.Exponent)
	assert.Equal(t, 90.0, p.DiscardAngle)

	// Head-on view has full confidence, grazing view almost none.
	assert.InDelta(t, 1.0, p.Weight(1.0), 1e-9)
	assert.InDelta(t, 0.125, p.Weight(0.5), 1e-9) // cos 60° cubed
	assert.Equal(t, 0.0, p.Weight(-0.1))          // back-facing
}

func TestWeightDiscardThreshold(t *testing.T) {
	p := WeightPolicy{Exponent: 2, DiscardAngle: 60}
	assert.Greater(t, p.Weight(math.Cos(59.0*math.Pi/180)), 0.0)
	assert.Equal(t, 0.0, p.Weight(math.Cos(61.0*math.Pi/180)))
}

func TestEffectiveBoost(t *testing.T) {
	p := WeightPolicy{Exponent: 3, DiscardAngle: 90, EarlyPriority: true, PriorityStrength: 1.0}

	// First of four gets the full boost, last gets none.
	assert.InDelta(t, 1.0, p.Effective(0.5, 0, 4)/0.5-1, 1e-9)
	assert.Equal(t, 0.5, p.Effective(0.5, 3, 4))

	// Single viewpoint and disabled priority are identity.
	assert.Equal(t, 0.5, p.Effective(0.5, 0, 1))
	off := WeightPolicy{Exponent: 3, DiscardAngle: 90}
	assert.Equal(t, 0.5, off.Effective(0.5, 0, 4))
}

func TestProperty_WeightMonotoneInAngle(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := WeightPolicy{
			Exponent:     rapid.Float64Range(0.1, 8).Draw(t, "exponent"),
			DiscardAngle: rapid.Float64Range(1, 90).Draw(t, "discard"),
		}
		a1 := rapid.Float64Range(0, 90).Draw(t, "angle1")
		a2 := rapid.Float64Range(a1, 90).Draw(t, "angle2")

		w1 := p.Weight(math.Cos(a1 * math.Pi / 180))
		w2 := p.Weight(math.Cos(a2 * math.Pi / 180))
		if w1 < w2 {
			t.Fatalf("weight increased with angle: w(%.2f)=%.6f < w(%.2f)=%.6f", a1, w1, a2, w2)
		}
	})
}

func TestProperty_HigherExponentSharpensFalloff(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		angle := rapid.Float64Range(1, 89).Draw(t, "angle")
		p1 := rapid.Float64Range(0.1, 8).Draw(t, "p1")
		p2 := rapid.Float64Range(p1, 8).Draw(t, "p2")

		cos := math.Cos(angle * math.Pi / 180)
		w1 := WeightPolicy{Exponent: p1, DiscardAngle: 90}.Weight(cos)
		w2 := WeightPolicy{Exponent: p2, DiscardAngle: 90}.Weight(cos)
		if w2 > w1+1e-12 {
			t.Fatalf("raising exponent %.2f->%.2f raised weight %.6f->%.6f at %.2f deg", p1, p2, w1, w2, angle)
		}
	})
}

func TestProperty_DiscardedAnglesAreExactlyZero(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		discard := rapid.Float64Range(0, 89).Draw(t, "discard")
		angle := rapid.Float64Range(discard+0.5, 180).Draw(t, "angle")
		p := WeightPolicy{Exponent: 3, DiscardAngle: discard}
		if w := p.Weight(math.Cos(angle * math.Pi / 180)); w != 0 {
			t.Fatalf("angle %.2f beyond discard %.2f got weight %v", angle, discard, w)
		}
	})
}

func TestProperty_PriorityStrengthFavorsEarlierViews(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(2, 16).Draw(t, "total")
		index := rapid.IntRange(0, total-2).Draw(t, "index")
		weight := rapid.Float64Range(0.01, 1).Draw(t, "weight")
		s1 := rapid.Float64Range(0, 4).Draw(t, "s1")
		s2 := rapid.Float64Range(s1, 4).Draw(t, "s2")

		p1 := WeightPolicy{Exponent: 3, DiscardAngle: 90, EarlyPriority: true, PriorityStrength: s1}
		p2 := WeightPolicy{Exponent: 3, DiscardAngle: 90, EarlyPriority: true, PriorityStrength: s2}

		// Raising the strength can only raise an earlier view's effective
		// weight, and the boost never drops below the raw weight.
		e1 := p1.Effective(weight, index, total)
		e2 := p2.Effective(weight, index, total)
		if e2 < e1 || e1 < weight {
			t.Fatalf("boost not monotone: raw=%v s1=%v->%v s2=%v->%v", weight, s1, e1, s2, e2)
		}

		// The last viewpoint never gets a boost.
		if p2.Effective(weight, total-1, total) != weight {
			t.Fatalf("last viewpoint received a boost")
		}
	})
}
