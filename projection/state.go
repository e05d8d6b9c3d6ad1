package projection

// VisibilityState tracks, per surface texel, the best effective weight
// claimed so far and the viewpoint that claimed it. Lifetime is one
// generation run.
type VisibilityState struct {
	width, height int
	weights       []float64
	owners        []int
}

// NewVisibilityState returns an empty state for a width×height texture.
// Every texel starts unclaimed.
func NewVisibilityState(width, height int) *VisibilityState {
	owners := make([]int, width*height)
	for i := range owners {
		owners[i] = -1
	}
	return &VisibilityState{
		width:   width,
		height:  height,
		weights: make([]float64, width*height),
		owners:  owners,
	}
}

// Size returns the tracked texture dimensions.
func (s *VisibilityState) Size() (int, int) { return s.width, s.height }

// Weight returns the stored effective weight at a texel, zero when
// unclaimed or out of bounds.
func (s *VisibilityState) Weight(x, y int) float64 {
	if !s.inBounds(x, y) {
		return 0
	}
	return s.weights[y*s.width+x]
}

// Owner returns the viewpoint index that claimed a texel, -1 when
// unclaimed or out of bounds.
func (s *VisibilityState) Owner(x, y int) int {
	if !s.inBounds(x, y) {
		return -1
	}
	return s.owners[y*s.width+x]
}

// Claimed reports whether any viewpoint has textured the texel.
func (s *VisibilityState) Claimed(x, y int) bool { return s.Owner(x, y) >= 0 }

// claim records a texel win. Callers enforce the strict-greater rule.
func (s *VisibilityState) claim(x, y int, weight float64, owner int) {
	i := y*s.width + x
	s.weights[i] = weight
	s.owners[i] = owner
}

func (s *VisibilityState) inBounds(x, y int) bool {
	return x >= 0 && x < s.width && y >= 0 && y < s.height
}

// ClaimedFraction reports the share of texels claimed so far. Used for
// progress reporting and for deciding whether a surface still needs the
// uv-inpaint pass.
func (s *VisibilityState) ClaimedFraction() float64 {
	if len(s.owners) == 0 {
		return 0
	}
	n := 0
	for _, o := range s.owners {
		if o >= 0 {
			n++
		}
	}
	return float64(n) / float64(len(s.owners))
}
