package types

// Viewpoint is an ordered, named observation point used to generate one
// guided image of the object. Viewpoints are created once per run from the
// scene's camera set, sorted deterministically by name unless an explicit
// permutation reorders them. Index is the viewpoint's position after
// ordering and keys all per-viewpoint artifacts.
type Viewpoint struct {
	Name string
	// Index is the stable ordinal within the run's viewpoint list.
	Index int
	// Prompt is an optional viewpoint-specific prompt fragment prepended
	// to the base prompt for this viewpoint's jobs.
	Prompt string
	// Selected marks the viewpoint for regenerate-selected runs. An empty
	// selection means every viewpoint is selected.
	Selected bool
}

// Surface identifies one texturable surface of the scene.
type Surface struct {
	Name string
	// UVSlotsFree is the number of UV map slots still addressable on the
	// surface. Each viewpoint projection claims one slot.
	UVSlotsFree int
	// Prompt is an optional surface-specific prompt used by uv-inpaint.
	Prompt string
}

// MaterialRevision identifies one generation pass's output on a surface.
// Revisions increase monotonically across runs; a run with overwrite
// disabled allocates the next revision instead of clobbering the last one.
type MaterialRevision int

// Next returns the revision following r.
func (r MaterialRevision) Next() MaterialRevision { return r + 1 }
