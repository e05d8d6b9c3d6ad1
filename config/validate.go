package config

import (
	"strconv"
	"strings"

	"github.com/rakib91221/StableGen/types"
)

// Validate checks the configuration for errors that must abort a run before
// any job starts. All findings are reported as ErrConfiguration with a
// specific, actionable message.
func (c *Config) Validate() error {
	if !c.Generation.Mode.Valid() {
		return types.NewError(types.ErrConfiguration, "unknown generation mode %q", c.Generation.Mode)
	}
	if !c.Generation.Architecture.Valid() {
		return types.NewError(types.ErrConfiguration, "unknown model architecture %q", c.Generation.Architecture)
	}
	if c.Generation.SeedPolicy != "" && !c.Generation.SeedPolicy.Valid() {
		return types.NewError(types.ErrConfiguration, "unknown seed policy %q", c.Generation.SeedPolicy)
	}
	if c.Backend.Address == "" {
		return types.NewError(types.ErrConfiguration, "backend address is not set")
	}
	if c.Output.Dir == "" {
		return types.NewError(types.ErrConfiguration, "output directory is not set")
	}

	if len(c.ControlUnits) == 0 && !c.UsesFluxDepthLoRA() {
		return types.NewError(types.ErrConfiguration, "at least one control chain unit is required")
	}

	seen := make(map[types.SignalType]bool, len(c.ControlUnits))
	for _, unit := range c.ControlUnits {
		if !unit.Type.Valid() {
			return types.NewError(types.ErrConfiguration, "unknown control signal type %q", unit.Type)
		}
		if seen[unit.Type] {
			return types.NewError(types.ErrConfiguration, "duplicate control chain unit for signal %q", unit.Type)
		}
		seen[unit.Type] = true
		if unit.StartPercent < 0 || unit.EndPercent > 1 || unit.StartPercent > unit.EndPercent {
			return types.NewError(types.ErrConfiguration,
				"control unit %q has invalid active interval [%v,%v]", unit.Type, unit.StartPercent, unit.EndPercent)
		}
	}

	if c.Projection.WeightExponent <= 0 {
		return types.NewError(types.ErrConfiguration, "projection weight exponent must be positive")
	}
	if c.Projection.DiscardAngle < 0 || c.Projection.DiscardAngle > 180 {
		return types.NewError(types.ErrConfiguration, "projection discard angle must be within [0,180] degrees")
	}
	if c.Mask.BlackPoint > c.Mask.WhitePoint {
		return types.NewError(types.ErrConfiguration,
			"mask black point %v exceeds white point %v", c.Mask.BlackPoint, c.Mask.WhitePoint)
	}

	return nil
}

// UsesFluxDepthLoRA reports whether the depth LoRA conditioning path stands
// in for the ControlNet chain.
func (c *Config) UsesFluxDepthLoRA() bool {
	return c.Generation.FluxDepthLoRA && c.Generation.Architecture == types.ArchFlux
}

// ViewpointOrder parses the custom viewpoint order into indices. It returns
// nil when no custom order is configured, and an ErrConfiguration when the
// order is not a valid permutation of 0..n-1.
func (c *Config) ViewpointOrder(n int) ([]int, error) {
	raw := strings.TrimSpace(c.Generation.ViewpointOrder)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	if len(parts) != n {
		return nil, types.NewError(types.ErrConfiguration,
			"custom viewpoint order has %d indices, expected %d", len(parts), n)
	}

	order := make([]int, 0, n)
	used := make(map[int]bool, n)
	for _, part := range parts {
		idx, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, types.NewError(types.ErrConfiguration,
				"custom viewpoint order entry %q is not an index", part)
		}
		if idx < 0 || idx >= n || used[idx] {
			return nil, types.NewError(types.ErrConfiguration,
				"custom viewpoint order is not a permutation of 0..%d", n-1)
		}
		used[idx] = true
		order = append(order, idx)
	}

	return order, nil
}

// ActiveSignals returns the set of guidance signal types required by the
// configured control chain.
func (c *Config) ActiveSignals() []types.SignalType {
	signals := make([]types.SignalType, 0, len(c.ControlUnits))
	for _, unit := range c.ControlUnits {
		signals = append(signals, unit.Type)
	}
	if len(signals) == 0 && c.UsesFluxDepthLoRA() {
		signals = append(signals, types.SignalDepth)
	}
	return signals
}
