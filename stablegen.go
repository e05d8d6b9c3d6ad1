// Package stablegen textures 3D scenes by coordinating a diffusion
// backend across multiple viewpoints: it compiles generation graphs,
// streams results off the backend, and blends the generated images onto
// surface textures with angle-based weighting.
//
// The subpackages carry the machinery; this package re-exports the
// entry points a host integrates against.
package stablegen

import (
	"go.uber.org/zap"

	"github.com/rakib91221/StableGen/comfy"
	"github.com/rakib91221/StableGen/config"
	"github.com/rakib91221/StableGen/orchestrator"
	"github.com/rakib91221/StableGen/scene"
	"github.com/rakib91221/StableGen/types"
)

// Config is the full configuration tree.
type Config = config.Config

// Scene is the contract a hosting application implements.
type Scene = scene.Scene

// Orchestrator drives generation runs.
type Orchestrator = orchestrator.Orchestrator

// Options tweak a single run.
type Options = orchestrator.Options

// Handle observes and controls one active run.
type Handle = orchestrator.Handle

// Result is a run's terminal report.
type Result = types.Result

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config { return config.DefaultConfig() }

// LoadConfig loads configuration from defaults, an optional YAML file
// and environment overrides.
func LoadConfig(path string) (*Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	return loader.Load()
}

// NewBackend returns a protocol client for the backend at addr.
func NewBackend(addr string, logger *zap.Logger) *comfy.Client {
	return comfy.NewClient(addr, logger)
}

// New wires an orchestrator from a configuration, a scene and a backend.
func New(cfg *Config, sc Scene, backend orchestrator.Backend, logger *zap.Logger) *Orchestrator {
	return orchestrator.New(cfg, sc, backend, logger)
}
