/*
Package config provides the declarative generation configuration.

Configuration follows a fixed precedence: built-in defaults, then an
optional YAML file, then environment variable overrides.

Usage:

	cfg, err := config.NewLoader().
	    WithConfigPath("stablegen.yaml").
	    WithEnvPrefix("STABLEGEN").
	    Load()

Validate catches configuration errors before a run starts: an empty control
chain, duplicate signal types, an inconsistent custom viewpoint order, or
out-of-range projection parameters.
*/
package config
