/*
Package types provides the shared type definitions for StableGen.

types is the lowest-level package with no internal dependencies. It defines
the domain model shared by config, graph, comfy, projection, scene and
orchestrator: generation modes and architectures, viewpoints and surfaces,
jobs and their sampling parameters, the control/fine-tune/style-adapter
chain units, the progress surface, and the structured error taxonomy.
*/
package types
