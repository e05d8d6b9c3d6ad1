/*
Package scene defines the contracts to the hosting 3D application and the
main-context dispatcher.

The orchestrator's worker may not touch shared scene state directly.
Whenever it needs a guidance render, a composite render, or a projection,
it schedules a closure on the Dispatcher and blocks until the main
execution context has pumped and completed it. The Scene interface is the
narrow surface the host must implement: ordered viewpoints with stable
identity, texturable surfaces, guidance-signal rendering, composite
rendering, and projection mappings.
*/
package scene
