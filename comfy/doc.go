/*
Package comfy is the client for the diffusion backend.

A job is submitted over HTTP as a serialized graph and its execution is
observed over a websocket bound to this client's id. The stream carries
JSON status frames (executing, progress, execution_error,
execution_interrupted) interleaved with binary image frames; only binary
frames attributed to the graph's sink node are output. Cancellation is
cooperative: cancelling the context sends an out-of-band interrupt and the
run finishes as cancelled, not failed.
*/
package comfy
