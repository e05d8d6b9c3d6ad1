/*
Package graph assembles backend computation-graph requests (PromptGraphs).

A Graph is an ordered registry of typed nodes. Every construction method on
Builder returns typed output handles (Model, Clip, Cond, Image, Mask, …)
that thread through the chain helpers, so node wiring never touches raw
node ids and id collisions cannot occur.

Build produces a complete graph for one generation job from one of four
architecture templates (SDXL or Flux, text-to-image or img2img/inpaint),
splicing in the LoRA chain, the style adapter, the control chain with its
optional shared union-type selector, and the inpaint conditioning. The
result serializes to the backend wire format: a JSON object keyed by node
id, handle inputs encoded as [nodeID, port] pairs.
*/
package graph
