/*
Package projection blends generated viewpoint images onto a shared surface
texture.

Every surface texel visible from a viewpoint carries a confidence weight
derived from the angle between the surface normal and the view direction.
Accumulation across viewpoints is strict-greater: a texel claimed by an
earlier viewpoint is only overwritten when a later viewpoint is more
confident, optionally after an early-priority boost that favors earlier
viewpoints. The same weight field derives the inpainting visibility masks
used by the sequential mode, and the grid helpers tile viewpoint guidance
into a near-square composite and split results back into per-viewpoint
tiles.
*/
package projection
