// Package engine is the compute side of the viewer.
//
// An engine session is built from three objects with explicit lifetimes:
//
//	cfg, err := engine.NewConfig(engine.Options{Device: "gpu"})
//	defer cfg.Free()
//	ctx, err := engine.NewContext(cfg)
//	defer ctx.Free()
//	arr, err := ctx.NewU32Array2D(pixels, height, width)
//	state, err := ctx.Init(seed, height, width, arr)
//	defer state.Free()
//
// Per frame the caller advances the state with Step and renders it with
// Render. The overlay is driven by TextFormat, Summaries and TextContent.
//
// The pixel work itself runs on a Device opened from a registered Backend.
// Backends register themselves from their package init; import
// internal/engine/cpu and internal/engine/wgpu for their side effects.
package engine
