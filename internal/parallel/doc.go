// Package parallel runs per-frame pixel work across a fixed set of worker
// goroutines.
//
// A frame is cut into horizontal row bands (see Bands). Each band becomes one
// work item; workers pull items from their own queue and steal from the
// others when idle. Pool.ForRows submits the bands of one frame and returns
// only once every band has finished, so callers see a synchronous render.
package parallel
