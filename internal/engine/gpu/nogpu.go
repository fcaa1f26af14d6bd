//go:build nogpu

// Package gpu is empty in nogpu builds; only the CPU engine is registered.
package gpu
