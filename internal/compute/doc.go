// Package compute provides exact O(n²) force evaluation.
//
// It shares its softening and acceleration cap with the Barnes-Hut tree, so
// a tree walked with theta = 0 must agree with it up to rounding. The
// simulator uses it as a reference and the bench command times against it:
//
//	backend := compute.NewCPUBackend(0)
//	acc := backend.Accelerations(positions, masses, epsilon)
package compute
