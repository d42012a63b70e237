// Package sim runs the Barnes-Hut N-body pipeline.
//
// A Simulation owns the bodies, the quadtree and a worker pool. Each call to
// Update advances the system by one kick-drift-kick leapfrog step:
//
//  1. half kick with the current accelerations
//  2. drift with the half-kicked velocities
//  3. rebuild the tree over the new positions
//  4. recompute every acceleration in parallel, one contiguous body range
//     per pool task
//  5. half kick with the new accelerations
//
// The tree is only written in step 3 on the calling goroutine and only read
// in step 4, and the ranges of step 4 are disjoint, so the parallel phase
// needs no locking. A Simulation itself is not safe for concurrent use.
//
// Run drives a Simulation for a fixed number of steps and collects energy
// and user supplied metrics, in the way the CLI and tests use it.
package sim
