// Package physics holds the state of a single point mass and the unit
// system the simulator runs in.
//
// Units are astronomical: distance in AU, mass in solar masses, time in
// years. In these units the gravitational constant is 4π², so a unit mass
// orbited at 1 AU completes a circular orbit in exactly one year.
//
// Bodies are advanced with the kick-drift-kick leapfrog scheme:
//
//	b.Kick(dt / 2)
//	b.Drift(dt)
//	// recompute b.Acc from the new positions
//	b.Kick(dt / 2)
//
// # Tracers
//
// A body with zero mass is a tracer: it feels the field of every other body
// but exerts no pull of its own. ApplyForce is a no-op on tracers.
package physics
