// Package viz draws a running simulation in the terminal.
//
// The live view is a Bubble Tea program: bodies are plotted on a braille
// [Canvas] through a [Viewport], the stats panel shows the clock, tree and
// energy state, and an asciigraph chart tracks the relative energy drift.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	Enter - Single step while paused
//	+/-   - Double/halve the time scale
//	[/]   - Decrease/increase theta
//	T     - Toggle quadtree overlay
//	C     - Cycle color themes
//	R     - Reset to the initial bodies
//	F     - Fit the view to the bodies
//	Z/X   - Zoom in/out, arrows pan
//	?     - Show help
package viz
