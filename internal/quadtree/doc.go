// Package quadtree implements the Barnes-Hut approximation over a flat,
// index-addressed quadtree.
//
// Nodes live in one slice and refer to each other by index. Index 0 is
// always the root, so a Children value of 0 marks a leaf; a branch owns the
// four consecutive nodes Children..Children+3. Every node also records Next,
// the node to visit once its subtree has been handled, which lets
// Acceleration walk the tree without a stack. A Next of 0 ends the walk.
//
// A tree is rebuilt for every step:
//
//	t.Clear(bounds.Quad())
//	for _, b := range bodies {
//	    t.Insert(b.Pos, b.Mass)
//	}
//	t.Propagate()
//	acc := t.Acceleration(p)
//
// # Thread Safety
//
// Clear, Insert and Propagate mutate the tree and must not run concurrently
// with anything else. Once Propagate has returned, Acceleration and the
// read accessors may be called from any number of goroutines.
package quadtree
