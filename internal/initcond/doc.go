// Package initcond builds starting body sets: random systems, rotating
// disks, the inner solar system, a two-body Kepler problem, and YAML body
// files.
package initcond
