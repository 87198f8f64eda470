// Package result holds what a simulation produces and turns it into the
// text records written to the output stream.
//
// A Map is an ordered set of views; a view is a table with one row per
// simulated time step. Records are built from the final row of every view,
// or from the full tables in verbose mode.
package result
