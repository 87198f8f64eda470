// Package binder maps input rows onto a worker's parameter tree.
//
// The header of the input selects the mode. In flat mode it is a
// comma-delimited list of columns: a bare label is kept and passed through
// to the output record, while a dotted path binds the column to a scalar
// leaf of the tree. In complex mode (header "@complex") every row is a
// self-contained object expression of condition overrides.
//
// Whatever the mode, Apply returns an Applied whose Restore puts the tree
// back exactly as it was before the row, and the worker calls it after every
// row, including rows that failed.
package binder
