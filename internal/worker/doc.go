// Package worker implements a worker rank: it receives the header from the
// master, then processes blocks of rows until told to terminate.
//
// For every row the worker applies the row to its own parameter tree, runs
// the simulation engine on a clone of the model stamped with the row id,
// formats the outcome as a record and restores the tree. A row that fails
// still yields a record; only transport, protocol and configuration errors
// end the run, and the worker tears the whole run down when it hits one.
package worker
