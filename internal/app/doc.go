// Package app wires a batch run together: it loads the simulation
// definition, registers the engines, and starts the master and worker ranks
// in process or as child processes, decoupled from any specific entrypoint
// like a CLI.
package app
