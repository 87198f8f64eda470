// Package registry connects the engine names used in simulation definitions
// to the compiled Go engines that run them.
//
// Modules register engine factories at startup. Before any row is processed
// the registry is validated against the loaded definition, so a definition
// that names an unknown engine, or one the engine rejects, fails the run
// before the first block is dispatched.
package registry
