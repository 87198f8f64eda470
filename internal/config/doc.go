// Package config defines the format-agnostic model of a simulation
// definition and the Loader interface that produces it.
//
// A Model is loaded once per process. Every worker owns its own copy of the
// condition tree; the views are shared read-only. Concrete loaders, such as
// the HCL one, live in separate packages.
package config
