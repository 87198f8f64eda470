// Package hcl provides the HCL implementation of config.Loader. It parses a
// simulation definition file and translates its simulation, condition and
// view blocks into a config.Model.
package hcl
