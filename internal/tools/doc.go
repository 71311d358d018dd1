// Package tools locates and runs the external neuroimaging binaries.
//
// Ownership boundary:
// - executable lookup on a search path (local or remote host)
//
// - command execution with inherited or captured streams
//
// - typed configuration and invocation failures
//
// Tools never interpret the output of the programs they run.
package tools
