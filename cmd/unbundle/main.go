/*
Bundle Unpacker (Entry Point)

This tool takes a packed JavaScript bundle, slices every module
registration call into its own file, resolves statically decidable branch
conditions, and recovers the execution order of scrambled switch dispatch
loops. The rewritten main file plus one artifact per module are written
beside the input.
*/
package main

import (
	"github.com/imaxct/unbundle/cmd/unbundle/cmd"
)

// main is the entry point of the application.
func main() {
	cmd.Execute()
}
