// Package main hosts the fecclean CLI entrypoint and command graph.
//
// The Cobra-based command tree loads configuration, opens the history store,
// and hands the work to the internal packages: single-file cleaning, batch
// passes over the raw directory, OpenFEC downloads, match previews, and run
// history. Keep the commands thin; behavior belongs in internal/.
package main
