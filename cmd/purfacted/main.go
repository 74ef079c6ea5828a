// Package main is the single-binary entrypoint for the Purfacted consensus
// engine.
package main

import "github.com/someoneelse131/purfacted-sub002/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
