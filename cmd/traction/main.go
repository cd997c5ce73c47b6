// Package main is the single-binary entrypoint for traction.
package main

import "github.com/traction-app/traction/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
