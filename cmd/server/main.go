// Package main is the entry point for the brief builder API.
//
// main stays minimal: build the command tree and run it. All logic lives in
// internal/ packages.
//
// Usage:
//
//	server [--config config.yaml]          # same as "serve"
//	server serve [--config config.yaml]
//	server migrate [--config config.yaml]
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
