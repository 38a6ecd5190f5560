// Package main provides the circleloss command line tool.
//
// It evaluates the circle loss on feature batches from a TOML file and
// checks its gradients against finite differences.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
