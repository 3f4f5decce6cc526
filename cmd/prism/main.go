// Prism - dominant colour palette extraction
//
// Prism reduces images to a small palette of representative colours using
// K-Means clustering, Median Cut, or an Octree.
package main

import (
	"os"

	"github.com/jmylchreest/prism/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
