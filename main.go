/*
assetctl inspects and maintains the asset index of a content directory.
*/
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}
