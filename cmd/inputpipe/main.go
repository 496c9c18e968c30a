// Command inputpipe drives the input pipeline against the built-in sandbox,
// inspects recorded macros and runs a bridge peer for local testing.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
