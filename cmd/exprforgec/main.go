// Command exprforgec is a small demo CLI around the exprforge compiler:
// given a declaration table and a source fragment, it compiles it with
// exprforge.Compile and evaluates it against supplied values, optionally
// also showing the artifact the compiler produced.
package main

import (
	"fmt"
	"os"

	"github.com/cwbudde/exprforge/cmd/exprforgec/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
