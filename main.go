// Scope - View materialization engine for code-relationship graphs.
//
// Scope turns raw code graphs from an analysis backend into bounded,
// positioned, styled views: zoom filtering, deterministic truncation,
// flow traces, impact overlays, and layered or grid layout.
package main

import (
	"fmt"
	"os"

	"github.com/scopegraph/scope-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
