// Command propql inspects how tree queries over a props store compile:
// it resolves field paths, prints structural cache keys and explains the
// SQL and facet documents a query compiles to. With a database it also
// runs them.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
