// Command dispatchnode runs a standalone dispatch node: a TCP transport
// endpoint, its multiplexer, and the dispatcher that routes local and
// remote DispatchData through it.
package main

import (
	"fmt"
	"os"

	"github.com/dispatchmesh/dispatch/cmd/dispatchnode/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
