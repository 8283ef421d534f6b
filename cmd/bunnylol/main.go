// Command bunnylol runs the bunnylol command-router core, or talks to an
// already-running instance over its loopback HTTP surface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bunnylol",
		Short:         "A local address-bar command router",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newReloadCmd())
	root.AddCommand(newPluginCmd())
	return root
}
