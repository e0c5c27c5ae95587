package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "overlaynode",
	Short: "Run and operate a node of the overlay mesh",
	Long: "overlaynode loads a node configuration, builds the crypto envelope,\n" +
		"transport and forwarding table, and drives the dispatch loop that\n" +
		"exercises pkg/wire, pkg/layer2 and pkg/layer3 against real traffic.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(keygenCmd())
	rootCmd.AddCommand(routeCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
