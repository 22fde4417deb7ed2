// Command epidemic drives the replica-synchronization simulator:
// generating synthetic datasets, running a dissemination algorithm
// over them, and optionally serving a completed run's results over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "epidemic",
	Short: "Epidemic replica synchronization simulator",
	Long:  "A discrete-event simulator for epidemic (gossip-style) replica synchronization: direct mail, rumor mongering, and anti-entropy dissemination over a lossy, delayed network.",
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
