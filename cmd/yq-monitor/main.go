// Command yq-monitor captures feed requests from a Chrome tab and drives the
// click-scroll loop over the feed, controlled over a small HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "yq-monitor",
	Short: "Capture feed requests and auto-reveal feed items in a Chrome tab",
	Long: `yq-monitor drives a Chrome tab over the DevTools protocol. It records network
requests whose URL contains a keyword, exports them as a HAR log, and can click
through every feed item and scroll for more until the feed ends.

Run "yq-monitor serve" to start the browser and the control API, then use the
start/stop subcommands (or the API directly) to control it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(exportHARCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
