package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	obs "github.com/Sangdi-IT/yq-monitor/internal/infrastructure/observability"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("yq-monitor %s (%s)", obs.Version, obs.Commit)
		if obs.Date != "" {
			fmt.Printf(" built %s", obs.Date)
		}
		fmt.Println()
		fmt.Printf("  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Printf("  Go: %s\n", runtime.Version())
	},
}
