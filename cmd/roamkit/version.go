package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is overridden at build time via -ldflags.
var Version = "0.3.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of roamkit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("roamkit version %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
