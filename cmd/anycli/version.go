package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of anycli",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("anycli %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
