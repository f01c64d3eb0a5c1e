package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var version = "1.3.0"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of powerhal",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("powerhal v%s\n", version)
	},
}
