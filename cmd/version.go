package cmd

import (
	"github.com/bmcfanctl/bmcfanctl/internal/ui"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of bmcfanctl",
	Long:  `All software has versions. This is bmcfanctl's`,
	Run: func(cmd *cobra.Command, args []string) {
		ui.Printfln("0.1.0")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
