package cmd

import (
	"fmt"
	"os"

	"github.com/bmcfanctl/bmcfanctl/cmd/config"
	"github.com/bmcfanctl/bmcfanctl/cmd/curve"
	"github.com/bmcfanctl/bmcfanctl/cmd/duty"
	"github.com/bmcfanctl/bmcfanctl/cmd/global"
	"github.com/bmcfanctl/bmcfanctl/cmd/sensor"
	"github.com/bmcfanctl/bmcfanctl/internal"
	"github.com/bmcfanctl/bmcfanctl/internal/configuration"
	"github.com/bmcfanctl/bmcfanctl/internal/ui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bmcfanctl",
	Short: "A daemon to control server fans through the BMC.",
	Long: `bmcfanctl is a simple daemon that controls the fans
of a server through its BMC, based on temperature sensors.`,
	// this is the default command to run when no subcommand is specified
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()
		printHeader()

		configPath := configuration.DetectAndReadConfigFile()
		ui.Info("Using configuration file at: %s", configPath)
		err := configuration.Validate()
		if err != nil {
			ui.Fatal("Config Validation Error: %v", err)
		}

		internal.RunDaemon()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&global.CfgFile, "config", "c", "", "config file (default is $HOME/bmcfanctl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&global.NoColor, "no-color", "", false, "Disable all terminal output coloration")
	rootCmd.PersistentFlags().BoolVarP(&global.NoStyle, "no-style", "", false, "Disable all terminal output styling")
	rootCmd.PersistentFlags().BoolVarP(&global.Verbose, "verbose", "v", false, "More verbose output")

	rootCmd.AddCommand(config.Command)

	rootCmd.AddCommand(duty.Command)
	rootCmd.AddCommand(curve.Command)
	rootCmd.AddCommand(sensor.Command)
}

func setupUi() {
	ui.SetDebugEnabled(global.Verbose)

	if global.NoColor {
		pterm.DisableColor()
	}
	if global.NoStyle {
		pterm.DisableStyling()
	}
}

// Print a large text with the LetterStyle from the standard theme.
func printHeader() {
	err := pterm.DefaultBigText.WithLetters(
		pterm.NewLettersFromStringWithStyle("bmc", pterm.NewStyle(pterm.FgLightBlue)),
		pterm.NewLettersFromStringWithStyle("fanctl", pterm.NewStyle(pterm.FgWhite)),
	).Render()
	if err != nil {
		fmt.Println("bmcfanctl")
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.OnInitialize(func() {
		configuration.InitConfig(global.CfgFile)
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
