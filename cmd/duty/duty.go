package duty

import (
	"github.com/bmcfanctl/bmcfanctl/internal/bmc"
	"github.com/bmcfanctl/bmcfanctl/internal/configuration"
	"github.com/bmcfanctl/bmcfanctl/internal/ui"
	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:              "duty",
	Short:            "Fan duty related commands",
	Long:             ``,
	TraverseChildren: true,
}

func getClient() bmc.Client {
	configPath := configuration.DetectAndReadConfigFile()
	ui.Info("Using configuration file at: %s", configPath)
	err := configuration.Validate()
	if err != nil {
		ui.Fatal("%v", err)
	}

	return bmc.NewClient(configuration.CurrentConfig.Bmc)
}
