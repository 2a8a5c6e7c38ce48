package sensor

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/bmcfanctl/bmcfanctl/cmd/global"
	"github.com/bmcfanctl/bmcfanctl/internal/bmc"
	"github.com/bmcfanctl/bmcfanctl/internal/configuration"
	"github.com/bmcfanctl/bmcfanctl/internal/ui"
	"github.com/mgutz/ansi"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var sensorId string

var Command = &cobra.Command{
	Use:              "sensor",
	Short:            "Sensor related commands",
	Long:             ``,
	TraverseChildren: true,
	Args:             cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		readings, err := fetchReadings()
		if err != nil {
			return err
		}

		if len(sensorId) > 0 {
			pterm.DisableOutput()
			for _, reading := range readings {
				if reading.ID == sensorId {
					fmt.Printf("%d", int(reading.Value))
					return nil
				}
			}
			return fmt.Errorf("no sensor with id found: %s", sensorId)
		}

		printReadings(readings)
		return nil
	},
}

func init() {
	Command.PersistentFlags().StringVarP(
		&sensorId,
		"id", "i",
		"",
		"Sensor ID as reported by the BMC",
	)
}

func fetchReadings() ([]bmc.SensorReading, error) {
	configPath := configuration.DetectAndReadConfigFile()
	ui.Info("Using configuration file at: %s", configPath)
	err := configuration.Validate()
	if err != nil {
		ui.Fatal("%v", err)
	}

	client := bmc.NewClient(configuration.CurrentConfig.Bmc)

	ctx := context.Background()
	if err := client.Login(ctx); err != nil {
		return nil, err
	}
	readings, err := client.Sensors(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(readings, func(i, j int) bool {
		return readings[i].ID < readings[j].ID
	})
	return readings, nil
}

func printReadings(readings []bmc.SensorReading) {
	rows := make([][]string, 0, len(readings))
	for _, reading := range readings {
		rows = append(rows, []string{
			reading.ID,
			string(reading.Kind),
			strconv.FormatFloat(reading.Value, 'f', 1, 64),
		})
	}

	tab := table.Table{
		Headers: []string{"ID", "Kind", "Value"},
		Rows:    rows,
	}
	var buf bytes.Buffer
	tableErr := tab.WriteTable(&buf, &table.Config{
		ShowIndex:       false,
		Color:           !global.NoColor,
		AlternateColors: true,
		TitleColorCode:  ansi.ColorCode("white+buf"),
		AltColorCodes: []string{
			ansi.ColorCode("white"),
			ansi.ColorCode("white:236"),
		},
	})
	if tableErr != nil {
		panic(tableErr)
	}
	ui.Printfln(buf.String())
}
