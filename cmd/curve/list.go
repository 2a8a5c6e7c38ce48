package curve

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/bmcfanctl/bmcfanctl/cmd/global"
	"github.com/bmcfanctl/bmcfanctl/internal/configuration"
	"github.com/bmcfanctl/bmcfanctl/internal/ui"
	"github.com/bmcfanctl/bmcfanctl/internal/util"
	"github.com/guptarohit/asciigraph"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
	"golang.org/x/exp/maps"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the configured fan curve(s) to console",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		configPath := configuration.DetectConfigFile()
		ui.Info("Using configuration file at: %s", configPath)
		configuration.LoadConfig()

		err = configuration.Validate()
		if err != nil {
			ui.Fatal(err.Error())
		}

		curveConfig := configuration.CurrentConfig.Curve

		printCurve("day", "always", curveConfig.Points)

		if len(curveConfig.NightPoints) > 0 {
			ui.Printfln("")
			ui.Printfln("")
			window := fmt.Sprintf("%s - %s", curveConfig.NightStart, curveConfig.NightEnd)
			printCurve("night", window, curveConfig.NightPoints)
		}

		return nil
	},
}

func printCurve(name string, window string, points map[int]int) {
	keys := maps.Keys(points)
	sort.Ints(keys)
	start := keys[0]
	stop := keys[len(keys)-1]

	// print table
	tab := table.Table{
		Headers: []string{"Curve", "Active", "Breakpoints"},
		Rows: [][]string{
			{name, window, fmt.Sprintf("%d", len(points))},
		},
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
	tableString := buf.String()
	ui.Printfln(tableString)

	graphValues := util.InterpolateLinearly(points, start, stop)

	graphKeys := maps.Keys(graphValues)
	sort.Ints(graphKeys)

	values := make([]float64, 0, len(graphKeys))
	for _, k := range graphKeys {
		values = append(values, graphValues[k])
	}

	caption := "Duty % / °C"
	graph := asciigraph.Plot(values, asciigraph.Height(15), asciigraph.Width(100), asciigraph.Caption(caption))
	ui.Printfln(graph)
}

func init() {
	Command.AddCommand(listCmd)
}
