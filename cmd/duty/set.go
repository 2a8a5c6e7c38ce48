package duty

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bmcfanctl/bmcfanctl/internal/ui"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the duty cycle of all fans to the given value ([0..100])",
	Long:  ``,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dutyValue, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		if dutyValue < 0 || dutyValue > 100 {
			return fmt.Errorf("duty must be in [0..100], got %d", dutyValue)
		}

		client := getClient()

		ctx := context.Background()
		if err := client.Login(ctx); err != nil {
			return err
		}
		if err := client.SetDuty(ctx, dutyValue); err != nil {
			return err
		}

		ui.Success("Fan duty set to %d%%", dutyValue)
		return nil
	},
}

func init() {
	Command.AddCommand(setCmd)
}
