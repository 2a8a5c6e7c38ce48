package curve

import (
	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:              "curve",
	Short:            "Curve related commands",
	TraverseChildren: true,
}
