package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"entrade/internal/app"
)

var cancelYes bool

var cancelCmd = &cobra.Command{
	Use:   "cancel <order-id>",
	Short: "Cancel a waiting order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid order id %q", args[0])
		}

		return getApp().Cancel(cmd.Context(), app.CancelOptions{
			OrderID: id,
			Yes:     cancelYes,
		})
	},
}

func init() {
	cancelCmd.Flags().BoolVar(&cancelYes, "yes", false, "Skip the confirmation prompt")
}
