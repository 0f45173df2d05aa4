package cli

import (
	"github.com/spf13/cobra"

	"entrade/internal/app"
	"entrade/internal/order"
)

// Buy and sell share one parameterised submit path; only buy orders
// carry matching weights.
var (
	submitAmount string
	submitPrice  string
	submitStart  string
	submitEnd    string
	buyPreset    string
	buyWeights   []string
)

var buyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Place a buy order",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Submit(cmd.Context(), app.SubmitOptions{
			OrderType:   order.TypeBuy,
			AmountKwh:   submitAmount,
			Price:       submitPrice,
			StartTime:   submitStart,
			EndTime:     submitEnd,
			Preset:      buyPreset,
			WeightEdits: buyWeights,
		})
	},
}

var sellCmd = &cobra.Command{
	Use:   "sell",
	Short: "Place a sell order",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Submit(cmd.Context(), app.SubmitOptions{
			OrderType: order.TypeSell,
			AmountKwh: submitAmount,
			Price:     submitPrice,
			StartTime: submitStart,
			EndTime:   submitEnd,
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{buyCmd, sellCmd} {
		cmd.Flags().StringVar(&submitAmount, "amount", "", "Energy amount in kWh")
		cmd.Flags().StringVar(&submitPrice, "price", "", "Price per kWh")
		cmd.Flags().StringVar(&submitStart, "start", "", "Start time (YYYY-MM-DDTHH:MM)")
		cmd.Flags().StringVar(&submitEnd, "end", "", "End time (YYYY-MM-DDTHH:MM); raised to the marketplace minimum when below it")
	}

	buyCmd.Flags().StringVar(&buyPreset, "preset", "", "Weight preset: cheap, near, safe, balanced")
	buyCmd.Flags().StringArrayVar(&buyWeights, "weight", nil, "Weight edit key=value (price, distance, trust); repeatable, renormalises each time")
}
