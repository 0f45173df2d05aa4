package cli

import (
	"github.com/spf13/cobra"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List open orders (waiting, matched, expired)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Orders(cmd.Context())
	},
}

var completedCmd = &cobra.Command{
	Use:   "completed",
	Short: "List settled orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Completed(cmd.Context())
	},
}
