package cmd

import (
	"fmt"

	"cdplend/core"
	"cdplend/pkg/lending"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var strategyCmd = &cobra.Command{
	Use:   "strategy <asset>",
	Short: "print the rate curve of a configured pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		listing, err := findListing(args[0])
		if err != nil {
			return err
		}

		n, _ := cmd.Flags().GetInt("steps")
		if n <= 0 {
			n = 10
		}

		cmd.Printf("%-12s %-20s %-20s %-20s\n", "utilization", "borrow_rate", "supply_rate", "borrow_apy")
		for i := 0; i <= n; i++ {
			u := decimal.NewFromInt(int64(i)).Div(decimal.NewFromInt(int64(n)))
			rate, err := lending.BorrowRate(listing.Strategy, u, listing.Config.OptimalUsage)
			if err != nil {
				return err
			}

			supply := lending.SupplyRate(rate, u, listing.Config.ProtocolInterestFeeRate)
			cmd.Printf("%-12s %-20s %-20s %-20s\n", u.StringFixed(4), rate, supply, lending.APY(rate))
		}

		return nil
	},
}

func findListing(assetID string) (*core.PoolListing, error) {
	for idx := range cfg.Pools {
		if cfg.Pools[idx].AssetID == assetID {
			return &cfg.Pools[idx], nil
		}
	}

	return nil, fmt.Errorf("pool %s: %w", assetID, core.ErrPoolNotFound)
}

func init() {
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.Flags().Int("steps", 10, "utilization steps between 0 and 1")
}
