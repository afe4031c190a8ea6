package cmd

import (
	"cdplend/core"
	"cdplend/pkg/lending"

	"github.com/spf13/cobra"
)

var thresholdCmd = &cobra.Command{
	Use:   "threshold <collateral> <loan>",
	Short: "resolve the liquidation threshold of a collateral and loan pair",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		collateral, err := findListing(args[0])
		if err != nil {
			return err
		}

		loan, err := findListing(args[1])
		if err != nil {
			return err
		}

		threshold := lending.ResolveThreshold(collateral.Threshold, core.AssetPair{
			CollateralAsset: collateral.AssetID,
			CollateralType:  collateral.AssetType,
			LoanAsset:       loan.AssetID,
			LoanType:        loan.AssetType,
		})

		discount := lending.DiscountFactor(threshold, collateral.Config.LiquidationBonusRate)
		cmd.Printf("threshold: %s\ndiscount factor: %s\n", threshold, discount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(thresholdCmd)
}
