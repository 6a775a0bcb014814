package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reelkit/reelkit/internal/catalog"
	"github.com/reelkit/reelkit/internal/commission"
	"github.com/reelkit/reelkit/internal/output"
)

var commissionCmd = &cobra.Command{
	Use:   "commission",
	Short: "Estimate affiliate commission per product",
	Long: `Estimate clicks, sales, and commission for catalog products from view,
click-through, and conversion assumptions. Flags override the commission
section of the configuration.`,
	Example: `  reelkit commission --views 50000 --ctr 0.02
  reelkit commission --product "Standing Desk" --output-format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		productsFile, _ := cmd.Flags().GetString("products")
		productName, _ := cmd.Flags().GetString("product")
		if productsFile == "" {
			productsFile = appConfig.Content.ProductsFile
		}

		assumptions := appConfig.Commission
		if cmd.Flags().Changed("views") {
			assumptions.Views, _ = cmd.Flags().GetInt64("views")
		}
		if cmd.Flags().Changed("ctr") {
			assumptions.ClickThroughRate, _ = cmd.Flags().GetFloat64("ctr")
		}
		if cmd.Flags().Changed("conversion-rate") {
			assumptions.ConversionRate, _ = cmd.Flags().GetFloat64("conversion-rate")
		}

		products, err := catalog.Load(productsFile)
		if err != nil {
			return err
		}

		var estimates []commission.Estimate
		if productName != "" {
			product, ok := products.Find(productName)
			if !ok {
				return fmt.Errorf("product %q not found in %s", productName, productsFile)
			}
			estimate, err := commission.Calculate(product, assumptions)
			if err != nil {
				return err
			}
			estimates = append(estimates, estimate)
		} else {
			estimates, err = commission.CalculateAll(products, assumptions)
			if err != nil {
				return err
			}
		}

		return emit(cmd, func(format output.Format) (string, error) {
			return output.FormatEstimates(format, estimates)
		})
	},
}

func init() {
	commissionCmd.Flags().String("products", "", "Product catalog file (default content.products_file)")
	commissionCmd.Flags().StringP("product", "p", "", "Estimate a single product")
	commissionCmd.Flags().Int64("views", 0, "Expected views per video")
	commissionCmd.Flags().Float64("ctr", 0, "Click-through rate (0-1)")
	commissionCmd.Flags().Float64("conversion-rate", 0, "Conversion rate of clicks into sales (0-1)")
	addOutputFlags(commissionCmd)
	rootCmd.AddCommand(commissionCmd)
}
