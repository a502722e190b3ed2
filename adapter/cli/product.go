package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sigil/internal/entitlement/application/commands"
)

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage catalog products",
}

var productChangedCmd = &cobra.Command{
	Use:   "changed [product-id...]",
	Short: "Re-evaluate certificates after catalog changes",
	Long: `Re-evaluate certificates after a product or content change.

Pass the ids of the changed products to limit the worklist to affected
entitlements. With no arguments every active entitlement of the current
owner is re-evaluated. Certificates whose content digest is unchanged
are left alone.

Examples:
  sigil product changed server-os
  sigil product changed server-os extras-pack
  sigil product changed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.UpdateProductHandler == nil {
			fmt.Println("Catalog re-evaluation requires database connection.")
			fmt.Println("Start services with: docker-compose up -d")
			return nil
		}

		result, err := app.UpdateProductHandler.Handle(cmd.Context(), commands.UpdateProductCommand{
			OwnerID:           app.CurrentOwnerID,
			ChangedProductIDs: args,
		})
		if err != nil {
			return fmt.Errorf("failed to re-evaluate certificates: %w", err)
		}

		fmt.Printf("Evaluated %d consumer(s).\n", result.ConsumersEvaluated)
		if len(result.Regenerated) == 0 {
			fmt.Println("All certificates are current.")
			return nil
		}

		fmt.Printf("Regenerated %d certificate(s):\n", len(result.Regenerated))
		for _, r := range result.Regenerated {
			fmt.Printf("  %s: serial %d -> %d\n", r.EntitlementID.String()[:8], r.OldSerial, r.NewSerial)
		}

		return nil
	},
}

func init() {
	productCmd.AddCommand(productChangedCmd)
	rootCmd.AddCommand(productCmd)
}
