package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sigil/internal/entitlement/application/queries"
)

var entitlementsCmd = &cobra.Command{
	Use:   "entitlements",
	Short: "Inspect entitlements",
}

var entitlementsListCmd = &cobra.Command{
	Use:   "list <consumer-id>",
	Short: "List a consumer's active entitlements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.ListEntitlementsHandler == nil {
			fmt.Println("Listing entitlements requires database connection.")
			return nil
		}

		consumerID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid consumer id: %w", err)
		}

		result, err := app.ListEntitlementsHandler.Handle(cmd.Context(), queries.ListEntitlementsQuery{
			ConsumerID: consumerID,
		})
		if err != nil {
			return fmt.Errorf("failed to list entitlements: %w", err)
		}

		if len(result) == 0 {
			fmt.Println("No active entitlements.")
			return nil
		}

		for _, ent := range result {
			fmt.Printf("%s  %s  serial=%d\n", ent.ID.String()[:8], ent.ProductID, ent.Serial)
			if len(ent.ProvidedProductIDs) > 0 {
				fmt.Printf("  provides: %s\n", strings.Join(ent.ProvidedProductIDs, ", "))
			}
		}

		return nil
	},
}

var entitlementsShowCmd = &cobra.Command{
	Use:   "show <entitlement-id>",
	Short: "Show one entitlement in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.GetEntitlementHandler == nil {
			fmt.Println("Showing entitlements requires database connection.")
			return nil
		}

		entitlementID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid entitlement id: %w", err)
		}

		ent, err := app.GetEntitlementHandler.Handle(cmd.Context(), queries.GetEntitlementQuery{
			EntitlementID: entitlementID,
		})
		if err != nil {
			return fmt.Errorf("failed to get entitlement: %w", err)
		}

		fmt.Printf("ID:       %s\n", ent.ID)
		fmt.Printf("Consumer: %s\n", ent.ConsumerID)
		fmt.Printf("Pool:     %s\n", ent.PoolID)
		fmt.Printf("Product:  %s\n", ent.ProductID)
		fmt.Printf("Status:   %s\n", ent.Status)
		if len(ent.ProvidedProductIDs) > 0 {
			fmt.Printf("Provides: %s\n", strings.Join(ent.ProvidedProductIDs, ", "))
		}
		if ent.Serial > 0 {
			fmt.Printf("Serial:   %d\n", ent.Serial)
			fmt.Printf("Digest:   %s\n", ent.Digest)
			fmt.Printf("Issued:   %s\n", ent.IssuedAt.Format("2006-01-02 15:04:05"))
		}

		return nil
	},
}

func init() {
	entitlementsCmd.AddCommand(entitlementsListCmd)
	entitlementsCmd.AddCommand(entitlementsShowCmd)
	rootCmd.AddCommand(entitlementsCmd)
}
