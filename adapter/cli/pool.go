package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sigil/internal/entitlement/application/commands"
)

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Manage entitlement pools",
}

var poolDeleteCmd = &cobra.Command{
	Use:   "delete <pool-id>",
	Short: "Delete a pool and revoke its entitlements",
	Long: `Delete an entitlement pool.

Every active entitlement derived from the pool is revoked, its serial is
recorded in the revocation log, and the remaining entitlements of each
affected consumer are re-evaluated against the shrunken product closure.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.DeletePoolHandler == nil {
			fmt.Println("Pool management requires database connection.")
			fmt.Println("Start services with: docker-compose up -d")
			return nil
		}

		poolID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid pool id: %w", err)
		}

		result, err := app.DeletePoolHandler.Handle(cmd.Context(), commands.DeletePoolCommand{
			PoolID: poolID,
		})
		if err != nil {
			return fmt.Errorf("failed to delete pool: %w", err)
		}

		fmt.Println("Pool deleted!")
		fmt.Printf("  Revoked entitlements: %d\n", result.RevokedEntitlements)
		printRegenerated(result.Regenerated)

		return nil
	},
}

func init() {
	poolCmd.AddCommand(poolDeleteCmd)
	rootCmd.AddCommand(poolCmd)
}
