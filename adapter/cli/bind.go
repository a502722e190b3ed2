package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sigil/internal/entitlement/application/commands"
)

var bindCmd = &cobra.Command{
	Use:   "bind <consumer-id> <pool-id>",
	Short: "Bind a consumer to a pool and issue a certificate",
	Long: `Bind a consumer to an entitlement pool.

A new entitlement is created and a certificate is issued listing the
content the entitled product grants. Sibling entitlements whose eligible
content changes because of the newly gained products are regenerated in
the same transaction.

Examples:
  sigil bind 4f9d... 7c21...`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.BindHandler == nil {
			fmt.Println("Binding requires database connection.")
			fmt.Println("Start services with: docker-compose up -d")
			return nil
		}

		consumerID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid consumer id: %w", err)
		}
		poolID, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid pool id: %w", err)
		}

		result, err := app.BindHandler.Handle(cmd.Context(), commands.BindEntitlementCommand{
			ConsumerID: consumerID,
			PoolID:     poolID,
		})
		if err != nil {
			return fmt.Errorf("failed to bind: %w", err)
		}

		fmt.Println("Entitlement bound!")
		fmt.Printf("  ID: %s\n", result.EntitlementID)
		fmt.Printf("  Serial: %d\n", result.Serial)
		printRegenerated(result.Regenerated)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(bindCmd)
}
