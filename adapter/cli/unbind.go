package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sigil/internal/entitlement/application/commands"
	"github.com/felixgeelhaar/sigil/internal/entitlement/application/services"
)

var unbindCmd = &cobra.Command{
	Use:   "unbind <entitlement-id>",
	Short: "Revoke an entitlement and its certificate",
	Long: `Revoke an entitlement.

The entitlement's certificate serial is revoked and recorded in the
revocation log. Sibling entitlements that conditionally depended on the
lost products have their certificates regenerated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.UnbindHandler == nil {
			fmt.Println("Unbinding requires database connection.")
			fmt.Println("Start services with: docker-compose up -d")
			return nil
		}

		entitlementID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid entitlement id: %w", err)
		}

		result, err := app.UnbindHandler.Handle(cmd.Context(), commands.UnbindEntitlementCommand{
			EntitlementID: entitlementID,
		})
		if err != nil {
			return fmt.Errorf("failed to unbind: %w", err)
		}

		fmt.Println("Entitlement revoked!")
		fmt.Printf("  Revoked serial: %d\n", result.RevokedSerial)
		printRegenerated(result.Regenerated)

		return nil
	},
}

func printRegenerated(results []services.RegenerationResult) {
	if len(results) == 0 {
		return
	}
	fmt.Printf("  Regenerated %d sibling certificate(s):\n", len(results))
	for _, r := range results {
		fmt.Printf("    %s: serial %d -> %d\n", r.EntitlementID.String()[:8], r.OldSerial, r.NewSerial)
	}
}

func init() {
	rootCmd.AddCommand(unbindCmd)
}
