package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sigil/internal/entitlement/application/commands"
)

var autoBindCmd = &cobra.Command{
	Use:   "auto-bind <consumer-id>",
	Short: "Bind pools covering the consumer's installed products",
	Long: `Automatically bind a consumer to pools.

For each installed product not yet covered by an active entitlement, the
first pool whose product closure covers it is bound. Products no pool
covers are reported as uncovered.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.AutoBindHandler == nil {
			fmt.Println("Auto-bind requires database connection.")
			fmt.Println("Start services with: docker-compose up -d")
			return nil
		}

		consumerID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid consumer id: %w", err)
		}

		result, err := app.AutoBindHandler.Handle(cmd.Context(), commands.AutoBindCommand{
			ConsumerID: consumerID,
		})
		if err != nil {
			return fmt.Errorf("failed to auto-bind: %w", err)
		}

		if len(result.Bound) == 0 && len(result.Uncovered) == 0 {
			fmt.Println("All installed products are already covered.")
			return nil
		}

		if len(result.Bound) > 0 {
			fmt.Printf("Bound %d pool(s):\n", len(result.Bound))
			for _, id := range result.Bound {
				fmt.Printf("  %s\n", id)
			}
		}
		if len(result.Uncovered) > 0 {
			fmt.Printf("Uncovered products (no pool available):\n")
			for _, productID := range result.Uncovered {
				fmt.Printf("  %s\n", productID)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(autoBindCmd)
}
