package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sigil/internal/entitlement/application/queries"
)

var certificatesCmd = &cobra.Command{
	Use:   "certificates <consumer-id>",
	Short: "List a consumer's current certificates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.ListCertificatesHandler == nil {
			fmt.Println("Listing certificates requires database connection.")
			return nil
		}

		consumerID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid consumer id: %w", err)
		}

		result, err := app.ListCertificatesHandler.Handle(cmd.Context(), queries.ListCertificatesQuery{
			ConsumerID: consumerID,
		})
		if err != nil {
			return fmt.Errorf("failed to list certificates: %w", err)
		}

		if len(result) == 0 {
			fmt.Println("No certificates.")
			return nil
		}

		for _, cert := range result {
			fmt.Printf("serial=%d  entitlement=%s  issued=%s\n",
				cert.Serial,
				cert.EntitlementID.String()[:8],
				cert.IssuedAt.Format("2006-01-02 15:04:05"),
			)
			fmt.Printf("  digest: %s\n", cert.Digest)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(certificatesCmd)
}
