package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [gocardless-account-id]",
		Short: "Run one sync pass",
		Long: `Fetch booked transactions from GoCardless and insert the new ones into Lunch Money.
Without an account id every linked account is synced.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppState(true, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			accountId := ""
			if len(args) == 1 {
				accountId = args[0]
			}

			report, err := app.syncer.Synchronize(cmd.Context(), accountId)
			if report != nil && len(report.Accounts) > 0 {
				fmt.Printf("Sync %s:\n\n", report.RunId)
				fmt.Printf("%-40s %-10s %-10s %-10s %s\n", "GoCardless Account", "LM ID", "Status", "Submitted", "Error")
				fmt.Println(strings.Repeat("-", 100))
				for _, acc := range report.Accounts {
					errMsg := ""
					if acc.Err != nil {
						errMsg = acc.Err.Error()
					}
					fmt.Printf("%-40s %-10d %-10s %-10d %s\n",
						acc.AccountId[:min(40, len(acc.AccountId))],
						acc.AssetId,
						acc.Status,
						acc.Submitted,
						errMsg)
				}
			} else if err == nil {
				fmt.Println("No linked accounts to sync")
			}
			return err
		},
	}
}
