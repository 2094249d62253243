package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vpnda/cardless-sync/pkg/models"
	"github.com/vpnda/cardless-sync/pkg/utils"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the sync status of every linked account",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppState(false, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			statuses, err := app.syncer.LinkStatuses(cmd.Context())
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				fmt.Println("No linked accounts found")
				return nil
			}

			fmt.Printf("%-30s %-40s %-34s %-20s %-10s %-6s %-12s %s\n",
				"Account Name", "GoCardless Account", "IBAN", "Last Sync", "Status", "Count", "Rate Limit", "Next Sync")
			fmt.Println(strings.Repeat("-", 175))
			for _, ls := range statuses {
				fmt.Printf("%-30s %-40s %-34s %-20s %-10s %-6d %-12s %s\n",
					ls.AccountName[:min(30, len(ls.AccountName))],
					ls.Link.GocardlessId[:min(40, len(ls.Link.GocardlessId))],
					ls.ProviderName,
					formatTime(ls.Status.LastSync),
					utils.Capitalize(string(ls.Status.LastSyncStatus)),
					ls.Status.LastSyncTransactions,
					formatRateLimit(ls.Status.RateLimit),
					ls.Status.NextSync.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}

func formatRateLimit(rl *models.RateLimit) string {
	if rl.IsUnknown() {
		return "unknown"
	}
	return fmt.Sprintf("%d/%d", rl.Remaining, rl.Limit)
}
