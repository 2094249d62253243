package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vpnda/cardless-sync/pkg/models"
	"github.com/vpnda/cardless-sync/pkg/services"
)

func newLinkCmd() *cobra.Command {
	linkCmd := &cobra.Command{
		Use:   "link",
		Short: "Manage links between GoCardless and Lunch Money accounts",
	}

	addCmd := &cobra.Command{
		Use:   "add <lunchmoney-id> <gocardless-account-id>",
		Short: "Link a Lunch Money account to a GoCardless account",
		Long: `Link a Lunch Money account to a GoCardless account. Any existing link that
uses either account is replaced.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lunchMoneyId, err := parseLunchMoneyId(args[0])
			if err != nil {
				return err
			}
			database, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.SaveLink(models.AccountLink{LunchMoneyId: lunchMoneyId, GocardlessId: args[1]}); err != nil {
				return err
			}
			log.Info().Int64("lunchmoney_id", lunchMoneyId).Str("gocardless_id", args[1]).Msg("Account linked successfully")
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <lunchmoney-id> <gocardless-account-id>",
		Short: "Remove a link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lunchMoneyId, err := parseLunchMoneyId(args[0])
			if err != nil {
				return err
			}
			database, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.RemoveLink(lunchMoneyId, args[1]); err != nil {
				return err
			}
			log.Info().Int64("lunchmoney_id", lunchMoneyId).Str("gocardless_id", args[1]).Msg("Link removed")
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List linked accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			links, err := database.LoadLinks("")
			if err != nil {
				return err
			}
			if len(links) == 0 {
				fmt.Println("No linked accounts found")
				return nil
			}

			fmt.Printf("Found %d links:\n\n", len(links))
			fmt.Printf("%-10s %-40s %-20s %-20s\n", "LM ID", "GoCardless Account", "Linked At", "Last Sync")
			fmt.Println(strings.Repeat("-", 95))
			for _, link := range links {
				fmt.Printf("%-10d %-40s %-20s %-20s\n",
					link.LunchMoneyId,
					link.GocardlessId[:min(40, len(link.GocardlessId))],
					formatTime(&link.CreatedAt),
					formatTime(link.LastSync))
			}
			return nil
		},
	}

	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "List the Lunch Money accounts that can be linked",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppState(false, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			accounts, err := services.NewAccountDirectory(app.ledger).Accounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("error fetching accounts: %w", err)
			}
			if len(accounts) == 0 {
				fmt.Println("No accounts found")
				return nil
			}

			fmt.Printf("%-10s %-30s\n", "LM ID", "Account Name")
			fmt.Println(strings.Repeat("-", 41))
			for _, account := range accounts {
				fmt.Printf("%-10d %-30s\n", account.LunchMoneyId, account.Name[:min(30, len(account.Name))])
			}
			return nil
		},
	}

	institutionsCmd := &cobra.Command{
		Use:   "institutions <country-code>",
		Short: "List the banks GoCardless can connect to in a country",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppState(true, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			institutions, err := app.syncer.Banks().Institutions(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error fetching institutions: %w", err)
			}
			if len(institutions) == 0 {
				fmt.Println("No institutions found")
				return nil
			}

			fmt.Printf("%-40s %-40s %-12s %s\n", "Institution ID", "Name", "BIC", "History (days)")
			fmt.Println(strings.Repeat("-", 110))
			for _, inst := range institutions {
				fmt.Printf("%-40s %-40s %-12s %s\n",
					inst.Id[:min(40, len(inst.Id))],
					inst.Name[:min(40, len(inst.Name))],
					inst.Bic,
					inst.TransactionTotalDays)
			}
			return nil
		},
	}

	requisitionsCmd := &cobra.Command{
		Use:   "requisitions",
		Short: "List the GoCardless accounts of linked bank connections",
		Long: `List every account of the GoCardless requisitions whose bank consent is
complete. The account ids are what "link add" expects.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppState(true, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			accounts, err := app.syncer.Banks().LinkedAccounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("error fetching requisitions: %w", err)
			}
			if len(accounts) == 0 {
				fmt.Println("No linked bank connections found")
				return nil
			}

			fmt.Printf("%-40s %-30s %-40s %s\n", "GoCardless Account", "Institution", "Requisition", "IBAN")
			fmt.Println(strings.Repeat("-", 145))
			for _, account := range accounts {
				fmt.Printf("%-40s %-30s %-40s %s\n",
					account.AccountId,
					account.InstitutionId[:min(30, len(account.InstitutionId))],
					account.RequisitionId,
					account.Iban)
			}
			return nil
		},
	}

	linkCmd.AddCommand(addCmd, removeCmd, listCmd, accountsCmd, institutionsCmd, requisitionsCmd)
	return linkCmd
}

func parseLunchMoneyId(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid lunch money account id %q", s)
	}
	return id, nil
}
