package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"foodorder/internal/database"
	"foodorder/internal/repository"
)

func pendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List orders still waiting for a gateway result",
		Long: `Lists orders in pending_payment older than --older-than.
These need manual reconciliation against the merchant portal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			olderThan, _ := cmd.Flags().GetDuration("older-than")
			limit, _ := cmd.Flags().GetInt("limit")
			dsn, _ := cmd.Flags().GetString("database-url")

			db, err := database.Connect(dsn)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			repo := repository.NewOrderRepository(db)

			now := time.Now().UTC()
			orders, err := repo.ListPendingOlderThan(context.Background(), now.Add(-olderThan), limit)
			if err != nil {
				return err
			}
			if len(orders) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stale pending orders.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tORDER\tTOTAL\tCUSTOMER\tPHONE\tAGE")
			for _, o := range orders {
				fmt.Fprintf(w, "%d\t%s\t%s %s\t%s\t%s\t%s\n",
					o.ID, o.GatewayOrder, o.Total.StringFixed(2), o.Currency,
					o.CustomerName, o.CustomerPhone, now.Sub(o.CreatedAt).Truncate(time.Second))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("-", 40))
			fmt.Fprintf(cmd.OutOrStdout(), "%d order(s)\n", len(orders))
			return nil
		},
	}

	cmd.Flags().Duration("older-than", 30*time.Minute, "Minimum age of a pending order")
	cmd.Flags().IntP("limit", "n", 100, "Maximum rows")
	cmd.Flags().String("database-url", envOr("DATABASE_URL", "foodorder.db"), "Database DSN")

	return cmd
}
