package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwtsvc "foodorder/internal/pkg/jwt"
)

func staffTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff-token",
		Short: "Mint a bearer token for the ops endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			staffID, _ := cmd.Flags().GetInt64("staff-id")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if secret == "" {
				return fmt.Errorf("JWT secret is empty, set JWT_SECRET or --secret")
			}

			token, err := jwtsvc.New(secret, ttl).GenerateToken(staffID, jwtsvc.RoleStaff)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().String("secret", envOr("JWT_SECRET", ""), "HMAC secret shared with the API")
	cmd.Flags().Int64("staff-id", 1, "Staff member id")
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")

	return cmd
}
