// Command token issues bearer tokens for the gateway API using the same
// AUTH_JWT_SECRET and AUTH_JWT_ISSUER the server reads.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/simgate/sim-gateway/internal/auth"
	"github.com/simgate/sim-gateway/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "token",
	Short:         "Issue a bearer token for the SIM gateway API",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runToken,
}

func init() {
	rootCmd.Flags().String("subject", "dashboard", "token subject")
	rootCmd.Flags().String("role", string(auth.RoleOperator), "operator or admin")
	rootCmd.Flags().Int("ttl", 60*24, "lifetime in minutes")
}

func runToken(cmd *cobra.Command, args []string) error {
	subject, _ := cmd.Flags().GetString("subject")
	role, _ := cmd.Flags().GetString("role")
	ttl, _ := cmd.Flags().GetInt("ttl")
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %d", ttl)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, ttl)
	token, expiresAt, err := tokens.GenerateToken(subject, auth.Role(role))
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "expires", expiresAt.Format(time.RFC3339))
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
