package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MyBusinesspace/MBP-sub007/internal/auth"
	"github.com/MyBusinesspace/MBP-sub007/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token <actor_id>",
	Short: "Issue an API bearer token",
	Long: `Issue a bearer token for the HTTP API, signed with auth.jwt_secret.

--privileged only takes effect for actors marked privileged under
[auth.actors] in the config of the server that verifies the token.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is not set")
		}

		ttl, _ := cmd.Flags().GetDuration("ttl")
		privileged, _ := cmd.Flags().GetBool("privileged")

		token, err := auth.IssueToken([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTIssuer, args[0], privileged, time.Now(), ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	tokenCmd.Flags().Bool("privileged", false, "Request approver rights")
}
