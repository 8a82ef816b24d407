package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ashita-ai/gauntlet/internal/auth"
	"github.com/ashita-ai/gauntlet/internal/config"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue API tokens",
	}
	cmd.AddCommand(newTokenIssueCommand())
	return cmd
}

func newTokenIssueCommand() *cobra.Command {
	var (
		user string
		name string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token for a user with the configured key pair",
		Long: `Sign a bearer token for a user with the configured key pair.

The token's subject becomes the owner of every run the holder starts. Without
--user a new user id is generated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.JWTPrivateKeyPath == "" || cfg.JWTPublicKeyPath == "" {
				return errors.New("GAUNTLET_JWT_PRIVATE_KEY and GAUNTLET_JWT_PUBLIC_KEY must be set (see `gauntlet keys generate`)")
			}

			userID := uuid.New()
			if user != "" {
				if userID, err = uuid.Parse(user); err != nil {
					return fmt.Errorf("invalid user id %q", user)
				}
			}

			mgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
			if err != nil {
				return err
			}
			token, expiresAt, err := mgr.IssueToken(userID, name, ttl)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"user_id":    userID,
				"token":      token,
				"expires_at": expiresAt,
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User id (uuid) to issue the token for")
	cmd.Flags().StringVar(&name, "name", "", "Display name recorded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default GAUNTLET_JWT_EXPIRATION)")
	return cmd
}
