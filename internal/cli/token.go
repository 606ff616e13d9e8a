package cli

import (
	"fmt"
	"time"

	"classroom-quiz-service/internal/auth"
	"classroom-quiz-service/internal/config"
	"github.com/spf13/cobra"
)

// NewTokenCmd prints a teacher token signed with the configured secret, for
// local development without an identity provider.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		name string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <teacher-id>",
		Short: "Issue a development teacher token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not configured")
			}
			token, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Issue(args[0], name, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	return cmd
}
