package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-edu/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/runtime"
)

var (
	tokenRole string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token [subject]",
	Short: "Issue an API token",
	Long: `Signs a bearer token with JWT_SECRET for the given subject (a user or
client name). Admin tokens may ingest documents and inspect tasks.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(domain.RoleMember), "token role: admin or member")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := runtime.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.AuthEnabled() {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	role := domain.Role(tokenRole)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q (use: admin or member)", tokenRole)
	}

	token, err := auth.NewAdapter(cfg.JWTSecret).IssueToken(args[0], role, tokenTTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	cmd.Println(token)
	return nil
}
