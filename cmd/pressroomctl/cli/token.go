package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/pressroom/internal/app"
	"github.com/odyssey-erp/pressroom/internal/auth"
	"github.com/odyssey-erp/pressroom/internal/rbac"
)

// TokenCmd returns the token command.
func TokenCmd() *cobra.Command {
	var (
		userID int64
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with JWT_SECRET",
		Long: `Mint a bearer token for local testing and service accounts.
The SYSTEM role is what the payment gateway callback uses.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			return IssueToken(cmd.OutOrStdout(), auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer), userID, role, ttl)
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user id placed in the sub claim")
	cmd.Flags().StringVar(&role, "role", string(rbac.RoleCustomer), "CUSTOMER, STAFF, ADMIN or SYSTEM")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// IssueToken signs a token and writes it followed by its expiry.
func IssueToken(w io.Writer, issuer *auth.Issuer, userID int64, role string, ttl time.Duration) error {
	if userID <= 0 {
		return fmt.Errorf("token: --user must be positive")
	}
	parsed, ok := rbac.ParseRole(role)
	if !ok {
		return fmt.Errorf("token: unknown role %q", role)
	}
	if ttl <= 0 {
		return fmt.Errorf("token: --ttl must be positive")
	}
	token, exp, err := issuer.Issue(rbac.Principal{UserID: userID, Role: parsed}, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, token)
	fmt.Fprintf(w, "%s %s as %s until %s\n",
		color.New(color.FgGreen).Sprint("issued"),
		fmt.Sprintf("user %d", userID),
		color.New(color.Bold).Sprint(parsed),
		exp.Format(time.RFC3339))
	return nil
}
