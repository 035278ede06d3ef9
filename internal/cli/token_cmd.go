package cli

import (
	"fmt"
	"time"

	"github.com/ajharbinger/dealflowos/internal/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd(app *App) *cobra.Command {
	var userID, orgID, email, role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed access token for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Config.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			if userID == "" || orgID == "" {
				return fmt.Errorf("--user and --org are required")
			}

			svc := auth.NewJWTService(app.Config.JWTSecret)
			token, expiresAt, err := svc.GenerateToken(auth.Claims{
				UserID: userID,
				OrgID:  orgID,
				Email:  email,
				Role:   role,
			}, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&userID, "user", "", "User ID claim")
	flags.StringVar(&orgID, "org", "", "Org ID claim")
	flags.StringVar(&email, "email", "", "Email claim")
	flags.StringVar(&role, "role", "member", "Role claim (admin may trigger sweeps)")
	flags.DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "Token lifetime")
	return cmd
}
