package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sendrec/clipdeck/internal/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var userID, email string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return errors.New("JWT_SECRET is required")
			}
			if email == "" {
				return errors.New("--email is required")
			}
			if userID == "" {
				userID = uuid.NewString()
			}

			token, err := auth.GenerateAccessToken(secret, userID, email)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id claim (random when empty)")
	cmd.Flags().StringVar(&email, "email", "", "email claim, checked against the subscription table")
	return cmd
}
