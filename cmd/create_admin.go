package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"food-delivery-backend/auth"
	"food-delivery-backend/services"
)

func newCreateAdminCommand(v *viper.Viper) *cobra.Command {
	var in services.SignupInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(v)
			if err != nil {
				return err
			}
			defer a.close()

			tokens := auth.NewTokenManager([]byte(a.cfg.JWT.Secret), a.cfg.JWT.TTL, auth.NewGormDenylist(a.db))
			svc := services.New(a.db, tokens, nil, a.log, services.Options{})
			user, err := svc.Auth.CreateAdmin(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.log.Info("Admin created", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "Admin", "admin display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&in.Password, "password", "", "admin password (at least 6 characters)")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "admin phone")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
