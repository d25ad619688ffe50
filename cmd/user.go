package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yeremiapane/tablebook/models"
	"github.com/yeremiapane/tablebook/services"
)

// cliActor stands in for an admin when the CLI changes roles.
var cliActor = services.Actor{Role: models.RoleAdmin}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserCreateAdminCmd())
	cmd.AddCommand(newUserSetRoleCmd())
	return cmd
}

func newUserCreateAdminCmd() *cobra.Command {
	var name, email, password string

	c := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := bootstrap(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.svc.Users.Create(ctx, services.RegisterInput{
				Name:     name,
				Email:    email,
				Password: password,
			}, models.RoleAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created admin %q (id %d)\n", user.Email, user.ID)
			return nil
		},
	}

	c.Flags().StringVar(&name, "name", "", "display name")
	c.Flags().StringVar(&email, "email", "", "email address")
	c.Flags().StringVar(&password, "password", "", "password")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	return c
}

func newUserSetRoleCmd() *cobra.Command {
	var email, role string

	c := &cobra.Command{
		Use:   "set-role",
		Short: "Change a user's role; the last admin cannot be demoted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("email", email); err != nil {
				return err
			}
			newRole, err := models.ParseRole(role)
			if err != nil {
				return err
			}

			ctx := context.Background()
			a, err := bootstrap(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.svc.Users.FindByEmail(ctx, email)
			if err != nil {
				return err
			}
			user, err = a.svc.Users.ChangeRole(ctx, cliActor, user.ID, newRole)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s is now %s\n", user.Email, user.Role)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "email address")
	c.Flags().StringVar(&role, "role", "", "user or admin")
	_ = c.MarkFlagRequired("role")
	return c
}
