package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rojas-cambio/cambio/internal/access"
	"github.com/rojas-cambio/cambio/internal/app"
	"github.com/rojas-cambio/cambio/internal/model"
	"github.com/rojas-cambio/cambio/internal/users"
)

func newUsersCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage back-office users",
	}
	cmd.AddCommand(
		newUsersListCommand(g),
		newUsersAddCommand(g),
		newUsersSetActiveCommand(g, "enable", true),
		newUsersSetActiveCommand(g, "disable", false),
		newUsersRoleCommand(g),
		newUsersPasswordCommand(g),
	)
	return cmd
}

func newUsersListCommand(g *globals) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := g.session(cmd, access.ManageUsers)
			if err != nil {
				return err
			}
			defer a.Close()

			list := a.Users.All()
			if role != "" {
				r, err := model.ParseRole(role)
				if err != nil {
					return err
				}
				list = a.Users.ByRole(r)
			}

			var rows [][]string
			for _, u := range list {
				status := "active"
				if !u.Active {
					status = "disabled"
				}
				rows = append(rows, []string{u.Name, u.Email, string(u.Role), status, u.CreatedAt.Format(model.DateFormat)})
			}
			return printTable(cmd.OutOrStdout(), []string{"name", "email", "role", "status", "created"}, rows)
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "only users with this role (admin|operator)")
	return cmd
}

func newUsersAddCommand(g *globals) *cobra.Command {
	var in users.NewUser
	var role string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := model.ParseRole(role)
			if err != nil {
				return err
			}
			in.Role = r
			if in.Password == "" {
				in.Password = os.Getenv("CAMBIO_NEW_PASSWORD")
			}

			a, actor, err := g.session(cmd, access.ManageUsers)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.Users.Add(actor.ID, in)
			if err != nil {
				return err
			}
			a.Commit(ctxOf(cmd), "Add user "+u.Email)
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "full name")
	cmd.Flags().StringVar(&in.Email, "email", "", "sign-in email")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password (env CAMBIO_NEW_PASSWORD)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleOperator), "admin or operator")
	return cmd
}

// targetUser looks a user up by email.
func targetUser(a *app.App, email string) (model.User, error) {
	u, ok := a.Users.ByEmail(email)
	if !ok {
		return model.User{}, fmt.Errorf("%s: %w", email, users.ErrNotFound)
	}
	return u, nil
}

func newUsersSetActiveCommand(g *globals, verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <email>",
		Short: fmt.Sprintf("%s a user", verb),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, actor, err := g.session(cmd, access.ManageUsers)
			if err != nil {
				return err
			}
			defer a.Close()

			target, err := targetUser(a, args[0])
			if err != nil {
				return err
			}
			u, err := a.Users.SetActive(actor.ID, target.ID, active)
			if err != nil {
				return err
			}
			a.Commit(ctxOf(cmd), fmt.Sprintf("%s user %s", verb, u.Email))
			fmt.Fprintf(cmd.OutOrStdout(), "%sd %s\n", verb, u.Email)
			return nil
		},
	}
}

func newUsersRoleCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "role <email> <admin|operator>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := model.ParseRole(args[1])
			if err != nil {
				return err
			}
			a, actor, err := g.session(cmd, access.ManageUsers)
			if err != nil {
				return err
			}
			defer a.Close()

			target, err := targetUser(a, args[0])
			if err != nil {
				return err
			}
			u, err := a.Users.SetRole(actor.ID, target.ID, role)
			if err != nil {
				return err
			}
			a.Commit(ctxOf(cmd), fmt.Sprintf("Set role of %s to %s", u.Email, role))
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, u.Role)
			return nil
		},
	}
}

func newUsersPasswordCommand(g *globals) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "passwd <email>",
		Short: "Set a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("CAMBIO_NEW_PASSWORD")
			}
			a, actor, err := g.session(cmd, access.ManageUsers)
			if err != nil {
				return err
			}
			defer a.Close()

			target, err := targetUser(a, args[0])
			if err != nil {
				return err
			}
			if err := a.Users.SetPassword(actor.ID, target.ID, password); err != nil {
				return err
			}
			a.Commit(ctxOf(cmd), "Change password of "+target.Email)
			fmt.Fprintf(cmd.OutOrStdout(), "Password changed for %s\n", target.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password (env CAMBIO_NEW_PASSWORD)")
	return cmd
}
