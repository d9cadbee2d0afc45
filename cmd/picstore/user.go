package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"picstore/internal/api"
	internalauth "picstore/internal/auth"
	"picstore/internal/config"
	"picstore/internal/models"
	"picstore/internal/store"
)

func newUserCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users in the local database",
	}
	cmd.AddCommand(newUserAddCmd(cfg))
	cmd.AddCommand(newUserListCmd(cfg))
	cmd.AddCommand(newUserSetDisabledCmd(cfg, "disable", "Disable one user and end its sessions", true))
	cmd.AddCommand(newUserSetDisabledCmd(cfg, "enable", "Enable one user", false))
	return cmd
}

func withStore(cfg *config.Config, fn func(*store.Store) error) error {
	if cfg == nil || cfg.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func newUserAddCmd(cfg *config.Config) *cobra.Command {
	var (
		passwordStdin bool
		role          string
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create one user",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !passwordStdin {
				return fmt.Errorf("--password-stdin is required")
			}
			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}
			parsedRole, err := models.ParseRole(role)
			if err != nil {
				return err
			}

			passwordBytes, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			hash, err := internalauth.HashPassword(strings.TrimSpace(string(passwordBytes)))
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				created, err := st.CreateUser(cmd.Context(), username, hash, parsedRole, time.Now().UTC())
				if err != nil {
					return err
				}
				if structuredOutput() {
					return writeStructured(userResponse(created, 0))
				}
				return writePlain("created %s user %s (id %d)\n", created.Role, created.Username, created.ID)
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	cmd.Flags().StringVar(&role, "role", string(models.RoleMember), "user role (member, admin)")
	return cmd
}

func newUserListCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users with their image counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(st *store.Store) error {
				users, err := listUsers(cmd.Context(), st)
				if err != nil {
					return err
				}
				if structuredOutput() {
					return writeStructured(map[string]any{"count": len(users), "users": users})
				}
				if len(users) == 0 {
					return writePlain("no users configured\n")
				}
				if err := writePlain("ID\tUSERNAME\tROLE\tSTATUS\tIMAGES\tPROFILE\n"); err != nil {
					return err
				}
				for _, user := range users {
					status := "enabled"
					if user.Disabled {
						status = "disabled"
					}
					profile := "-"
					if user.ProfileImageID != nil {
						profile = fmt.Sprintf("%d", *user.ProfileImageID)
					}
					if err := writePlain("%d\t%s\t%s\t%s\t%d\t%s\n", user.ID, user.Username, user.Role, status, user.ImageCount, profile); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func listUsers(ctx context.Context, st *store.Store) ([]api.UserResponse, error) {
	users, err := st.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := st.CountImagesByOwner(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]api.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, userResponse(&users[i], counts[users[i].ID]))
	}
	return out, nil
}

func newUserSetDisabledCmd(cfg *config.Config, name, short string, disabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <username>",
		Short: short,
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				user, err := st.GetUserByUsername(cmd.Context(), username)
				if err != nil {
					return err
				}
				if user == nil {
					return fmt.Errorf("user %s not found", username)
				}
				updated, err := st.SetUserDisabled(cmd.Context(), user.ID, disabled, time.Now().UTC())
				if err != nil {
					return err
				}
				if structuredOutput() {
					return writeStructured(userResponse(updated, 0))
				}
				action := "enabled"
				if disabled {
					action = "disabled"
				}
				return writePlain("%s user %s\n", action, updated.Username)
			})
		},
	}
}

func userResponse(user *models.User, imageCount int) api.UserResponse {
	return api.UserResponse{
		ID:             user.ID,
		Username:       user.Username,
		Role:           string(user.Role),
		Disabled:       user.Disabled,
		ProfileImageID: user.ProfileImageID,
		ImageCount:     imageCount,
		CreatedAt:      user.CreatedAt,
	}
}
