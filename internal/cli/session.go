package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/contesthub/contesthub/internal/app"
	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/session"
	"github.com/spf13/cobra"
)

// readSecret prompts on out and reads one line from in.
func readSecret(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func printUser(out io.Writer, user *models.User) error {
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if password == "" {
				var err error
				password, err = readSecret(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: ")
				if err != nil {
					return err
				}
			}

			return withSession(cmd.Context(), func(ctx context.Context, a *app.App) error {
				user, err := a.Store().SignIn(ctx, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", user.Email, user.Role)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
	return cmd
}

func newSignupCmd() *cobra.Command {
	var in session.SignUpInput

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Email == "" {
				return fmt.Errorf("--email is required")
			}
			if in.Password == "" {
				var err error
				in.Password, err = readSecret(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: ")
				if err != nil {
					return err
				}
			}

			return withSession(cmd.Context(), func(ctx context.Context, a *app.App) error {
				user, err := a.Store().SignUp(ctx, in)
				if err != nil {
					return err
				}
				return printUser(cmd.OutOrStdout(), user)
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&in.Password, "password", "", "Account password (prompted if omitted)")
	cmd.Flags().StringVar(&in.PhotoURL, "photo", "", "Profile photo URL")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, a *app.App) error {
				a.Store().SignOut(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, a *app.App) error {
				user := a.Store().User()
				if user == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
					return nil
				}
				if !remote {
					return printUser(cmd.OutOrStdout(), user)
				}

				profile, err := a.Client().GetProfile(ctx)
				if err != nil {
					return fmt.Errorf("fetch profile: %w", err)
				}
				data, err := json.MarshalIndent(profile, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal profile: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Show the backend's profile record instead of the local session")
	return cmd
}
