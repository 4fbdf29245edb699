package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/core/ports"
)

var (
	firstName   string
	lastName    string
	email       string
	password    string
	oldPassword string
	newPassword string
	confirmNew  string
	assumeYes   bool
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Long:  "Create an account. You still need to log in afterwards.",
	Args:  cobra.NoArgs,
	RunE:  runSignup,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and keep the session",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	Long:  "End the session. Local state is cleared even when the server cannot be reached.",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the logged in user",
	Args:  cobra.NoArgs,
	RunE:  runProfileShow,
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change name or email",
	Args:  cobra.NoArgs,
	RunE:  runProfileUpdate,
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Change the account password",
	Args:  cobra.NoArgs,
	RunE:  runChangePassword,
}

var deleteAccountCmd = &cobra.Command{
	Use:   "delete-account",
	Short: "Permanently delete the account",
	Args:  cobra.NoArgs,
	RunE:  runDeleteAccount,
}

func init() {
	signupCmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	signupCmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	signupCmd.Flags().StringVar(&email, "email", "", "account email")
	signupCmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")

	loginCmd.Flags().StringVar(&email, "email", "", "account email")
	loginCmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")

	profileUpdateCmd.Flags().StringVar(&firstName, "first-name", "", "new first name")
	profileUpdateCmd.Flags().StringVar(&lastName, "last-name", "", "new last name")
	profileUpdateCmd.Flags().StringVar(&email, "email", "", "new email")
	profileCmd.AddCommand(profileUpdateCmd)

	passwordCmd.Flags().StringVar(&oldPassword, "old", "", "current password (prompted when omitted)")
	passwordCmd.Flags().StringVar(&newPassword, "new", "", "new password (prompted when omitted)")
	passwordCmd.Flags().StringVar(&confirmNew, "confirm", "", "repeat the new password (prompted when omitted)")

	deleteAccountCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
}

func runSignup(cmd *cobra.Command, _ []string) error {
	pw, err := secret(cmd, password, "Password: ")
	if err != nil {
		return err
	}
	u, err := application.Sessions.Signup(cmd.Context(), ports.SignupInput{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  pw,
	})
	if err != nil {
		return err
	}
	return printResult(cmd, u, func(w io.Writer) {
		fmt.Fprintf(w, "Account created for %s. Log in with `leadctl login --email %s`.\n", u.Email, u.Email)
	})
}

func runLogin(cmd *cobra.Command, _ []string) error {
	pw, err := secret(cmd, password, "Password: ")
	if err != nil {
		return err
	}
	sess, err := application.Sessions.Login(cmd.Context(), ports.LoginInput{Email: email, Password: pw})
	if err != nil {
		return err
	}
	return printResult(cmd, sess.User, func(w io.Writer) {
		fmt.Fprintf(w, "Logged in as %s <%s>\n", sess.User.FullName(), sess.User.Email)
	})
}

func runLogout(cmd *cobra.Command, _ []string) error {
	if !application.Sessions.Current().Authenticated {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
		return nil
	}
	if err := application.Sessions.Logout(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}

func runProfileShow(cmd *cobra.Command, _ []string) error {
	sess, err := application.Sessions.FetchProfile(cmd.Context())
	if err != nil {
		return err
	}
	return printResult(cmd, sess.User, func(w io.Writer) {
		printUser(w, sess.User)
	})
}

func runProfileUpdate(cmd *cobra.Command, _ []string) error {
	in := ports.ProfileInput{
		FirstName: optional(cmd, "first-name", firstName),
		LastName:  optional(cmd, "last-name", lastName),
		Email:     optional(cmd, "email", email),
	}
	sess, err := application.Sessions.UpdateProfile(cmd.Context(), in)
	if err != nil {
		return err
	}
	return printResult(cmd, sess.User, func(w io.Writer) {
		printUser(w, sess.User)
	})
}

func runChangePassword(cmd *cobra.Command, _ []string) error {
	if !application.Sessions.Current().Authenticated {
		return domain.ErrNotAuthenticated
	}
	old, err := secret(cmd, oldPassword, "Current password: ")
	if err != nil {
		return err
	}
	next, err := secret(cmd, newPassword, "New password: ")
	if err != nil {
		return err
	}
	confirm, err := secret(cmd, confirmNew, "Repeat new password: ")
	if err != nil {
		return err
	}
	err = application.Sessions.ChangePassword(cmd.Context(), ports.ChangePasswordInput{
		OldPassword:     old,
		NewPassword:     next,
		ConfirmPassword: confirm,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Password changed.")
	return nil
}

func runDeleteAccount(cmd *cobra.Command, _ []string) error {
	if !application.Sessions.Current().Authenticated {
		return domain.ErrNotAuthenticated
	}
	if !assumeYes {
		ok, err := confirm(cmd, "Delete your account and all its data? [y/N] ")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}
	res, err := application.Sessions.DeleteAccount(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	return nil
}

func printUser(w io.Writer, u domain.User) {
	fmt.Fprintf(w, "ID:     %s\n", u.ID)
	fmt.Fprintf(w, "Name:   %s\n", u.FullName())
	fmt.Fprintf(w, "Email:  %s\n", u.Email)
}

// optional returns a pointer to value only when the flag was given.
func optional(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

// secret returns value when set. Otherwise it prompts on a terminal with
// echo disabled, or reads one line from non-terminal stdin.
func secret(cmd *cobra.Command, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return readLine(cmd.InOrStdin())
}

func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	answer, err := readLine(cmd.InOrStdin())
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// input buffers the last reader seen so consecutive prompts on one pipe
// each get their own line.
var (
	input    *bufio.Reader
	inputSrc io.Reader
)

func readLine(r io.Reader) (string, error) {
	if input == nil || inputSrc != r {
		input, inputSrc = bufio.NewReader(r), r
	}
	line, err := input.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
