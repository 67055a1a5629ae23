package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/artpar/rentdesk/domain/user"
	"github.com/artpar/rentdesk/ports"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in: run 'rentdesk session login' first")

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the stored credential",
	Long: `Manage the session used to authenticate backend requests.

The session is persisted by the configured store (memory, sqlite or redis).
With session.secret set, tokens are sealed at rest.

Examples:
  rentdesk session login --user u_42 --email ada@example.com --role customer
  rentdesk session show
  rentdesk session logout`,
}

var sessionLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a bearer token",
	RunE:  runSessionLogin,
}

var sessionLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	RunE:  runSessionLogout,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current session",
	RunE:  runSessionShow,
}

var (
	sessionToken  string
	sessionUserID string
	sessionEmail  string
	sessionRole   string
)

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.AddCommand(sessionLoginCmd)
	sessionCmd.AddCommand(sessionLogoutCmd)
	sessionCmd.AddCommand(sessionShowCmd)

	sessionLoginCmd.Flags().StringVar(&sessionToken, "token", "", "bearer token (will prompt if not provided)")
	sessionLoginCmd.Flags().StringVar(&sessionUserID, "user", "", "user id")
	sessionLoginCmd.Flags().StringVar(&sessionEmail, "email", "", "email")
	sessionLoginCmd.Flags().StringVar(&sessionRole, "role", string(user.RoleCustomer), "role: customer, admin or superadmin")
}

func runSessionLogin(cmd *cobra.Command, args []string) error {
	token := sessionToken
	if token == "" {
		var err error
		if token, err = promptSecret("Token: "); err != nil {
			return err
		}
	}
	if token == "" {
		return fmt.Errorf("token is required")
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	sess := ports.Session{Token: token, UserID: sessionUserID, Email: sessionEmail, Role: sessionRole}
	if err := app.Session.Set(cmd.Context(), sess); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	fmt.Printf("%s Signed in", checkMark)
	if sessionUserID != "" {
		fmt.Printf(" as %s", sessionUserID)
	}
	fmt.Printf(" (%s store)\n", app.Config.Session.Store)
	return nil
}

func runSessionLogout(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Session.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	fmt.Printf("%s Signed out\n", checkMark)
	return nil
}

type sessionView struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role,omitempty"`
	Store         string `json:"store"`
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	s := app.Session.Current()
	view := sessionView{
		Authenticated: s.IsAuthenticated(),
		UserID:        s.UserID,
		Email:         s.Email,
		Role:          s.Role,
		Store:         app.Config.Session.Store,
	}
	return render(view, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Signed in:\t%s\n", yesNo(view.Authenticated))
		fmt.Fprintf(w, "User:\t%s\n", view.UserID)
		fmt.Fprintf(w, "Email:\t%s\n", view.Email)
		fmt.Fprintf(w, "Role:\t%s\n", view.Role)
		fmt.Fprintf(w, "Store:\t%s\n", view.Store)
	})
}
