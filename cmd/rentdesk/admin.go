package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/artpar/rentdesk/domain/payment"
	"github.com/artpar/rentdesk/domain/settings"
	"github.com/artpar/rentdesk/domain/user"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative operations",
	Long: `Administrative operations: staff accounts, platform settings and payments.

Examples:
  rentdesk admin users list
  rentdesk admin users create --email ops@example.com --first Ada --last Byron
  rentdesk admin settings
  rentdesk admin security --history
  rentdesk admin payments list --status Completed
  rentdesk admin payments refund 12 --reason "vehicle unavailable"`,
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage admin users",
}

var adminUsersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List admin users",
	RunE:  runAdminUsersList,
}

var adminUsersGetCmd = &cobra.Command{
	Use:   "get <user-id>",
	Short: "Show one admin user",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminUsersGet,
}

var adminUsersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin user",
	RunE:  runAdminUsersCreate,
}

var adminUsersDeactivateCmd = &cobra.Command{
	Use:   "deactivate <user-id>",
	Short: "Deactivate an admin user",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminUsersDeactivate,
}

var adminSettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show general settings",
	RunE:  runAdminSettings,
}

var adminSecurityCmd = &cobra.Command{
	Use:   "security",
	Short: "Show security settings",
	RunE:  runAdminSecurity,
}

var adminPaymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "Inspect payments and refunds",
}

var adminPaymentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List payments",
	RunE:  runAdminPaymentsList,
}

var adminPaymentsMethodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List payment methods",
	RunE:  runAdminPaymentsMethods,
}

var adminPaymentsRefundCmd = &cobra.Command{
	Use:   "refund <payment-id>",
	Short: "Refund a payment",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminPaymentsRefund,
}

var (
	adminEmail     string
	adminFirstName string
	adminLastName  string
	adminRole      string
	adminPassword  string

	securityHistory bool
	historyLimit    int

	paymentStatus string
	refundAmount  float64
	refundReason  string
)

func init() {
	rootCmd.AddCommand(adminCmd)

	adminCmd.AddCommand(adminUsersCmd)
	adminCmd.AddCommand(adminSettingsCmd)
	adminCmd.AddCommand(adminSecurityCmd)
	adminCmd.AddCommand(adminPaymentsCmd)

	adminUsersCmd.AddCommand(adminUsersListCmd)
	adminUsersCmd.AddCommand(adminUsersGetCmd)
	adminUsersCmd.AddCommand(adminUsersCreateCmd)
	adminUsersCmd.AddCommand(adminUsersDeactivateCmd)

	adminPaymentsCmd.AddCommand(adminPaymentsListCmd)
	adminPaymentsCmd.AddCommand(adminPaymentsMethodsCmd)
	adminPaymentsCmd.AddCommand(adminPaymentsRefundCmd)

	adminUsersCreateCmd.Flags().StringVar(&adminEmail, "email", "", "email (required)")
	adminUsersCreateCmd.Flags().StringVar(&adminFirstName, "first", "", "first name")
	adminUsersCreateCmd.Flags().StringVar(&adminLastName, "last", "", "last name")
	adminUsersCreateCmd.Flags().StringVar(&adminRole, "role", string(user.RoleAdmin), "role: admin or superadmin")
	adminUsersCreateCmd.Flags().StringVar(&adminPassword, "password", "", "initial password (will prompt if not provided)")
	adminUsersCreateCmd.MarkFlagRequired("email")

	adminSecurityCmd.Flags().BoolVar(&securityHistory, "history", false, "include recent login attempts")
	adminSecurityCmd.Flags().IntVar(&historyLimit, "limit", 20, "login attempts to show")

	adminPaymentsListCmd.Flags().StringVar(&paymentStatus, "status", "", "filter by status")
	adminPaymentsRefundCmd.Flags().Float64Var(&refundAmount, "amount", 0, "amount to refund (default: full amount)")
	adminPaymentsRefundCmd.Flags().StringVar(&refundReason, "reason", "", "refund reason")
}

func runAdminUsersList(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	users, err := app.API.GetAdminUsers(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list admin users: %w", err)
	}
	return printUsers(users)
}

func printUsers(users []user.User) error {
	if len(users) == 0 && tableOutput() {
		fmt.Println("No admin users found.")
		return nil
	}
	return render(users, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tACTIVE\tLAST LOGIN")
		fmt.Fprintln(w, "--\t----\t-----\t----\t------\t----------")
		for _, u := range users {
			last := "-"
			if u.LastLogin != nil {
				last = formatTime(*u.LastLogin)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				u.UserID, u.FullName(), u.Email, u.Role, yesNo(u.IsActive), last)
		}
	})
}

func runAdminUsersGet(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	u, err := app.API.GetAdminUserByID(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get admin user: %w", err)
	}
	return printUsers([]user.User{u})
}

func runAdminUsersCreate(cmd *cobra.Command, args []string) error {
	role := user.Role(adminRole)
	if !role.IsAdmin() {
		return fmt.Errorf("role must be admin or superadmin, got %q", adminRole)
	}
	if !strings.Contains(adminEmail, "@") {
		return fmt.Errorf("invalid email %q", adminEmail)
	}

	password := adminPassword
	if password == "" {
		var err error
		if password, err = promptSecret("Password: "); err != nil {
			return err
		}
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	u, err := app.API.CreateAdminUser(cmd.Context(), user.Input{
		FirstName: adminFirstName,
		LastName:  adminLastName,
		Email:     adminEmail,
		Role:      role,
		Password:  password,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	return printUsers([]user.User{u})
}

func runAdminUsersDeactivate(cmd *cobra.Command, args []string) error {
	if !confirm(fmt.Sprintf("Deactivate admin user %s?", args[0])) {
		fmt.Println("Aborted.")
		return nil
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	u, err := app.API.DeactivateAdminUser(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to deactivate admin user: %w", err)
	}
	return printUsers([]user.User{u})
}

func runAdminSettings(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	g, err := app.API.GetSettings(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	return render(g, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Company:\t%s\n", g.CompanyName)
		fmt.Fprintf(w, "Support:\t%s %s\n", g.SupportEmail, g.SupportPhone)
		fmt.Fprintf(w, "Currency:\t%s\n", g.Currency)
		fmt.Fprintf(w, "Timezone:\t%s\n", g.Timezone)
		fmt.Fprintf(w, "Booking lead time:\t%dh\n", g.BookingLeadHours)
		fmt.Fprintf(w, "Free cancellation:\t%dh\n", g.CancellationHours)
		fmt.Fprintf(w, "Tax rate:\t%.2f%%\n", g.TaxRate)
		fmt.Fprintf(w, "Email on booking:\t%s\n", yesNo(g.Notifications.EmailOnBooking))
		fmt.Fprintf(w, "Email on cancellation:\t%s\n", yesNo(g.Notifications.EmailOnCancellation))
		fmt.Fprintf(w, "SMS reminders:\t%s\n", yesNo(g.Notifications.SMSReminders))
		fmt.Fprintf(w, "Admin daily digest:\t%s\n", yesNo(g.Notifications.AdminDailyDigest))
	})
}

type securityView struct {
	Settings settings.Security       `json:"settings"`
	History  []settings.LoginAttempt `json:"login_history,omitempty"`
}

func runAdminSecurity(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	var view securityView
	if view.Settings, err = app.API.GetSecuritySettings(cmd.Context()); err != nil {
		return fmt.Errorf("failed to load security settings: %w", err)
	}
	if securityHistory {
		view.History, err = app.API.GetLoginHistory(cmd.Context(), settings.HistorySearch{Limit: historyLimit})
		if err != nil {
			return fmt.Errorf("failed to load login history: %w", err)
		}
	}

	return render(view, func(w *tabwriter.Writer) {
		s := view.Settings
		fmt.Fprintf(w, "Two-factor required:\t%s\n", yesNo(s.TwoFactorRequired))
		fmt.Fprintf(w, "Session timeout:\t%d min\n", s.SessionTimeoutMinutes)
		fmt.Fprintf(w, "Password min length:\t%d\n", s.PasswordMinLength)
		fmt.Fprintf(w, "Max login attempts:\t%d\n", s.MaxLoginAttempts)
		fmt.Fprintf(w, "IP whitelist:\t%s\n", strings.Join(s.IPWhitelist, ", "))
		if len(view.History) > 0 {
			fmt.Fprintln(w, "\nWHEN\tEMAIL\tIP\tOK")
			for _, a := range view.History {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", formatTime(a.At), a.Email, a.IPAddress, yesNo(a.Success))
			}
		}
	})
}

func runAdminPaymentsList(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	payments, err := app.API.GetPayments(cmd.Context(), payment.Search{Status: payment.Status(paymentStatus)})
	if err != nil {
		return fmt.Errorf("failed to list payments: %w", err)
	}
	return printPayments(payments)
}

func printPayments(payments []payment.Payment) error {
	if len(payments) == 0 && tableOutput() {
		fmt.Println("No payments found.")
		return nil
	}
	return render(payments, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tBOOKING\tAMOUNT\tMETHOD\tSTATUS\tPAID")
		fmt.Fprintln(w, "--\t-------\t------\t------\t------\t----")
		for _, p := range payments {
			paid := "-"
			if p.PaidAt != nil {
				paid = formatTime(*p.PaidAt)
			}
			fmt.Fprintf(w, "%d\t%d\t%.2f %s\t%s\t%s\t%s\n",
				p.PaymentID, p.BookingID, p.Amount, p.Currency, p.Method, p.Status, paid)
		}
	})
}

func runAdminPaymentsMethods(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	methods, err := app.API.GetPaymentMethods(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list payment methods: %w", err)
	}
	return render(methods, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tTYPE\tLABEL\tENABLED")
		for _, m := range methods {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.MethodID, m.Type, m.Label, yesNo(m.Enabled))
		}
	})
}

func runAdminPaymentsRefund(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if refundAmount < 0 {
		return fmt.Errorf("--amount must not be negative")
	}
	if !confirm(fmt.Sprintf("Refund payment %d?", id)) {
		fmt.Println("Aborted.")
		return nil
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	p, err := app.API.RefundPayment(cmd.Context(), payment.Refund{PaymentID: id, Amount: refundAmount, Reason: refundReason})
	if err != nil {
		return fmt.Errorf("failed to refund payment: %w", err)
	}
	return printPayments([]payment.Payment{p})
}
