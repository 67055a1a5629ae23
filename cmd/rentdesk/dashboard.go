package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/artpar/rentdesk/domain/dashboard"
	"github.com/artpar/rentdesk/domain/querystate"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the customer or admin dashboard",
}

var dashboardUserCmd = &cobra.Command{
	Use:   "user",
	Short: "Show the signed-in customer's dashboard",
	RunE:  runDashboardUser,
}

var dashboardAdminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Show the admin dashboard",
	RunE:  runDashboardAdmin,
}

var revenuePeriod string

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.AddCommand(dashboardUserCmd)
	dashboardCmd.AddCommand(dashboardAdminCmd)

	dashboardAdminCmd.Flags().StringVar(&revenuePeriod, "period", "month", "revenue bucket: day, week or month")
}

func runDashboardUser(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	d, status := app.API.UserDashboard(cmd.Context())
	if status == querystate.Idle {
		return errNotSignedIn
	}
	warnFallbacks(d.Errors)
	return printUserDashboard(d)
}

func printUserDashboard(d dashboard.UserDashboard) error {
	return render(d, func(w *tabwriter.Writer) {
		s := d.Stats
		fmt.Fprintf(w, "Bookings:\t%d (%d active)\n", s.TotalBookings, s.ActiveBookings)
		fmt.Fprintf(w, "Total spent:\t%.2f\n", s.TotalSpent)
		fmt.Fprintf(w, "Loyalty points:\t%d\n", s.LoyaltyPoints)
		fmt.Fprintf(w, "Reviews written:\t%d\n", s.ReviewsWritten)

		fmt.Fprintln(w, "\nUPCOMING\t\t")
		if len(d.Upcoming) == 0 {
			fmt.Fprintln(w, "  none\t\t")
		}
		for _, b := range d.Upcoming {
			fmt.Fprintf(w, "  #%d\t%s\t%s\n", b.BookingID, bookingVehicleLabel(b), formatTime(b.PickupDate))
		}

		fmt.Fprintln(w, "\nRECENT ACTIVITY\t\t")
		for _, a := range d.Activity {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", formatTime(a.At), a.Type, a.Description)
		}

		fmt.Fprintln(w, "\nRECOMMENDED\t\t")
		for _, r := range d.Recommendations {
			fmt.Fprintf(w, "  #%d\t%s %s\t%.2f/day\n", r.VehicleID, r.Make, r.Model, r.DailyRate)
		}
	})
}

func runDashboardAdmin(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	d, _ := app.API.AdminDashboard(cmd.Context(), dashboard.RevenueSearch{Period: revenuePeriod})
	warnFallbacks(d.Errors)
	return printAdminDashboard(d)
}

func printAdminDashboard(d dashboard.AdminDashboard) error {
	return render(d, func(w *tabwriter.Writer) {
		s := d.Stats
		fmt.Fprintf(w, "Vehicles:\t%d (%d available)\n", s.TotalVehicles, s.AvailableVehicles)
		fmt.Fprintf(w, "Active bookings:\t%d\n", s.ActiveBookings)
		fmt.Fprintf(w, "Users:\t%d\n", s.TotalUsers)
		fmt.Fprintf(w, "Monthly revenue:\t%.2f\n", s.MonthlyRevenue)
		fmt.Fprintf(w, "Pending reviews:\t%d\n", s.PendingReviews)

		fmt.Fprintln(w, "\nREVENUE\t\t")
		for _, p := range d.Revenue {
			fmt.Fprintf(w, "  %s\t%.2f\t\n", p.Period, p.Amount)
		}

		fmt.Fprintln(w, "\nRECENT BOOKINGS\t\t")
		for _, b := range d.RecentBookings {
			fmt.Fprintf(w, "  #%d\t%s\t%s\n", b.BookingID, bookingVehicleLabel(b), b.Status)
		}
	})
}

// warnFallbacks reports dashboard fields that fell back to defaults.
func warnFallbacks(errs map[string]error) {
	failed := dashboard.FailedFields(errs)
	if len(failed) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "%s unavailable: %s\n", crossMark, strings.Join(failed, ", "))
	for _, f := range failed {
		fmt.Fprintf(os.Stderr, "    %s: %v\n", f, errs[f])
	}
}
