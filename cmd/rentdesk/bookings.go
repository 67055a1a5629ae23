package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/artpar/rentdesk/domain/booking"
	"github.com/spf13/cobra"
)

var bookingsCmd = &cobra.Command{
	Use:   "bookings",
	Short: "Manage bookings",
	Long: `List, create and cancel bookings.

Examples:
  rentdesk bookings list --status Active
  rentdesk bookings mine
  rentdesk bookings create --vehicle 42 --from 2026-11-01 --to 2026-11-05
  rentdesk bookings cancel 7 --reason "plans changed"`,
}

var bookingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all bookings (admin)",
	RunE:  runBookingsList,
}

var bookingsMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List bookings of the signed-in user",
	RunE:  runBookingsMine,
}

var bookingsGetCmd = &cobra.Command{
	Use:   "get <booking-id>",
	Short: "Show one booking",
	Args:  cobra.ExactArgs(1),
	RunE:  runBookingsGet,
}

var bookingsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Book a vehicle",
	RunE:  runBookingsCreate,
}

var bookingsStatusCmd = &cobra.Command{
	Use:   "status <booking-id> <Pending|Confirmed|Active|Completed|Cancelled>",
	Short: "Change a booking's status (admin)",
	Args:  cobra.ExactArgs(2),
	RunE:  runBookingsStatus,
}

var bookingsCancelCmd = &cobra.Command{
	Use:   "cancel <booking-id>",
	Short: "Cancel a booking",
	Args:  cobra.ExactArgs(1),
	RunE:  runBookingsCancel,
}

var (
	bookingStatus    string
	bookingUser      string
	bookingVehicle   int
	bookingFrom      string
	bookingTo        string
	bookingPickupLoc string
	bookingReason    string
)

func init() {
	rootCmd.AddCommand(bookingsCmd)

	bookingsCmd.AddCommand(bookingsListCmd)
	bookingsCmd.AddCommand(bookingsMineCmd)
	bookingsCmd.AddCommand(bookingsGetCmd)
	bookingsCmd.AddCommand(bookingsCreateCmd)
	bookingsCmd.AddCommand(bookingsStatusCmd)
	bookingsCmd.AddCommand(bookingsCancelCmd)

	bookingsListCmd.Flags().StringVar(&bookingStatus, "status", "", "filter by status")
	bookingsListCmd.Flags().StringVar(&bookingUser, "user", "", "filter by user id")
	bookingsListCmd.Flags().IntVar(&bookingVehicle, "vehicle", 0, "filter by vehicle id")

	bookingsCreateCmd.Flags().IntVar(&bookingVehicle, "vehicle", 0, "vehicle id (required)")
	bookingsCreateCmd.Flags().StringVar(&bookingFrom, "from", "", "pickup date (required)")
	bookingsCreateCmd.Flags().StringVar(&bookingTo, "to", "", "return date (required)")
	bookingsCreateCmd.Flags().StringVar(&bookingPickupLoc, "location", "", "pickup location")
	bookingsCreateCmd.MarkFlagRequired("vehicle")
	bookingsCreateCmd.MarkFlagRequired("from")
	bookingsCreateCmd.MarkFlagRequired("to")

	bookingsCancelCmd.Flags().StringVar(&bookingReason, "reason", "", "cancellation reason")
}

func runBookingsList(cmd *cobra.Command, args []string) error {
	s := booking.Search{Status: booking.Status(bookingStatus), UserID: bookingUser}
	if bookingVehicle > 0 {
		s.VehicleID = &bookingVehicle
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	bookings, err := app.API.GetBookings(cmd.Context(), s)
	if err != nil {
		return fmt.Errorf("failed to list bookings: %w", err)
	}
	return printBookings(bookings)
}

func runBookingsMine(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	userID := app.API.Session().UserID
	if userID == "" {
		return errNotSignedIn
	}
	bookings, err := app.API.GetUserBookings(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("failed to list bookings: %w", err)
	}
	return printBookings(bookings)
}

func printBookings(bookings []booking.Booking) error {
	if len(bookings) == 0 && tableOutput() {
		fmt.Println("No bookings found.")
		return nil
	}
	return render(bookings, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tUSER\tVEHICLE\tPICKUP\tRETURN\tAMOUNT\tSTATUS")
		fmt.Fprintln(w, "--\t----\t-------\t------\t------\t------\t------")
		for _, b := range bookings {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.2f\t%s\n",
				b.BookingID, b.UserID, bookingVehicleLabel(b),
				formatTime(b.PickupDate), formatTime(b.ReturnDate), b.TotalAmount, b.Status)
		}
	})
}

func bookingVehicleLabel(b booking.Booking) string {
	if b.Vehicle != nil {
		return fmt.Sprintf("%s %s", b.Vehicle.Make, b.Vehicle.Model)
	}
	return fmt.Sprintf("#%d", b.VehicleID)
}

func runBookingsGet(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	b, err := app.API.GetBookingByID(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get booking: %w", err)
	}
	return printBookings([]booking.Booking{b})
}

func runBookingsCreate(cmd *cobra.Command, args []string) error {
	from, err := parseDate(bookingFrom)
	if err != nil {
		return err
	}
	to, err := parseDate(bookingTo)
	if err != nil {
		return err
	}
	if !to.After(*from) {
		return fmt.Errorf("--to must be after --from")
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	userID := app.API.Session().UserID
	if userID == "" {
		return errNotSignedIn
	}
	b, err := app.API.CreateBooking(cmd.Context(), booking.Input{
		UserID:         userID,
		VehicleID:      bookingVehicle,
		PickupDate:     *from,
		ReturnDate:     *to,
		PickupLocation: bookingPickupLoc,
	})
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return printBookings([]booking.Booking{b})
}

func runBookingsStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	b, err := app.API.UpdateBookingStatus(cmd.Context(), booking.StatusUpdate{BookingID: id, Status: booking.Status(args[1])})
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return printBookings([]booking.Booking{b})
}

func runBookingsCancel(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	b, err := app.API.CancelBooking(cmd.Context(), booking.Cancellation{BookingID: id, Reason: bookingReason})
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	return printBookings([]booking.Booking{b})
}
