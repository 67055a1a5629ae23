package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/artpar/rentdesk/domain/vehicle"
	"github.com/spf13/cobra"
)

var vehiclesCmd = &cobra.Command{
	Use:   "vehicles",
	Short: "Browse and manage the fleet",
	Long: `Browse and manage rental vehicles.

Examples:
  rentdesk vehicles list --category SUV --status Available
  rentdesk vehicles available --from 2026-11-01 --to 2026-11-05
  rentdesk vehicles get 42
  rentdesk vehicles status 42 Maintenance
  rentdesk vehicles delete 42`,
}

var vehiclesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List vehicles",
	RunE:  runVehiclesList,
}

var vehiclesAvailableCmd = &cobra.Command{
	Use:   "available",
	Short: "List vehicles available in a date range",
	RunE:  runVehiclesAvailable,
}

var vehiclesGetCmd = &cobra.Command{
	Use:   "get <vehicle-id>",
	Short: "Show one vehicle",
	Args:  cobra.ExactArgs(1),
	RunE:  runVehiclesGet,
}

var vehiclesStatusCmd = &cobra.Command{
	Use:   "status <vehicle-id> <Available|Rented|Maintenance|Retired>",
	Short: "Change a vehicle's status",
	Args:  cobra.ExactArgs(2),
	RunE:  runVehiclesStatus,
}

var vehiclesDeleteCmd = &cobra.Command{
	Use:   "delete <vehicle-id>",
	Short: "Delete a vehicle",
	Args:  cobra.ExactArgs(1),
	RunE:  runVehiclesDelete,
}

var (
	vehicleCategory string
	vehicleStatus   string
	vehicleLocation string
	vehicleQuery    string
	vehicleFrom     string
	vehicleTo       string
	vehicleSeats    int
)

func init() {
	rootCmd.AddCommand(vehiclesCmd)

	vehiclesCmd.AddCommand(vehiclesListCmd)
	vehiclesCmd.AddCommand(vehiclesAvailableCmd)
	vehiclesCmd.AddCommand(vehiclesGetCmd)
	vehiclesCmd.AddCommand(vehiclesStatusCmd)
	vehiclesCmd.AddCommand(vehiclesDeleteCmd)

	for _, c := range []*cobra.Command{vehiclesListCmd, vehiclesAvailableCmd} {
		c.Flags().StringVar(&vehicleCategory, "category", "", "filter by category")
		c.Flags().StringVar(&vehicleLocation, "location", "", "filter by location")
		c.Flags().IntVar(&vehicleSeats, "seats", 0, "minimum number of seats")
	}
	vehiclesListCmd.Flags().StringVar(&vehicleStatus, "status", "", "filter by status")
	vehiclesListCmd.Flags().StringVar(&vehicleQuery, "search", "", "free text search (uses the search endpoint)")
	vehiclesAvailableCmd.Flags().StringVar(&vehicleFrom, "from", "", "pickup date (YYYY-MM-DD)")
	vehiclesAvailableCmd.Flags().StringVar(&vehicleTo, "to", "", "return date (YYYY-MM-DD)")
}

func vehicleSearch() (vehicle.Search, error) {
	s := vehicle.Search{
		Category: vehicleCategory,
		Status:   vehicle.Status(vehicleStatus),
		Location: vehicleLocation,
		Query:    vehicleQuery,
	}
	if vehicleStatus != "" && !s.Status.Valid() {
		return s, fmt.Errorf("unknown vehicle status %q", vehicleStatus)
	}
	if vehicleSeats > 0 {
		s.Seats = &vehicleSeats
	}
	var err error
	if s.StartDate, err = parseDate(vehicleFrom); err != nil {
		return s, err
	}
	if s.EndDate, err = parseDate(vehicleTo); err != nil {
		return s, err
	}
	return s, nil
}

func runVehiclesList(cmd *cobra.Command, args []string) error {
	s, err := vehicleSearch()
	if err != nil {
		return err
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	var vehicles []vehicle.Vehicle
	if s.Query != "" {
		vehicles, err = app.API.SearchVehicles(cmd.Context(), s)
	} else {
		vehicles, err = app.API.GetVehicles(cmd.Context(), s)
	}
	if err != nil {
		return fmt.Errorf("failed to list vehicles: %w", err)
	}
	return printVehicles(vehicles)
}

func runVehiclesAvailable(cmd *cobra.Command, args []string) error {
	s, err := vehicleSearch()
	if err != nil {
		return err
	}
	if s.StartDate == nil || s.EndDate == nil {
		return fmt.Errorf("--from and --to are required")
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	vehicles, err := app.API.GetAvailableVehicles(cmd.Context(), s)
	if err != nil {
		return fmt.Errorf("failed to list available vehicles: %w", err)
	}
	return printVehicles(vehicles)
}

func printVehicles(vehicles []vehicle.Vehicle) error {
	if len(vehicles) == 0 && tableOutput() {
		fmt.Println("No vehicles found.")
		return nil
	}
	return render(vehicles, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tVEHICLE\tYEAR\tCATEGORY\tRATE\tSTATUS\tLOCATION")
		fmt.Fprintln(w, "--\t-------\t----\t--------\t----\t------\t--------")
		for _, v := range vehicles {
			fmt.Fprintf(w, "%d\t%s %s\t%d\t%s\t%.2f\t%s\t%s\n",
				v.VehicleID, v.Make, v.Model, v.Year, v.Category, v.DailyRate, v.Status, v.Location)
		}
	})
}

func runVehiclesGet(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	v, err := app.API.GetVehicleByID(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get vehicle: %w", err)
	}
	return render(v, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "ID:\t%d\n", v.VehicleID)
		fmt.Fprintf(w, "Vehicle:\t%s %s (%d)\n", v.Make, v.Model, v.Year)
		fmt.Fprintf(w, "Plate:\t%s\n", v.LicensePlate)
		fmt.Fprintf(w, "Category:\t%s\n", v.Category)
		fmt.Fprintf(w, "Daily rate:\t%.2f\n", v.DailyRate)
		fmt.Fprintf(w, "Status:\t%s\n", v.Status)
		fmt.Fprintf(w, "Location:\t%s\n", v.Location)
		fmt.Fprintf(w, "Seats:\t%d\n", v.Seats)
		fmt.Fprintf(w, "Fuel:\t%s\n", v.FuelType)
		fmt.Fprintf(w, "Transmission:\t%s\n", v.Transmission)
	})
}

func runVehiclesStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	status := vehicle.Status(args[1])
	if !status.Valid() {
		return fmt.Errorf("unknown vehicle status %q", args[1])
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	v, err := app.API.UpdateVehicleStatus(cmd.Context(), vehicle.StatusUpdate{VehicleID: id, Status: status})
	if err != nil {
		return fmt.Errorf("failed to update vehicle status: %w", err)
	}
	return printVehicles([]vehicle.Vehicle{v})
}

func runVehiclesDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.API.DeleteVehicle(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	return nil
}
