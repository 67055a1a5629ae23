package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/artpar/rentdesk/domain/review"
	"github.com/spf13/cobra"
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Read and moderate reviews",
	Long: `Read, write and moderate vehicle reviews.

Examples:
  rentdesk reviews list
  rentdesk reviews vehicle 42
  rentdesk reviews create --vehicle 42 --booking 7 --rating 5 --comment "Spotless"
  rentdesk reviews hide 3`,
}

var reviewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all reviews (admin)",
	RunE:  runReviewsList,
}

var reviewsVisibleCmd = &cobra.Command{
	Use:   "visible",
	Short: "List published reviews",
	RunE:  runReviewsVisible,
}

var reviewsVehicleCmd = &cobra.Command{
	Use:   "vehicle <vehicle-id>",
	Short: "List reviews of one vehicle",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewsVehicle,
}

var reviewsMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List reviews written by the signed-in user",
	RunE:  runReviewsMine,
}

var reviewsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Write a review",
	RunE:  runReviewsCreate,
}

var reviewsShowCmd = &cobra.Command{
	Use:   "show <review-id>",
	Short: "Publish a review",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setReviewVisibility(cmd, args[0], true) },
}

var reviewsHideCmd = &cobra.Command{
	Use:   "hide <review-id>",
	Short: "Unpublish a review",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setReviewVisibility(cmd, args[0], false) },
}

var reviewsDeleteCmd = &cobra.Command{
	Use:   "delete <review-id>",
	Short: "Delete a review",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewsDelete,
}

var (
	reviewVehicle int
	reviewBooking int
	reviewRating  int
	reviewComment string
)

func init() {
	rootCmd.AddCommand(reviewsCmd)

	reviewsCmd.AddCommand(reviewsListCmd)
	reviewsCmd.AddCommand(reviewsVisibleCmd)
	reviewsCmd.AddCommand(reviewsVehicleCmd)
	reviewsCmd.AddCommand(reviewsMineCmd)
	reviewsCmd.AddCommand(reviewsCreateCmd)
	reviewsCmd.AddCommand(reviewsShowCmd)
	reviewsCmd.AddCommand(reviewsHideCmd)
	reviewsCmd.AddCommand(reviewsDeleteCmd)

	reviewsCreateCmd.Flags().IntVar(&reviewVehicle, "vehicle", 0, "vehicle id (required)")
	reviewsCreateCmd.Flags().IntVar(&reviewBooking, "booking", 0, "booking id")
	reviewsCreateCmd.Flags().IntVar(&reviewRating, "rating", 0, "rating from 1 to 5 (required)")
	reviewsCreateCmd.Flags().StringVar(&reviewComment, "comment", "", "review text")
	reviewsCreateCmd.MarkFlagRequired("vehicle")
	reviewsCreateCmd.MarkFlagRequired("rating")
}

func runReviewsList(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	reviews, err := app.API.GetAllReviews(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list reviews: %w", err)
	}
	return printReviews(reviews)
}

func runReviewsVisible(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	reviews, err := app.API.GetVisibleReviews(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list reviews: %w", err)
	}
	return printReviews(reviews)
}

func runReviewsVehicle(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	reviews, err := app.API.GetReviewsByVehicle(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to list reviews: %w", err)
	}
	if tableOutput() && len(reviews) > 0 {
		fmt.Printf("Average rating: %.1f (%d reviews)\n\n", review.AverageRating(reviews), len(reviews))
	}
	return printReviews(reviews)
}

func runReviewsMine(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	userID := app.API.Session().UserID
	if userID == "" {
		return errNotSignedIn
	}
	reviews, err := app.API.GetUserReviews(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("failed to list reviews: %w", err)
	}
	return printReviews(reviews)
}

func printReviews(reviews []review.Review) error {
	if len(reviews) == 0 && tableOutput() {
		fmt.Println("No reviews found.")
		return nil
	}
	return render(reviews, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tVEHICLE\tUSER\tRATING\tVISIBLE\tCOMMENT")
		fmt.Fprintln(w, "--\t-------\t----\t------\t-------\t-------")
		for _, r := range reviews {
			fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s\t%s\n",
				r.ReviewID, r.VehicleID, r.UserID, r.Rating, yesNo(r.IsVisible), truncate(r.Comment, 50))
		}
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func runReviewsCreate(cmd *cobra.Command, args []string) error {
	in := review.Input{
		VehicleID: reviewVehicle,
		BookingID: reviewBooking,
		Rating:    reviewRating,
		Comment:   reviewComment,
	}
	if err := in.Validate(); err != nil {
		return err
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	in.UserID = app.API.Session().UserID
	if in.UserID == "" {
		return errNotSignedIn
	}
	r, err := app.API.CreateReview(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return printReviews([]review.Review{r})
}

func setReviewVisibility(cmd *cobra.Command, arg string, visible bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	r, err := app.API.UpdateReviewVisibility(cmd.Context(), review.Visibility{ReviewID: id, IsVisible: visible})
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	return printReviews([]review.Review{r})
}

func runReviewsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.API.DeleteReview(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}
