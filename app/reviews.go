package app

import (
	"context"
	"net/http"

	"github.com/artpar/rentdesk/core/querycache"
	"github.com/artpar/rentdesk/domain/envelope"
	"github.com/artpar/rentdesk/domain/review"
	"github.com/artpar/rentdesk/domain/tag"
)

// Reviews feed both dashboards (reviews written, pending moderation).
var reviewMutationTypes = []tag.Type{tag.Review, tag.UserDashboard, tag.AdminDashboard}

func invalidateReview(id int) tag.Set {
	tags := tag.Set{
		tag.List(tag.Review),
		tag.List(tag.UserDashboard),
		tag.List(tag.AdminDashboard),
	}
	if id > 0 {
		tags = append(tags, tag.ID(tag.Review, id))
	}
	return tags
}

func provideReviews[A any](_ A, rs []review.Review) tag.Set {
	return tag.ListAndIDs(tag.Review, review.IDs(rs))
}

var (
	GetAllReviewsQuery = querycache.QueryDef[struct{}, []review.Review]{
		Name:     "GetAllReviews",
		Domain:   DomainReviews,
		Path:     "/reviews",
		URL:      fixed("/reviews"),
		Shape:    envelope.ShapeList,
		Provides: provideReviews[struct{}],
		Types:    []tag.Type{tag.Review},
	}

	GetVisibleReviewsQuery = querycache.QueryDef[struct{}, []review.Review]{
		Name:     "GetVisibleReviews",
		Domain:   DomainReviews,
		Path:     "/reviews/visible",
		URL:      fixed("/reviews/visible"),
		Shape:    envelope.ShapeList,
		Provides: provideReviews[struct{}],
		Types:    []tag.Type{tag.Review},
	}

	GetReviewsByVehicleQuery = querycache.QueryDef[int, []review.Review]{
		Name:     "GetReviewsByVehicle",
		Domain:   DomainReviews,
		Path:     "/reviews/vehicle/{vehicleID}",
		URL:      func(vehicleID int) (string, error) { return intPath("/reviews/vehicle", vehicleID, "") },
		Shape:    envelope.ShapeList,
		Provides: provideReviews[int],
		Types:    []tag.Type{tag.Review},
	}

	GetUserReviewsQuery = querycache.QueryDef[string, []review.Review]{
		Name:     "GetUserReviews",
		Domain:   DomainReviews,
		Path:     "/reviews/user/{userID}",
		URL:      func(userID string) (string, error) { return stringPath("/reviews/user", userID, "") },
		Shape:    envelope.ShapeList,
		Provides: provideReviews[string],
		Types:    []tag.Type{tag.Review},
	}

	CreateReviewMutation = querycache.MutationDef[review.Input, review.Review]{
		Name:   "CreateReview",
		Domain: DomainReviews,
		Method: http.MethodPost,
		Path:   "/reviews",
		URL:    func(review.Input) (string, error) { return "/reviews", nil },
		Body:   func(in review.Input) any { return in },
		Shape:  envelope.ShapeObject,
		Invalidates: func(review.Input, review.Review) tag.Set {
			return invalidateReview(0)
		},
		Types:   reviewMutationTypes,
		Affects: reviewMutationTypes,
	}

	UpdateReviewVisibilityMutation = querycache.MutationDef[review.Visibility, review.Review]{
		Name:   "UpdateReviewVisibility",
		Domain: DomainReviews,
		Method: http.MethodPatch,
		Path:   "/reviews/{id}/visibility",
		URL: func(v review.Visibility) (string, error) {
			return intPath("/reviews", v.ReviewID, "/visibility")
		},
		Body: func(v review.Visibility) any {
			return map[string]bool{"is_visible": v.IsVisible}
		},
		Shape: envelope.ShapeObject,
		Invalidates: func(v review.Visibility, _ review.Review) tag.Set {
			return invalidateReview(v.ReviewID)
		},
		Types:   reviewMutationTypes,
		Affects: reviewMutationTypes,
	}

	DeleteReviewMutation = querycache.MutationDef[int, struct{}]{
		Name:   "DeleteReview",
		Domain: DomainReviews,
		Method: http.MethodDelete,
		Path:   "/reviews/{id}",
		URL:    func(id int) (string, error) { return intPath("/reviews", id, "") },
		Shape:  envelope.ShapeObject,
		Invalidates: func(id int, _ struct{}) tag.Set {
			return invalidateReview(id)
		},
		Types:   reviewMutationTypes,
		Affects: reviewMutationTypes,
	}
)

func reviewDefinitions() []Definition {
	return []Definition{
		GetAllReviewsQuery,
		GetVisibleReviewsQuery,
		GetReviewsByVehicleQuery,
		GetUserReviewsQuery,
		CreateReviewMutation,
		UpdateReviewVisibilityMutation,
		DeleteReviewMutation,
	}
}

// GetAllReviews lists every review, including hidden ones (moderation view).
func (a *API) GetAllReviews(ctx context.Context) ([]review.Review, error) {
	return Query(ctx, a, GetAllReviewsQuery, struct{}{})
}

// GetVisibleReviews lists reviews shown publicly.
func (a *API) GetVisibleReviews(ctx context.Context) ([]review.Review, error) {
	return Query(ctx, a, GetVisibleReviewsQuery, struct{}{})
}

func (a *API) GetReviewsByVehicle(ctx context.Context, vehicleID int) ([]review.Review, error) {
	return Query(ctx, a, GetReviewsByVehicleQuery, vehicleID)
}

func (a *API) GetUserReviews(ctx context.Context, userID string) ([]review.Review, error) {
	return Query(ctx, a, GetUserReviewsQuery, userID)
}

// CreateReview submits a review. Rating bounds are the caller's concern
// (see review.Input.Validate); the backend has the final say.
func (a *API) CreateReview(ctx context.Context, in review.Input) (review.Review, error) {
	return Mutate(ctx, a, CreateReviewMutation, in)
}

func (a *API) UpdateReviewVisibility(ctx context.Context, v review.Visibility) (review.Review, error) {
	return Mutate(ctx, a, UpdateReviewVisibilityMutation, v)
}

func (a *API) DeleteReview(ctx context.Context, id int) error {
	_, err := Mutate(ctx, a, DeleteReviewMutation, id)
	return err
}
