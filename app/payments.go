package app

import (
	"context"
	"net/http"

	"github.com/artpar/rentdesk/core/querycache"
	"github.com/artpar/rentdesk/domain/envelope"
	"github.com/artpar/rentdesk/domain/filter"
	"github.com/artpar/rentdesk/domain/payment"
	"github.com/artpar/rentdesk/domain/tag"
)

// A refund changes the payment, its booking and revenue.
var refundTypes = []tag.Type{tag.Payment, tag.Booking, tag.AdminDashboard}

var (
	GetPaymentsQuery = querycache.QueryDef[filter.Filter, []payment.Payment]{
		Name:   "GetPayments",
		Domain: DomainPayments,
		Path:   "/admin/payments",
		URL:    func(f filter.Filter) (string, error) { return f.AppendTo("/admin/payments"), nil },
		Shape:  envelope.ShapeList,
		Provides: func(_ filter.Filter, ps []payment.Payment) tag.Set {
			return tag.ListAndIDs(tag.Payment, payment.IDs(ps))
		},
		Types: []tag.Type{tag.Payment},
	}

	GetPaymentByIDQuery = querycache.QueryDef[int, payment.Payment]{
		Name:   "GetPaymentByID",
		Domain: DomainPayments,
		Path:   "/admin/payments/{id}",
		URL:    func(id int) (string, error) { return intPath("/admin/payments", id, "") },
		Shape:  envelope.ShapeObject,
		Provides: func(id int, _ payment.Payment) tag.Set {
			return tag.Set{tag.ID(tag.Payment, id)}
		},
		Types: []tag.Type{tag.Payment},
	}

	GetPaymentMethodsQuery = querycache.QueryDef[struct{}, []payment.Method]{
		Name:   "GetPaymentMethods",
		Domain: DomainPayments,
		Path:   "/admin/payments/methods",
		URL:    fixed("/admin/payments/methods"),
		Shape:  envelope.ShapeList,
		Provides: func(struct{}, []payment.Method) tag.Set {
			return tag.Set{tag.List(tag.PaymentMethod)}
		},
		Types: []tag.Type{tag.PaymentMethod},
	}

	RefundPaymentMutation = querycache.MutationDef[payment.Refund, payment.Payment]{
		Name:   "RefundPayment",
		Domain: DomainPayments,
		Method: http.MethodPost,
		Path:   "/admin/payments/{id}/refund",
		URL: func(r payment.Refund) (string, error) {
			return intPath("/admin/payments", r.PaymentID, "/refund")
		},
		Body:  func(r payment.Refund) any { return r },
		Shape: envelope.ShapeObject,
		Invalidates: func(r payment.Refund, p payment.Payment) tag.Set {
			tags := tag.Set{
				tag.List(tag.Payment),
				tag.ID(tag.Payment, r.PaymentID),
				tag.List(tag.Booking),
				tag.List(tag.AdminDashboard),
			}
			if p.BookingID > 0 {
				tags = append(tags, tag.ID(tag.Booking, p.BookingID))
			}
			return tags
		},
		Types:   refundTypes,
		Affects: refundTypes,
	}

	UpdatePaymentMethodMutation = querycache.MutationDef[payment.MethodUpdate, payment.Method]{
		Name:   "UpdatePaymentMethod",
		Domain: DomainPayments,
		Method: http.MethodPut,
		Path:   "/admin/payments/methods/{methodID}",
		URL: func(u payment.MethodUpdate) (string, error) {
			return stringPath("/admin/payments/methods", u.MethodID, "")
		},
		Body:  func(u payment.MethodUpdate) any { return u },
		Shape: envelope.ShapeObject,
		Invalidates: func(payment.MethodUpdate, payment.Method) tag.Set {
			return tag.Set{tag.List(tag.PaymentMethod)}
		},
		Types:   []tag.Type{tag.PaymentMethod},
		Affects: []tag.Type{tag.PaymentMethod},
	}
)

func paymentDefinitions() []Definition {
	return []Definition{
		GetPaymentsQuery,
		GetPaymentByIDQuery,
		GetPaymentMethodsQuery,
		RefundPaymentMutation,
		UpdatePaymentMethodMutation,
	}
}

func (a *API) GetPayments(ctx context.Context, s payment.Search) ([]payment.Payment, error) {
	return Query(ctx, a, GetPaymentsQuery, s.Filter())
}

func (a *API) GetPaymentByID(ctx context.Context, id int) (payment.Payment, error) {
	return Query(ctx, a, GetPaymentByIDQuery, id)
}

func (a *API) GetPaymentMethods(ctx context.Context) ([]payment.Method, error) {
	return Query(ctx, a, GetPaymentMethodsQuery, struct{}{})
}

// RefundPayment refunds a payment; a zero amount refunds it in full.
func (a *API) RefundPayment(ctx context.Context, r payment.Refund) (payment.Payment, error) {
	return Mutate(ctx, a, RefundPaymentMutation, r)
}

func (a *API) UpdatePaymentMethod(ctx context.Context, u payment.MethodUpdate) (payment.Method, error) {
	return Mutate(ctx, a, UpdatePaymentMethodMutation, u)
}
