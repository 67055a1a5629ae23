package app

import (
	"context"
	"net/http"

	"github.com/artpar/rentdesk/core/querycache"
	"github.com/artpar/rentdesk/domain/envelope"
	"github.com/artpar/rentdesk/domain/tag"
	"github.com/artpar/rentdesk/domain/user"
)

// AdminUserUpdate is the argument of UpdateAdminUser.
type AdminUserUpdate struct {
	UserID string
	Input  user.Input
}

// User counts appear on the admin dashboard.
var userMutationTypes = []tag.Type{tag.AdminUser, tag.AdminDashboard}

func invalidateAdminUser(id string) tag.Set {
	tags := tag.Set{tag.List(tag.AdminUser), tag.List(tag.AdminDashboard)}
	if id != "" {
		tags = append(tags, tag.ID(tag.AdminUser, id))
	}
	return tags
}

var (
	GetAdminUsersQuery = querycache.QueryDef[struct{}, []user.User]{
		Name:   "GetAdminUsers",
		Domain: DomainAdmin,
		Path:   "/admin/users",
		URL:    fixed("/admin/users"),
		Shape:  envelope.ShapeList,
		Provides: func(_ struct{}, us []user.User) tag.Set {
			return tag.ListAndIDs(tag.AdminUser, user.IDs(us))
		},
		Types: []tag.Type{tag.AdminUser},
	}

	GetAdminUserByIDQuery = querycache.QueryDef[string, user.User]{
		Name:   "GetAdminUserByID",
		Domain: DomainAdmin,
		Path:   "/admin/users/{id}",
		URL:    func(id string) (string, error) { return stringPath("/admin/users", id, "") },
		Shape:  envelope.ShapeObject,
		Provides: func(id string, _ user.User) tag.Set {
			return tag.Set{tag.ID(tag.AdminUser, id)}
		},
		Types: []tag.Type{tag.AdminUser},
	}

	CreateAdminUserMutation = querycache.MutationDef[user.Input, user.User]{
		Name:   "CreateAdminUser",
		Domain: DomainAdmin,
		Method: http.MethodPost,
		Path:   "/admin/users",
		URL:    func(user.Input) (string, error) { return "/admin/users", nil },
		Body:   func(in user.Input) any { return in },
		Shape:  envelope.ShapeObject,
		Invalidates: func(user.Input, user.User) tag.Set {
			return invalidateAdminUser("")
		},
		Types:   userMutationTypes,
		Affects: userMutationTypes,
	}

	UpdateAdminUserMutation = querycache.MutationDef[AdminUserUpdate, user.User]{
		Name:   "UpdateAdminUser",
		Domain: DomainAdmin,
		Method: http.MethodPut,
		Path:   "/admin/users/{id}",
		URL:    func(u AdminUserUpdate) (string, error) { return stringPath("/admin/users", u.UserID, "") },
		Body:   func(u AdminUserUpdate) any { return u.Input },
		Shape:  envelope.ShapeObject,
		Invalidates: func(u AdminUserUpdate, _ user.User) tag.Set {
			return invalidateAdminUser(u.UserID)
		},
		Types:   userMutationTypes,
		Affects: userMutationTypes,
	}

	DeactivateAdminUserMutation = querycache.MutationDef[string, user.User]{
		Name:   "DeactivateAdminUser",
		Domain: DomainAdmin,
		Method: http.MethodPatch,
		Path:   "/admin/users/{id}/deactivate",
		URL:    func(id string) (string, error) { return stringPath("/admin/users", id, "/deactivate") },
		Shape:  envelope.ShapeObject,
		Invalidates: func(id string, _ user.User) tag.Set {
			return invalidateAdminUser(id)
		},
		Types:   userMutationTypes,
		Affects: userMutationTypes,
	}
)

func userDefinitions() []Definition {
	return []Definition{
		GetAdminUsersQuery,
		GetAdminUserByIDQuery,
		CreateAdminUserMutation,
		UpdateAdminUserMutation,
		DeactivateAdminUserMutation,
	}
}

func (a *API) GetAdminUsers(ctx context.Context) ([]user.User, error) {
	return Query(ctx, a, GetAdminUsersQuery, struct{}{})
}

func (a *API) GetAdminUserByID(ctx context.Context, id string) (user.User, error) {
	return Query(ctx, a, GetAdminUserByIDQuery, id)
}

func (a *API) CreateAdminUser(ctx context.Context, in user.Input) (user.User, error) {
	return Mutate(ctx, a, CreateAdminUserMutation, in)
}

func (a *API) UpdateAdminUser(ctx context.Context, id string, in user.Input) (user.User, error) {
	return Mutate(ctx, a, UpdateAdminUserMutation, AdminUserUpdate{UserID: id, Input: in})
}

func (a *API) DeactivateAdminUser(ctx context.Context, id string) (user.User, error) {
	return Mutate(ctx, a, DeactivateAdminUserMutation, id)
}
