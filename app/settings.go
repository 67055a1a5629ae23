package app

import (
	"context"
	"net/http"

	"github.com/artpar/rentdesk/core/querycache"
	"github.com/artpar/rentdesk/domain/envelope"
	"github.com/artpar/rentdesk/domain/filter"
	"github.com/artpar/rentdesk/domain/settings"
	"github.com/artpar/rentdesk/domain/tag"
)

var (
	GetSettingsQuery = querycache.QueryDef[struct{}, settings.General]{
		Name:   "GetSettings",
		Domain: DomainAdmin,
		Path:   "/admin/settings",
		URL:    fixed("/admin/settings"),
		Shape:  envelope.ShapeObject,
		Provides: func(struct{}, settings.General) tag.Set {
			return tag.Set{tag.List(tag.Settings)}
		},
		Types: []tag.Type{tag.Settings},
	}

	UpdateSettingsMutation = querycache.MutationDef[settings.General, settings.General]{
		Name:   "UpdateSettings",
		Domain: DomainAdmin,
		Method: http.MethodPut,
		Path:   "/admin/settings",
		URL:    func(settings.General) (string, error) { return "/admin/settings", nil },
		Body:   func(g settings.General) any { return g },
		Shape:  envelope.ShapeObject,
		Invalidates: func(settings.General, settings.General) tag.Set {
			return tag.Set{tag.List(tag.Settings)}
		},
		Types:   []tag.Type{tag.Settings},
		Affects: []tag.Type{tag.Settings},
	}

	GetSecuritySettingsQuery = querycache.QueryDef[struct{}, settings.Security]{
		Name:   "GetSecuritySettings",
		Domain: DomainAdmin,
		Path:   "/admin/security",
		URL:    fixed("/admin/security"),
		Shape:  envelope.ShapeObject,
		Provides: func(struct{}, settings.Security) tag.Set {
			return tag.Set{tag.List(tag.SecuritySettings)}
		},
		Types: []tag.Type{tag.SecuritySettings},
	}

	GetLoginHistoryQuery = querycache.QueryDef[filter.Filter, []settings.LoginAttempt]{
		Name:   "GetLoginHistory",
		Domain: DomainAdmin,
		Path:   "/admin/security/login-history",
		URL: func(f filter.Filter) (string, error) {
			return f.AppendTo("/admin/security/login-history"), nil
		},
		Shape: envelope.ShapeList,
		Provides: func(filter.Filter, []settings.LoginAttempt) tag.Set {
			return tag.Set{tag.List(tag.SecuritySettings)}
		},
		Types: []tag.Type{tag.SecuritySettings},
	}

	UpdateSecuritySettingsMutation = querycache.MutationDef[settings.Security, settings.Security]{
		Name:   "UpdateSecuritySettings",
		Domain: DomainAdmin,
		Method: http.MethodPut,
		Path:   "/admin/security",
		URL:    func(settings.Security) (string, error) { return "/admin/security", nil },
		Body:   func(s settings.Security) any { return s },
		Shape:  envelope.ShapeObject,
		Invalidates: func(settings.Security, settings.Security) tag.Set {
			return tag.Set{tag.List(tag.SecuritySettings)}
		},
		Types:   []tag.Type{tag.SecuritySettings},
		Affects: []tag.Type{tag.SecuritySettings},
	}
)

func settingsDefinitions() []Definition {
	return []Definition{
		GetSettingsQuery,
		UpdateSettingsMutation,
		GetSecuritySettingsQuery,
		GetLoginHistoryQuery,
		UpdateSecuritySettingsMutation,
	}
}

// GetSettings returns the general settings with unset fields defaulted.
func (a *API) GetSettings(ctx context.Context) (settings.General, error) {
	g, err := Query(ctx, a, GetSettingsQuery, struct{}{})
	if err != nil {
		return settings.Defaults(), err
	}
	return settings.WithDefaults(g), nil
}

func (a *API) UpdateSettings(ctx context.Context, g settings.General) (settings.General, error) {
	return Mutate(ctx, a, UpdateSettingsMutation, g)
}

func (a *API) GetSecuritySettings(ctx context.Context) (settings.Security, error) {
	return Query(ctx, a, GetSecuritySettingsQuery, struct{}{})
}

func (a *API) GetLoginHistory(ctx context.Context, s settings.HistorySearch) ([]settings.LoginAttempt, error) {
	return Query(ctx, a, GetLoginHistoryQuery, s.Filter())
}

func (a *API) UpdateSecuritySettings(ctx context.Context, s settings.Security) (settings.Security, error) {
	return Mutate(ctx, a, UpdateSecuritySettingsMutation, s)
}
