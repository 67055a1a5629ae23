package app

import (
	"context"
	"net/http"

	"github.com/artpar/rentdesk/core/querycache"
	"github.com/artpar/rentdesk/domain/envelope"
	"github.com/artpar/rentdesk/domain/filter"
	"github.com/artpar/rentdesk/domain/tag"
	"github.com/artpar/rentdesk/domain/vehicle"
)

// VehicleUpdate is the argument of UpdateVehicle.
type VehicleUpdate struct {
	VehicleID int
	Input     vehicle.Input
}

func vehicleList(name, path string) querycache.QueryDef[filter.Filter, []vehicle.Vehicle] {
	return querycache.QueryDef[filter.Filter, []vehicle.Vehicle]{
		Name:   name,
		Domain: DomainVehicles,
		Path:   path,
		URL:    func(f filter.Filter) (string, error) { return f.AppendTo(path), nil },
		Shape:  envelope.ShapeList,
		Provides: func(_ filter.Filter, vs []vehicle.Vehicle) tag.Set {
			return tag.ListAndIDs(tag.Vehicle, vehicle.IDs(vs))
		},
		Types: []tag.Type{tag.Vehicle},
	}
}

// invalidateVehicle is shared by every id-scoped vehicle mutation.
func invalidateVehicle(id int) tag.Set {
	return tag.Set{tag.List(tag.Vehicle), tag.ID(tag.Vehicle, id), tag.List(tag.AdminDashboard)}
}

var vehicleMutationTypes = []tag.Type{tag.Vehicle, tag.AdminDashboard}

var (
	GetVehiclesQuery          = vehicleList("GetVehicles", "/vehicles")
	SearchVehiclesQuery       = vehicleList("SearchVehicles", "/vehicles/search")
	GetAvailableVehiclesQuery = vehicleList("GetAvailableVehicles", "/vehicles/available")

	GetVehicleByIDQuery = querycache.QueryDef[int, vehicle.Vehicle]{
		Name:   "GetVehicleByID",
		Domain: DomainVehicles,
		Path:   "/vehicles/{id}",
		URL:    func(id int) (string, error) { return intPath("/vehicles", id, "") },
		Shape:  envelope.ShapeObject,
		Provides: func(id int, _ vehicle.Vehicle) tag.Set {
			return tag.Set{tag.ID(tag.Vehicle, id)}
		},
		Types: []tag.Type{tag.Vehicle},
	}

	CreateVehicleMutation = querycache.MutationDef[vehicle.Input, vehicle.Vehicle]{
		Name:   "CreateVehicle",
		Domain: DomainVehicles,
		Method: http.MethodPost,
		Path:   "/vehicles",
		URL:    func(vehicle.Input) (string, error) { return "/vehicles", nil },
		Body:   func(in vehicle.Input) any { return in },
		Shape:  envelope.ShapeObject,
		Invalidates: func(vehicle.Input, vehicle.Vehicle) tag.Set {
			return tag.Set{tag.List(tag.Vehicle), tag.List(tag.AdminDashboard)}
		},
		Types:   vehicleMutationTypes,
		Affects: vehicleMutationTypes,
	}

	UpdateVehicleMutation = querycache.MutationDef[VehicleUpdate, vehicle.Vehicle]{
		Name:   "UpdateVehicle",
		Domain: DomainVehicles,
		Method: http.MethodPut,
		Path:   "/vehicles/{id}",
		URL:    func(u VehicleUpdate) (string, error) { return intPath("/vehicles", u.VehicleID, "") },
		Body:   func(u VehicleUpdate) any { return u.Input },
		Shape:  envelope.ShapeObject,
		Invalidates: func(u VehicleUpdate, _ vehicle.Vehicle) tag.Set {
			return invalidateVehicle(u.VehicleID)
		},
		Types:   vehicleMutationTypes,
		Affects: vehicleMutationTypes,
	}

	UpdateVehicleStatusMutation = querycache.MutationDef[vehicle.StatusUpdate, vehicle.Vehicle]{
		Name:   "UpdateVehicleStatus",
		Domain: DomainVehicles,
		Method: http.MethodPatch,
		Path:   "/vehicles/{id}/status",
		URL: func(u vehicle.StatusUpdate) (string, error) {
			return intPath("/vehicles", u.VehicleID, "/status")
		},
		Body: func(u vehicle.StatusUpdate) any {
			return map[string]vehicle.Status{"status": u.Status}
		},
		Shape: envelope.ShapeObject,
		Invalidates: func(u vehicle.StatusUpdate, _ vehicle.Vehicle) tag.Set {
			return invalidateVehicle(u.VehicleID)
		},
		Types:   vehicleMutationTypes,
		Affects: vehicleMutationTypes,
	}

	DeleteVehicleMutation = querycache.MutationDef[int, struct{}]{
		Name:   "DeleteVehicle",
		Domain: DomainVehicles,
		Method: http.MethodDelete,
		Path:   "/vehicles/{id}",
		URL:    func(id int) (string, error) { return intPath("/vehicles", id, "") },
		Shape:  envelope.ShapeObject,
		Invalidates: func(id int, _ struct{}) tag.Set {
			return invalidateVehicle(id)
		},
		Types:   vehicleMutationTypes,
		Affects: vehicleMutationTypes,
	}
)

func vehicleDefinitions() []Definition {
	return []Definition{
		GetVehiclesQuery,
		SearchVehiclesQuery,
		GetAvailableVehiclesQuery,
		GetVehicleByIDQuery,
		CreateVehicleMutation,
		UpdateVehicleMutation,
		UpdateVehicleStatusMutation,
		DeleteVehicleMutation,
	}
}

// GetVehicles lists vehicles matching s.
func (a *API) GetVehicles(ctx context.Context, s vehicle.Search) ([]vehicle.Vehicle, error) {
	return Query(ctx, a, GetVehiclesQuery, s.Filter())
}

// SearchVehicles runs a free-text and criteria search.
func (a *API) SearchVehicles(ctx context.Context, s vehicle.Search) ([]vehicle.Vehicle, error) {
	return Query(ctx, a, SearchVehiclesQuery, s.Filter())
}

// GetAvailableVehicles lists vehicles free for the requested window.
func (a *API) GetAvailableVehicles(ctx context.Context, s vehicle.Search) ([]vehicle.Vehicle, error) {
	return Query(ctx, a, GetAvailableVehiclesQuery, s.Filter())
}

func (a *API) GetVehicleByID(ctx context.Context, id int) (vehicle.Vehicle, error) {
	return Query(ctx, a, GetVehicleByIDQuery, id)
}

func (a *API) CreateVehicle(ctx context.Context, in vehicle.Input) (vehicle.Vehicle, error) {
	return Mutate(ctx, a, CreateVehicleMutation, in)
}

func (a *API) UpdateVehicle(ctx context.Context, id int, in vehicle.Input) (vehicle.Vehicle, error) {
	return Mutate(ctx, a, UpdateVehicleMutation, VehicleUpdate{VehicleID: id, Input: in})
}

func (a *API) UpdateVehicleStatus(ctx context.Context, u vehicle.StatusUpdate) (vehicle.Vehicle, error) {
	return Mutate(ctx, a, UpdateVehicleStatusMutation, u)
}

func (a *API) DeleteVehicle(ctx context.Context, id int) error {
	_, err := Mutate(ctx, a, DeleteVehicleMutation, id)
	return err
}
