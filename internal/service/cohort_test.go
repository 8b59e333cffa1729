package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"safety-analytics/internal/apperr"
	"safety-analytics/internal/model"
)

type fakeMembers struct {
	fleets        map[uuid.UUID][]uuid.UUID
	partners      map[uuid.UUID][]uuid.UUID
	driverFleet   map[uuid.UUID]uuid.UUID
	driverPartner map[uuid.UUID]uuid.UUID
	drivers       map[uuid.UUID]bool
	err           error
}

func (f *fakeMembers) FleetDrivers(_ context.Context, fleetID uuid.UUID) ([]uuid.UUID, error) {
	return f.fleets[fleetID], f.err
}

func (f *fakeMembers) PartnerDrivers(_ context.Context, partnerID uuid.UUID) ([]uuid.UUID, error) {
	return f.partners[partnerID], f.err
}

func (f *fakeMembers) DriverFleet(_ context.Context, driverID uuid.UUID) (*uuid.UUID, error) {
	if id, ok := f.driverFleet[driverID]; ok {
		return &id, f.err
	}
	return nil, f.err
}

func (f *fakeMembers) DriverPartner(_ context.Context, driverID uuid.UUID) (*uuid.UUID, error) {
	if id, ok := f.driverPartner[driverID]; ok {
		return &id, f.err
	}
	return nil, f.err
}

func (f *fakeMembers) DriverExists(_ context.Context, driverID uuid.UUID) (bool, error) {
	return f.drivers[driverID], f.err
}

func (f *fakeMembers) FleetExists(_ context.Context, fleetID uuid.UUID) (bool, error) {
	_, ok := f.fleets[fleetID]
	return ok, f.err
}

func (f *fakeMembers) PartnerExists(_ context.Context, partnerID uuid.UUID) (bool, error) {
	_, ok := f.partners[partnerID]
	return ok, f.err
}

var (
	fleet1   = uuid.MustParse("10000000-0000-0000-0000-000000000001")
	fleet2   = uuid.MustParse("10000000-0000-0000-0000-000000000002")
	partner1 = uuid.MustParse("20000000-0000-0000-0000-000000000001")
	driver1  = uuid.MustParse("30000000-0000-0000-0000-000000000001")
	driver2  = uuid.MustParse("30000000-0000-0000-0000-000000000002")
	driver3  = uuid.MustParse("30000000-0000-0000-0000-000000000003")
)

func newFakeMembers() *fakeMembers {
	return &fakeMembers{
		fleets: map[uuid.UUID][]uuid.UUID{
			fleet1: {driver1, driver2},
			fleet2: {driver3},
		},
		partners: map[uuid.UUID][]uuid.UUID{
			partner1: {driver2, driver3},
		},
		driverFleet:   map[uuid.UUID]uuid.UUID{driver1: fleet1, driver2: fleet1},
		driverPartner: map[uuid.UUID]uuid.UUID{driver3: partner1},
		drivers:       map[uuid.UUID]bool{driver1: true, driver2: true, driver3: true},
	}
}

func admin() model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.RoleAdmin}
}

func fleetManager(fleetID uuid.UUID) model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.RoleFleetManager, FleetID: &fleetID}
}

func insurancePartner(partnerID uuid.UUID) model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.RoleInsurancePartner, InsurancePartnerID: &partnerID}
}

func driverPrincipal(driverID uuid.UUID) model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.RoleDriver, DriverProfileID: &driverID}
}

func sameDrivers(got []uuid.UUID, want ...uuid.UUID) bool {
	if len(got) != len(want) {
		return false
	}
	set := make(map[uuid.UUID]bool, len(got))
	for _, id := range got {
		set[id] = true
	}
	for _, id := range want {
		if !set[id] {
			return false
		}
	}
	return true
}

func TestResolveAdminUnrestricted(t *testing.T) {
	r := NewCohortResolver(newFakeMembers())

	cohort, err := r.Resolve(context.Background(), admin(), nil, nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !cohort.Unrestricted || cohort.Kind != model.CohortUnrestricted {
		t.Fatalf("cohort = %+v, want unrestricted", cohort)
	}
}

func TestResolveAdminRequireScope(t *testing.T) {
	r := NewCohortResolver(newFakeMembers())

	_, err := r.Resolve(context.Background(), admin(), nil, nil, true)
	if !errors.Is(err, apperr.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestResolveAdminExplicitFleet(t *testing.T) {
	r := NewCohortResolver(newFakeMembers())

	cohort, err := r.Resolve(context.Background(), admin(), &fleet1, nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cohort.Kind != model.CohortFleet || !sameDrivers(cohort.DriverIDs, driver1, driver2) {
		t.Fatalf("cohort = %+v, want fleet1 drivers", cohort)
	}
}

func TestResolveAdminUnknownFleet(t *testing.T) {
	r := NewCohortResolver(newFakeMembers())

	missing := uuid.New()
	_, err := r.Resolve(context.Background(), admin(), &missing, nil, false)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveFleetManagerOwnFleet(t *testing.T) {
	r := NewCohortResolver(newFakeMembers())

	cohort, err := r.Resolve(context.Background(), fleetManager(fleet1), nil, nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cohort.Unrestricted || !sameDrivers(cohort.DriverIDs, driver1, driver2) {
		t.Fatalf("cohort = %+v, want fleet1 drivers only", cohort)
	}
}

func TestResolveFleetManagerForeignFleetForbidden(t *testing.T) {
	r := NewCohortResolver(newFakeMembers())

	_, err := r.Resolve(context.Background(), fleetManager(fleet1), &fleet2, nil, false)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestResolveFleetManagerPartnerFilterForbidden(t *testing.T) {
	r := NewCohortResolver(newFakeMembers())

	_, err := r.Resolve(context.Background(), fleetManager(fleet1), nil, &partner1, false)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestResolveFleetManagerMissingScope(t *testing.T) {
	r := NewCohortResolver(newFakeMembers())

	p := model.Principal{UserID: uuid.New(), Role: model.RoleFleetManager}
	_, err := r.Resolve(context.Background(), p, nil, nil, false)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestResolveInsurancePartner(t *testing.T) {
	r := NewCohortResolver(newFakeMembers())

	cohort, err := r.Resolve(context.Background(), insurancePartner(partner1), nil, nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cohort.Kind != model.CohortInsurance || !sameDrivers(cohort.DriverIDs, driver2, driver3) {
		t.Fatalf("cohort = %+v, want partner1 drivers", cohort)
	}

	other := uuid.New()
	if _, err := r.Resolve(context.Background(), insurancePartner(partner1), nil, &other, false); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("foreign partner filter: err = %v, want ErrForbidden", err)
	}
}

func TestResolveDriverPrecedence(t *testing.T) {
	members := newFakeMembers()
	r := NewCohortResolver(members)
	ctx := context.Background()

	// Fleet assignment wins over everything else.
	cohort, err := r.Resolve(ctx, driverPrincipal(driver1), nil, nil, false)
	if err != nil {
		t.Fatalf("Resolve(fleet driver): %v", err)
	}
	if cohort.Kind != model.CohortFleet || !sameDrivers(cohort.DriverIDs, driver1, driver2) {
		t.Fatalf("cohort = %+v, want fleet1 cohort", cohort)
	}

	// No fleet, insurance link next.
	cohort, err = r.Resolve(ctx, driverPrincipal(driver3), nil, nil, false)
	if err != nil {
		t.Fatalf("Resolve(insured driver): %v", err)
	}
	if cohort.Kind != model.CohortInsurance || !sameDrivers(cohort.DriverIDs, driver2, driver3) {
		t.Fatalf("cohort = %+v, want partner1 cohort", cohort)
	}

	// Neither: self cohort.
	loner := uuid.New()
	cohort, err = r.Resolve(ctx, driverPrincipal(loner), nil, nil, false)
	if err != nil {
		t.Fatalf("Resolve(unaffiliated driver): %v", err)
	}
	if cohort.Kind != model.CohortSelf || !sameDrivers(cohort.DriverIDs, loner) {
		t.Fatalf("cohort = %+v, want self cohort", cohort)
	}
}

func TestResolveDriverCannotFilter(t *testing.T) {
	r := NewCohortResolver(newFakeMembers())

	_, err := r.Resolve(context.Background(), driverPrincipal(driver1), &fleet1, nil, false)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestResolveDeterministic(t *testing.T) {
	r := NewCohortResolver(newFakeMembers())
	ctx := context.Background()

	first, err := r.Resolve(ctx, fleetManager(fleet1), nil, nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := r.Resolve(ctx, fleetManager(fleet1), nil, nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !sameDrivers(first.DriverIDs, second.DriverIDs...) {
		t.Fatalf("same input resolved to different cohorts: %v vs %v", first.DriverIDs, second.DriverIDs)
	}
}

func TestResolveStoreFailureUnavailable(t *testing.T) {
	members := newFakeMembers()
	members.err = errors.New("connection refused")
	r := NewCohortResolver(members)

	_, err := r.Resolve(context.Background(), fleetManager(fleet1), nil, nil, false)
	if !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
