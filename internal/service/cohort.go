package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"safety-analytics/internal/apperr"
	"safety-analytics/internal/model"
)

// MembershipStore is the read-only fleet/partner membership surface the
// resolver queries. Satisfied by repository.ScopeRepository.
type MembershipStore interface {
	FleetDrivers(ctx context.Context, fleetID uuid.UUID) ([]uuid.UUID, error)
	PartnerDrivers(ctx context.Context, partnerID uuid.UUID) ([]uuid.UUID, error)
	DriverFleet(ctx context.Context, driverID uuid.UUID) (*uuid.UUID, error)
	DriverPartner(ctx context.Context, driverID uuid.UUID) (*uuid.UUID, error)
	DriverExists(ctx context.Context, driverID uuid.UUID) (bool, error)
	FleetExists(ctx context.Context, fleetID uuid.UUID) (bool, error)
	PartnerExists(ctx context.Context, partnerID uuid.UUID) (bool, error)
}

// CohortResolver maps a principal plus optional explicit scope filters to
// the set of driver ids the caller may see. It performs no writes and is
// deterministic for a given principal/filter pair.
type CohortResolver struct {
	members MembershipStore
}

func NewCohortResolver(members MembershipStore) *CohortResolver {
	return &CohortResolver{members: members}
}

// Resolve applies the role rules:
//
//   - Admin/Researcher: unrestricted, or narrowed to an explicit fleet or
//     partner cohort; requireScope forces a filter to be present.
//   - FleetManager/InsurancePartner: their own cohort only; an explicit
//     filter naming anything else is a scope violation.
//   - Driver: fleet cohort if actively assigned, else insurance cohort if
//     linked, else the single-driver self cohort. The precedence is fixed.
func (r *CohortResolver) Resolve(ctx context.Context, principal model.Principal, fleetID, partnerID *uuid.UUID, requireScope bool) (model.Cohort, error) {
	switch principal.Role {
	case model.RoleAdmin, model.RoleResearcher:
		return r.resolveUnrestricted(ctx, fleetID, partnerID, requireScope)
	case model.RoleFleetManager:
		if principal.FleetID == nil {
			return model.Cohort{}, fmt.Errorf("%w: fleet scope missing", apperr.ErrForbidden)
		}
		if fleetID != nil && *fleetID != *principal.FleetID {
			return model.Cohort{}, fmt.Errorf("%w: scope mismatch", apperr.ErrForbidden)
		}
		if partnerID != nil {
			return model.Cohort{}, fmt.Errorf("%w: scope mismatch", apperr.ErrForbidden)
		}
		return r.fleetCohort(ctx, *principal.FleetID)
	case model.RoleInsurancePartner:
		if principal.InsurancePartnerID == nil {
			return model.Cohort{}, fmt.Errorf("%w: insurance scope missing", apperr.ErrForbidden)
		}
		if partnerID != nil && *partnerID != *principal.InsurancePartnerID {
			return model.Cohort{}, fmt.Errorf("%w: scope mismatch", apperr.ErrForbidden)
		}
		if fleetID != nil {
			return model.Cohort{}, fmt.Errorf("%w: scope mismatch", apperr.ErrForbidden)
		}
		return r.partnerCohort(ctx, *principal.InsurancePartnerID)
	case model.RoleDriver:
		if principal.DriverProfileID == nil {
			return model.Cohort{}, fmt.Errorf("%w: driver scope missing", apperr.ErrForbidden)
		}
		if fleetID != nil || partnerID != nil {
			return model.Cohort{}, fmt.Errorf("%w: scope mismatch", apperr.ErrForbidden)
		}
		return r.driverCohort(ctx, *principal.DriverProfileID)
	default:
		return model.Cohort{}, fmt.Errorf("%w: unknown role", apperr.ErrForbidden)
	}
}

func (r *CohortResolver) resolveUnrestricted(ctx context.Context, fleetID, partnerID *uuid.UUID, requireScope bool) (model.Cohort, error) {
	if fleetID != nil {
		exists, err := r.members.FleetExists(ctx, *fleetID)
		if err != nil {
			return model.Cohort{}, fmt.Errorf("%w: check fleet: %v", apperr.ErrUnavailable, err)
		}
		if !exists {
			return model.Cohort{}, fmt.Errorf("%w: fleet", apperr.ErrNotFound)
		}
		return r.fleetCohort(ctx, *fleetID)
	}
	if partnerID != nil {
		exists, err := r.members.PartnerExists(ctx, *partnerID)
		if err != nil {
			return model.Cohort{}, fmt.Errorf("%w: check partner: %v", apperr.ErrUnavailable, err)
		}
		if !exists {
			return model.Cohort{}, fmt.Errorf("%w: insurance partner", apperr.ErrNotFound)
		}
		return r.partnerCohort(ctx, *partnerID)
	}
	if requireScope {
		return model.Cohort{}, fmt.Errorf("%w: a fleet or insurance partner filter is required", apperr.ErrInvalidRequest)
	}
	return model.UnrestrictedCohort(), nil
}

func (r *CohortResolver) fleetCohort(ctx context.Context, fleetID uuid.UUID) (model.Cohort, error) {
	drivers, err := r.members.FleetDrivers(ctx, fleetID)
	if err != nil {
		return model.Cohort{}, fmt.Errorf("%w: load fleet drivers: %v", apperr.ErrUnavailable, err)
	}
	return model.Cohort{Kind: model.CohortFleet, DriverIDs: drivers}, nil
}

func (r *CohortResolver) partnerCohort(ctx context.Context, partnerID uuid.UUID) (model.Cohort, error) {
	drivers, err := r.members.PartnerDrivers(ctx, partnerID)
	if err != nil {
		return model.Cohort{}, fmt.Errorf("%w: load partner drivers: %v", apperr.ErrUnavailable, err)
	}
	return model.Cohort{Kind: model.CohortInsurance, DriverIDs: drivers}, nil
}

func (r *CohortResolver) driverCohort(ctx context.Context, driverID uuid.UUID) (model.Cohort, error) {
	fleetID, err := r.members.DriverFleet(ctx, driverID)
	if err != nil {
		return model.Cohort{}, fmt.Errorf("%w: load driver fleet: %v", apperr.ErrUnavailable, err)
	}
	if fleetID != nil {
		return r.fleetCohort(ctx, *fleetID)
	}

	partnerID, err := r.members.DriverPartner(ctx, driverID)
	if err != nil {
		return model.Cohort{}, fmt.Errorf("%w: load driver partner: %v", apperr.ErrUnavailable, err)
	}
	if partnerID != nil {
		return r.partnerCohort(ctx, *partnerID)
	}

	return model.Cohort{Kind: model.CohortSelf, DriverIDs: []uuid.UUID{driverID}}, nil
}
