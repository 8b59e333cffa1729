package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScopeRepository answers the membership questions behind cohort
// resolution: which drivers belong to a fleet or an insurance partner,
// and which fleet/partner a given driver belongs to.
type ScopeRepository struct {
	db *gorm.DB
}

func NewScopeRepository(db *gorm.DB) *ScopeRepository {
	return &ScopeRepository{db: db}
}

func (r *ScopeRepository) FleetDrivers(ctx context.Context, fleetID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Table("fleet_driver_assignments").
		Where("fleet_id = ? AND active", fleetID).
		Pluck("driver_profile_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *ScopeRepository) PartnerDrivers(ctx context.Context, partnerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Table("insurance_partner_drivers").
		Where("insurance_partner_id = ?", partnerID).
		Pluck("driver_profile_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DriverFleet returns the fleet of the driver's active assignment, or nil
// when the driver has none.
func (r *ScopeRepository) DriverFleet(ctx context.Context, driverID uuid.UUID) (*uuid.UUID, error) {
	var fleetID uuid.UUID
	err := r.db.WithContext(ctx).
		Table("fleet_driver_assignments").
		Select("fleet_id").
		Where("driver_profile_id = ? AND active", driverID).
		Limit(1).
		Take(&fleetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fleetID, nil
}

func (r *ScopeRepository) DriverPartner(ctx context.Context, driverID uuid.UUID) (*uuid.UUID, error) {
	var partnerID uuid.UUID
	err := r.db.WithContext(ctx).
		Table("insurance_partner_drivers").
		Select("insurance_partner_id").
		Where("driver_profile_id = ?", driverID).
		Limit(1).
		Take(&partnerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &partnerID, nil
}

func (r *ScopeRepository) DriverExists(ctx context.Context, driverID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("driver_profiles").
		Where("id = ?", driverID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ScopeRepository) FleetExists(ctx context.Context, fleetID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("fleets").
		Where("id = ?", fleetID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ScopeRepository) PartnerExists(ctx context.Context, partnerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("insurance_partners").
		Where("id = ?", partnerID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
