package model

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin            Role = "ADMIN"
	RoleResearcher       Role = "RESEARCHER"
	RoleDriver           Role = "DRIVER"
	RoleFleetManager     Role = "FLEET_MANAGER"
	RoleInsurancePartner Role = "INSURANCE_PARTNER"
)

// Principal describes the authenticated caller. Scope ids are set only
// for the roles that carry them: DriverProfileID for drivers, FleetID for
// fleet managers, InsurancePartnerID for insurance partners.
type Principal struct {
	UserID             uuid.UUID
	Role               Role
	DriverProfileID    *uuid.UUID
	FleetID            *uuid.UUID
	InsurancePartnerID *uuid.UUID
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsResearcher() bool {
	return p.Role == RoleResearcher
}

// Unrestricted reports whether the role sees every driver by default.
func (p Principal) Unrestricted() bool {
	return p.Role == RoleAdmin || p.Role == RoleResearcher
}

func (p Principal) IsDriver() bool {
	return p.Role == RoleDriver
}
