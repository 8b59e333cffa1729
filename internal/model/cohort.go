package model

import "github.com/google/uuid"

type CohortKind string

const (
	CohortFleet        CohortKind = "FLEET"
	CohortInsurance    CohortKind = "INSURANCE"
	CohortSelf         CohortKind = "SELF"
	CohortUnrestricted CohortKind = "UNRESTRICTED"
)

// Cohort is the request-scoped set of driver ids a principal may see.
// It is never persisted. An unrestricted cohort carries no driver ids;
// Contains is true for every driver in that case.
type Cohort struct {
	Kind         CohortKind
	DriverIDs    []uuid.UUID
	Unrestricted bool
}

func UnrestrictedCohort() Cohort {
	return Cohort{Kind: CohortUnrestricted, Unrestricted: true}
}

func (c Cohort) Contains(driverID uuid.UUID) bool {
	if c.Unrestricted {
		return true
	}
	for _, id := range c.DriverIDs {
		if id == driverID {
			return true
		}
	}
	return false
}

func (c Cohort) Empty() bool {
	return !c.Unrestricted && len(c.DriverIDs) == 0
}
