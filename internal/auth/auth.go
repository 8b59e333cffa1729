package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"safety-analytics/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the decoded access-token payload. Scope ids are optional and
// role-dependent; validation of the role/scope pairing happens later in
// the cohort resolver, not here.
type Claims struct {
	UserID             uuid.UUID
	Role               model.Role
	DriverProfileID    *uuid.UUID
	FleetID            *uuid.UUID
	InsurancePartnerID *uuid.UUID
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role               string `json:"role"`
	DriverProfileID    string `json:"driverProfileId,omitempty"`
	FleetID            string `json:"fleetId,omitempty"`
	InsurancePartnerID string `json:"insurancePartnerId,omitempty"`
}

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

func (p *Parser) Parse(raw string) (*Claims, error) {
	var tc tokenClaims
	token, err := jwt.ParseWithClaims(raw, &tc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(tc.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims := &Claims{
		UserID: userID,
		Role:   model.Role(tc.Role),
	}
	if claims.DriverProfileID, err = parseOptionalID(tc.DriverProfileID); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.FleetID, err = parseOptionalID(tc.FleetID); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.InsurancePartnerID, err = parseOptionalID(tc.InsurancePartnerID); err != nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func parseOptionalID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
