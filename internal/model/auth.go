package model

import "github.com/golang-jwt/jwt/v5"

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// UserClaims are JWT claims identifying the caller and their subscription tier
type UserClaims struct {
	UserID string `json:"userId"`
	Tier   Tier   `json:"tier"`
	jwt.RegisteredClaims
}

// IsPremium gates the premium-only ranking signals
func (c *UserClaims) IsPremium() bool {
	return c != nil && c.Tier == TierPremium
}

// TokenRequest is the request body for issuing a development token
type TokenRequest struct {
	UserID string `json:"userId"`
	Tier   Tier   `json:"tier"`
}

// TokenResponse is returned after a token is issued
type TokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
