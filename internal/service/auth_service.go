package service

import (
	"fmt"
	"kinship/internal/apperr"
	"kinship/internal/config"
	"kinship/internal/model"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthService issues and validates user tokens
type AuthService struct {
	jwtSecret []byte
	tokenTTL  time.Duration
	clock     Clock
}

func NewAuthService(cfg config.AuthConfig, clock Clock) *AuthService {
	return &AuthService{
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  cfg.TokenTTL,
		clock:     clock,
	}
}

// IssueToken signs a token for userID. Only used by development tooling; production tokens
// come from the account service with the same claims.
func (s *AuthService) IssueToken(userID string, tier model.Tier) (*model.TokenResponse, error) {
	if userID == "" {
		return nil, apperr.Validation("userId is required")
	}
	if tier == "" {
		tier = model.TierFree
	}
	if tier != model.TierFree && tier != model.TierPremium {
		return nil, apperr.Validation(fmt.Sprintf("unknown tier %q", tier))
	}

	now := s.clock.Now()
	claims := &model.UserClaims{
		UserID: userID,
		Tier:   tier,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "sign token", err)
	}
	return &model.TokenResponse{Token: signed, UserID: userID}, nil
}

// ValidateToken parses a user JWT and returns its claims
func (s *AuthService) ValidateToken(tokenString string) (*model.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPermissionDenied, "invalid or expired token", err)
	}

	claims, ok := token.Claims.(*model.UserClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, apperr.PermissionDenied("invalid or expired token")
	}
	return claims, nil
}
