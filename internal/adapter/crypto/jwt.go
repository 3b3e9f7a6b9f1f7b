package crypto

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/scenecast.net/internal/config"
	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/static/errs"
)

var _ primary.JWTService = (*JWTServiceImpl)(nil)

const (
	// Issuer marks tokens minted for worker callbacks.
	Issuer = "scenecast-dispatcher"
)

type jobClaims struct {
	JobID string `json:"job_id"`
	jwt.RegisteredClaims
}

// JWTServiceImpl mints and verifies HS256 tokens scoped to a single job.
type JWTServiceImpl struct {
	HMACSecretKey []byte
	TTL           time.Duration
	now           func() time.Time
}

func NewJWTService(cfg *config.CallbackConfig) *JWTServiceImpl {
	return &JWTServiceImpl{
		HMACSecretKey: []byte(cfg.Secret),
		TTL:           cfg.TokenTTL,
		now:           time.Now,
	}
}

func (J *JWTServiceImpl) GenerateJobToken(ctx context.Context, jobID string) (string, error) {
	if len(J.HMACSecretKey) == 0 {
		return "", fmt.Errorf("callback secret is not configured")
	}
	now := J.now()
	claims := jobClaims{
		JobID: jobID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   jobID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(J.TTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(J.HMACSecretKey)
}

// VerifyJobToken checks signature, issuer and expiry and returns the job id
// the token was minted for.
func (J *JWTServiceImpl) VerifyJobToken(ctx context.Context, token string) (string, error) {
	var claims jobClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return J.HMACSecretKey, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(J.now),
	)
	if err != nil {
		return "", errors.Join(errs.InvalidCredential, err)
	}
	if !parsed.Valid || claims.JobID == "" {
		return "", errs.InvalidCredential
	}
	return claims.JobID, nil
}
