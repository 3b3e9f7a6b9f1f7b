package primary

import (
	"context"
)

// JWTService issues and verifies the per-job tokens a worker presents when it
// reports its result back.
type JWTService interface {
	// GenerateJobToken signs a token scoped to a single job id.
	GenerateJobToken(ctx context.Context, jobID string) (string, error)
	// VerifyJobToken checks the signature and expiry and returns the job id claim.
	VerifyJobToken(ctx context.Context, token string) (string, error)
}
