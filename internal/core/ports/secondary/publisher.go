package secondary

import "context"

// ArtifactPublisher uploads a finished artifact and returns its public URL.
type ArtifactPublisher interface {
	Publish(ctx context.Context, path string, jobID string) (string, error)
}
