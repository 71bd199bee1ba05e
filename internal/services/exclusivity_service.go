package services

import (
	"context"
	"log"

	"github.com/vipreceiver/backend/internal/provider"
)

// ExclusivityService enforces that exactly one device login remains on a
// credential: every non-current authorization is revoked and the result is
// re-checked.
type ExclusivityService struct {
	client provider.Client
}

func NewExclusivityService(client provider.Client) *ExclusivityService {
	return &ExclusivityService{client: client}
}

// Secure revokes every device authorization except the one this flow holds
// and confirms exactly one remains. Calling it on an already-exclusive
// credential is a no-op returning true.
func (s *ExclusivityService) Secure(ctx context.Context, artifactPath string) bool {
	auths, err := s.client.Authorizations(ctx, artifactPath)
	if err != nil {
		log.Printf("Exclusivity: listing authorizations failed: %v", err)
		return false
	}
	if len(auths) <= 1 {
		return true
	}

	for _, auth := range auths {
		if auth.Current {
			continue
		}
		if err := s.client.Revoke(ctx, artifactPath, auth.Hash); err != nil {
			log.Printf("Exclusivity: revoke %s/%s failed: %v", auth.Device, auth.App, err)
			return false
		}
		log.Printf("Exclusivity: logged out %s | %s", auth.Device, auth.App)
	}

	remaining, err := s.client.Authorizations(ctx, artifactPath)
	if err != nil {
		log.Printf("Exclusivity: re-listing authorizations failed: %v", err)
		return false
	}
	if len(remaining) != 1 {
		log.Printf("Exclusivity: still %d sessions after logout", len(remaining))
		return false
	}
	return true
}

// RevokeAll revokes every non-current authorization without confirming the
// outcome; the reward confirmation counts devices separately after a settle
// delay.
func (s *ExclusivityService) RevokeAll(ctx context.Context, artifactPath string) error {
	auths, err := s.client.Authorizations(ctx, artifactPath)
	if err != nil {
		return err
	}
	for _, auth := range auths {
		if auth.Current {
			continue
		}
		if err := s.client.Revoke(ctx, artifactPath, auth.Hash); err != nil {
			return err
		}
	}
	return nil
}

// DeviceCount returns the number of active device authorizations.
func (s *ExclusivityService) DeviceCount(ctx context.Context, artifactPath string) (int, error) {
	auths, err := s.client.Authorizations(ctx, artifactPath)
	if err != nil {
		return 0, err
	}
	return len(auths), nil
}
