package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vipreceiver/backend/internal/provider"
)

func writeArtifact(t *testing.T, artifacts *ArtifactService, size int) string {
	t.Helper()
	path := artifacts.Path("+1", "+12025550147")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestValidatorMissingArtifact(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)
	validator := NewValidatorService(cfg, &fakeClient{}, artifacts)

	ok, reason := validator.Validate(context.Background(), artifacts.Path("+1", "+19999999999"))
	assert.False(t, ok)
	assert.Equal(t, "session file does not exist", reason)
}

func TestValidatorTooSmallArtifact(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)
	validator := NewValidatorService(cfg, &fakeClient{}, artifacts)

	path := writeArtifact(t, artifacts, 50)

	ok, reason := validator.Validate(context.Background(), path)
	assert.False(t, ok)
	assert.Contains(t, reason, "corrupted")
}

func TestValidatorHappyPathResetsCounter(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)
	client := &fakeClient{}
	validator := NewValidatorService(cfg, client, artifacts)

	path := writeArtifact(t, artifacts, 2048)

	// Prime the counter, then confirm a clean validation clears it.
	client.validate = func(ctx context.Context, p string) error {
		return fmt.Errorf("gateway: %w", provider.ErrStorageBusy)
	}
	ok, _ := validator.Validate(context.Background(), path)
	assert.True(t, ok) // lenient fallback, artifact is large enough
	assert.Equal(t, int64(1), validator.StorageErrorCount())

	client.validate = nil
	ok, reason := validator.Validate(context.Background(), path)
	assert.True(t, ok)
	assert.Empty(t, reason)
	assert.Equal(t, int64(0), validator.StorageErrorCount())
}

func TestValidatorStorageBusyUsesLenientFallback(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)
	client := &fakeClient{
		validate: func(ctx context.Context, path string) error {
			return fmt.Errorf("gateway: %w", provider.ErrStorageBusy)
		},
	}
	validator := NewValidatorService(cfg, client, artifacts)

	// Above the lenient threshold: accepted despite the provider failure.
	path := writeArtifact(t, artifacts, 600)
	ok, _ := validator.Validate(context.Background(), path)
	assert.True(t, ok)
	assert.Equal(t, int64(1), validator.StorageErrorCount())

	// Below the lenient threshold: rejected.
	path = writeArtifact(t, artifacts, 200)
	ok, reason := validator.Validate(context.Background(), path)
	assert.False(t, ok)
	assert.Contains(t, reason, "too small")
}

func TestValidatorNonStorageFailureUsesStricterFallback(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)
	client := &fakeClient{
		validate: func(ctx context.Context, path string) error {
			return errors.New("unauthorized")
		},
	}
	validator := NewValidatorService(cfg, client, artifacts)

	// 600 bytes passes the storage-busy fallback but not this one: a genuine
	// provider rejection demands the larger size.
	path := writeArtifact(t, artifacts, 600)
	ok, _ := validator.Validate(context.Background(), path)
	assert.False(t, ok)

	path = writeArtifact(t, artifacts, 1500)
	ok, _ = validator.Validate(context.Background(), path)
	assert.True(t, ok)
}

func TestValidatorBypassAfterRepeatedStorageErrors(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)
	calls := 0
	client := &fakeClient{
		validate: func(ctx context.Context, path string) error {
			calls++
			return fmt.Errorf("gateway: %w", provider.ErrStorageBusy)
		},
	}
	validator := NewValidatorService(cfg, client, artifacts)

	path := writeArtifact(t, artifacts, 2048)

	// Push the counter past the threshold.
	for i := 0; i < cfg.StorageErrorThreshold+1; i++ {
		validator.Validate(context.Background(), path)
	}
	require.Greater(t, validator.StorageErrorCount(), int64(cfg.StorageErrorThreshold))

	// Bypass mode: the provider is no longer consulted at all.
	providerCalls := calls
	ok, _ := validator.Validate(context.Background(), path)
	assert.True(t, ok)
	assert.Equal(t, providerCalls, calls)
}

func TestValidatorEmergencyBypassAcceptsSmallArtifact(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)
	client := &fakeClient{
		validate: func(ctx context.Context, path string) error {
			return fmt.Errorf("gateway: %w", provider.ErrStorageBusy)
		},
	}
	validator := NewValidatorService(cfg, client, artifacts)

	// Small but present artifact, counter beyond threshold: the emergency
	// pass kicks in rather than punishing the user for storage trouble.
	path := writeArtifact(t, artifacts, 150)
	for i := 0; i < cfg.StorageErrorThreshold+1; i++ {
		validator.storageErrors.Add(1)
	}

	ok, _ := validator.Validate(context.Background(), path)
	assert.True(t, ok)
}
