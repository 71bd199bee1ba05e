package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vipreceiver/backend/internal/config"
	"github.com/vipreceiver/backend/internal/models"
	"github.com/vipreceiver/backend/internal/provider"
)

// testConfig returns a config with an isolated sessions dir and durations
// compressed enough for tests to finish quickly.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		SessionsDir:      t.TempDir(),
		DefaultTwoFactor: "hunter2",
		TwoFactorHint:    "hint",

		ClaimMargin:        10 * time.Millisecond,
		MinClaimWait:       10 * time.Millisecond,
		CancelPollInterval: 5 * time.Millisecond,
		LogoutSettle:       time.Millisecond,

		ValidationBypass:      true,
		StorageErrorThreshold: 3,
		MinArtifactSize:       100,
		LenientArtifactSize:   500,
		FallbackArtifactSize:  1000,
	}
}

// fakeClient is a provider.Client with overridable behavior. By default
// RequestCode writes an artifact file, everything else succeeds.
type fakeClient struct {
	requestCode    func(ctx context.Context, phone, path string) (string, error)
	redeemCode     func(ctx context.Context, path, phone, challengeID, code string) error
	redeemSecond   func(ctx context.Context, path, secret string) error
	setTwoFactor   func(ctx context.Context, path, current, newPassword, hint string) error
	authorizations func(ctx context.Context, path string) ([]provider.Authorization, error)
	revoke         func(ctx context.Context, path string, hash int64) error
	validate       func(ctx context.Context, path string) error
	disconnect     func(ctx context.Context, path string) error
}

func (f *fakeClient) RequestCode(ctx context.Context, phone, path string) (string, error) {
	if f.requestCode != nil {
		return f.requestCode(ctx, phone, path)
	}
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		return "", err
	}
	return "challenge-1", nil
}

func (f *fakeClient) RedeemCode(ctx context.Context, path, phone, challengeID, code string) error {
	if f.redeemCode != nil {
		return f.redeemCode(ctx, path, phone, challengeID, code)
	}
	return nil
}

func (f *fakeClient) RedeemSecondFactor(ctx context.Context, path, secret string) error {
	if f.redeemSecond != nil {
		return f.redeemSecond(ctx, path, secret)
	}
	return nil
}

func (f *fakeClient) SetTwoFactor(ctx context.Context, path, current, newPassword, hint string) error {
	if f.setTwoFactor != nil {
		return f.setTwoFactor(ctx, path, current, newPassword, hint)
	}
	return nil
}

func (f *fakeClient) Authorizations(ctx context.Context, path string) ([]provider.Authorization, error) {
	if f.authorizations != nil {
		return f.authorizations(ctx, path)
	}
	return []provider.Authorization{{Hash: 1, Current: true, Device: "bot", App: "gateway"}}, nil
}

func (f *fakeClient) Revoke(ctx context.Context, path string, hash int64) error {
	if f.revoke != nil {
		return f.revoke(ctx, path, hash)
	}
	return nil
}

func (f *fakeClient) Validate(ctx context.Context, path string) error {
	if f.validate != nil {
		return f.validate(ctx, path)
	}
	return nil
}

func (f *fakeClient) Disconnect(ctx context.Context, path string) error {
	if f.disconnect != nil {
		return f.disconnect(ctx, path)
	}
	return nil
}

// fakeRegions resolves regions by longest matching prefix over a static set.
type fakeRegions struct {
	regions []models.Region
}

func (f *fakeRegions) Match(phone string) (*models.Region, error) {
	var best *models.Region
	for i := range f.regions {
		r := &f.regions[i]
		if len(phone) >= len(r.Code) && phone[:len(r.Code)] == r.Code {
			if best == nil || len(r.Code) > len(best.Code) {
				best = r
			}
		}
	}
	return best, nil
}

// fakeConsumption marks a fixed set of numbers as already consumed.
type fakeConsumption struct {
	mu       sync.Mutex
	consumed map[string]bool
}

func (f *fakeConsumption) IsConsumed(phone string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.consumed[phone], nil
}

// fakeRewardLedger records settlements and pending-status updates in memory.
type fakeRewardLedger struct {
	mu        sync.Mutex
	consumed  map[string]bool
	statuses  map[uuid.UUID]string
	settleErr error
	balance   float64
}

func newFakeRewardLedger() *fakeRewardLedger {
	return &fakeRewardLedger{
		consumed: make(map[string]bool),
		statuses: make(map[uuid.UUID]string),
	}
}

func (f *fakeRewardLedger) IsConsumed(phone string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.consumed[phone], nil
}

func (f *fakeRewardLedger) Settle(telegramID int64, phone string, pendingID uuid.UUID, price float64, regionCode string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settleErr != nil {
		return 0, f.settleErr
	}
	if f.consumed[phone] {
		return 0, ErrNumberConsumed
	}
	f.consumed[phone] = true
	f.statuses[pendingID] = models.PendingStatusSuccess
	f.balance += price
	return f.balance, nil
}

func (f *fakeRewardLedger) SetPendingStatus(id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	return nil
}

func (f *fakeRewardLedger) status(id uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}

func (f *fakeRewardLedger) settledCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, status := range f.statuses {
		if status == models.PendingStatusSuccess {
			n++
		}
	}
	return n
}

// fakeNotifier records delivered messages and edits.
type fakeNotifier struct {
	mu    sync.Mutex
	sent  []string
	edits []string
}

func (f *fakeNotifier) SendMessage(chatID int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return len(f.sent), nil
}

func (f *fakeNotifier) EditMessage(chatID int64, messageID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeNotifier) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) > 0 {
		return f.edits[len(f.edits)-1]
	}
	if len(f.sent) > 0 {
		return f.sent[len(f.sent)-1]
	}
	return ""
}

// fakeValidator is a Validator with a fixed verdict.
type fakeValidator struct {
	ok     bool
	reason string
}

func (f *fakeValidator) Validate(ctx context.Context, path string) (bool, string) {
	return f.ok, f.reason
}

// fakeDevices is a DeviceCounter with a fixed device count.
type fakeDevices struct {
	count     int
	revokeErr error
}

func (f *fakeDevices) RevokeAll(ctx context.Context, path string) error {
	return f.revokeErr
}

func (f *fakeDevices) DeviceCount(ctx context.Context, path string) (int, error) {
	return f.count, nil
}
