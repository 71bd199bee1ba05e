package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vipreceiver/backend/internal/models"
)

func testRewardTask() RewardTask {
	return RewardTask{
		UserID:       1,
		Phone:        "+12025550147",
		RegionCode:   "+1",
		ArtifactPath: "/tmp/ignored.session",
		Price:        2,
		ClaimTime:    15 * time.Millisecond,
		MessageID:    7,
		PendingID:    uuid.New(),
	}
}

func TestRewardWaitFor(t *testing.T) {
	cfg := testConfig(t)
	cfg.ClaimMargin = 10 * time.Second
	cfg.MinClaimWait = 10 * time.Second
	svc := NewRewardService(cfg, NewCancelRegistry(), &fakeValidator{ok: true}, &fakeDevices{count: 1}, newFakeRewardLedger(), &fakeNotifier{})

	// Wide windows get the margin shaved off.
	assert.Equal(t, 50*time.Second, svc.waitFor(60*time.Second))
	// Tiny windows are floored at the minimum wait.
	assert.Equal(t, 10*time.Second, svc.waitFor(5*time.Second))
	assert.Equal(t, 10*time.Second, svc.waitFor(15*time.Second))
}

func TestRewardSuccessfulConfirmation(t *testing.T) {
	cfg := testConfig(t)
	registry := NewCancelRegistry()
	ledger := newFakeRewardLedger()
	notifier := &fakeNotifier{}
	svc := NewRewardService(cfg, registry, &fakeValidator{ok: true}, &fakeDevices{count: 1}, ledger, notifier)

	task := testRewardTask()
	svc.Schedule(task)
	require.True(t, registry.Active(task.UserID))
	svc.Wait()

	assert.Equal(t, models.PendingStatusSuccess, ledger.status(task.PendingID))
	assert.Equal(t, 1, ledger.settledCount())
	assert.Contains(t, notifier.lastText(), "Successfully Verified")
	// The registry entry is gone, so /cancel has nothing to grab.
	assert.False(t, registry.Active(task.UserID))
}

func TestRewardCancelDuringWait(t *testing.T) {
	cfg := testConfig(t)
	cfg.MinClaimWait = 200 * time.Millisecond
	registry := NewCancelRegistry()
	ledger := newFakeRewardLedger()
	notifier := &fakeNotifier{}
	svc := NewRewardService(cfg, registry, &fakeValidator{ok: true}, &fakeDevices{count: 1}, ledger, notifier)

	task := testRewardTask()
	svc.Schedule(task)

	time.Sleep(20 * time.Millisecond)
	ok, phone := registry.Cancel(task.UserID)
	require.True(t, ok)
	assert.Equal(t, task.Phone, phone)

	svc.Wait()

	assert.Equal(t, models.PendingStatusCancelled, ledger.status(task.PendingID))
	assert.Equal(t, 0, ledger.settledCount())
	assert.Contains(t, notifier.lastText(), "cancelled")
	assert.False(t, registry.Active(task.UserID))
}

func TestRewardValidationFailureRejects(t *testing.T) {
	cfg := testConfig(t)
	registry := NewCancelRegistry()
	ledger := newFakeRewardLedger()
	notifier := &fakeNotifier{}
	svc := NewRewardService(cfg, registry, &fakeValidator{ok: false, reason: "session file does not exist"}, &fakeDevices{count: 1}, ledger, notifier)

	task := testRewardTask()
	svc.Schedule(task)
	svc.Wait()

	assert.Equal(t, models.PendingStatusRejected, ledger.status(task.PendingID))
	assert.Equal(t, 0, ledger.settledCount())
	assert.Contains(t, notifier.lastText(), "try this number again")
}

func TestRewardMultipleDevicesWithholdsReward(t *testing.T) {
	cfg := testConfig(t)
	registry := NewCancelRegistry()
	ledger := newFakeRewardLedger()
	notifier := &fakeNotifier{}
	svc := NewRewardService(cfg, registry, &fakeValidator{ok: true}, &fakeDevices{count: 2}, ledger, notifier)

	task := testRewardTask()
	svc.Schedule(task)
	svc.Wait()

	assert.Equal(t, models.PendingStatusRejected, ledger.status(task.PendingID))
	assert.Equal(t, 0, ledger.settledCount())
	assert.Contains(t, notifier.lastText(), "Multiple device login")
}

func TestRewardConcurrentConsumptionIsReportedOnce(t *testing.T) {
	cfg := testConfig(t)
	registry := NewCancelRegistry()
	ledger := newFakeRewardLedger()
	notifier := &fakeNotifier{}
	svc := NewRewardService(cfg, registry, &fakeValidator{ok: true}, &fakeDevices{count: 1}, ledger, notifier)

	// Two users secured the same number; only one settlement may land.
	first := testRewardTask()
	second := testRewardTask()
	second.UserID = 2
	second.PendingID = uuid.New()

	svc.Schedule(first)
	svc.Schedule(second)
	svc.Wait()

	assert.Equal(t, 1, ledger.settledCount())
	statuses := []string{ledger.status(first.PendingID), ledger.status(second.PendingID)}
	assert.Contains(t, statuses, models.PendingStatusSuccess)
	assert.Contains(t, statuses, models.PendingStatusRejected)
}

func TestRewardFinishedTaskDoesNotEvictSuccessor(t *testing.T) {
	cfg := testConfig(t)
	registry := NewCancelRegistry()
	ledger := newFakeRewardLedger()
	notifier := &fakeNotifier{}
	svc := NewRewardService(cfg, registry, &fakeValidator{ok: true}, &fakeDevices{count: 1}, ledger, notifier)

	// The user secures a second number while the first confirmation runs;
	// the first task finishes quickly, the second has a long wait ahead.
	first := testRewardTask()
	second := testRewardTask()
	second.Phone = "+12025550148"
	second.PendingID = uuid.New()
	second.ClaimTime = 600 * time.Millisecond

	svc.Schedule(first)
	svc.Schedule(second)

	// Give the first task ample time to settle and run its exit cleanup.
	deadline := time.Now().Add(time.Second)
	for ledger.status(first.PendingID) != models.PendingStatusSuccess {
		if time.Now().After(deadline) {
			t.Fatal("first task did not settle in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The live task must still be registered and cancellable.
	require.True(t, registry.Active(first.UserID))
	ok, phone := registry.Cancel(first.UserID)
	require.True(t, ok)
	assert.Equal(t, second.Phone, phone)

	svc.Wait()

	assert.Equal(t, models.PendingStatusCancelled, ledger.status(second.PendingID))
	consumed, _ := ledger.IsConsumed(second.Phone)
	assert.False(t, consumed)
}

func TestRewardLedgerFailureKeepsNumberClaimable(t *testing.T) {
	cfg := testConfig(t)
	registry := NewCancelRegistry()
	ledger := newFakeRewardLedger()
	ledger.settleErr = assert.AnError
	notifier := &fakeNotifier{}
	svc := NewRewardService(cfg, registry, &fakeValidator{ok: true}, &fakeDevices{count: 1}, ledger, notifier)

	task := testRewardTask()
	svc.Schedule(task)
	svc.Wait()

	assert.Equal(t, models.PendingStatusRejected, ledger.status(task.PendingID))
	consumed, _ := ledger.IsConsumed(task.Phone)
	assert.False(t, consumed)
	assert.Contains(t, notifier.lastText(), "contact support")
}
