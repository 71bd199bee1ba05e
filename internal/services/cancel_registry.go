package services

import (
	"sync"
)

// CancelRegistry tracks at most one live reward-confirmation task per user
// and carries its cooperative cancellation signal. Registration, cancel and
// cleanup all take the same lock so a new registration can never race a
// concurrent cancel of a stale entry.
type CancelRegistry struct {
	mu    sync.Mutex
	tasks map[int64]*registryEntry
}

type registryEntry struct {
	phone     string
	cancel    chan struct{}
	cancelled bool
}

func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{tasks: make(map[int64]*registryEntry)}
}

// Register installs a task for the user and returns its cancel signal. The
// signal also serves as the task's identity token for Cleanup. A prior entry
// for the same user is replaced without setting its signal; cancellation is
// always an explicit call.
func (r *CancelRegistry) Register(userID int64, phone string) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := &registryEntry{
		phone:  phone,
		cancel: make(chan struct{}),
	}
	r.tasks[userID] = entry
	return entry.cancel
}

// Cancel sets the cooperative cancellation signal for the user's live task.
// The task observes it at its own poll points; nothing is terminated here.
// Returns the phone number under confirmation when a task was found.
func (r *CancelRegistry) Cancel(userID int64) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.tasks[userID]
	if !ok {
		return false, ""
	}
	if !entry.cancelled {
		entry.cancelled = true
		close(entry.cancel)
	}
	return true, entry.phone
}

// Cleanup removes the user's entry and returns its phone number, but only
// when the entry still belongs to the caller: cancel must be the signal that
// Register handed out. A task whose entry was replaced by a newer
// registration finds someone else's entry here and must leave it alone.
// Every task calls this on exit regardless of outcome.
func (r *CancelRegistry) Cleanup(userID int64, cancel <-chan struct{}) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.tasks[userID]
	if !ok || (<-chan struct{})(entry.cancel) != cancel {
		return ""
	}
	delete(r.tasks, userID)
	return entry.phone
}

// Active reports whether the user currently has a live task.
func (r *CancelRegistry) Active(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[userID]
	return ok
}
