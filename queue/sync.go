package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Policy values for the sync engine. Overridable per Engine via Options.
const (
	DefaultCooldown       = 10 * time.Second
	DefaultLockStaleness  = 30 * time.Second
	DefaultDebounce       = 2 * time.Second
	DefaultInterItemDelay = 1 * time.Second
)

// TerminalError marks a server verdict that retrying cannot change (unknown
// token, validation failure). The entry is parked immediately instead of
// burning its retry budget.
type TerminalError struct {
	Status int
	Reason string
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("submission rejected with status %d: %s", e.Status, e.Reason)
}

// Submitter delivers one queued report (with its images) to the server
type Submitter interface {
	Submit(ctx context.Context, report QueuedReport, images []QueuedImage) error
}

// Options tunes an Engine; zero values take the defaults above
type Options struct {
	Cooldown       time.Duration
	LockStaleness  time.Duration
	Debounce       time.Duration
	InterItemDelay time.Duration
	InstanceID     string
}

// Engine drains the local queue to the server with single-flight and backoff
// guarantees: an in-memory flag stops duplicate async triggers inside one
// process, the store's durable lock stops duplicate processes, and a cooldown
// stops thrashing on flapping connectivity.
type Engine struct {
	store     *Store
	submitter Submitter
	online    func(ctx context.Context) bool

	cooldown       time.Duration
	lockStaleness  time.Duration
	debounce       time.Duration
	interItemDelay time.Duration
	instanceID     string

	inFlight atomic.Bool

	mu        sync.Mutex
	lastCycle time.Time

	triggers chan struct{}
}

// NewEngine builds a sync engine over the given store, submitter and
// connectivity probe
func NewEngine(store *Store, submitter Submitter, online func(ctx context.Context) bool, opts Options) *Engine {
	if opts.Cooldown == 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.LockStaleness == 0 {
		opts.LockStaleness = DefaultLockStaleness
	}
	if opts.Debounce == 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.InterItemDelay == 0 {
		opts.InterItemDelay = DefaultInterItemDelay
	}
	if opts.InstanceID == "" {
		opts.InstanceID = fmt.Sprintf("agent-%d", time.Now().UnixNano())
	}
	return &Engine{
		store:          store,
		submitter:      submitter,
		online:         online,
		cooldown:       opts.Cooldown,
		lockStaleness:  opts.LockStaleness,
		debounce:       opts.Debounce,
		interItemDelay: opts.InterItemDelay,
		instanceID:     opts.InstanceID,
		triggers:       make(chan struct{}, 1),
	}
}

// TriggerSync requests a sync cycle. Triggers landing inside the debounce
// window coalesce into one cycle; the call never blocks.
func (e *Engine) TriggerSync() {
	select {
	case e.triggers <- struct{}{}:
	default:
	}
}

// Run consumes triggers until ctx is cancelled, letting each burst of
// triggers settle for the debounce window before starting a cycle
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.triggers:
		}

		settle := time.NewTimer(e.debounce)
	settling:
		for {
			select {
			case <-ctx.Done():
				settle.Stop()
				return
			case <-e.triggers:
				// coalesce
			case <-settle.C:
				break settling
			}
		}

		if _, err := e.RunCycle(ctx); err != nil {
			zap.S().Errorw("sync cycle failed", "error", err)
		}
	}
}

// RunCycle performs one drain cycle and returns the number of reports the
// server accepted. A cycle that finds the engine offline, locked, or inside
// the cooldown window is a silent no-op.
func (e *Engine) RunCycle(ctx context.Context) (int, error) {
	if !e.online(ctx) {
		return 0, nil
	}

	if !e.inFlight.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer e.inFlight.Store(false)

	e.mu.Lock()
	sinceLast := time.Since(e.lastCycle)
	e.mu.Unlock()
	if sinceLast < e.cooldown {
		return 0, nil
	}

	acquired, err := e.store.AcquireLock(e.instanceID, e.lockStaleness)
	if err != nil {
		return 0, err
	}
	if !acquired {
		return 0, nil
	}
	// release unconditionally so a failed cycle cannot wedge future syncs
	defer func() {
		if err := e.store.ReleaseLock(e.instanceID); err != nil {
			zap.S().Errorw("failed to release sync lock", "error", err)
		}
	}()

	e.mu.Lock()
	e.lastCycle = time.Now()
	e.mu.Unlock()

	pending, err := e.store.ListPending()
	if err != nil {
		return 0, err
	}

	synced := 0
	for i, entry := range pending {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			// fixed pacing between items to bound server load
			select {
			case <-ctx.Done():
				return synced, nil
			case <-time.After(e.interItemDelay):
			}
		}
		if e.syncOne(ctx, entry) {
			synced++
		}
	}
	return synced, nil
}

// syncOne submits a single entry, reporting whether the server accepted it.
// Failures never propagate; they only move the entry's status so subsequent
// entries in the same cycle still get their turn.
func (e *Engine) syncOne(ctx context.Context, entry QueuedReport) bool {
	// re-verify: a concurrent drain or manual action may have moved it
	current, err := e.store.Get(entry.ID)
	if err != nil || current.Status != StatusPending {
		return false
	}

	if _, err := e.store.SetStatus(entry.ID, StatusSyncing); err != nil {
		zap.S().Errorw("failed to mark entry syncing", "queueId", entry.ID, "error", err)
		return false
	}

	images, err := e.store.ImagesFor(entry.ID)
	if err != nil {
		zap.S().Errorw("failed to load queued images", "queueId", entry.ID, "error", err)
		e.recordFailure(entry.ID)
		return false
	}

	if err := e.submitter.Submit(ctx, entry, images); err != nil {
		var terminal *TerminalError
		if errors.As(err, &terminal) {
			zap.S().Warnw("server rejected queued report permanently",
				"queueId", entry.ID,
				"status", terminal.Status,
			)
			if _, err := e.store.SetStatus(entry.ID, StatusPermanentlyFailed); err != nil {
				zap.S().Errorw("failed to park rejected entry", "queueId", entry.ID, "error", err)
			}
			return false
		}
		zap.S().Warnw("queued report submission failed, will retry",
			"queueId", entry.ID,
			"error", err,
		)
		e.recordFailure(entry.ID)
		return false
	}

	// removal happens before the item is declared synced; a crash in between
	// resubmits the report next cycle (at-least-once, the server does not
	// deduplicate)
	if err := e.store.Remove(entry.ID); err != nil {
		zap.S().Errorw("report accepted but local removal failed, duplicate possible",
			"queueId", entry.ID,
			"error", err,
		)
	}
	return true
}

// recordFailure bumps the retry count and either requeues the entry or parks
// it once the budget is spent
func (e *Engine) recordFailure(queueID string) {
	retries, err := e.store.SetStatus(queueID, StatusFailed)
	if err != nil {
		zap.S().Errorw("failed to record sync failure", "queueId", queueID, "error", err)
		return
	}
	next := StatusPending
	if retries >= MaxRetries {
		next = StatusPermanentlyFailed
		zap.S().Errorw("queued report exceeded retry budget, parked for manual follow-up",
			"queueId", queueID,
			"retries", retries,
		)
	}
	if _, err := e.store.SetStatus(queueID, next); err != nil {
		zap.S().Errorw("failed to requeue entry", "queueId", queueID, "error", err)
	}
}
