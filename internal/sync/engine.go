// Package sync drains the outbound mutation queue against the remote store
// and reconciles remote state back into the local store. It is the only
// component that writes to the remote store or flips an event's sync marker.
package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dt2patel/traveller/internal/model"
	"github.com/dt2patel/traveller/internal/remote"
	"github.com/dt2patel/traveller/internal/store"
)

// Status is the derived global sync state, in decreasing precedence:
// offline > syncing > error > synced.
type Status string

const (
	StatusOffline Status = "offline"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
	StatusSynced  Status = "synced"
)

// Probe reports whether the remote store is currently reachable.
type Probe func(ctx context.Context) bool

// StatusCallback is invoked whenever the derived status may have changed.
type StatusCallback func(Status)

// Engine owns the outbound queue lifecycle: collapse on enqueue, ordered
// single-flight flush, and remote reconciliation.
type Engine struct {
	mu       sync.Mutex
	flushing bool

	events   *store.EventStore
	queue    *store.QueueStore
	remote   remote.Store
	online   Probe
	callback StatusCallback
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewEngine(events *store.EventStore, queue *store.QueueStore, rs remote.Store, online Probe, callback StatusCallback, logger *slog.Logger) *Engine {
	if online == nil {
		online = func(ctx context.Context) bool { return rs.Ping(ctx) == nil }
	}
	return &Engine{
		events:   events,
		queue:    queue,
		remote:   rs,
		online:   online,
		callback: callback,
		logger:   logger,
	}
}

// Enqueue appends a mutation intent, first collapsing any pending entry for
// the same event so stale intermediate states can never be replayed out of
// order against the remote store.
//
// Collapse rules: create+update = create(merged); create+delete = drop both;
// update+update = update(merged, original enqueue position); anything+delete
// = delete.
func (e *Engine) Enqueue(action model.QueueAction, ev model.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prior, err := e.queue.FindByEventID(ev.ID)
	if err != nil {
		return err
	}

	entry, drop := collapse(prior, action, ev)
	if prior != nil {
		if err := e.queue.Remove(prior.ID); err != nil {
			return err
		}
	}
	if drop {
		return nil
	}
	if err := e.queue.Append(entry); err != nil {
		return err
	}

	e.notifyLocked()
	return nil
}

// Flush drains the queue in enqueue order. At most one flush runs at a time;
// a call while another flush is in flight is a no-op. A failed entry is left
// queued, its event marked error, and the flush continues with the next
// entry. Returns whether the queue fully drained.
func (e *Engine) Flush(ctx context.Context) (bool, error) {
	e.mu.Lock()
	if e.flushing {
		e.mu.Unlock()
		return false, nil
	}
	e.flushing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.flushing = false
		e.notifyLocked()
		e.mu.Unlock()
	}()

	if !e.online(ctx) {
		return false, nil
	}

	entries, err := e.queue.List()
	if err != nil {
		return false, err
	}
	if len(entries) == 0 {
		return true, nil
	}

	e.notify()
	e.logger.Info("flushing outbound queue", "entries", len(entries))

	drained := true
	for _, entry := range entries {
		if err := e.apply(ctx, entry); err != nil {
			e.logger.Warn("queue entry failed, leaving for retry",
				"entry", entry.ID, "event", entry.EventID, "action", entry.Action, "error", err)
			if err := e.events.SetMarker(entry.EventID, model.MarkerError); err != nil {
				e.logger.Error("mark event error", "event", entry.EventID, "error", err)
			}
			drained = false
			continue
		}

		if err := e.queue.Remove(entry.ID); err != nil {
			return false, err
		}
		if entry.Action != model.ActionDelete {
			// A mutation enqueued while this entry was in flight supersedes
			// it; the event stays queued until that entry flushes.
			pending, err := e.queue.FindByEventID(entry.EventID)
			if err != nil {
				return false, err
			}
			if pending != nil {
				continue
			}
			if err := e.events.SetMarker(entry.EventID, model.MarkerSynced); err != nil {
				return false, err
			}
		}
	}

	return drained, nil
}

// apply performs the remote effect of one queue entry, with bounded backoff
// around the individual remote call.
func (e *Engine) apply(ctx context.Context, entry model.QueueEntry) error {
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		switch entry.Action {
		case model.ActionCreate, model.ActionUpdate:
			err = e.remote.Upsert(ctx, entry.OwnerID, *entry.Payload)
		case model.ActionDelete:
			err = e.remote.Delete(ctx, entry.OwnerID, entry.EventID)
		}
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// Reconcile merges a remote snapshot into the local store. Per event id:
// a queued local copy always wins (an unflushed mutation must not be
// overwritten by a stale remote read); otherwise the later updatedAt wins.
// Events present only remotely are adopted as synced, unless a delete intent
// for the id is still queued: the missing local row is itself an unflushed
// mutation, and adopting the remote copy would resurrect it. Events present
// only locally are left for the queue to upload.
func (e *Engine) Reconcile(ownerID string, remoteEvents []model.Event) error {
	for _, re := range remoteEvents {
		local, err := e.events.GetByID(re.ID)
		if err != nil {
			return err
		}

		if local != nil {
			if local.SyncMarker == model.MarkerQueued {
				continue
			}
			if !re.UpdatedAt.After(local.UpdatedAt) {
				continue
			}
		} else {
			pending, err := e.queue.FindByEventID(re.ID)
			if err != nil {
				return err
			}
			if pending != nil {
				continue
			}
		}

		re.OwnerID = ownerID
		re.SyncMarker = model.MarkerSynced
		if err := e.events.Put(re); err != nil {
			return err
		}
	}
	return nil
}

// Refresh pulls the owner's remote snapshot and reconciles it locally.
func (e *Engine) Refresh(ctx context.Context, ownerID string) error {
	remoteEvents, err := e.remote.ListByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	return e.Reconcile(ownerID, remoteEvents)
}

// Status derives the current global sync state.
func (e *Engine) Status(ctx context.Context) Status {
	if !e.online(ctx) {
		return StatusOffline
	}

	e.mu.Lock()
	flushing := e.flushing
	e.mu.Unlock()
	if flushing {
		return StatusSyncing
	}

	errored, err := e.events.CountMarker(model.MarkerError)
	if err != nil {
		e.logger.Error("count errored events", "error", err)
		return StatusError
	}
	if errored > 0 {
		return StatusError
	}

	pending, err := e.queue.Count()
	if err != nil {
		e.logger.Error("count queue", "error", err)
		return StatusError
	}
	if pending > 0 {
		return StatusSyncing
	}
	return StatusSynced
}

// Start begins the background flush loop, retrying the queue on an interval.
func (e *Engine) Start(ctx context.Context, interval time.Duration) {
	e.mu.Lock()
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	e.mu.Unlock()

	go func() {
		defer close(e.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := e.queue.Count(); err != nil || n == 0 {
					continue
				}
				if _, err := e.Flush(ctx); err != nil {
					e.logger.Error("background flush", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the background flush loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	done := e.done
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (e *Engine) notify() {
	if e.callback != nil {
		e.callback(e.Status(context.Background()))
	}
}

// notifyLocked fires the callback without deriving flush state under the
// held lock.
func (e *Engine) notifyLocked() {
	if e.callback == nil {
		return
	}
	go e.notify()
}
