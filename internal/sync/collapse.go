package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/dt2patel/traveller/internal/model"
)

// collapse folds a new mutation into the pending entry for the same event,
// if any. It returns the entry to append and whether both mutations cancel
// out (create followed by delete: the event never existed remotely).
//
// Payloads are full events, so "merged" is the newer payload; the original
// enqueue position is kept so per-owner ordering is preserved.
func collapse(prior *model.QueueEntry, action model.QueueAction, ev model.Event) (model.QueueEntry, bool) {
	entry := model.QueueEntry{
		ID:         uuid.NewString(),
		Action:     action,
		EventID:    ev.ID,
		OwnerID:    ev.OwnerID,
		EnqueuedAt: time.Now().UTC(),
	}
	if action != model.ActionDelete {
		e := ev
		entry.Payload = &e
	}

	if prior == nil {
		return entry, false
	}

	switch {
	case prior.Action == model.ActionCreate && action == model.ActionDelete:
		return model.QueueEntry{}, true

	case prior.Action == model.ActionCreate && action == model.ActionUpdate:
		// The remote store never saw the create; send the merged state as one.
		entry.Action = model.ActionCreate
		entry.EnqueuedAt = prior.EnqueuedAt

	case prior.Action == model.ActionUpdate && action == model.ActionUpdate:
		entry.EnqueuedAt = prior.EnqueuedAt

	case action == model.ActionDelete:
		entry.EnqueuedAt = prior.EnqueuedAt
	}

	return entry, false
}
