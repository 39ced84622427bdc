// Package coalesce decides how an incoming operation combines with the entry
// already queued for the same entity.
//
// The queue holds at most one entry per (entity type, entity id). Decide
// encodes the full transition table:
//
//	current             incoming  result
//	-------             --------  ------
//	none                upsert    append upsert
//	none                delete    append delete (non-provisional id)
//	none                delete    reject (provisional id: nothing remote to delete)
//	upsert provisional  upsert    replace in place
//	upsert provisional  delete    cancel (remove entry, queue nothing)
//	upsert              upsert    replace in place
//	upsert              delete    replace in place with delete
//	delete              upsert    replace in place with upsert
//	delete              delete    unchanged
//
// Decide is pure. Applying the decision atomically is the store's job.
package coalesce

import (
	"fmt"

	"github.com/roach88/jobtrail/internal/model"
)

// Outcome is what happened to the queue as a result of an enqueue.
type Outcome int

const (
	// Appended means a new entry was added at the tail of the queue.
	Appended Outcome = iota + 1
	// Replaced means the existing entry's content was replaced; its queue
	// position is kept.
	Replaced
	// Cancelled means the existing entry was removed and nothing was queued.
	Cancelled
	// Rejected means the operation was dropped because it has no meaning for
	// the remote system. Not an error.
	Rejected
	// Unchanged means the queue already expresses the operation.
	Unchanged
)

func (o Outcome) String() string {
	switch o {
	case Appended:
		return "appended"
	case Replaced:
		return "replaced"
	case Cancelled:
		return "cancelled"
	case Rejected:
		return "rejected"
	case Unchanged:
		return "unchanged"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Changed reports whether the outcome modified the queue.
func (o Outcome) Changed() bool {
	return o == Appended || o == Replaced || o == Cancelled
}

// Decision is the result of Decide.
type Decision struct {
	Outcome Outcome

	// Op is the operation type the queue holds for the entity afterwards.
	// Empty for Cancelled and Rejected when nothing remains queued.
	Op model.OpType

	// Reason explains Rejected, Cancelled and Unchanged outcomes.
	Reason string
}

// Decide applies the coalescing table. current is the entry queued for the
// same entity, or nil if there is none.
func Decide(current *model.QueueEntry, incoming model.Operation) Decision {
	provisional := model.IsProvisional(incoming.EntityID)

	if current == nil {
		switch incoming.Type {
		case model.OpUpsert:
			return Decision{Outcome: Appended, Op: model.OpUpsert}
		case model.OpDelete:
			if provisional {
				return Decision{
					Outcome: Rejected,
					Reason:  "delete of provisional id with no queued upsert",
				}
			}
			return Decision{Outcome: Appended, Op: model.OpDelete}
		}
		return Decision{Outcome: Rejected, Reason: fmt.Sprintf("unknown operation type %q", incoming.Type)}
	}

	switch current.Operation {
	case model.OpUpsert:
		switch incoming.Type {
		case model.OpUpsert:
			return Decision{Outcome: Replaced, Op: model.OpUpsert}
		case model.OpDelete:
			if provisional {
				return Decision{
					Outcome: Cancelled,
					Reason:  "provisional record never reached the remote system",
				}
			}
			return Decision{Outcome: Replaced, Op: model.OpDelete}
		}
	case model.OpDelete:
		switch incoming.Type {
		case model.OpUpsert:
			return Decision{Outcome: Replaced, Op: model.OpUpsert}
		case model.OpDelete:
			return Decision{Outcome: Unchanged, Op: model.OpDelete, Reason: "delete already queued"}
		}
	}

	return Decision{
		Outcome: Rejected,
		Reason:  fmt.Sprintf("unsupported transition %s -> %s", queuedOp(current), incoming.Type),
	}
}

func queuedOp(e *model.QueueEntry) string {
	if e == nil {
		return "none"
	}
	return string(e.Operation)
}
