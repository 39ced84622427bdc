package model

import (
	"errors"
	"fmt"
	"time"
)

// OpType is the kind of pending change recorded in the mutation queue.
type OpType string

const (
	OpUpsert OpType = "upsert"
	OpDelete OpType = "delete"
)

// Valid reports whether t is a known operation type.
func (t OpType) Valid() bool {
	return t == OpUpsert || t == OpDelete
}

// Operation is a change request submitted to the mutation queue.
type Operation struct {
	Type      OpType
	Kind      Kind
	EntityID  int64
	Timestamp time.Time
}

// Validate checks the operation's type and kind.
func (op Operation) Validate() error {
	if !op.Type.Valid() {
		return fmt.Errorf("invalid operation type %q", op.Type)
	}
	if !op.Kind.Valid() {
		return fmt.Errorf("invalid entity type %q", op.Kind)
	}
	if op.Timestamp.IsZero() {
		return errors.New("operation timestamp is required")
	}
	return nil
}

func (op Operation) String() string {
	return fmt.Sprintf("%s %s %d", op.Type, op.Kind, op.EntityID)
}

// QueueEntry is one pending operation in the mutation queue.
//
// ID identifies this version of the entry: it changes whenever the entry's
// content is replaced, so acknowledging a stale ID is a no-op. Seq is the
// FIFO position and survives in-place replacement.
type QueueEntry struct {
	ID          int64      `json:"id"`
	Seq         int64      `json:"seq"`
	Operation   OpType     `json:"operationType"`
	EntityType  Kind       `json:"entityType"`
	EntityID    int64      `json:"entityId"`
	Timestamp   time.Time  `json:"timestamp"`
	LastAttempt *time.Time `json:"lastAttempt"`
}

// IsProvisional reports whether the entry targets a provisional id.
func (e QueueEntry) IsProvisional() bool {
	return IsProvisional(e.EntityID)
}

func (e QueueEntry) String() string {
	return fmt.Sprintf("#%d %s %s %d", e.ID, e.Operation, e.EntityType, e.EntityID)
}
