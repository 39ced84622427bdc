// Package store provides SQLite-backed durable storage for the offline
// record editor.
//
// The store holds:
//   - Records: Applications, Interviews and StatusCodes, keyed by int64 id
//   - ProvisionalCounter: the singleton that issues negative ids
//   - MutationQueue: pending upsert/delete operations, one per entity
//   - Meta: the store's persisted instance id
//
// # Atomicity
//
// Every single-record Put and Delete is one statement. Read-modify-write
// sequences (id allocation, queue coalescing, re-keying) run inside one
// transaction via Store.Update. Transactions begin IMMEDIATE and the pool
// holds a single connection, so two callers can never observe the same
// counter value or the same queue state between a read and its write.
//
// # Queue ordering
//
// All queue reads use ORDER BY seq ASC. seq is the FIFO position and is
// preserved when an entry is replaced in place; id changes on every
// replacement so that acknowledging a stale entry is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for locks (default 5 seconds)
//   - _txlock=immediate: Take the write lock at BEGIN
package store
