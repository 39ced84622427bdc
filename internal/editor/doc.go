// Package editor is the CRUD and sync-client surface over the store.
//
// Every mutation runs in one store transaction that writes the record and
// enqueues the matching queue operation, so the record collections and the
// mutation queue never disagree after a crash.
//
// A sync client consumes the queue through DrainQueue, applies each entry
// remotely, then calls Acknowledge. When the remote system assigns an id to a
// provisional record, ReconcileID re-keys it locally together with the
// interviews that point at it and the entry still queued for it.
package editor
