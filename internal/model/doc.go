// Package model defines the record and queue types shared by the store, the
// coalescing rules, and the editor.
//
// # Identity
//
// Every record carries an int64 id. A negative id is provisional: it was
// issued locally while offline and has never been acknowledged by a remote
// system. A non-negative id was assigned by a server. The sign is the only
// discriminator; there is no separate flag.
//
// # Encoding
//
// Record fields are persisted as canonical JSON (sorted keys, NFC-normalized
// strings, no HTML escaping) so that equal content always produces identical
// bytes. See MarshalCanonical.
package model
