// Package harness replays scripted edit sessions against a scratch store and
// checks the resulting records and mutation queue.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: reconcile_round_trip
//	description: "Application gets its server id after an offline session"
//	start: "2025-03-01T09:00:00Z"   # optional, clock start
//	tick: 1s                        # optional, clock step
//	steps:
//	  - op: create
//	    kind: application
//	    fields: { companyName: Acme }
//	    expect: { id: -1 }
//	  - op: reconcile
//	    kind: application
//	    id: -1
//	    new_id: 1001
//	  - op: remove
//	    kind: application
//	    id: -1
//	    expect: { error: NOT_FOUND }
//	assertions:
//	  - type: queue_order
//	    entries: ["upsert application 1001"]
//	  - type: field
//	    kind: application
//	    id: 1001
//	    field: companyName
//	    value: Acme
//
// Step ops are create, update, remove, reconcile, ack, attempt and enqueue.
// ack and attempt address a queue entry by its 1-based position at the time
// the step runs. enqueue submits a raw queue operation, bypassing the record
// collections, and may assert the coalescing outcome.
//
// # Assertion Types
//
//   - queue_count: the queue holds exactly count entries
//   - queue_order: the queue reads entries, each "<op> <kind> <id>", in order
//   - record_present / record_absent: a record exists or not
//   - field: a record field equals value (a null value means absent)
//   - next_provisional_id: the allocator's next value equals value
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory store with a deterministic
// clock (testutil.DeterministicClock), so queue timestamps and entry ids are
// identical across runs and the final state can be compared with golden
// files under testdata/golden.
package harness
