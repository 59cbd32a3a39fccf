/*
Package storage implements the Store component (C1): persistence for every
entity in the data model, natural-key deduplication on add, and the bulk
Meta envelope contract shared by every add/get operation.

# Architecture

BoltStore is the production Store implementation, backed by a single
embedded BoltDB file with one bucket per entity collection:

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │             BoltStore                        │          │
	│  │  - File: <dataDir>/qcfractal.db              │          │
	│  │  - Format: B+tree with MVCC                  │          │
	│  │  - Transactions: ACID with fsync             │          │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │              Bucket Structure                │          │
	│  │  ┌────────────────────────────┐              │          │
	│  │  │ molecules   (Molecule ID)  │              │          │
	│  │  │ options     (OptionSet ID) │              │          │
	│  │  │ collections (Collection ID)│              │          │
	│  │  │ results     (Result ID)    │              │          │
	│  │  │ procedures  (Procedure ID) │              │          │
	│  │  │ task_queue (Task ID)       │              │          │
	│  │  │ service_queue (Service ID) │              │          │
	│  │  │ queue_managers (Manager ID)│              │          │
	│  │  │ users       (User Username)│              │          │
	│  │  └────────────────────────────┘              │          │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │         Transaction Management                │          │
	│  │  - Read: db.View() - concurrent reads        │          │
	│  │  - Write: db.Update() - serialized writes    │          │
	│  │  - Rollback: automatic on error              │          │
	│  │  - Commit: automatic on success + fsync      │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Natural-Key Deduplication

Unlike a typical CRUD store, Add* methods do not blindly insert: each
computes its entity's natural key and checks for a collision before
writing.

  - Molecules dedup on the structural Hash field.
  - OptionSets dedup on (Program, Name).
  - Collections dedup on (Type, Name); AddCollection merges the caller's
    fields into the existing record and returns it with false when one is
    already present instead of erroring.
  - Results dedup on the lowercased (Program, Driver, Method, Basis,
    Options, Molecule) tuple; passing updateExisting overwrites the match
    instead of reporting it as a duplicate.

A duplicate is not an error: the caller's Meta envelope reports it in
Duplicates while Success remains true, matching how a bulk submission is
expected to behave when resubmitting overlapping work.

# Task and Hook Operations

Tasks are persisted generically here (CreateTask, GetTask,
GetTasksByStatus, UpdateTask(s), DeleteTask); the WAITING/RUNNING/
COMPLETE/ERROR lease state machine itself lives in pkg/taskqueue, the sole
intended caller of these methods — BoltStore does not interpret TaskStatus
beyond persisting it.

HandleHooks applies a batch of HookList updates to whatever document each
one's DocumentRef names, in a single transaction, so a Task completion that
triggers several downstream field updates either commits all of them or
none.

# Usage

	store, err := storage.NewBoltStore("/var/lib/qcfractal/server-1", 0)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	meta, ids, err := store.AddMolecules([]*types.Molecule{mol})

	results, err := store.GetResults(storage.QueryFilter{"program": "psi4"}, 0, 100)

	task := &types.Task{BaseResult: types.DocumentRef{Kind: "result", ID: resultID}}
	err = store.CreateTask(task)

	err = store.IncrementManagerCounters("manager-1", types.ManagerCounterDelta{Completed: 1})

# Design Patterns

Upsert Pattern: UpsertManager (replace) and AddCollection (merge, on a
match) write through rather than require a separate existence check,
simplifying heartbeat and resubmission call sites.

Filter Pattern: GetResults and GetProcedures take a QueryFilter and scan
matching entries in memory rather than maintaining secondary indexes —
appropriate at the dataset sizes a single embedded store targets.
GetResults additionally composes the filter before scanning: string
identity fields are lowercased and status defaults to COMPLETE when the
caller leaves it unset, then skip/limit paginate the match set. Projection
is not implemented — every Get* call returns whole documents.

Error Wrapping: errors are wrapped with operation context via
fmt.Errorf("...: %w", err) so a caller can still inspect the underlying
bbolt error.

# Performance Characteristics

Read operations are O(log n) for a key lookup and O(n) for a filtered scan,
typically sub-millisecond per thousand entries. Writes are serialized by
BoltDB's single-writer model and pay an fsync on commit (roughly 1-5ms);
batched Add calls use one transaction to amortize that cost across the
whole batch.

# See Also

  - pkg/types for all entity definitions
  - pkg/taskqueue for the Task lease/complete state machine built on top
    of CreateTask/GetTasksByStatus/UpdateTask(s)
  - pkg/reconciler for the lease-expiry sweep that also reads through this
    interface
  - BoltDB documentation: https://github.com/etcd-io/bbolt
*/
package storage
