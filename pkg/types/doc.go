/*
Package types defines the core data structures shared by every component of
the system: the quantum-chemistry data model (Molecule, OptionSet, Result,
Procedure, Collection), the work-dispatch model (Task, Service, Manager),
authentication (User, Permission), and the bulk-operation contracts every
add/get method returns (Meta, Envelope, DocumentRef, HookList).

# Core Types

Quantum Chemistry Data Model:
  - Molecule: atoms, geometry, charge, multiplicity, deduplicated by its
    canonical structural Hash.
  - OptionSet: a named, program-scoped bundle of computational keywords,
    identified by (Program, Name).
  - Collection: a named, typed group of Results or Procedures (a dataset),
    identified by (Type, Name).
  - Result: a single computation, identified by the six-field tuple
    (Program, Driver, Method, Basis, Options, Molecule) with ResultStatus
    tracking INCOMPLETE/COMPLETE/ERROR.
  - Procedure: a multi-step computation (an optimization, a torsion scan)
    whose Trajectory references an ordered list of underlying Result IDs.

Work Dispatch:
  - Task: the WAITING/RUNNING/COMPLETE/ERROR unit of work a QueueManager
    leases, bound to exactly one Result or Procedure via BaseResult.
  - DocumentRef: a polymorphic (Kind, ID) pointer used wherever one entity
    needs to reference another generically, without this package depending
    on pkg/storage.
  - Service: a long-running, multi-iteration computation driven forward by
    repeated Hook application against its own document.
  - Manager: a heartbeat and lifetime-counter record for one running
    QueueManager process, identified by its natural Name key.
  - HookList: a declarative batch of field updates targeting a DocumentRef,
    applied atomically by Store.HandleHooks.

Authentication:
  - User: an authentication principal with a bcrypt PasswordDigest and a
    fixed set of named Permissions (read, write, compute, queue, admin).

# Usage

Creating a Molecule and submitting a Task against it:

	mol := &types.Molecule{
		Symbols:      []string{"O", "H", "H"},
		Geometry:     []float64{0, 0, 0, 0, 0, 0.96, 0.93, 0, -0.24},
		Charge:       0,
		Multiplicity: 1,
	}
	_, ids, err := store.AddMolecules([]*types.Molecule{mol})

	task := &types.Task{
		BaseResult: types.DocumentRef{Kind: "result", ID: resultID},
		Spec:       map[string]interface{}{"program": "psi4", "method": "b3lyp"},
		Tag:        "gpu",
	}

Every bulk add/get method returns a Meta envelope alongside its data:

	meta, ids, err := store.AddResults(results, false)
	if !meta.Success {
		// meta.Errors and meta.Duplicates explain the partial failure
	}

# Design Patterns

Natural Keys: most entities are deduplicated on a natural key computed from
their content (Molecule.Hash, the Result six-tuple, OptionSet's
(Program, Name)) rather than an externally supplied ID, so resubmitting the
same computation is a no-op rather than a duplicate row.

Polymorphic References: DocumentRef lets a Task point at either a Result
or a Procedure, and a HookList additionally at a Service or a Task, without
a union type or a foreign-key field per kind.

# See Also

  - pkg/storage for the persistence layer these types are stored in
  - pkg/taskqueue for the Task lease/complete state machine
  - pkg/queuemanager for the dispatch loop that drives Task and Manager
*/
package types
