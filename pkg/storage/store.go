// Package storage implements the Store component (C1): persistence for every
// entity in the data model, natural-key deduplication on add, and the bulk
// meta envelope contract shared by every add/get operation.
package storage

import (
	"github.com/ChayaSt/QCFractal/pkg/types"
)

// Store is the full persistence contract for the orchestration layer. The
// production implementation is BoltStore, backed by a single embedded
// BoltDB file with one bucket per entity collection.
type Store interface {
	// Molecules are deduplicated by structural hash; AddMolecules is the
	// only insertion path and performs the hash-collision check itself.
	AddMolecules(mols []*types.Molecule) (types.Meta, []string, error)
	GetMolecules(ids []string) ([]*types.Molecule, types.Meta, error)
	GetMoleculesByHash(hashes []string) ([]*types.Molecule, error)
	DeleteMolecules(ids []string) (int, error)

	AddOptionSets(opts []*types.OptionSet) (types.Meta, []string, error)
	GetOptionSets(ids []string) ([]*types.OptionSet, types.Meta, error)
	GetOptionSetByName(program, name string) (*types.OptionSet, error)
	DeleteOptionSets(ids []string) (int, error)

	AddCollection(c *types.Collection) (*types.Collection, bool, error)
	GetCollectionByName(collectionType, name string) (*types.Collection, error)
	ListCollections(collectionType string) ([]*types.Collection, error)
	UpdateCollection(c *types.Collection) error
	DeleteCollection(id string) error

	// AddResults lowercases the six identity fields and deduplicates by the
	// resulting tuple; when updateExisting is true a match is overwritten
	// instead of counted as a duplicate.
	AddResults(results []*types.Result, updateExisting bool) (types.Meta, []string, error)
	// GetResults composes filter the way the original query_composition
	// helper does before scanning: status defaults to COMPLETE and string
	// identity fields are lowercased, then skip/limit paginate the match set.
	GetResults(filter QueryFilter, skip, limit int) ([]*types.Result, error)
	GetResultsByIDs(ids []string) ([]*types.Result, types.Meta, error)
	UpdateResult(r *types.Result) error
	DeleteResults(ids []string) (int, error)

	AddProcedures(procs []*types.Procedure) (types.Meta, []string, error)
	GetProcedures(filter QueryFilter, limit int) ([]*types.Procedure, error)
	GetProceduresByIDs(ids []string) ([]*types.Procedure, types.Meta, error)
	UpdateProcedure(p *types.Procedure) error
	DeleteProcedures(ids []string) (int, error)

	// Tasks are generically persisted here; the WAITING/RUNNING/COMPLETE/
	// ERROR state machine and the lease idiom live in pkg/taskqueue, which
	// is the sole intended caller of these methods.
	CreateTask(t *types.Task) error
	GetTask(id string) (*types.Task, error)
	GetTaskByBaseResult(ref types.DocumentRef) (*types.Task, error)
	GetTasksByIDs(ids []string) ([]*types.Task, types.Meta, error)
	GetTasksByStatus(status types.TaskStatus, tag string, limit int) ([]*types.Task, error)
	UpdateTask(t *types.Task) error
	UpdateTasks(tasks []*types.Task) error
	DeleteTask(id string) error

	CreateService(s *types.Service) error
	GetService(id string) (*types.Service, error)
	GetServicesByStatus(status types.ResultStatus) ([]*types.Service, error)
	UpdateService(s *types.Service) error
	DeleteService(id string) error

	// HandleHooks applies a batch of declarative field updates to whatever
	// document each HookList's Document reference names, in one transaction.
	HandleHooks(hooks []types.HookList) (types.Meta, error)

	UpsertManager(m *types.Manager) error
	GetManager(name string) (*types.Manager, error)
	ListManagers() ([]*types.Manager, error)
	IncrementManagerCounters(name string, delta types.ManagerCounterDelta) error

	AddUser(u *types.User) error
	GetUserByUsername(username string) (*types.User, error)
	DeleteUser(username string) error

	Close() error
}
