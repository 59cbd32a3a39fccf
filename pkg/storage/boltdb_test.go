package storage

import (
	"testing"

	"github.com/ChayaSt/QCFractal/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func water() *types.Molecule {
	return &types.Molecule{
		Symbols:  []string{"O", "H", "H"},
		Geometry: []float64{0, 0, 0, 0, 0.757, 0.587, 0, -0.757, 0.587},
	}
}

func TestAddMoleculesDeduplicatesByHash(t *testing.T) {
	store := newTestStore(t)

	meta, ids, err := store.AddMolecules([]*types.Molecule{water(), water()})
	require.NoError(t, err)
	assert.True(t, meta.Success)
	assert.Equal(t, 1, meta.NInserted)
	assert.Len(t, meta.Duplicates, 1)
	assert.Equal(t, ids[0], ids[1])
}

func TestAddMoleculesDistinctGeometryInsertsCleanly(t *testing.T) {
	store := newTestStore(t)

	mol := water()
	_, _, err := store.AddMolecules([]*types.Molecule{mol})
	require.NoError(t, err)

	// Different geometry hashes differently, so it should insert cleanly
	// rather than collide; the collision-detection path itself is exercised
	// directly against chemistry.Hash/Compare in pkg/chemistry's tests.
	_, _, err = store.AddMolecules([]*types.Molecule{{
		Symbols:  mol.Symbols,
		Geometry: []float64{0, 0, 0, 0, 0.757, 0.587, 0, -0.757, 1.9},
	}})
	require.NoError(t, err)
}

func TestGetMoleculesReportsMissing(t *testing.T) {
	store := newTestStore(t)

	_, ids, err := store.AddMolecules([]*types.Molecule{water()})
	require.NoError(t, err)

	mols, meta, err := store.GetMolecules([]string{ids[0], "does-not-exist"})
	require.NoError(t, err)
	assert.Len(t, mols, 1)
	assert.Equal(t, 1, meta.NFound)
	assert.Equal(t, []string{"does-not-exist"}, meta.Missing)
}

func TestAddResultsDeduplicatesByIdentityTuple(t *testing.T) {
	store := newTestStore(t)

	r1 := &types.Result{Program: "Psi4", Driver: "Energy", Method: "B3LYP", Basis: "6-31G", Molecule: "mol-1"}
	r2 := &types.Result{Program: "psi4", Driver: "energy", Method: "b3lyp", Basis: "6-31g", Molecule: "mol-1"}

	meta, ids, err := store.AddResults([]*types.Result{r1, r2}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.NInserted)
	assert.Len(t, meta.Duplicates, 1)
	assert.Equal(t, ids[0], ids[1])
}

func TestAddResultsUpdateExistingOverwrites(t *testing.T) {
	store := newTestStore(t)

	r1 := &types.Result{Program: "psi4", Driver: "energy", Method: "b3lyp", Basis: "6-31g", Molecule: "mol-1"}
	_, ids, err := store.AddResults([]*types.Result{r1}, false)
	require.NoError(t, err)

	r2 := &types.Result{Program: "psi4", Driver: "energy", Method: "b3lyp", Basis: "6-31g", Molecule: "mol-1", Status: types.ResultStatusComplete}
	meta, ids2, err := store.AddResults([]*types.Result{r2}, true)
	require.NoError(t, err)
	assert.Equal(t, ids[0], ids2[0])
	assert.Empty(t, meta.Duplicates)

	got, _, err := store.GetResultsByIDs([]string{ids[0]})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.ResultStatusComplete, got[0].Status)
}

func TestGetResultsComposesFilterAndDefaultsStatus(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.AddResults([]*types.Result{
		{Program: "Psi4", Driver: "energy", Method: "b3lyp", Basis: "6-31g", Molecule: "mol-1", Status: types.ResultStatusComplete},
		{Program: "psi4", Driver: "gradient", Method: "b3lyp", Basis: "6-31g", Molecule: "mol-2", Status: types.ResultStatusIncomplete},
		{Program: "nwchem", Driver: "energy", Method: "b3lyp", Basis: "6-31g", Molecule: "mol-3", Status: types.ResultStatusComplete},
	}, false)
	require.NoError(t, err)

	// "Psi4" must match the lowercased "psi4" stored on disk, and the
	// unset status must default to COMPLETE, excluding the incomplete one.
	got, err := store.GetResults(QueryFilter{"program": "Psi4"}, 0, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "energy", got[0].Driver)

	// An explicit status is honored (and uppercased) rather than defaulted.
	got, err = store.GetResults(QueryFilter{"program": "psi4", "status": "incomplete"}, 0, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "gradient", got[0].Driver)
}

func TestGetResultsSkipPaginates(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.AddResults([]*types.Result{
		{Program: "psi4", Driver: "energy", Method: "b3lyp", Basis: "6-31g", Molecule: "mol-1", Status: types.ResultStatusComplete},
		{Program: "psi4", Driver: "energy", Method: "hf", Basis: "6-31g", Molecule: "mol-2", Status: types.ResultStatusComplete},
	}, false)
	require.NoError(t, err)

	all, err := store.GetResults(QueryFilter{"program": "psi4"}, 0, 100)
	require.NoError(t, err)
	require.Len(t, all, 2)

	skipped, err := store.GetResults(QueryFilter{"program": "psi4"}, 1, 100)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
}

func TestCreateTaskDuplicateBaseResult(t *testing.T) {
	store := newTestStore(t)
	ref := types.DocumentRef{Kind: "result", ID: "res-1"}

	err := store.CreateTask(&types.Task{BaseResult: ref})
	require.NoError(t, err)

	err = store.CreateTask(&types.Task{BaseResult: ref})
	assert.ErrorIs(t, err, ErrDuplicateBaseResult)
}

func TestHandleHooksAppliesSetPushInc(t *testing.T) {
	store := newTestStore(t)

	err := store.CreateService(&types.Service{ServiceType: "optimization", Data: map[string]interface{}{"iteration": 0.0}})
	require.NoError(t, err)

	services, err := store.GetServicesByStatus(types.ResultStatusIncomplete)
	require.NoError(t, err)
	require.Len(t, services, 1)
	svcID := services[0].ID

	meta, err := store.HandleHooks([]types.HookList{{
		Document: types.DocumentRef{Kind: "service", ID: svcID},
		Updates: []types.Hook{
			{Op: types.HookOpInc, Field: "Data.iteration", Value: 1.0},
			{Op: types.HookOpPush, Field: "Output.energies", Value: -75.3},
			{Op: types.HookOpSet, Field: "Status", Value: "COMPLETE"},
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, meta.NInserted)

	updated, err := store.GetService(svcID)
	require.NoError(t, err)
	assert.EqualValues(t, "COMPLETE", updated.Status)
}

func TestHandleHooksOnResultUsesLowercaseModifiedOnKey(t *testing.T) {
	store := newTestStore(t)

	_, ids, err := store.AddResults([]*types.Result{
		{Program: "psi4", Driver: "energy", Method: "b3lyp", Basis: "6-31g", Molecule: "mol-1"},
	}, false)
	require.NoError(t, err)
	before, _, err := store.GetResultsByIDs(ids)
	require.NoError(t, err)

	meta, err := store.HandleHooks([]types.HookList{{
		Document: types.DocumentRef{Kind: "result", ID: ids[0]},
		Updates:  []types.Hook{{Op: types.HookOpSet, Field: "status", Value: "COMPLETE"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, meta.NInserted)

	after, _, err := store.GetResultsByIDs(ids)
	require.NoError(t, err)
	assert.EqualValues(t, "COMPLETE", after[0].Status)
	assert.True(t, after[0].ModifiedOn.After(before[0].ModifiedOn))
}

func TestIncrementManagerCountersIsAdditive(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpsertManager(&types.Manager{Name: "mgr-1"}))
	require.NoError(t, store.IncrementManagerCounters("mgr-1", types.ManagerCounterDelta{Completed: 3, Failed: 1, Returned: 4, Submitted: 2}))
	require.NoError(t, store.IncrementManagerCounters("mgr-1", types.ManagerCounterDelta{Completed: 2, Returned: 2, Submitted: 2}))

	m, err := store.GetManager("mgr-1")
	require.NoError(t, err)
	assert.EqualValues(t, 5, m.CompletedCount)
	assert.EqualValues(t, 1, m.FailedCount)
	assert.EqualValues(t, 6, m.ReturnedCount)
	assert.EqualValues(t, 4, m.SubmittedCount)
}
