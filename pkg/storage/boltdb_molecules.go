package storage

import (
	"fmt"
	"time"

	"github.com/ChayaSt/QCFractal/pkg/chemistry"
	"github.com/ChayaSt/QCFractal/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// AddMolecules hashes every incoming molecule, checks it against the
// existing hash index, and on a hash match re-compares the full structure:
// a real structural match is folded into a duplicate, a mismatch is a hash
// collision and aborts the whole batch. Matches within the same batch are
// found through the same hash index, since each insert is visible to later
// entries of the batch's transaction, and are compared the same way.
func (s *BoltStore) AddMolecules(mols []*types.Molecule) (types.Meta, []string, error) {
	meta := types.NewMeta()
	ids := make([]string, len(mols))
	if len(mols) == 0 {
		return meta, ids, nil
	}

	now := time.Now()
	err := s.db.Update(func(tx *bolt.Tx) error {
		hashBucket := tx.Bucket(bucketMoleculesByHash)
		seen := make(map[string]int, len(mols))

		for i, m := range mols {
			hash, err := chemistry.Hash(m.Symbols, m.Geometry, m.Charge, m.Multiplicity)
			if err != nil {
				meta.Success = false
				meta.ValidationErrors = append(meta.ValidationErrors, fmt.Sprintf("molecule %d: %v", i, err))
				continue
			}
			m.Hash = hash

			if existingIDBytes := hashBucket.Get([]byte(hash)); existingIDBytes != nil {
				existingID := string(existingIDBytes)
				var existing types.Molecule
				if _, err := getJSON(tx, bucketMolecules, existingID, &existing); err != nil {
					return err
				}
				if !chemistry.Compare(m.Symbols, m.Geometry, m.Charge, m.Multiplicity,
					existing.Symbols, existing.Geometry, existing.Charge, existing.Multiplicity) {
					return fmt.Errorf("hash collision detected for molecule %d: hash %s matches existing molecule %s but structures differ", i, hash, existingID)
				}
				ids[i] = existingID
				meta.Duplicates = append(meta.Duplicates, existingID)
				continue
			}

			if j, ok := seen[hash]; ok {
				ids[i] = ids[j]
				meta.Duplicates = append(meta.Duplicates, ids[j])
				continue
			}

			id := newID()
			m.ID = id
			m.CreatedOn = now
			if err := putJSON(tx, bucketMolecules, id, m); err != nil {
				return err
			}
			if err := hashBucket.Put([]byte(hash), []byte(id)); err != nil {
				return err
			}
			ids[i] = id
			seen[hash] = i
			meta.NInserted++
		}
		return nil
	})
	if err != nil {
		meta.Success = false
		meta.ErrorDescription = err.Error()
		return meta, ids, err
	}
	return meta, ids, nil
}

// GetMolecules returns molecules in the order requested; ids that don't
// exist are reported in meta.Missing and omitted from the returned slice.
func (s *BoltStore) GetMolecules(ids []string) ([]*types.Molecule, types.Meta, error) {
	meta := types.NewMeta()
	var out []*types.Molecule

	err := s.db.View(func(tx *bolt.Tx) error {
		for _, id := range ids {
			var m types.Molecule
			found, err := getJSON(tx, bucketMolecules, id, &m)
			if err != nil {
				return err
			}
			if !found {
				meta.Missing = append(meta.Missing, id)
				continue
			}
			out = append(out, &m)
		}
		return nil
	})
	meta.NFound = len(out)
	return out, meta, err
}

// GetMoleculesByHash looks molecules up directly through the hash index.
func (s *BoltStore) GetMoleculesByHash(hashes []string) ([]*types.Molecule, error) {
	var out []*types.Molecule
	err := s.db.View(func(tx *bolt.Tx) error {
		hashBucket := tx.Bucket(bucketMoleculesByHash)
		for _, h := range hashes {
			idBytes := hashBucket.Get([]byte(h))
			if idBytes == nil {
				continue
			}
			var m types.Molecule
			if _, err := getJSON(tx, bucketMolecules, string(idBytes), &m); err != nil {
				return err
			}
			out = append(out, &m)
		}
		return nil
	})
	return out, err
}

// DeleteMolecules removes both the primary record and its hash index entry.
func (s *BoltStore) DeleteMolecules(ids []string) (int, error) {
	count := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, id := range ids {
			var m types.Molecule
			found, err := getJSON(tx, bucketMolecules, id, &m)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			if err := tx.Bucket(bucketMolecules).Delete([]byte(id)); err != nil {
				return err
			}
			if err := tx.Bucket(bucketMoleculesByHash).Delete([]byte(m.Hash)); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}
