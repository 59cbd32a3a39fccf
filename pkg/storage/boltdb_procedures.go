package storage

import (
	"encoding/json"
	"time"

	"github.com/ChayaSt/QCFractal/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// AddProcedures has no natural-key dedup, matching the original socket's
// table_unique_indices entry for procedures (false): every call inserts.
func (s *BoltStore) AddProcedures(procs []*types.Procedure) (types.Meta, []string, error) {
	meta := types.NewMeta()
	ids := make([]string, len(procs))
	if len(procs) == 0 {
		return meta, ids, nil
	}

	now := time.Now()
	err := s.db.Update(func(tx *bolt.Tx) error {
		for i, p := range procs {
			id := newID()
			p.ID = id
			p.CreatedOn = now
			p.ModifiedOn = now
			if err := putJSON(tx, bucketProcedures, id, p); err != nil {
				return err
			}
			ids[i] = id
			meta.NInserted++
		}
		return nil
	})
	if err != nil {
		meta.Success = false
		meta.ErrorDescription = err.Error()
	}
	return meta, ids, err
}

func (s *BoltStore) GetProcedures(filter QueryFilter, limit int) ([]*types.Procedure, error) {
	if limit <= 0 || limit > s.maxLimit {
		limit = s.maxLimit
	}

	var out []*types.Procedure
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProcedures).ForEach(func(_, v []byte) error {
			if len(out) >= limit {
				return nil
			}
			var doc map[string]interface{}
			if err := json.Unmarshal(v, &doc); err != nil {
				return err
			}
			if !filter.Matches(doc) {
				return nil
			}
			var p types.Procedure
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			out = append(out, &p)
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) GetProceduresByIDs(ids []string) ([]*types.Procedure, types.Meta, error) {
	meta := types.NewMeta()
	var out []*types.Procedure
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, id := range ids {
			var p types.Procedure
			found, err := getJSON(tx, bucketProcedures, id, &p)
			if err != nil {
				return err
			}
			if !found {
				meta.Missing = append(meta.Missing, id)
				continue
			}
			out = append(out, &p)
		}
		return nil
	})
	meta.NFound = len(out)
	return out, meta, err
}

func (s *BoltStore) UpdateProcedure(p *types.Procedure) error {
	p.ModifiedOn = time.Now()
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketProcedures, p.ID, p)
	})
}

func (s *BoltStore) DeleteProcedures(ids []string) (int, error) {
	count := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, id := range ids {
			b := tx.Bucket(bucketProcedures)
			if b.Get([]byte(id)) == nil {
				continue
			}
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}
