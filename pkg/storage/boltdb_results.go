package storage

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ChayaSt/QCFractal/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// resultKey builds the dedup key from the six identity fields, lowercased.
// All six fields are lowercased here, following the spec literally rather
// than the original socket's four-of-six _lower_results_index list (see
// DESIGN.md).
func resultKey(r *types.Result) string {
	lower := func(s string) string { return strings.ToLower(s) }
	return strings.Join([]string{
		lower(r.Program), lower(r.Driver), lower(r.Method),
		lower(r.Basis), lower(r.Options), lower(r.Molecule),
	}, "/")
}

func lowercaseResultFields(r *types.Result) {
	r.Program = strings.ToLower(r.Program)
	r.Driver = strings.ToLower(r.Driver)
	r.Method = strings.ToLower(r.Method)
	r.Basis = strings.ToLower(r.Basis)
	if r.Options != "" {
		r.Options = strings.ToLower(r.Options)
	}
	if r.Molecule != "" {
		r.Molecule = strings.ToLower(r.Molecule)
	}
}

// AddResults lowercases the identity fields of every result, then either
// upserts (updateExisting) or rejects as a duplicate any result whose
// identity tuple already exists.
func (s *BoltStore) AddResults(results []*types.Result, updateExisting bool) (types.Meta, []string, error) {
	meta := types.NewMeta()
	ids := make([]string, len(results))
	if len(results) == 0 {
		return meta, ids, nil
	}

	now := time.Now()
	err := s.db.Update(func(tx *bolt.Tx) error {
		keyBucket := tx.Bucket(bucketResultsByKey)
		for i, r := range results {
			lowercaseResultFields(r)
			key := resultKey(r)

			if existingIDBytes := keyBucket.Get([]byte(key)); existingIDBytes != nil {
				existingID := string(existingIDBytes)
				if !updateExisting {
					ids[i] = existingID
					meta.Duplicates = append(meta.Duplicates, existingID)
					continue
				}
				r.ID = existingID
				r.ModifiedOn = now
				if err := putJSON(tx, bucketResults, existingID, r); err != nil {
					return err
				}
				ids[i] = existingID
				meta.NInserted++
				continue
			}

			id := newID()
			r.ID = id
			r.CreatedOn = now
			r.ModifiedOn = now
			if err := putJSON(tx, bucketResults, id, r); err != nil {
				return err
			}
			if err := keyBucket.Put([]byte(key), []byte(id)); err != nil {
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

// resultFilterStringFields are the Result identity fields whose filter
// values are lowercased before matching, mirroring lowercaseResultFields on
// the write path.
var resultFilterStringFields = []string{"program", "method", "basis", "options", "molecule", "driver"}

// composeResultFilter applies the Results query composition rules on top of
// a caller-supplied filter: string identity fields are lowercased and status
// defaults to COMPLETE when the caller didn't name one, matching
// query_composition's behavior for the results collection in the original
// socket.
func composeResultFilter(filter QueryFilter) QueryFilter {
	composed := make(QueryFilter, len(filter)+1)
	for k, v := range filter {
		composed[k] = v
	}
	for _, field := range resultFilterStringFields {
		if s, ok := composed[field].(string); ok {
			composed[field] = strings.ToLower(s)
		}
	}
	if status, ok := composed["status"]; !ok {
		composed["status"] = string(types.ResultStatusComplete)
	} else if s, ok := status.(string); ok {
		composed["status"] = strings.ToUpper(s)
	}
	return composed
}

// GetResults performs a filtered bucket scan, composing filter per
// composeResultFilter, then paginates the match set with skip/limit (limit
// defaulting to the store's configured max_limit). Projection is not
// implemented: BoltStore always returns whole Result documents (see
// DESIGN.md).
func (s *BoltStore) GetResults(filter QueryFilter, skip, limit int) ([]*types.Result, error) {
	if limit <= 0 || limit > s.maxLimit {
		limit = s.maxLimit
	}
	composed := composeResultFilter(filter)

	var matched []*types.Result
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResults).ForEach(func(_, v []byte) error {
			var doc map[string]interface{}
			if err := json.Unmarshal(v, &doc); err != nil {
				return err
			}
			if !composed.Matches(doc) {
				return nil
			}
			var r types.Result
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			matched = append(matched, &r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if skip > 0 {
		if skip >= len(matched) {
			return []*types.Result{}, nil
		}
		matched = matched[skip:]
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *BoltStore) GetResultsByIDs(ids []string) ([]*types.Result, types.Meta, error) {
	meta := types.NewMeta()
	var out []*types.Result
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, id := range ids {
			var r types.Result
			found, err := getJSON(tx, bucketResults, id, &r)
			if err != nil {
				return err
			}
			if !found {
				meta.Missing = append(meta.Missing, id)
				continue
			}
			out = append(out, &r)
		}
		return nil
	})
	meta.NFound = len(out)
	return out, meta, err
}

func (s *BoltStore) UpdateResult(r *types.Result) error {
	r.ModifiedOn = time.Now()
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketResults, r.ID, r)
	})
}

func (s *BoltStore) DeleteResults(ids []string) (int, error) {
	count := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, id := range ids {
			var r types.Result
			found, err := getJSON(tx, bucketResults, id, &r)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			if err := tx.Bucket(bucketResults).Delete([]byte(id)); err != nil {
				return err
			}
			if err := tx.Bucket(bucketResultsByKey).Delete([]byte(resultKey(&r))); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}
