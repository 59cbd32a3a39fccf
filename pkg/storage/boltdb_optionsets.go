package storage

import (
	"fmt"
	"time"

	"github.com/ChayaSt/QCFractal/pkg/types"
	bolt "go.etcd.io/bbolt"
)

func optionSetKey(program, name string) string {
	return program + "/" + name
}

// AddOptionSets deduplicates by (Program, Name); a match is reported as a
// duplicate and its existing ID is returned in place of inserting.
func (s *BoltStore) AddOptionSets(opts []*types.OptionSet) (types.Meta, []string, error) {
	meta := types.NewMeta()
	ids := make([]string, len(opts))
	if len(opts) == 0 {
		return meta, ids, nil
	}

	now := time.Now()
	err := s.db.Update(func(tx *bolt.Tx) error {
		keyBucket := tx.Bucket(bucketOptionSetsByKey)
		for i, o := range opts {
			key := optionSetKey(o.Program, o.Name)
			if existingIDBytes := keyBucket.Get([]byte(key)); existingIDBytes != nil {
				ids[i] = string(existingIDBytes)
				meta.Duplicates = append(meta.Duplicates, ids[i])
				continue
			}

			id := newID()
			o.ID = id
			o.CreatedOn = now
			if err := putJSON(tx, bucketOptionSets, id, o); err != nil {
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

func (s *BoltStore) GetOptionSets(ids []string) ([]*types.OptionSet, types.Meta, error) {
	meta := types.NewMeta()
	var out []*types.OptionSet
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, id := range ids {
			var o types.OptionSet
			found, err := getJSON(tx, bucketOptionSets, id, &o)
			if err != nil {
				return err
			}
			if !found {
				meta.Missing = append(meta.Missing, id)
				continue
			}
			out = append(out, &o)
		}
		return nil
	})
	meta.NFound = len(out)
	return out, meta, err
}

func (s *BoltStore) GetOptionSetByName(program, name string) (*types.OptionSet, error) {
	var o types.OptionSet
	err := s.db.View(func(tx *bolt.Tx) error {
		idBytes := tx.Bucket(bucketOptionSetsByKey).Get([]byte(optionSetKey(program, name)))
		if idBytes == nil {
			return fmt.Errorf("option set not found: %s/%s", program, name)
		}
		_, err := getJSON(tx, bucketOptionSets, string(idBytes), &o)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *BoltStore) DeleteOptionSets(ids []string) (int, error) {
	count := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, id := range ids {
			var o types.OptionSet
			found, err := getJSON(tx, bucketOptionSets, id, &o)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			if err := tx.Bucket(bucketOptionSets).Delete([]byte(id)); err != nil {
				return err
			}
			if err := tx.Bucket(bucketOptionSetsByKey).Delete([]byte(optionSetKey(o.Program, o.Name))); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}
