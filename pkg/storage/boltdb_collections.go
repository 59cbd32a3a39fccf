package storage

import (
	"fmt"
	"time"

	"github.com/ChayaSt/QCFractal/pkg/types"
	bolt "go.etcd.io/bbolt"
)

func collectionKey(collectionType, name string) string {
	return collectionType + "/" + name
}

// AddCollection upserts by (Type, Name): a match is returned with created
// false and its stored fields merged under the caller's update, matching the
// original socket's add-or-update collection semantics.
func (s *BoltStore) AddCollection(c *types.Collection) (*types.Collection, bool, error) {
	now := time.Now()
	created := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		keyBucket := tx.Bucket(bucketCollectionsKey)
		key := collectionKey(c.Type, c.Name)

		if existingIDBytes := keyBucket.Get([]byte(key)); existingIDBytes != nil {
			var existing types.Collection
			if _, err := getJSON(tx, bucketCollections, string(existingIDBytes), &existing); err != nil {
				return err
			}
			for k, v := range existing.Metadata {
				if _, ok := c.Metadata[k]; !ok {
					if c.Metadata == nil {
						c.Metadata = make(map[string]interface{}, len(existing.Metadata))
					}
					c.Metadata[k] = v
				}
			}
			if c.Tags == nil {
				c.Tags = existing.Tags
			}
			c.ID = string(existingIDBytes)
			c.CreatedOn = existing.CreatedOn
			c.ModifiedOn = now
			return putJSON(tx, bucketCollections, c.ID, c)
		}

		created = true
		c.ID = newID()
		c.CreatedOn = now
		c.ModifiedOn = now
		if err := putJSON(tx, bucketCollections, c.ID, c); err != nil {
			return err
		}
		return keyBucket.Put([]byte(key), []byte(c.ID))
	})
	if err != nil {
		return nil, false, err
	}
	return c, created, nil
}

func (s *BoltStore) GetCollectionByName(collectionType, name string) (*types.Collection, error) {
	var c types.Collection
	err := s.db.View(func(tx *bolt.Tx) error {
		idBytes := tx.Bucket(bucketCollectionsKey).Get([]byte(collectionKey(collectionType, name)))
		if idBytes == nil {
			return fmt.Errorf("collection not found: %s/%s", collectionType, name)
		}
		_, err := getJSON(tx, bucketCollections, string(idBytes), &c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *BoltStore) ListCollections(collectionType string) ([]*types.Collection, error) {
	var out []*types.Collection
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCollections).ForEach(func(_, v []byte) error {
			var c types.Collection
			if err := unmarshalInto(v, &c); err != nil {
				return err
			}
			if collectionType == "" || c.Type == collectionType {
				out = append(out, &c)
			}
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) UpdateCollection(c *types.Collection) error {
	c.ModifiedOn = time.Now()
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketCollections, c.ID, c)
	})
}

func (s *BoltStore) DeleteCollection(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var c types.Collection
		found, err := getJSON(tx, bucketCollections, id, &c)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		if err := tx.Bucket(bucketCollections).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketCollectionsKey).Delete([]byte(collectionKey(c.Type, c.Name)))
	})
}
