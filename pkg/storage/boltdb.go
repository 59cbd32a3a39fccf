package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketMolecules       = []byte("molecules")
	bucketMoleculesByHash = []byte("molecules_by_hash")
	bucketOptionSets      = []byte("options")
	bucketOptionSetsByKey = []byte("options_by_name")
	bucketCollections     = []byte("collections")
	bucketCollectionsKey  = []byte("collections_by_name")
	bucketResults         = []byte("results")
	bucketResultsByKey    = []byte("results_by_key")
	bucketProcedures      = []byte("procedures")
	bucketTaskQueue       = []byte("task_queue")
	bucketTasksByBaseRes  = []byte("tasks_by_base_result")
	bucketServiceQueue    = []byte("service_queue")
	bucketManagers        = []byte("queue_managers")
	bucketManagersByName  = []byte("managers_by_name")
	bucketUsers           = []byte("users")
)

// defaultMaxLimit mirrors MongoengineSocket's default max_limit of 1000
// results returned from an unbounded Get call.
const defaultMaxLimit = 1000

// BoltStore implements Store on top of a single embedded BoltDB file, one
// bucket per entity collection plus a handful of secondary-index buckets for
// the natural keys that are not the primary ID.
type BoltStore struct {
	db       *bolt.DB
	maxLimit int
}

// NewBoltStore opens (creating if necessary) the database file under
// dataDir and ensures every bucket exists. maxLimit bounds unbounded Get
// calls; zero defaults to 1000, matching the original socket's default.
func NewBoltStore(dataDir string, maxLimit int) (*BoltStore, error) {
	if maxLimit <= 0 {
		maxLimit = defaultMaxLimit
	}

	dbPath := filepath.Join(dataDir, "qcfractal.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	buckets := [][]byte{
		bucketMolecules, bucketMoleculesByHash,
		bucketOptionSets, bucketOptionSetsByKey,
		bucketCollections, bucketCollectionsKey,
		bucketResults, bucketResultsByKey,
		bucketProcedures,
		bucketTaskQueue, bucketTasksByBaseRes,
		bucketServiceQueue,
		bucketManagers, bucketManagersByName,
		bucketUsers,
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, maxLimit: maxLimit}, nil
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func newID() string {
	return uuid.NewString()
}

// putJSON marshals v and writes it to bucket under key, inside tx.
func putJSON(tx *bolt.Tx, bucket []byte, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Bucket(bucket).Put([]byte(key), data)
}

// getJSON reads key from bucket and unmarshals into v. Returns false if the
// key does not exist.
func getJSON(tx *bolt.Tx, bucket []byte, key string, v interface{}) (bool, error) {
	data := tx.Bucket(bucket).Get([]byte(key))
	if data == nil {
		return false, nil
	}
	return true, json.Unmarshal(data, v)
}

func unmarshalInto(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
