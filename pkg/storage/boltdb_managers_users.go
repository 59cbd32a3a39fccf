package storage

import (
	"fmt"
	"time"

	"github.com/ChayaSt/QCFractal/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// UpsertManager creates or overwrites a manager's heartbeat record, keyed by
// its natural Name. It never touches the counters; use
// IncrementManagerCounters for those so concurrent heartbeats never clobber
// an in-flight counter addition.
func (s *BoltStore) UpsertManager(m *types.Manager) error {
	now := time.Now()
	return s.db.Update(func(tx *bolt.Tx) error {
		nameBucket := tx.Bucket(bucketManagersByName)
		if idBytes := nameBucket.Get([]byte(m.Name)); idBytes != nil {
			m.ID = string(idBytes)
			var existing types.Manager
			if _, err := getJSON(tx, bucketManagers, m.ID, &existing); err != nil {
				return err
			}
			m.CreatedOn = existing.CreatedOn
			m.SubmittedCount = existing.SubmittedCount
			m.CompletedCount = existing.CompletedCount
			m.FailedCount = existing.FailedCount
			m.ReturnedCount = existing.ReturnedCount
		} else {
			m.ID = newID()
			m.CreatedOn = now
			if err := nameBucket.Put([]byte(m.Name), []byte(m.ID)); err != nil {
				return err
			}
		}
		m.LastHeartbeat = now
		return putJSON(tx, bucketManagers, m.ID, m)
	})
}

func (s *BoltStore) GetManager(name string) (*types.Manager, error) {
	var m types.Manager
	err := s.db.View(func(tx *bolt.Tx) error {
		idBytes := tx.Bucket(bucketManagersByName).Get([]byte(name))
		if idBytes == nil {
			return fmt.Errorf("manager not found: %s", name)
		}
		_, err := getJSON(tx, bucketManagers, string(idBytes), &m)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *BoltStore) ListManagers() ([]*types.Manager, error) {
	var out []*types.Manager
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketManagers).ForEach(func(_, v []byte) error {
			var m types.Manager
			if err := unmarshalInto(v, &m); err != nil {
				return err
			}
			out = append(out, &m)
			return nil
		})
	})
	return out, err
}

// IncrementManagerCounters adds delta's fields to a manager's counters in a
// single read-increment-write transaction, giving BoltDB (which has no
// native $inc) the same independent-counter compare-and-add semantics as
// manager_update in the original socket: submitted, completed, failed and
// returned are each added in isolation, never derived from one another.
func (s *BoltStore) IncrementManagerCounters(name string, delta types.ManagerCounterDelta) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		idBytes := tx.Bucket(bucketManagersByName).Get([]byte(name))
		if idBytes == nil {
			return fmt.Errorf("manager not found: %s", name)
		}
		var m types.Manager
		if _, err := getJSON(tx, bucketManagers, string(idBytes), &m); err != nil {
			return err
		}
		m.SubmittedCount += delta.Submitted
		m.CompletedCount += delta.Completed
		m.FailedCount += delta.Failed
		m.ReturnedCount += delta.Returned
		return putJSON(tx, bucketManagers, m.ID, &m)
	})
}

// AddUser inserts a user keyed by its natural Username.
func (s *BoltStore) AddUser(u *types.User) error {
	now := time.Now()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		if b.Get([]byte(u.Username)) != nil {
			return fmt.Errorf("user already exists: %s", u.Username)
		}
		u.ID = newID()
		u.CreatedOn = now
		return putJSON(tx, bucketUsers, u.Username, u)
	})
}

func (s *BoltStore) GetUserByUsername(username string) (*types.User, error) {
	var u types.User
	err := s.db.View(func(tx *bolt.Tx) error {
		found, err := getJSON(tx, bucketUsers, username, &u)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("user not found: %s", username)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *BoltStore) DeleteUser(username string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUsers).Delete([]byte(username))
	})
}
