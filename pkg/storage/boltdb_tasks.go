package storage

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ChayaSt/QCFractal/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// ErrDuplicateBaseResult is returned by CreateTask when a task already
// exists for the given BaseResult; TaskQueue.Submit catches it and merges
// hooks into the existing task instead of failing the caller.
var ErrDuplicateBaseResult = errors.New("storage: task already exists for base result")

func baseResultKey(ref types.DocumentRef) string {
	return ref.Kind + "/" + ref.ID
}

// CreateTask inserts a new task, indexed by its BaseResult, and fails with
// ErrDuplicateBaseResult if one is already indexed.
func (s *BoltStore) CreateTask(t *types.Task) error {
	now := time.Now()
	return s.db.Update(func(tx *bolt.Tx) error {
		indexBucket := tx.Bucket(bucketTasksByBaseRes)
		key := baseResultKey(t.BaseResult)
		if indexBucket.Get([]byte(key)) != nil {
			return ErrDuplicateBaseResult
		}

		t.ID = newID()
		t.CreatedOn = now
		t.ModifiedOn = now
		if t.Status == "" {
			t.Status = types.TaskStatusWaiting
		}
		if err := putJSON(tx, bucketTaskQueue, t.ID, t); err != nil {
			return err
		}
		return indexBucket.Put([]byte(key), []byte(t.ID))
	})
}

func (s *BoltStore) GetTask(id string) (*types.Task, error) {
	var t types.Task
	err := s.db.View(func(tx *bolt.Tx) error {
		found, err := getJSON(tx, bucketTaskQueue, id, &t)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("task not found: %s", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *BoltStore) GetTaskByBaseResult(ref types.DocumentRef) (*types.Task, error) {
	var t types.Task
	err := s.db.View(func(tx *bolt.Tx) error {
		idBytes := tx.Bucket(bucketTasksByBaseRes).Get([]byte(baseResultKey(ref)))
		if idBytes == nil {
			return fmt.Errorf("task not found for base result %s/%s", ref.Kind, ref.ID)
		}
		_, err := getJSON(tx, bucketTaskQueue, string(idBytes), &t)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *BoltStore) GetTasksByIDs(ids []string) ([]*types.Task, types.Meta, error) {
	meta := types.NewMeta()
	var out []*types.Task
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, id := range ids {
			var t types.Task
			found, err := getJSON(tx, bucketTaskQueue, id, &t)
			if err != nil {
				return err
			}
			if !found {
				meta.Missing = append(meta.Missing, id)
				continue
			}
			out = append(out, &t)
		}
		return nil
	})
	meta.NFound = len(out)
	return out, meta, err
}

// GetTasksByStatus scans for tasks in the given status, optionally filtered
// by tag, ordered oldest-CreatedOn-first (FIFO) and bounded by limit. This is
// the selection half of the lease idiom used by TaskQueue.GetNext; the
// caller is responsible for pairing it with the status update inside its own
// transaction-like critical section.
//
// BoltDB's bucket key is the task's UUID, not CreatedOn, so ForEach order
// carries no FIFO guarantee on its own: every matching task is collected
// first and then sorted by CreatedOn before limit truncates the result.
func (s *BoltStore) GetTasksByStatus(status types.TaskStatus, tag string, limit int) ([]*types.Task, error) {
	var out []*types.Task
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTaskQueue).ForEach(func(_, v []byte) error {
			var t types.Task
			if err := unmarshalInto(v, &t); err != nil {
				return err
			}
			if t.Status != status {
				return nil
			}
			if tag != "" && t.Tag != tag {
				return nil
			}
			out = append(out, &t)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedOn.Before(out[j].CreatedOn) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *BoltStore) UpdateTask(t *types.Task) error {
	t.ModifiedOn = time.Now()
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketTaskQueue, t.ID, t)
	})
}

// UpdateTasks writes every task in one BoltDB transaction, giving the
// find-then-update_many idiom a single atomic write even though the find
// half ran in a separate transaction.
func (s *BoltStore) UpdateTasks(tasks []*types.Task) error {
	now := time.Now()
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, t := range tasks {
			t.ModifiedOn = now
			if err := putJSON(tx, bucketTaskQueue, t.ID, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) DeleteTask(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var t types.Task
		found, err := getJSON(tx, bucketTaskQueue, id, &t)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		if err := tx.Bucket(bucketTaskQueue).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketTasksByBaseRes).Delete([]byte(baseResultKey(t.BaseResult)))
	})
}
