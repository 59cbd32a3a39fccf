package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ChayaSt/QCFractal/pkg/types"
	bolt "go.etcd.io/bbolt"
)

func (s *BoltStore) CreateService(svc *types.Service) error {
	now := time.Now()
	return s.db.Update(func(tx *bolt.Tx) error {
		svc.ID = newID()
		svc.CreatedOn = now
		svc.ModifiedOn = now
		if svc.Status == "" {
			svc.Status = types.ResultStatusIncomplete
		}
		return putJSON(tx, bucketServiceQueue, svc.ID, svc)
	})
}

func (s *BoltStore) GetService(id string) (*types.Service, error) {
	var svc types.Service
	err := s.db.View(func(tx *bolt.Tx) error {
		found, err := getJSON(tx, bucketServiceQueue, id, &svc)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("service not found: %s", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (s *BoltStore) GetServicesByStatus(status types.ResultStatus) ([]*types.Service, error) {
	var out []*types.Service
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketServiceQueue).ForEach(func(_, v []byte) error {
			var svc types.Service
			if err := unmarshalInto(v, &svc); err != nil {
				return err
			}
			if svc.Status == status {
				out = append(out, &svc)
			}
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) UpdateService(svc *types.Service) error {
	svc.ModifiedOn = time.Now()
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketServiceQueue, svc.ID, svc)
	})
}

func (s *BoltStore) DeleteService(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketServiceQueue).Delete([]byte(id))
	})
}

// bucketForKind maps a DocumentRef.Kind to the bucket it lives in. Hook
// targets are not restricted to services: any document kind named by a
// HookList's Document reference is addressable, per the spec's decision to
// treat that reference as authoritative rather than hard-coding a single
// target collection.
func bucketForKind(kind string) ([]byte, error) {
	switch kind {
	case "service":
		return bucketServiceQueue, nil
	case "result":
		return bucketResults, nil
	case "procedure":
		return bucketProcedures, nil
	case "task":
		return bucketTaskQueue, nil
	default:
		return nil, fmt.Errorf("unknown hook document kind: %q", kind)
	}
}

// modifiedOnKeyForKind returns the JSON key HandleHooks stamps with the
// current time after applying a document's hooks. Result and Procedure carry
// explicit lowercase json tags (for GetResults's query composition); Service
// and Task have none and decode under Go's default capitalized field names.
func modifiedOnKeyForKind(kind string) string {
	switch kind {
	case "result", "procedure":
		return "modified_on"
	default:
		return "ModifiedOn"
	}
}

// HandleHooks applies every HookList's update operators to the document its
// own Document reference names, as one dynamic JSON field edit rather than
// a typed struct update: Service/Result/Procedure payloads are schemaless
// past their identity fields, so hooks operate on the decoded document map.
func (s *BoltStore) HandleHooks(hooks []types.HookList) (types.Meta, error) {
	meta := types.NewMeta()

	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, hl := range hooks {
			bucketName, err := bucketForKind(hl.Document.Kind)
			if err != nil {
				meta.Success = false
				meta.Errors = append(meta.Errors, err.Error())
				continue
			}

			b := tx.Bucket(bucketName)
			raw := b.Get([]byte(hl.Document.ID))
			if raw == nil {
				meta.Missing = append(meta.Missing, hl.Document.ID)
				continue
			}

			var doc map[string]interface{}
			if err := json.Unmarshal(raw, &doc); err != nil {
				return err
			}

			for _, h := range hl.Updates {
				switch h.Op {
				case types.HookOpSet:
					setPath(doc, h.Field, h.Value)
				case types.HookOpPush:
					pushPath(doc, h.Field, h.Value)
				case types.HookOpInc:
					incPath(doc, h.Field, h.Value)
				default:
					meta.Errors = append(meta.Errors, fmt.Sprintf("unknown hook op: %q", h.Op))
				}
			}
			doc[modifiedOnKeyForKind(hl.Document.Kind)] = time.Now()

			data, err := json.Marshal(doc)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(hl.Document.ID), data); err != nil {
				return err
			}
			meta.NInserted++
		}
		return nil
	})
	if err != nil {
		meta.Success = false
		meta.ErrorDescription = err.Error()
	}
	return meta, err
}

// setPath, pushPath and incPath navigate a dotted field path into a decoded
// JSON document, creating intermediate maps as needed.
func setPath(doc map[string]interface{}, field string, value interface{}) {
	parent, leaf := navigate(doc, field)
	parent[leaf] = value
}

func pushPath(doc map[string]interface{}, field string, value interface{}) {
	parent, leaf := navigate(doc, field)
	existing, _ := parent[leaf].([]interface{})
	parent[leaf] = append(existing, value)
}

func incPath(doc map[string]interface{}, field string, delta interface{}) {
	parent, leaf := navigate(doc, field)
	d, ok := toFloat(delta)
	if !ok {
		return
	}
	current, _ := toFloat(parent[leaf])
	parent[leaf] = current + d
}

func navigate(doc map[string]interface{}, field string) (map[string]interface{}, string) {
	parts := strings.Split(field, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			cur[p] = next
		}
		cur = next
	}
	return cur, parts[len(parts)-1]
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
