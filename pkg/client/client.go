// Package client is the in-process bridge a CLI or embedding program uses to
// talk to a QCFractal server: one method per server operation, each wrapped
// in a context timeout, mirroring a networked gRPC client's method shape
// without the wire layer a network client would need. A REST/gRPC front end
// is explicitly out of scope; this is the stateless client boundary minus
// the wire protocol.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/ChayaSt/QCFractal/pkg/auth"
	"github.com/ChayaSt/QCFractal/pkg/storage"
	"github.com/ChayaSt/QCFractal/pkg/taskqueue"
	"github.com/ChayaSt/QCFractal/pkg/types"
)

const defaultTimeout = 10 * time.Second

// Client is a bound handle onto one server's Store/TaskQueue/Auth.
type Client struct {
	store    storage.Store
	queue    *taskqueue.TaskQueue
	auth     *auth.Auth
	username string
}

// New builds a Client over an already-running server's components. verify
// mirrors the manager's --noverify flag: when true and username is set, the
// credentials are checked against auth before the client is returned.
func New(store storage.Store, queue *taskqueue.TaskQueue, authn *auth.Auth, username, password string, verify bool) (*Client, error) {
	if verify && username != "" {
		ok, err := authn.Verify(username, password, types.PermissionRead)
		if err != nil {
			return nil, fmt.Errorf("client: authenticate: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("client: authentication failed for user %q", username)
		}
	}
	return &Client{store: store, queue: queue, auth: authn, username: username}, nil
}

// AddMolecules inserts molecules, deduplicating by structural hash.
func (c *Client) AddMolecules(ctx context.Context, mols []*types.Molecule) (types.Meta, []string, error) {
	_, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return c.store.AddMolecules(mols)
}

// GetMolecules retrieves molecules by ID.
func (c *Client) GetMolecules(ctx context.Context, ids []string) ([]*types.Molecule, types.Meta, error) {
	_, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return c.store.GetMolecules(ids)
}

// AddResults inserts or updates results, deduplicating by identity tuple.
func (c *Client) AddResults(ctx context.Context, results []*types.Result, updateExisting bool) (types.Meta, []string, error) {
	_, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return c.store.AddResults(results, updateExisting)
}

// GetResults queries results with an optional filter, paginated by skip/limit.
func (c *Client) GetResults(ctx context.Context, filter storage.QueryFilter, skip, limit int) ([]*types.Result, error) {
	_, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return c.store.GetResults(filter, skip, limit)
}

// AddProcedures inserts procedure records.
func (c *Client) AddProcedures(ctx context.Context, procs []*types.Procedure) (types.Meta, []string, error) {
	_, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return c.store.AddProcedures(procs)
}

// SubmitTasks enqueues tasks for a batch of already-stored results or
// procedures, merging hooks when a task already exists for the same base
// document.
func (c *Client) SubmitTasks(ctx context.Context, tasks []*types.Task) (types.Meta, []string, error) {
	_, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return c.queue.Submit(tasks)
}

// CheckTasks reports the current status of a batch of tasks by ID.
func (c *Client) CheckTasks(ctx context.Context, ids []string) ([]*types.Task, types.Meta, error) {
	_, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return c.queue.GetByIDs(ids)
}

// AddCollection upserts a named collection by (type, name).
func (c *Client) AddCollection(ctx context.Context, col *types.Collection) (*types.Collection, bool, error) {
	_, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return c.store.AddCollection(col)
}

// GetCollection fetches a collection by (type, name).
func (c *Client) GetCollection(ctx context.Context, collectionType, name string) (*types.Collection, error) {
	_, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return c.store.GetCollectionByName(collectionType, name)
}

// ListManagers reports every manager's heartbeat and counters.
func (c *Client) ListManagers(ctx context.Context) ([]*types.Manager, error) {
	_, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return c.store.ListManagers()
}
