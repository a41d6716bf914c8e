package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/iliyamo/fest-registration/internal/database/dbtest"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/repository"
)

// sqliteSources wires both real repositories to a fresh in-memory database.
func sqliteSources(t *testing.T) (*sql.DB, Sources) {
	t.Helper()
	db := dbtest.Open(t)
	return db, Sources{
		TierPass: repository.NewTierPassRepo(db),
		Event:    repository.NewEventRegRepo(db),
	}
}

// failingSource satisfies Source and fails every call with err.
type failingSource struct {
	kind model.Kind
	err  error
}

func (f failingSource) Kind() model.Kind { return f.kind }
func (f failingSource) FetchGroup(context.Context, string) (repository.GroupRecord, error) {
	return repository.GroupRecord{}, f.err
}
func (f failingSource) FetchByEmail(context.Context, string) ([]repository.GroupRecord, error) {
	return nil, f.err
}
func (f failingSource) FetchByUserID(context.Context, string) (repository.GroupRecord, error) {
	return repository.GroupRecord{}, f.err
}
func (f failingSource) FetchAll(context.Context, repository.GroupFilter) ([]repository.GroupRecord, error) {
	return nil, f.err
}
func (f failingSource) GuardedTransition(context.Context, string, model.Status, model.Status, model.ReviewMeta) error {
	return f.err
}
func (f failingSource) GroupExists(context.Context, string) (bool, error) { return false, f.err }

// countingSource wraps a Source and counts guarded writes.
type countingSource struct {
	Source
	mu     sync.Mutex
	writes int
}

func (c *countingSource) GuardedTransition(ctx context.Context, id string, expected, next model.Status, meta model.ReviewMeta) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.Source.GuardedTransition(ctx, id, expected, next, meta)
}

// recordingNotifier captures every notice and optionally fails.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notice
	err   error
}

type notice struct {
	email, template string
	vars            map[string]string
}

func (n *recordingNotifier) SendApprovalNotice(_ context.Context, email, template string, vars map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notice{email, template, vars})
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

var errStoreDown = errors.New("connection refused")
