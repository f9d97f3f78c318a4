package supervisor

import (
	"context"

	batchv1 "k8s.io/api/batch/v1"

	"github.com/apsviz/run-supervisor/internal/cluster"
	"github.com/apsviz/run-supervisor/internal/store"
)

// mockStore is a Store test double: every method delegates to an
// overridable func field, with a sane default.
type mockStore struct {
	ListAdmittedFunc func(ctx context.Context) ([]store.AdmittedRun, error)

	statuses map[string][]string
}

func newMockStore() *mockStore {
	return &mockStore{statuses: make(map[string][]string)}
}

func (m *mockStore) ListAdmitted(ctx context.Context) ([]store.AdmittedRun, error) {
	if m.ListAdmittedFunc != nil {
		return m.ListAdmittedFunc(ctx)
	}
	return nil, nil
}

func (m *mockStore) UpdateStatus(ctx context.Context, runID, provenance string) error {
	m.statuses[runID] = append(m.statuses[runID], provenance)
	return nil
}

func (m *mockStore) latest(runID string) string {
	all := m.statuses[runID]
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1]
}

// mockDriver is a Driver test double. InspectFunc/CreateFunc let each test
// script the cluster's reported job lifecycle.
type mockDriver struct {
	CreateFunc  func(ctx context.Context, job *batchv1.Job) (cluster.JobHandle, error)
	InspectFunc func(ctx context.Context, handle cluster.JobHandle) (cluster.Activity, string, error)

	creates int
	deletes int
}

func (m *mockDriver) Create(ctx context.Context, job *batchv1.Job) (cluster.JobHandle, error) {
	m.creates++
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, job)
	}
	return cluster.JobHandle{Namespace: job.Namespace, Name: job.Name}, nil
}

func (m *mockDriver) Inspect(ctx context.Context, handle cluster.JobHandle) (cluster.Activity, string, error) {
	if m.InspectFunc != nil {
		return m.InspectFunc(ctx, handle)
	}
	return cluster.ActivityInactive, "Succeeded", nil
}

func (m *mockDriver) Delete(ctx context.Context, handle cluster.JobHandle) (string, error) {
	m.deletes++
	return "OK", nil
}

// mockNotifier is a Notifier test double that records every call.
type mockNotifier struct {
	messages []string
}

func (m *mockNotifier) Notify(ctx context.Context, runID, message, instanceName string) {
	m.messages = append(m.messages, runID+": "+message)
}
