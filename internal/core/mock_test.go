package core

import (
	"context"
	"os"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/histograph/internal/core/model"
)

type Call struct {
	Query  string
	Params map[string]interface{}
}

// MockDriver answers each query constant with a canned result or error and
// records every call in order.
type MockDriver struct {
	Calls   []Call
	Results map[string]neo4j.EagerResult
	Errs    map[string]error
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.Calls = append(m.Calls, Call{Query: query, Params: params})
	if err := m.Errs[query]; err != nil {
		return neo4j.EagerResult{}, err
	}
	return m.Results[query], nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Queries() []string {
	out := make([]string, 0, len(m.Calls))
	for _, c := range m.Calls {
		out = append(out, c.Query)
	}
	return out
}

type MockIndex struct {
	Created   []string
	Deleted   []string
	CreateErr error
	DeleteErr error
}

func (m *MockIndex) Create(ctx context.Context, dataset string) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Created = append(m.Created, dataset)
	return nil
}

func (m *MockIndex) Delete(ctx context.Context, dataset string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.Deleted = append(m.Deleted, dataset)
	return nil
}

// MockNotifier records the snapshot size seen at each notification.
type MockNotifier struct {
	Filename func(dataset string, kind model.FileKind) string
	Err      error

	mu    sync.Mutex
	Sizes map[model.FileKind]int64
}

func (m *MockNotifier) FileChanged(ctx context.Context, dataset string, kind model.FileKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Sizes == nil {
		m.Sizes = map[model.FileKind]int64{}
	}
	size := int64(-1)
	if info, err := os.Stat(m.Filename(dataset, kind)); err == nil {
		size = info.Size()
	}
	m.Sizes[kind] = size
	return m.Err
}

func datasetRecord(props map[string]interface{}) *neo4j.Record {
	return &neo4j.Record{Keys: []string{"dataset"}, Values: []interface{}{props}}
}

func ownerRecord(name, password string) *neo4j.Record {
	return &neo4j.Record{Keys: []string{"name", "password"}, Values: []interface{}{name, password}}
}
