package handlers

import (
	"context"

	"github.com/geoatlas/geoquery-engine/pkg/nlq"
)

// mockPipeline is a function-field mock of nlq.Pipeline.
type mockPipeline struct {
	ExecuteFunc  func(ctx context.Context, rawQuery string) (*nlq.Result, error)
	ExecuteCalls int
	Queries      []string
}

func (m *mockPipeline) Execute(ctx context.Context, rawQuery string) (*nlq.Result, error) {
	m.ExecuteCalls++
	m.Queries = append(m.Queries, rawQuery)
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, rawQuery)
	}
	return &nlq.Result{}, nil
}

var _ nlq.Pipeline = (*mockPipeline)(nil)
