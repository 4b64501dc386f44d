package projection

import (
	"context"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	"github.com/aevon-lab/orderpulse/internal/pipeline"
	"github.com/aevon-lab/orderpulse/internal/summary"
	"github.com/stretchr/testify/mock"
)

type mockReader struct {
	mock.Mock
}

func (m *mockReader) OverallRows(ctx context.Context, r v1.DateRange) ([]summary.OverallRow, error) {
	args := m.Called(ctx, r)
	rows, _ := args.Get(0).([]summary.OverallRow)
	return rows, args.Error(1)
}

// completedReader also exposes the completion checkpoint.
type completedReader struct {
	mockReader
	at time.Time
}

func (c *completedReader) LastCompleted(context.Context) (time.Time, bool, error) {
	return c.at, !c.at.IsZero(), nil
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) RunTenant(ctx context.Context, id string) (pipeline.TenantResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(pipeline.TenantResult), args.Error(1)
}

func (m *mockRunner) LastReport() (pipeline.RunReport, bool) {
	args := m.Called()
	return args.Get(0).(pipeline.RunReport), args.Bool(1)
}
