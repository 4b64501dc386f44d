package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
	"github.com/aevon-lab/orderpulse/internal/pipeline"
	"github.com/aevon-lab/orderpulse/internal/summary"
)

// maxQueryDays caps the range of one summary query.
const maxQueryDays = 366

var (
	// ErrInvalidQuery marks request validation errors that should return HTTP 400.
	ErrInvalidQuery = errors.New("invalid summary query")

	// ErrTenantUnavailable is returned for a configured tenant without a database.
	ErrTenantUnavailable = errors.New("tenant database unavailable")
)

// SummaryReader reads overall_summary rows of one tenant.
type SummaryReader interface {
	OverallRows(ctx context.Context, r v1.DateRange) ([]summary.OverallRow, error)
}

// completionReader is implemented by stores that record run completion.
type completionReader interface {
	LastCompleted(ctx context.Context) (time.Time, bool, error)
}

// Runner triggers tenant runs and reports the last full run.
type Runner interface {
	RunTenant(ctx context.Context, id string) (pipeline.TenantResult, error)
	LastReport() (pipeline.RunReport, bool)
}

// Service serves run control and summary reads over HTTP.
type Service struct {
	runner  Runner
	readers map[string]SummaryReader
}

// NewService creates the service. A nil reader marks a configured tenant
// whose database is unavailable.
func NewService(runner Runner, readers map[string]SummaryReader) *Service {
	return &Service{runner: runner, readers: readers}
}

// ReadersFor maps every tenant to its summary reader.
func ReadersFor(tenants []*pipeline.TenantContext) map[string]SummaryReader {
	out := make(map[string]SummaryReader, len(tenants))
	for _, tc := range tenants {
		if tc.Available() {
			out[tc.ID] = tc.Store
		} else {
			out[tc.ID] = nil
		}
	}
	return out
}

// QueryOverall returns the overall summary of a tenant for a date range.
func (s *Service) QueryOverall(ctx context.Context, req OverallQueryRequest) (OverallQueryResponse, error) {
	if req.Granularity == "" {
		req.Granularity = GranularityDay
	}
	switch req.Granularity {
	case GranularityDay, GranularityMonth, GranularityTotal:
	default:
		return OverallQueryResponse{}, fmt.Errorf("%w: unsupported granularity %q", ErrInvalidQuery, req.Granularity)
	}

	rng := v1.DateRange{Min: coreagg.DateOf(req.Start), Max: coreagg.DateOf(req.End)}
	if req.Start.IsZero() || req.End.IsZero() {
		return OverallQueryResponse{}, fmt.Errorf("%w: start and end are required", ErrInvalidQuery)
	}
	if rng.Max.Before(rng.Min) {
		return OverallQueryResponse{}, fmt.Errorf("%w: end must not be before start", ErrInvalidQuery)
	}
	if rng.Days() > maxQueryDays {
		return OverallQueryResponse{}, fmt.Errorf("%w: range exceeds %d days", ErrInvalidQuery, maxQueryDays)
	}

	reader, ok := s.readers[req.TenantID]
	if !ok {
		return OverallQueryResponse{}, fmt.Errorf("%w: %s", pipeline.ErrUnknownTenant, req.TenantID)
	}
	if reader == nil {
		return OverallQueryResponse{}, fmt.Errorf("%w: %s", ErrTenantUnavailable, req.TenantID)
	}

	rows, err := reader.OverallRows(ctx, rng)
	if err != nil {
		return OverallQueryResponse{}, fmt.Errorf("query overall summary: %w", err)
	}

	resp := OverallQueryResponse{
		TenantID:    req.TenantID,
		Start:       rng.Min.Format(coreagg.DateLayout),
		End:         rng.Max.Format(coreagg.DateLayout),
		Granularity: req.Granularity,
	}
	switch req.Granularity {
	case GranularityMonth:
		resp.Rows = rollupToMonth(rows)
	case GranularityTotal:
		resp.Rows = rollupTotal(rows, rng)
	default:
		resp.Rows = rows
	}
	if resp.Rows == nil {
		resp.Rows = []summary.OverallRow{}
	}

	if cr, ok := reader.(completionReader); ok {
		if at, ok, err := cr.LastCompleted(ctx); err != nil {
			slog.Warn("[Projection] Could not read completion checkpoint", "tenant", req.TenantID, "error", err)
		} else if ok {
			resp.LastRunAt = &at
		}
	}

	return resp, nil
}
