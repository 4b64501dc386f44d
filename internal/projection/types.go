package projection

import (
	"time"

	"github.com/aevon-lab/orderpulse/internal/summary"
)

// Granularities accepted by the overall summary query.
const (
	GranularityDay   = "day"
	GranularityMonth = "month"
	GranularityTotal = "total"
)

// OverallQueryRequest selects overall_summary rows of one tenant.
type OverallQueryRequest struct {
	TenantID    string
	Start       time.Time
	End         time.Time
	Granularity string // default: "day"
}

// OverallQueryResponse carries the rows of the range, rolled up to the
// requested granularity. Days without a row are absent.
type OverallQueryResponse struct {
	TenantID    string               `json:"tenant_id"`
	Start       string               `json:"start"`
	End         string               `json:"end"`
	Granularity string               `json:"granularity"`
	LastRunAt   *time.Time           `json:"last_completed_at,omitempty"`
	Rows        []summary.OverallRow `json:"rows"`
}
