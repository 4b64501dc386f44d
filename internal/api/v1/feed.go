package v1

import "time"

// Feed is one of the two ingestion paths of a tenant.
type Feed string

const (
	// FeedNew follows orders by creation time.
	FeedNew Feed = "new"
	// FeedUpdated follows orders by last update time.
	FeedUpdated Feed = "updated"
)

// Feeds lists the feeds in processing order.
var Feeds = []Feed{FeedNew, FeedUpdated}

// FilterField is the upstream timestamp field the feed window applies to.
func (f Feed) FilterField() string {
	if f == FeedUpdated {
		return "updated_at"
	}
	return "created_at"
}

// Table is the raw table the feed's flattened rows are written to.
func (f Feed) Table() string {
	if f == FeedUpdated {
		return "order_updates"
	}
	return "orders"
}

// CheckpointKey is the pipeline_metadata key holding the feed's high-water-mark.
func (f Feed) CheckpointKey() string {
	if f == FeedUpdated {
		return "last_updated_order_timestamp"
	}
	return "last_new_order_timestamp"
}

// FetchWindow is the half-open interval [Low, High) requested from upstream.
type FetchWindow struct {
	Tenant   string
	Feed     Feed
	Low      time.Time
	High     time.Time
	Backfill bool
}

// Empty reports whether the window cannot contain any event.
func (w FetchWindow) Empty() bool {
	return !w.Low.Before(w.High)
}
