// Package store is the key-value persistence boundary. Values are JSON documents
// addressed by string keys; every backend also publishes a change feed so other
// processes (or other components in this one) can follow writes.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

const (
	KeyObjectives        = "okr-objectives"
	KeyDepartmentStats   = "okr-department-stats"
	KeyGlobalStartDate   = "okr-global-start-date"
	KeyGlobalEndDate     = "okr-global-end-date"
	KeyCycle             = "okr-cycle"
	KeyManualCurrentDate = "okr-manual-current-date"
	KeyTimelineEntries   = "okr-timeline-entries"
	KeyCompanyObjectives = "okr-company-objectives"
)

// Change is one observed write. Deleted changes carry no value.
type Change struct {
	Key     string
	Value   string
	Deleted bool
}

type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Watch streams changes to the given keys (all keys when none are given)
	// until ctx is done, then closes the channel. Writes issued after Watch
	// returns are guaranteed to be delivered unless noted by the backend.
	Watch(ctx context.Context, keys ...string) (<-chan Change, error)
}
