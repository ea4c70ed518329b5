// Package store defines keyed read/update access to the shared job and asset
// records. The data layer itself is owned elsewhere; the worker only performs
// partial updates scoped to a single record's identifier, so cross-job write
// conflicts cannot occur.
package store

import (
	"context"

	"riptide/internal/media"
)

// JobStore reads and partially updates job records.
type JobStore interface {
	GetJob(ctx context.Context, id string) (*media.Job, error)
	UpdateJob(ctx context.Context, id string, update media.JobUpdate) error
}

// AssetStore reads and partially updates media asset records. The worker
// never deletes assets.
type AssetStore interface {
	GetAsset(ctx context.Context, id, orgID string) (*media.MediaAsset, error)
	UpdateAsset(ctx context.Context, id, orgID string, update media.AssetUpdate) error
}

// Store combines the two record families behind one handle.
type Store interface {
	JobStore
	AssetStore
}
