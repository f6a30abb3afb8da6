package storage

import "vaultfolio/internal/model"

// SnapshotSink persists portfolio snapshots for charting history.
type SnapshotSink interface {
	PutSnapshot(snapshot model.PortfolioSnapshot) error
}
