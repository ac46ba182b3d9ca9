package telemetry

import (
	"context"
	"time"

	"github.com/speedwagon-io/wastemon/internal/config"
	"github.com/speedwagon-io/wastemon/internal/model"
)

// Feed is the latest entry of a telemetry channel with its raw fields.
type Feed struct {
	EntryID   int64
	CreatedAt time.Time
	Fields    map[string]any
}

type Fetcher interface {
	FetchLast(ctx context.Context) (*Feed, error)
	Name() string
	Close() error
}

// Readings maps every bin to the reading held in its field. Fields that are
// missing or unusable become NoData.
func (f *Feed) Readings(bins []config.BinConfig) map[string]model.Reading {
	readings := make(map[string]model.Reading, len(bins))
	for _, b := range bins {
		readings[b.Slot] = ParseValue(f.Fields[b.Field])
	}
	return readings
}

// Snapshot converts the feed into a snapshot for the given bins.
func (f *Feed) Snapshot(bins []config.BinConfig) model.Snapshot {
	return model.NewSnapshot(f.EntryID, f.CreatedAt, f.Readings(bins))
}
