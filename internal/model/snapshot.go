package model

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Snapshot is the full set of readings returned by one successful poll.
type Snapshot struct {
	ID        string             `json:"id,omitempty"`
	EntryID   int64              `json:"entry_id,omitempty"`
	CreatedAt time.Time          `json:"created_at,omitempty"`
	FetchedAt time.Time          `json:"fetched_at,omitempty"`
	Readings  map[string]Reading `json:"readings"`
}

func EmptySnapshot() Snapshot {
	return Snapshot{Readings: map[string]Reading{}}
}

func NewSnapshot(entryID int64, createdAt time.Time, readings map[string]Reading) Snapshot {
	return Snapshot{
		ID:        uuid.New().String(),
		EntryID:   entryID,
		CreatedAt: createdAt,
		FetchedAt: time.Now().UTC(),
		Readings:  maps.Clone(readings),
	}
}

// Reading returns NoData for slots the snapshot does not hold.
func (s Snapshot) Reading(slot string) Reading {
	r, ok := s.Readings[slot]
	if !ok {
		return NoData()
	}
	return r
}

func (s Snapshot) IsEmpty() bool {
	return s.ID == ""
}

func (s Snapshot) Clone() Snapshot {
	c := s
	c.Readings = maps.Clone(s.Readings)
	if c.Readings == nil {
		c.Readings = map[string]Reading{}
	}
	return c
}
