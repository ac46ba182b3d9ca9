// Package dashboard turns the current snapshot into display rows and serves
// them as an HTML page, a JSON document and a terminal table.
package dashboard

import (
	"github.com/speedwagon-io/wastemon/internal/config"
	"github.com/speedwagon-io/wastemon/internal/level"
	"github.com/speedwagon-io/wastemon/internal/model"
)

// Row is one bin panel. Loading rows show the placeholder instead of a reading.
type Row struct {
	Bin      int            `json:"bin"`
	Slot     string         `json:"slot"`
	Name     string         `json:"location"`
	URL      string         `json:"url"`
	Severity level.Severity `json:"severity"`
	Color    level.Color    `json:"color"`
	Value    *float64       `json:"value"`
	Loading  bool           `json:"loading"`
}

func (r Row) Label() string {
	return r.Severity.String()
}

func (r Row) ColorClass() string {
	return r.Color.Class()
}

// Render builds one row per bin in table order.
func Render(snap model.Snapshot, bins []config.BinConfig) []Row {
	rows := make([]Row, 0, len(bins))
	for i, b := range bins {
		reading := snap.Reading(b.Slot)
		severity := level.Classify(reading)

		row := Row{
			Bin:      i + 1,
			Slot:     b.Slot,
			Name:     b.Name,
			URL:      b.URL,
			Severity: severity,
			Color:    level.ColorFor(severity),
			Loading:  severity == level.NotInitialized,
		}
		if reading.Valid {
			v := reading.Value
			row.Value = &v
		}
		rows = append(rows, row)
	}
	return rows
}
