package engine

import (
	"fmt"
	"log/slog"

	"github.com/tilemark/mapeditor/internal/catalog"
	"github.com/tilemark/mapeditor/internal/document"
)

// LoadReport summarises one LoadBatch call.
type LoadReport struct {
	Seq       int64 `json:"seq"`
	Applied   int   `json:"applied"`
	Skipped   int   `json:"skipped"`
	Duplicate bool  `json:"duplicate"`
}

// Loader merges externally loaded building records into a Placement.
//
// Batches are identified by a sequence number; a batch that was already
// applied is ignored, so a redelivered batch never duplicates buildings.
type Loader struct {
	placement *Placement
	trusted   bool
	onFailure FailurePolicy
	seen      map[int64]bool
}

func NewLoader(p *Placement, opts Options) *Loader {
	return &Loader{
		placement: p,
		trusted:   opts.TrustLoaded,
		onFailure: opts.OnFailure,
		seen:      make(map[int64]bool),
	}
}

// LoadBatch places every record of batch seq. In skip mode bad records are
// logged and counted; in abort mode the first bad record undoes the batch
// and its error is returned.
func (l *Loader) LoadBatch(seq int64, records []document.BuildingRecord) (LoadReport, error) {
	report := LoadReport{Seq: seq}
	if l.seen[seq] {
		report.Duplicate = true
		return report, nil
	}

	start := l.placement.Len()
	for i, rec := range records {
		_, err := l.placement.place(GridCoord{X: rec.X, Y: rec.Y}, rec.Name, catalog.TypeID(rec.Type), !l.trusted)
		if err == nil {
			report.Applied++
			continue
		}
		if l.onFailure == FailAbort {
			l.placement.truncate(start)
			return LoadReport{Seq: seq}, fmt.Errorf("load batch %d record %d: %w", seq, i, err)
		}
		slog.Warn("skip building record", "seq", seq, "record", i, "name", rec.Name, "error", err)
		report.Skipped++
	}

	l.seen[seq] = true
	return report, nil
}

// Reset forgets every applied batch.
func (l *Loader) Reset() {
	l.seen = make(map[int64]bool)
}
