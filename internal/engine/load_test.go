package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/tilemark/mapeditor/internal/catalog"
	"github.com/tilemark/mapeditor/internal/document"
)

var mixedRecords = []document.BuildingRecord{
	{X: 10, Y: 10, Name: "ok-1", Type: "city"},
	{X: 1, Y: 1, Name: "bad type", Type: "spaceport"},
	{X: 399, Y: 399, Name: "too big", Type: "city"},
	{X: 11, Y: 11, Name: "overlap", Type: "city"},
	{X: 12, Y: 10, Name: "ok-2", Type: "city"},
}

func newTestLoader(trusted bool, policy FailurePolicy) (*Loader, *Placement) {
	opts := DefaultOptions()
	opts.GridSize = 400
	opts.TrustLoaded = trusted
	opts.OnFailure = policy
	p := NewPlacement(catalog.New(), opts.GridSize)
	return NewLoader(p, opts), p
}

func TestLoadBatchSkipsBadRecords(t *testing.T) {
	l, p := newTestLoader(false, FailSkip)

	report, err := l.LoadBatch(1, mixedRecords)
	if err != nil {
		t.Fatalf("LoadBatch failed: %v", err)
	}
	if report.Applied != 2 || report.Skipped != 3 {
		t.Errorf("Expected 2 applied / 3 skipped, got %+v", report)
	}

	list := p.ListAll()
	if len(list) != 2 || list[0].Building.Name != "ok-1" || list[1].Building.Name != "ok-2" {
		t.Errorf("Unexpected buildings %+v", list)
	}
}

func TestLoadBatchAbortRollsBack(t *testing.T) {
	l, p := newTestLoader(false, FailAbort)
	p.Place(GridCoord{X: 100, Y: 100}, "interactive", catalog.TypeFarm)

	_, err := l.LoadBatch(1, mixedRecords)
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("Expected ErrUnknownType, got %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("Expected only the interactive building to remain, have %d", p.Len())
	}

	// An aborted batch was never applied, so it may be retried.
	report, err := l.LoadBatch(1, mixedRecords[:1])
	if err != nil || report.Applied != 1 || report.Duplicate {
		t.Errorf("retry of aborted batch: %+v, %v", report, err)
	}
}

func TestLoadBatchTrustedSkipsOnlyOverlap(t *testing.T) {
	l, p := newTestLoader(true, FailSkip)

	report, err := l.LoadBatch(1, mixedRecords)
	if err != nil {
		t.Fatalf("LoadBatch failed: %v", err)
	}
	if report.Applied != 3 || report.Skipped != 2 {
		t.Errorf("Expected 3 applied / 2 skipped, got %+v", report)
	}
	if _, err := p.Get(1); err != nil {
		t.Fatalf("Get(1): %v", err)
	}
	if b, _ := p.Get(1); b.Name != "overlap" {
		t.Errorf("Expected the overlapping record to load, got %q", b.Name)
	}
}

func TestLoadBatchIgnoresRedelivery(t *testing.T) {
	l, p := newTestLoader(false, FailSkip)
	batch := []document.BuildingRecord{{X: 5, Y: 5, Name: "once", Type: "farm"}}

	if _, err := l.LoadBatch(7, batch); err != nil {
		t.Fatalf("LoadBatch failed: %v", err)
	}
	report, err := l.LoadBatch(7, batch)
	if err != nil {
		t.Fatalf("LoadBatch redelivery failed: %v", err)
	}
	if !report.Duplicate || report.Applied != 0 {
		t.Errorf("Expected duplicate report, got %+v", report)
	}
	if p.Len() != 1 {
		t.Errorf("Expected 1 building, got %d", p.Len())
	}

	l.Reset()
	if report, _ := l.LoadBatch(7, nil); report.Duplicate {
		t.Errorf("Reset should forget applied batches")
	}
}

func TestLoadBatchRejectsHugeCoordinates(t *testing.T) {
	recs := []document.BuildingRecord{
		{X: math.MaxInt, Y: 0, Name: "far", Type: "castle"},
		{X: 0, Y: math.MaxInt - 1, Name: "low", Type: "city"},
		{X: 3, Y: 3, Name: "ok", Type: "farm"},
	}
	for _, trusted := range []bool{false, true} {
		l, p := newTestLoader(trusted, FailSkip)
		report, err := l.LoadBatch(1, recs)
		if err != nil {
			t.Fatalf("trusted=%v: LoadBatch failed: %v", trusted, err)
		}
		if report.Applied != 1 || report.Skipped != 2 {
			t.Errorf("trusted=%v: expected 1 applied / 2 skipped, got %+v", trusted, report)
		}
		if list := p.ListAll(); len(list) != 1 || list[0].Building.Name != "ok" {
			t.Errorf("trusted=%v: unexpected buildings %+v", trusted, list)
		}
	}

	l, p := newTestLoader(true, FailAbort)
	if _, err := l.LoadBatch(1, recs[:1]); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds, got %v", err)
	}
	if p.Len() != 0 {
		t.Errorf("Expected nothing placed, got %d", p.Len())
	}
}
