package document

import "time"

// SampleMapID is served to anyone without a database round trip.
const SampleMapID = "map_sample"

func NewSampleDocument(gridSize int, cellSize float64) *MapDocument {
	now := time.Now().UTC().Format(time.RFC3339)

	return &MapDocument{
		Map: MapInfo{
			ID:        SampleMapID,
			Name:      "Sample Realm",
			Public:    true,
			GridSize:  gridSize,
			CellSize:  cellSize,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Buildings: []BuildingRecord{
			{X: 10, Y: 10, Name: "Aldmere", Type: "city"},
			{X: 14, Y: 11, Name: "Brackwater", Type: "town"},
			{X: 20, Y: 6, Name: "Highkeep", Type: "castle"},
			{X: 12, Y: 16, Name: "Saltmarsh Docks", Type: "port"},
			{X: 8, Y: 14, Name: "Fenwick", Type: "village"},
			{X: 9, Y: 15, Name: "", Type: "farm"},
			{X: 24, Y: 12, Name: "Greyvein", Type: "mine"},
		},
	}
}
